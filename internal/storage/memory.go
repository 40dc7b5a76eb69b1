package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/models"
)

// MemoryStore keeps every collection in process memory. When created with a
// data directory it reloads and rewrites a JSON snapshot on each mutation.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]*models.User
	events        map[string]*models.Event
	messages      map[string]*models.Message
	notifications map[string]*models.Notification
	reports       map[string]*models.EventReport

	file *snapshotFile
	log  *zap.Logger
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]*models.User),
		events:        make(map[string]*models.Event),
		messages:      make(map[string]*models.Message),
		notifications: make(map[string]*models.Notification),
		reports:       make(map[string]*models.EventReport),
		log:           zap.NewNop(),
	}
}

// NewPersistentMemoryStore loads dataDir/eventhub.json if it exists.
func NewPersistentMemoryStore(dataDir string, log *zap.Logger) (*MemoryStore, error) {
	s := NewMemoryStore()
	s.log = log

	file, err := newSnapshotFile(dataDir)
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := file.load(&snap); err != nil {
		return nil, err
	}
	for _, u := range snap.Users {
		s.users[u.ID] = u
	}
	for _, e := range snap.Events {
		s.events[e.ID] = e
	}
	for _, m := range snap.Messages {
		s.messages[m.ID] = m
	}
	for _, n := range snap.Notifications {
		s.notifications[n.ID] = n
	}
	for _, r := range snap.Reports {
		s.reports[r.ID] = r
	}
	s.file = file
	log.Info("memory store loaded",
		zap.String("dir", dataDir),
		zap.Int("users", len(s.users)),
		zap.Int("events", len(s.events)))
	return s, nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// persistLocked must be called with mu held for writing.
func (s *MemoryStore) persistLocked() error {
	if s.file == nil {
		return nil
	}
	snap := snapshot{}
	for _, u := range s.users {
		snap.Users = append(snap.Users, u)
	}
	for _, e := range s.events {
		snap.Events = append(snap.Events, e)
	}
	for _, m := range s.messages {
		snap.Messages = append(snap.Messages, m)
	}
	for _, n := range s.notifications {
		snap.Notifications = append(snap.Notifications, n)
	}
	for _, r := range s.reports {
		snap.Reports = append(snap.Reports, r)
	}
	if err := s.file.save(&snap); err != nil {
		s.log.Error("snapshot save failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *MemoryStore) mutated() {
	_ = s.persistLocked()
}

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

func cloneEvent(e *models.Event) *models.Event {
	c := *e
	c.Tags = append([]string(nil), e.Tags...)
	c.Participants = append([]models.Participant(nil), e.Participants...)
	c.Reports = append([]models.EmbeddedReport(nil), e.Reports...)
	return &c
}

func cloneMessage(m *models.Message) *models.Message {
	c := *m
	if m.SystemData != nil {
		sd := *m.SystemData
		c.SystemData = &sd
	}
	return &c
}

func cloneNotification(n *models.Notification) *models.Notification {
	c := *n
	return &c
}

func cloneReport(r *models.EventReport) *models.EventReport {
	c := *r
	return &c
}

func paginate[T any](items []T, p models.Page) []T {
	start := p.Skip()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// Users

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	s.users[u.ID] = cloneUser(u)
	s.mutated()
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ResetToken != "" && u.ResetToken == token && u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now) {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUsers(ctx context.Context, ids []string) (map[string]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = cloneUser(u)
		}
	}
	return out, nil
}

func applyUserUpdate(u *models.User, upd models.UserUpdate) {
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Avatar != nil {
		u.Avatar = *upd.Avatar
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.IsBlocked != nil {
		u.IsBlocked = *upd.IsBlocked
	}
	if upd.BlockedReason != nil {
		u.BlockedReason = *upd.BlockedReason
	}
	if upd.BlockedAt != nil {
		t := *upd.BlockedAt
		u.BlockedAt = &t
	}
	if upd.ClearBlockedAt {
		u.BlockedAt = nil
	}
	if upd.IsEmailVerified != nil {
		u.IsEmailVerified = *upd.IsEmailVerified
	}
	if upd.VerificationToken != nil {
		u.VerificationToken = *upd.VerificationToken
	}
	if upd.VerificationExpiry != nil {
		t := *upd.VerificationExpiry
		u.VerificationExpiry = &t
	}
	if upd.ResetToken != nil {
		u.ResetToken = *upd.ResetToken
	}
	if upd.ResetTokenExpiry != nil {
		t := *upd.ResetTokenExpiry
		u.ResetTokenExpiry = &t
	}
	if upd.ClearResetToken {
		u.ResetToken = ""
		u.ResetTokenExpiry = nil
	}
	if upd.LastLogin != nil {
		t := *upd.LastLogin
		u.LastLogin = &t
	}
	u.UpdatedAt = time.Now().UTC()
}

func (s *MemoryStore) UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	applyUserUpdate(u, upd)
	s.mutated()
	return cloneUser(u), nil
}

func (s *MemoryStore) IncUserCounters(ctx context.Context, id string, eventsCreated, eventsAttended int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.EventsCreated += eventsCreated
	u.EventsAttended += eventsAttended
	s.mutated()
	return nil
}

func userMatches(u *models.User, f models.UserFilter) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.IsBlocked != nil && u.IsBlocked != *f.IsBlocked {
		return false
	}
	if f.Search != "" && !containsFold(u.Name, f.Search) && !containsFold(u.Email, f.Search) {
		return false
	}
	if f.CreatedSince != nil && u.CreatedAt.Before(*f.CreatedSince) {
		return false
	}
	return true
}

func (s *MemoryStore) filterUsers(f models.UserFilter) []*models.User {
	var out []*models.User
	for _, u := range s.users {
		if userMatches(u, f) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) ListUsers(ctx context.Context, f models.UserFilter, p models.Page) ([]*models.User, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.filterUsers(f)
	page := paginate(all, p)
	out := make([]*models.User, 0, len(page))
	for _, u := range page {
		out = append(out, cloneUser(u))
	}
	return out, int64(len(all)), nil
}

func (s *MemoryStore) CountUsers(ctx context.Context, f models.UserFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filterUsers(f))), nil
}

func (s *MemoryStore) ListAdmins(ctx context.Context) ([]*models.User, error) {
	blocked := false
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.User
	for _, u := range s.filterUsers(models.UserFilter{Role: models.RoleAdmin, IsBlocked: &blocked}) {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (s *MemoryStore) ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, u := range s.users {
		changed := false
		if u.ResetTokenExpiry != nil && !u.ResetTokenExpiry.After(now) {
			u.ResetToken, u.ResetTokenExpiry = "", nil
			changed = true
		}
		if u.VerificationExpiry != nil && !u.VerificationExpiry.After(now) {
			u.VerificationToken, u.VerificationExpiry = "", nil
			changed = true
		}
		if changed {
			n++
		}
	}
	if n > 0 {
		s.mutated()
	}
	return n, nil
}

// Events

func (s *MemoryStore) CreateEvent(ctx context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; ok {
		return ErrDuplicate
	}
	s.events[e.ID] = cloneEvent(e)
	s.mutated()
	return nil
}

func (s *MemoryStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneEvent(e), nil
}

func (s *MemoryStore) UpdateEvent(ctx context.Context, id string, upd models.EventUpdate) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Capacity != nil && *upd.Capacity < e.ActiveParticipantsCount() {
		return nil, ErrCapacityBelowRoster
	}
	if upd.Title != nil {
		e.Title = *upd.Title
	}
	if upd.Slug != nil {
		e.Slug = *upd.Slug
	}
	if upd.Description != nil {
		e.Description = *upd.Description
	}
	if upd.Category != nil {
		e.Category = *upd.Category
	}
	if upd.Location != nil {
		e.Location = *upd.Location
	}
	if upd.Date != nil {
		e.Date = *upd.Date
	}
	if upd.Capacity != nil {
		e.Capacity = *upd.Capacity
	}
	if upd.Price != nil {
		e.Price = *upd.Price
	}
	if upd.Image != nil {
		e.Image = *upd.Image
	}
	if upd.Tags != nil {
		e.Tags = append([]string(nil), upd.Tags...)
	}
	if upd.Settings != nil {
		e.Settings = *upd.Settings
	}
	e.UpdatedAt = time.Now().UTC()
	s.mutated()
	return cloneEvent(e), nil
}

func (s *MemoryStore) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return ErrNotFound
	}
	delete(s.events, id)
	s.mutated()
	return nil
}

func eventMatches(e *models.Event, f models.EventFilter) bool {
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.City != "" && !containsFold(e.Location.City, f.City) {
		return false
	}
	if f.From != nil && e.Date.Start.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Date.Start.After(*f.To) {
		return false
	}
	if f.CreatedBy != "" && e.CreatedBy != f.CreatedBy {
		return false
	}
	if f.CreatedSince != nil && e.CreatedAt.Before(*f.CreatedSince) {
		return false
	}
	if f.Participant != "" && !e.IsConfirmedParticipant(f.Participant) {
		return false
	}
	if f.Search != "" {
		hit := containsFold(e.Title, f.Search) || containsFold(e.Description, f.Search)
		for _, t := range e.Tags {
			hit = hit || containsFold(t, f.Search)
		}
		if !hit {
			return false
		}
	}
	return true
}

func (s *MemoryStore) filterEvents(f models.EventFilter) []*models.Event {
	var out []*models.Event
	for _, e := range s.events {
		if eventMatches(e, f) {
			out = append(out, e)
		}
	}
	if f.NewestFirst {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].Date.Start.Before(out[j].Date.Start) })
	}
	return out
}

func (s *MemoryStore) ListEvents(ctx context.Context, f models.EventFilter, p models.Page) ([]*models.Event, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.filterEvents(f)
	page := paginate(all, p)
	out := make([]*models.Event, 0, len(page))
	for _, e := range page {
		out = append(out, cloneEvent(e))
	}
	return out, int64(len(all)), nil
}

func (s *MemoryStore) CountEvents(ctx context.Context, f models.EventFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filterEvents(f))), nil
}

func (s *MemoryStore) IncViewCount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return ErrNotFound
	}
	e.ViewCount++
	s.mutated()
	return nil
}

func (s *MemoryStore) TransitionEvent(ctx context.Context, id string, from, to models.EventStatus, mod models.Moderation) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	if e.Status != from {
		return nil, ErrStateChanged
	}
	e.Status = to
	e.Moderation = mod
	e.UpdatedAt = time.Now().UTC()
	s.mutated()
	return cloneEvent(e), nil
}

func (s *MemoryStore) AddParticipant(ctx context.Context, eventID, userID string, at time.Time) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	idx := -1
	for i, p := range e.Participants {
		if p.User == userID {
			if p.Status == models.ParticipantConfirmed {
				return nil, ErrAlreadyParticipant
			}
			idx = i
			break
		}
	}
	if e.ActiveParticipantsCount() >= e.Capacity {
		return nil, ErrCapacityFull
	}
	if idx >= 0 {
		e.Participants[idx].Status = models.ParticipantConfirmed
		e.Participants[idx].JoinedAt = at
	} else {
		e.Participants = append(e.Participants, models.Participant{
			User:     userID,
			JoinedAt: at,
			Status:   models.ParticipantConfirmed,
		})
	}
	s.mutated()
	return cloneEvent(e), nil
}

func (s *MemoryStore) CancelParticipant(ctx context.Context, eventID, userID string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	for i, p := range e.Participants {
		if p.User == userID && p.Status == models.ParticipantConfirmed {
			e.Participants[i].Status = models.ParticipantCancelled
			s.mutated()
			return cloneEvent(e), nil
		}
	}
	return nil, ErrNotParticipant
}

func (s *MemoryStore) AddReport(ctx context.Context, eventID string, r models.EmbeddedReport) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	if e.HasReportFrom(r.User) {
		return nil, ErrDuplicate
	}
	e.Reports = append(e.Reports, r)
	e.ReportCount = len(e.Reports)
	s.mutated()
	return cloneEvent(e), nil
}

func (s *MemoryStore) EventsByCategory(ctx context.Context, status models.EventStatus) ([]models.CategoryCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range s.filterEvents(models.EventFilter{Status: status}) {
		counts[e.Category]++
	}
	out := make([]models.CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, models.CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (s *MemoryStore) TopReportedEvents(ctx context.Context, limit int) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Event
	for _, e := range s.events {
		if e.ReportCount > 0 {
			out = append(out, cloneEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReportCount > out[j].ReportCount })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) DistinctCities(ctx context.Context, status models.EventStatus) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, e := range s.filterEvents(models.EventFilter{Status: status}) {
		if _, ok := seen[e.Location.City]; !ok {
			seen[e.Location.City] = struct{}{}
			out = append(out, e.Location.City)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Messages

func (s *MemoryStore) CreateMessage(ctx context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[m.ID] = cloneMessage(m)
	s.mutated()
	return nil
}

func (s *MemoryStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneMessage(m), nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, eventID string, p models.Page) ([]*models.Message, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*models.Message
	for _, m := range s.messages {
		if m.Event == eventID && !m.IsDeleted {
			all = append(all, m)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	page := paginate(all, p)
	out := make([]*models.Message, 0, len(page))
	for _, m := range page {
		out = append(out, cloneMessage(m))
	}
	return out, int64(len(all)), nil
}

func (s *MemoryStore) EditMessage(ctx context.Context, id, content string, at time.Time) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok || m.IsDeleted {
		return nil, ErrNotFound
	}
	m.Content = content
	m.IsEdited = true
	m.EditedAt = &at
	m.UpdatedAt = at
	s.mutated()
	return cloneMessage(m), nil
}

func (s *MemoryStore) SoftDeleteMessage(ctx context.Context, id, by string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok || m.IsDeleted {
		return ErrNotFound
	}
	m.IsDeleted = true
	m.DeletedAt = &at
	m.DeletedBy = by
	m.UpdatedAt = at
	s.mutated()
	return nil
}

// Notifications

func (s *MemoryStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications[n.ID] = cloneNotification(n)
	s.mutated()
	return nil
}

func (s *MemoryStore) ListNotifications(ctx context.Context, recipient string, f models.NotificationFilter, p models.Page) ([]*models.Notification, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*models.Notification
	for _, n := range s.notifications {
		if n.Recipient != recipient {
			continue
		}
		if f.UnreadOnly && n.IsRead {
			continue
		}
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		all = append(all, n)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	page := paginate(all, p)
	out := make([]*models.Notification, 0, len(page))
	for _, n := range page {
		out = append(out, cloneNotification(n))
	}
	return out, int64(len(all)), nil
}

func (s *MemoryStore) CountUnread(ctx context.Context, recipient string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, notif := range s.notifications {
		if notif.Recipient == recipient && !notif.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, id, recipient string, at time.Time) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.Recipient != recipient {
		return nil, ErrNotFound
	}
	if !n.IsRead {
		n.IsRead = true
		n.ReadAt = &at
		s.mutated()
	}
	return cloneNotification(n), nil
}

func (s *MemoryStore) MarkAllRead(ctx context.Context, recipient string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, n := range s.notifications {
		if n.Recipient == recipient && !n.IsRead {
			n.IsRead = true
			t := at
			n.ReadAt = &t
			count++
		}
	}
	if count > 0 {
		s.mutated()
	}
	return count, nil
}

func (s *MemoryStore) DeleteNotification(ctx context.Context, id, recipient string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.Recipient != recipient {
		return ErrNotFound
	}
	delete(s.notifications, id)
	s.mutated()
	return nil
}

func (s *MemoryStore) DeleteReadBefore(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id, n := range s.notifications {
		if n.IsRead && n.CreatedAt.Before(before) {
			delete(s.notifications, id)
			count++
		}
	}
	if count > 0 {
		s.mutated()
	}
	return count, nil
}

// Reports

func (s *MemoryStore) CreateReport(ctx context.Context, r *models.EventReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.reports {
		if existing.Event == r.Event && existing.ReportedBy == r.ReportedBy {
			return ErrDuplicate
		}
	}
	s.reports[r.ID] = cloneReport(r)
	s.mutated()
	return nil
}

func (s *MemoryStore) GetReport(ctx context.Context, id string) (*models.EventReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneReport(r), nil
}

func (s *MemoryStore) filterReports(f models.ReportFilter) []*models.EventReport {
	var out []*models.EventReport
	for _, r := range s.reports {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.EventID != "" && r.Event != f.EventID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) ListReports(ctx context.Context, f models.ReportFilter, p models.Page) ([]*models.EventReport, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.filterReports(f)
	page := paginate(all, p)
	out := make([]*models.EventReport, 0, len(page))
	for _, r := range page {
		out = append(out, cloneReport(r))
	}
	return out, int64(len(all)), nil
}

func (s *MemoryStore) CountReports(ctx context.Context, f models.ReportFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filterReports(f))), nil
}

func (s *MemoryStore) ReviewReport(ctx context.Context, id string, from models.ReportStatus, r models.EventReport) (*models.EventReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	if existing.Status != from {
		return nil, ErrStateChanged
	}
	existing.Status = r.Status
	existing.ReviewedBy = r.ReviewedBy
	existing.ReviewedAt = r.ReviewedAt
	existing.AdminNotes = r.AdminNotes
	existing.ActionTaken = r.ActionTaken
	existing.UpdatedAt = time.Now().UTC()
	s.mutated()
	return cloneReport(existing), nil
}

var _ Store = (*MemoryStore)(nil)
