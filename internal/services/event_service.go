package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/storage"
)

type EventService struct {
	store   storage.Store
	effects *Effects
	log     *zap.Logger
	now     func() time.Time
}

func NewEventService(store storage.Store, effects *Effects, log *zap.Logger) *EventService {
	return &EventService{
		store:   store,
		effects: effects,
		log:     log,
		now:     time.Now,
	}
}

// eventSlug is the readable title plus a short id suffix so two events with
// the same title never share a slug.
func eventSlug(title, id string) string {
	base := slug.Make(title)
	if len(id) > 8 {
		id = id[:8]
	}
	if base == "" {
		return id
	}
	return base + "-" + id
}

func (s *EventService) load(ctx context.Context, id string) (*models.Event, error) {
	ev, err := s.store.GetEvent(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	return ev, err
}

func canManage(ev *models.Event, u *models.User) bool {
	return u != nil && (u.IsAdmin() || ev.CreatedBy == u.ID)
}

func (s *EventService) view(ev *models.Event, creator *models.User, viewer *models.User) *models.EventView {
	v := &models.EventView{
		Event:                   ev,
		ActiveParticipantsCount: ev.ActiveParticipantsCount(),
	}
	if creator != nil {
		pub := creator.Public()
		v.Creator = &pub
	}
	if viewer != nil {
		v.IsUserParticipant = ev.IsConfirmedParticipant(viewer.ID)
		v.IsUserCreator = ev.CreatedBy == viewer.ID
		v.CanUserReport = !v.IsUserCreator && !ev.HasReportFrom(viewer.ID)
	}
	return v
}

// views resolves every creator in one store round trip.
func (s *EventService) views(ctx context.Context, events []*models.Event, viewer *models.User) ([]*models.EventView, error) {
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.CreatedBy)
	}
	creators, err := s.store.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*models.EventView, 0, len(events))
	for _, ev := range events {
		out = append(out, s.view(ev, creators[ev.CreatedBy], viewer))
	}
	return out, nil
}

func (s *EventService) list(ctx context.Context, f models.EventFilter, p models.Page, viewer *models.User) (*models.EventList, error) {
	events, total, err := s.store.ListEvents(ctx, f, p)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, events, viewer)
	if err != nil {
		return nil, err
	}
	return &models.EventList{Events: views, Pagination: models.NewEventPagination(p, total)}, nil
}

// List returns approved events only, whatever status the filter asks for.
func (s *EventService) List(ctx context.Context, f models.EventFilter, p models.Page, viewer *models.User) (*models.EventList, error) {
	f.Status = models.EventApproved
	f.CreatedBy = ""
	f.Participant = ""
	return s.list(ctx, f, p, viewer)
}

// ListAll is the admin listing across every status.
func (s *EventService) ListAll(ctx context.Context, f models.EventFilter, p models.Page) (*models.EventList, error) {
	f.NewestFirst = true
	return s.list(ctx, f, p, nil)
}

func (s *EventService) ListCreated(ctx context.Context, user *models.User, p models.Page) (*models.EventList, error) {
	return s.list(ctx, models.EventFilter{CreatedBy: user.ID, NewestFirst: true}, p, user)
}

func (s *EventService) ListJoined(ctx context.Context, user *models.User, p models.Page) (*models.EventList, error) {
	return s.list(ctx, models.EventFilter{Participant: user.ID}, p, user)
}

// Get returns one event. Events that are not approved are visible only to
// their creator and to admins. Every successful read counts as a view.
func (s *EventService) Get(ctx context.Context, id string, viewer *models.User) (*models.EventView, error) {
	ev, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.Status != models.EventApproved && !canManage(ev, viewer) {
		return nil, ErrEventNotVisible
	}

	if err := s.store.IncViewCount(ctx, id); err != nil {
		s.log.Warn("view count not incremented", zap.String("eventId", id), zap.Error(err))
	} else {
		ev.ViewCount++
	}

	views, err := s.views(ctx, []*models.Event{ev}, viewer)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *EventService) Create(ctx context.Context, creator *models.User, req *models.EventRequest) (*models.Event, error) {
	now := s.now().UTC()
	id := uuid.NewString()

	settings := models.DefaultEventSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	ev := &models.Event{
		ID:           id,
		Slug:         eventSlug(req.Title, id),
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Location:     req.Location,
		Date:         req.Date,
		Capacity:     req.Capacity,
		Price:        req.PriceOrFree(),
		Image:        req.Image,
		Tags:         tags,
		CreatedBy:    creator.ID,
		Status:       models.EventPending,
		Participants: []models.Participant{},
		Reports:      []models.EmbeddedReport{},
		Settings:     settings,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateEvent(ctx, ev); err != nil {
		return nil, err
	}
	s.log.Info("event created", zap.String("eventId", ev.ID), zap.String("userId", creator.ID))

	s.effects.Apply(ctx, []Effect{
		CounterDelta{UserID: creator.ID, EventsCreated: 1},
		NotifyAdmins{Notification: pendingEventNotification(ev, creator)},
	})
	return ev, nil
}

// Update replaces the editable fields of an event. Only the creator or an
// admin may update, and capacity cannot drop below the confirmed roster; the
// store re-checks that in the same write.
func (s *EventService) Update(ctx context.Context, actor *models.User, id string, req *models.EventRequest) (*models.Event, error) {
	ev, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(ev, actor) {
		return nil, ErrNotEventOwner
	}
	if req.Capacity < ev.ActiveParticipantsCount() {
		return nil, ErrCapacityBelowCount
	}

	price := req.PriceOrFree()
	upd := models.EventUpdate{
		Title:       &req.Title,
		Description: &req.Description,
		Category:    &req.Category,
		Location:    &req.Location,
		Date:        &req.Date,
		Capacity:    &req.Capacity,
		Price:       &price,
		Image:       &req.Image,
		Tags:        req.Tags,
		Settings:    req.Settings,
	}
	if req.Title != ev.Title {
		sl := eventSlug(req.Title, ev.ID)
		upd.Slug = &sl
	}

	updated, err := s.store.UpdateEvent(ctx, id, upd)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, ErrEventNotFound
	case errors.Is(err, storage.ErrCapacityBelowRoster):
		return nil, ErrCapacityBelowCount
	case err != nil:
		return nil, err
	}

	effects := make([]Effect, 0, len(updated.Participants)+2)
	for _, p := range updated.ConfirmedParticipantIDs() {
		if p == actor.ID {
			continue
		}
		effects = append(effects, NotifyUser{Notification: updatedNotification(updated, p, actor.ID)})
	}
	effects = append(effects,
		systemMessage(id, actor.ID, models.SystemEventUpdated),
		EventUpdate{EventID: id, Type: "updated", Data: updated},
	)
	s.effects.Apply(ctx, effects)
	return updated, nil
}

func (s *EventService) Delete(ctx context.Context, actor *models.User, id string) error {
	ev, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(ev, actor) {
		return ErrNotEventOwner
	}
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrEventNotFound
		}
		return err
	}
	s.log.Info("event deleted", zap.String("eventId", id), zap.String("by", actor.ID))

	s.effects.Apply(ctx, []Effect{
		CounterDelta{UserID: ev.CreatedBy, EventsCreated: -1},
		EventUpdate{EventID: id, Type: "deleted", Data: map[string]any{"eventId": id}},
	})
	return nil
}

// Join confirms user on the event roster and returns the new active count.
func (s *EventService) Join(ctx context.Context, user *models.User, id string) (int, error) {
	ev, err := s.load(ctx, id)
	if err != nil {
		return 0, err
	}
	now := s.now().UTC()
	switch {
	case ev.Status != models.EventApproved:
		return 0, ErrEventNotApproved
	case !ev.Date.Start.After(now):
		return 0, ErrEventStarted
	case ev.CreatedBy == user.ID:
		return 0, ErrCreatorCannotJoin
	}

	updated, err := s.store.AddParticipant(ctx, id, user.ID, now)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return 0, ErrEventNotFound
	case errors.Is(err, storage.ErrAlreadyParticipant):
		return 0, ErrAlreadyParticipant
	case errors.Is(err, storage.ErrCapacityFull):
		return 0, ErrCapacityExceeded
	case err != nil:
		return 0, err
	}

	active := updated.ActiveParticipantsCount()
	s.effects.Apply(ctx, []Effect{
		CounterDelta{UserID: user.ID, EventsAttended: 1},
		NotifyUser{Notification: joinedNotification(updated, user.ID)},
		systemMessage(id, user.ID, models.SystemUserJoined),
		EventUpdate{EventID: id, Type: "participant_joined", Data: map[string]any{
			"userId":                  user.ID,
			"activeParticipantsCount": active,
		}},
	})
	return active, nil
}

// Leave cancels the caller's confirmed roster entry; the entry is kept.
func (s *EventService) Leave(ctx context.Context, user *models.User, id string) (int, error) {
	if _, err := s.load(ctx, id); err != nil {
		return 0, err
	}

	updated, err := s.store.CancelParticipant(ctx, id, user.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return 0, ErrEventNotFound
	case errors.Is(err, storage.ErrNotParticipant):
		return 0, ErrNotParticipant
	case err != nil:
		return 0, err
	}

	active := updated.ActiveParticipantsCount()
	s.effects.Apply(ctx, []Effect{
		CounterDelta{UserID: user.ID, EventsAttended: -1},
		NotifyUser{Notification: leftNotification(updated, user.ID)},
		systemMessage(id, user.ID, models.SystemUserLeft),
		EventUpdate{EventID: id, Type: "participant_left", Data: map[string]any{
			"userId":                  user.ID,
			"activeParticipantsCount": active,
		}},
	})
	return active, nil
}

func (s *EventService) moderate(ctx context.Context, admin *models.User, id string, action models.EventAction, reason string) (*models.Event, error) {
	ev, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := ev.Status.Apply(action)
	if err != nil {
		return nil, ErrAlreadyProcessed
	}

	at := s.now().UTC()
	updated, err := s.store.TransitionEvent(ctx, id, ev.Status, next, models.Moderation{
		ReviewedBy: admin.ID,
		ReviewedAt: &at,
		Reason:     reason,
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, ErrEventNotFound
	case errors.Is(err, storage.ErrStateChanged):
		return nil, ErrAlreadyProcessed
	case err != nil:
		return nil, err
	}

	s.log.Info("event moderated",
		zap.String("eventId", id),
		zap.String("status", string(next)),
		zap.String("adminId", admin.ID),
	)
	s.effects.Apply(ctx, []Effect{
		NotifyUser{Notification: moderationNotification(updated, admin.ID, next == models.EventApproved, reason)},
		EventUpdate{EventID: id, Type: "status_changed", Data: map[string]any{"status": next}},
	})
	return updated, nil
}

func (s *EventService) Approve(ctx context.Context, admin *models.User, id string) (*models.Event, error) {
	return s.moderate(ctx, admin, id, models.ActionApprove, "")
}

func (s *EventService) Reject(ctx context.Context, admin *models.User, id, reason string) (*models.Event, error) {
	return s.moderate(ctx, admin, id, models.ActionReject, reason)
}

func (s *EventService) Stats(ctx context.Context) (*models.PublicStats, error) {
	events, err := s.store.CountEvents(ctx, models.EventFilter{Status: models.EventApproved})
	if err != nil {
		return nil, err
	}
	notBlocked := false
	users, err := s.store.CountUsers(ctx, models.UserFilter{IsBlocked: &notBlocked})
	if err != nil {
		return nil, err
	}
	cities, err := s.store.DistinctCities(ctx, models.EventApproved)
	if err != nil {
		return nil, err
	}
	return &models.PublicStats{TotalEvents: events, TotalUsers: users, TotalCities: len(cities)}, nil
}
