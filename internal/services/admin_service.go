package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/storage"
)

const mostReportedLimit = 5

type AdminService struct {
	store   storage.Store
	effects *Effects
	log     *zap.Logger
	now     func() time.Time
}

func NewAdminService(store storage.Store, effects *Effects, log *zap.Logger) *AdminService {
	return &AdminService{
		store:   store,
		effects: effects,
		log:     log,
		now:     time.Now,
	}
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func (s *AdminService) QuickStats(ctx context.Context) (*models.QuickStats, error) {
	var st models.QuickStats
	var err error
	if st.TotalUsers, err = s.store.CountUsers(ctx, models.UserFilter{}); err != nil {
		return nil, err
	}
	if st.TotalEvents, err = s.store.CountEvents(ctx, models.EventFilter{}); err != nil {
		return nil, err
	}
	if st.PendingEvents, err = s.store.CountEvents(ctx, models.EventFilter{Status: models.EventPending}); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *AdminService) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	quick, err := s.QuickStats(ctx)
	if err != nil {
		return nil, err
	}
	st := models.DashboardStats{
		TotalUsers:    quick.TotalUsers,
		TotalEvents:   quick.TotalEvents,
		PendingEvents: quick.PendingEvents,
	}

	since := monthStart(s.now())
	blocked := true
	counts := []struct {
		dst *int64
		fn  func() (int64, error)
	}{
		{&st.TotalReports, func() (int64, error) { return s.store.CountReports(ctx, models.ReportFilter{}) }},
		{&st.PendingReports, func() (int64, error) {
			return s.store.CountReports(ctx, models.ReportFilter{Status: models.ReportPending})
		}},
		{&st.BlockedUsers, func() (int64, error) { return s.store.CountUsers(ctx, models.UserFilter{IsBlocked: &blocked}) }},
		{&st.EventsThisMonth, func() (int64, error) {
			return s.store.CountEvents(ctx, models.EventFilter{CreatedSince: &since})
		}},
		{&st.UsersThisMonth, func() (int64, error) {
			return s.store.CountUsers(ctx, models.UserFilter{CreatedSince: &since})
		}},
	}
	for _, c := range counts {
		if *c.dst, err = c.fn(); err != nil {
			return nil, err
		}
	}

	byCategory, err := s.store.EventsByCategory(ctx, models.EventApproved)
	if err != nil {
		return nil, err
	}
	if byCategory == nil {
		byCategory = []models.CategoryCount{}
	}

	top, err := s.store.TopReportedEvents(ctx, mostReportedLimit)
	if err != nil {
		return nil, err
	}
	creatorIDs := make([]string, 0, len(top))
	for _, ev := range top {
		creatorIDs = append(creatorIDs, ev.CreatedBy)
	}
	creators, err := s.store.GetUsers(ctx, creatorIDs)
	if err != nil {
		return nil, err
	}
	reported := make([]models.ReportedEventSummary, 0, len(top))
	for _, ev := range top {
		sum := models.ReportedEventSummary{
			ID:          ev.ID,
			Title:       ev.Title,
			ReportCount: ev.ReportCount,
			CreatedAt:   ev.CreatedAt,
		}
		if c := creators[ev.CreatedBy]; c != nil {
			pub := models.PublicUser{ID: c.ID, Name: c.Name, Email: c.Email}
			sum.Creator = &pub
		}
		reported = append(reported, sum)
	}

	return &models.Dashboard{
		Stats: st,
		Charts: models.DashboardCharts{
			EventsByCategory:   byCategory,
			MostReportedEvents: reported,
		},
	}, nil
}

func (s *AdminService) Users(ctx context.Context, f models.UserFilter, p models.Page) (*models.UserList, error) {
	users, total, err := s.store.ListUsers(ctx, f, p)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*models.User{}
	}
	return &models.UserList{Users: users, Pagination: models.NewPagination(p, total)}, nil
}

func (s *AdminService) loadUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// ToggleRole flips a user between user and admin. Admins cannot change
// their own role.
func (s *AdminService) ToggleRole(ctx context.Context, admin *models.User, id string) (*models.User, error) {
	u, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.ID == admin.ID {
		return nil, ErrCannotChangeOwnRole
	}
	role := models.RoleAdmin
	if u.Role == models.RoleAdmin {
		role = models.RoleUser
	}
	updated, err := s.store.UpdateUser(ctx, id, models.UserUpdate{Role: &role})
	if err != nil {
		return nil, err
	}
	s.log.Info("user role changed",
		zap.String("userId", id),
		zap.String("role", string(role)),
		zap.String("adminId", admin.ID),
	)
	return updated, nil
}

func (s *AdminService) Block(ctx context.Context, admin *models.User, id, reason string) error {
	u, err := s.loadUser(ctx, id)
	if err != nil {
		return err
	}
	if u.IsAdmin() {
		return ErrCannotBlockAdmin
	}

	blocked := true
	at := s.now().UTC()
	if _, err := s.store.UpdateUser(ctx, id, models.UserUpdate{
		IsBlocked:     &blocked,
		BlockedReason: &reason,
		BlockedAt:     &at,
	}); err != nil {
		return err
	}
	s.log.Info("user blocked", zap.String("userId", id), zap.String("adminId", admin.ID))

	s.effects.Apply(ctx, []Effect{
		NotifyUser{Notification: blockedNotification(id, admin.ID, reason)},
	})
	return nil
}

func (s *AdminService) Unblock(ctx context.Context, admin *models.User, id string) error {
	if _, err := s.loadUser(ctx, id); err != nil {
		return err
	}

	blocked := false
	empty := ""
	if _, err := s.store.UpdateUser(ctx, id, models.UserUpdate{
		IsBlocked:      &blocked,
		BlockedReason:  &empty,
		ClearBlockedAt: true,
	}); err != nil {
		return err
	}
	s.log.Info("user unblocked", zap.String("userId", id), zap.String("adminId", admin.ID))

	s.effects.Apply(ctx, []Effect{
		NotifyUser{Notification: unblockedNotification(id, admin.ID)},
	})
	return nil
}
