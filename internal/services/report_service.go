package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/storage"
)

const DefaultReportThreshold = 5

type ReportService struct {
	store     storage.Store
	effects   *Effects
	threshold int
	log       *zap.Logger
	now       func() time.Time
}

func NewReportService(store storage.Store, effects *Effects, threshold int, log *zap.Logger) *ReportService {
	if threshold < 1 {
		threshold = DefaultReportThreshold
	}
	return &ReportService{
		store:     store,
		effects:   effects,
		threshold: threshold,
		log:       log,
		now:       time.Now,
	}
}

// Report records one report per user per event and returns the new report
// count. Admins are alerted once, by the report that reaches the threshold.
func (s *ReportService) Report(ctx context.Context, user *models.User, eventID string, req *models.ReportRequest) (int, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrEventNotFound
		}
		return 0, err
	}
	if ev.CreatedBy == user.ID {
		return 0, ErrCannotReportOwn
	}
	if ev.HasReportFrom(user.ID) {
		return 0, ErrAlreadyReported
	}

	now := s.now().UTC()
	updated, err := s.store.AddReport(ctx, eventID, models.EmbeddedReport{
		User:        user.ID,
		Reason:      req.Reason,
		Description: req.Description,
		ReportedAt:  now,
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return 0, ErrEventNotFound
	case errors.Is(err, storage.ErrDuplicate):
		return 0, ErrAlreadyReported
	case err != nil:
		return 0, err
	}

	report := &models.EventReport{
		ID:          uuid.NewString(),
		Event:       eventID,
		ReportedBy:  user.ID,
		Reason:      req.Reason,
		Description: req.Description,
		Status:      models.ReportPending,
		ActionTaken: models.ReportActionNone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		// The embedded entry already holds the report; the row is for review.
		s.log.Error("report row not created",
			zap.String("eventId", eventID),
			zap.String("userId", user.ID),
			zap.Error(err),
		)
	}

	if updated.ReportCount == s.threshold {
		s.log.Warn("report threshold reached",
			zap.String("eventId", eventID),
			zap.Int("reports", updated.ReportCount),
		)
		s.effects.Apply(ctx, []Effect{
			NotifyAdmins{Notification: reportedNotification(updated, req.Reason)},
		})
	}
	return updated.ReportCount, nil
}

func (s *ReportService) List(ctx context.Context, f models.ReportFilter, p models.Page) (*models.ReportList, error) {
	reports, total, err := s.store.ListReports(ctx, f, p)
	if err != nil {
		return nil, err
	}

	reporterIDs := make([]string, 0, len(reports))
	for _, r := range reports {
		reporterIDs = append(reporterIDs, r.ReportedBy)
	}
	reporters, err := s.store.GetUsers(ctx, reporterIDs)
	if err != nil {
		return nil, err
	}

	events := make(map[string]*models.ReportEventInfo)
	views := make([]*models.ReportView, 0, len(reports))
	for _, r := range reports {
		v := &models.ReportView{EventReport: r}
		info, seen := events[r.Event]
		if !seen {
			if ev, err := s.store.GetEvent(ctx, r.Event); err == nil {
				info = &models.ReportEventInfo{
					ID:          ev.ID,
					Title:       ev.Title,
					Status:      ev.Status,
					CreatedBy:   ev.CreatedBy,
					ReportCount: ev.ReportCount,
				}
			} else if !errors.Is(err, storage.ErrNotFound) {
				return nil, err
			}
			events[r.Event] = info
		}
		v.EventInfo = info
		if u := reporters[r.ReportedBy]; u != nil {
			pub := u.Public()
			v.Reporter = &pub
		}
		views = append(views, v)
	}
	return &models.ReportList{Reports: views, Pagination: models.NewPagination(p, total)}, nil
}

// Review closes or advances a report and applies the chosen action.
// event_removed forces the event to rejected; user_suspended blocks the
// creator of the reported event.
func (s *ReportService) Review(ctx context.Context, admin *models.User, id string, req *models.ReviewReportRequest) (*models.EventReport, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	next, err := r.Status.MoveTo(req.Status)
	if err != nil {
		return nil, ErrReportAlreadyClosed
	}

	at := s.now().UTC()
	updated, err := s.store.ReviewReport(ctx, id, r.Status, models.EventReport{
		Status:      next,
		ReviewedBy:  admin.ID,
		ReviewedAt:  &at,
		AdminNotes:  req.AdminNotes,
		ActionTaken: req.ActionTaken,
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, ErrReportNotFound
	case errors.Is(err, storage.ErrStateChanged):
		return nil, ErrReportAlreadyClosed
	case err != nil:
		return nil, err
	}

	s.log.Info("report reviewed",
		zap.String("reportId", id),
		zap.String("status", string(next)),
		zap.String("action", string(req.ActionTaken)),
		zap.String("adminId", admin.ID),
	)
	s.effects.Apply(ctx, s.reviewEffects(ctx, admin, updated))
	return updated, nil
}

func (s *ReportService) reviewEffects(ctx context.Context, admin *models.User, r *models.EventReport) []Effect {
	reason := r.AdminNotes
	switch r.ActionTaken {
	case models.ReportActionEventRemoved:
		if reason == "" {
			reason = "Removed after report review"
		}
		return []Effect{ForceEventStatus{
			EventID:    r.Event,
			Action:     models.ActionRemove,
			ReviewerID: admin.ID,
			Reason:     reason,
		}}

	case models.ReportActionUserSuspended:
		ev, err := s.store.GetEvent(ctx, r.Event)
		if err != nil {
			s.log.Warn("suspension skipped: event unavailable", zap.String("eventId", r.Event), zap.Error(err))
			return nil
		}
		target, err := s.store.GetUser(ctx, ev.CreatedBy)
		if err != nil {
			s.log.Warn("suspension skipped: creator unavailable", zap.String("userId", ev.CreatedBy), zap.Error(err))
			return nil
		}
		if target.IsAdmin() {
			s.log.Warn("suspension skipped: creator is an admin", zap.String("userId", target.ID))
			return nil
		}
		if reason == "" {
			reason = "Suspended after report review"
		}
		return []Effect{
			BlockUser{UserID: target.ID, Reason: reason},
			NotifyUser{Notification: blockedNotification(target.ID, admin.ID, reason)},
		}
	}
	return nil
}
