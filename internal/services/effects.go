package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/storage"
)

// Pusher delivers live frames to connected clients. The realtime relay
// implements it; workflows never depend on a connection being present.
type Pusher interface {
	PushNotification(n *models.Notification)
	PushEventUpdate(eventID, updateType string, data any)
	PushChatMessage(eventID string, m *models.MessageView)
	IsOnline(userID string) bool
}

type nopPusher struct{}

func (nopPusher) PushNotification(*models.Notification)       {}
func (nopPusher) PushEventUpdate(string, string, any)         {}
func (nopPusher) PushChatMessage(string, *models.MessageView) {}
func (nopPusher) IsOnline(string) bool                        { return false }

// Effect is one follow-up of a workflow decision. Effects are applied after
// the primary write has committed and never undo it.
type Effect interface {
	apply(ctx context.Context, x *Effects) error
	// retryable reports whether applying twice is harmless.
	retryable() bool
	name() string
}

// NotifyUser persists a notification for one recipient and pushes it live.
type NotifyUser struct {
	Notification models.Notification
}

// NotifyAdmins sends a copy of Notification to every admin that is not blocked.
type NotifyAdmins struct {
	Notification models.Notification

	// Except skips one admin, usually the actor.
	Except string
}

// SystemMessage appends a system-authored line to the event chat.
type SystemMessage struct {
	EventID string
	Actor   string
	Action  models.SystemAction
	Content string
}

type CounterDelta struct {
	UserID         string
	EventsCreated  int
	EventsAttended int
}

// ForceEventStatus drives an event through the transition table outside the
// normal approve/reject flow.
type ForceEventStatus struct {
	EventID    string
	Action     models.EventAction
	ReviewerID string
	Reason     string
}

type BlockUser struct {
	UserID string
	Reason string
}

// EventUpdate is a live-only broadcast to the event's watchers.
type EventUpdate struct {
	EventID string
	Type    string
	Data    any
}

// Effects applies effect lists. Failures are logged per effect and never
// reach the caller.
type Effects struct {
	store         storage.Store
	notifications *NotificationService
	push          Pusher
	log           *zap.Logger
	attempts      int
	backoff       time.Duration
	now           func() time.Time
}

func NewEffects(store storage.Store, notifications *NotificationService, push Pusher, log *zap.Logger) *Effects {
	if push == nil {
		push = nopPusher{}
	}
	return &Effects{
		store:         store,
		notifications: notifications,
		push:          push,
		log:           log,
		attempts:      3,
		backoff:       100 * time.Millisecond,
		now:           time.Now,
	}
}

// SetPusher swaps the live delivery target once the relay exists.
func (x *Effects) SetPusher(p Pusher) {
	if p == nil {
		p = nopPusher{}
	}
	x.push = p
	x.notifications.push = p
}

// Apply runs every effect in order.
func (x *Effects) Apply(ctx context.Context, effects []Effect) {
	for _, e := range effects {
		x.applyOne(ctx, e)
	}
}

func (x *Effects) applyOne(ctx context.Context, e Effect) {
	attempts := 1
	if e.retryable() {
		attempts = x.attempts
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				x.log.Warn("effect abandoned", zap.String("effect", e.name()), zap.Error(ctx.Err()))
				return
			case <-time.After(time.Duration(i) * x.backoff):
			}
		}
		if err = e.apply(ctx, x); err == nil {
			return
		}
	}
	x.log.Error("effect failed",
		zap.String("effect", e.name()),
		zap.Int("attempts", attempts),
		zap.Error(err),
	)
}

func (e NotifyUser) name() string    { return "notify_user" }
func (e NotifyUser) retryable() bool { return false }

func (e NotifyUser) apply(ctx context.Context, x *Effects) error {
	n := e.Notification
	_, err := x.notifications.Create(ctx, &n)
	return err
}

func (e NotifyAdmins) name() string    { return "notify_admins" }
func (e NotifyAdmins) retryable() bool { return false }

func (e NotifyAdmins) apply(ctx context.Context, x *Effects) error {
	admins, err := x.store.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	var errs []error
	for _, a := range admins {
		if a.IsBlocked || a.ID == e.Except {
			continue
		}
		n := e.Notification
		n.Recipient = a.ID
		if _, err := x.notifications.Create(ctx, &n); err != nil {
			errs = append(errs, fmt.Errorf("admin %s: %w", a.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (e SystemMessage) name() string    { return "system_message" }
func (e SystemMessage) retryable() bool { return false }

func (e SystemMessage) apply(ctx context.Context, x *Effects) error {
	now := x.now().UTC()
	m := &models.Message{
		ID:          uuid.NewString(),
		Event:       e.EventID,
		Sender:      e.Actor,
		Content:     e.Content,
		MessageType: models.MessageSystem,
		SystemData:  &models.SystemData{Action: e.Action, TargetUser: e.Actor},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := x.store.CreateMessage(ctx, m); err != nil {
		return err
	}
	x.push.PushChatMessage(e.EventID, &models.MessageView{Message: m})
	return nil
}

func (e CounterDelta) name() string    { return "counter_delta" }
func (e CounterDelta) retryable() bool { return false }

func (e CounterDelta) apply(ctx context.Context, x *Effects) error {
	return x.store.IncUserCounters(ctx, e.UserID, e.EventsCreated, e.EventsAttended)
}

func (e ForceEventStatus) name() string { return "force_event_status" }

// Retrying re-reads the event, so a lost race simply recomputes the target.
func (e ForceEventStatus) retryable() bool { return true }

func (e ForceEventStatus) apply(ctx context.Context, x *Effects) error {
	ev, err := x.store.GetEvent(ctx, e.EventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	next, err := ev.Status.Apply(e.Action)
	if err != nil {
		// Already in a state the action cannot leave; nothing to force.
		x.log.Info("event status not forced",
			zap.String("eventId", e.EventID),
			zap.String("status", string(ev.Status)),
			zap.String("action", string(e.Action)),
		)
		return nil
	}
	at := x.now().UTC()
	_, err = x.store.TransitionEvent(ctx, e.EventID, ev.Status, next, models.Moderation{
		ReviewedBy: e.ReviewerID,
		ReviewedAt: &at,
		Reason:     e.Reason,
	})
	if err != nil {
		return err
	}
	x.push.PushEventUpdate(e.EventID, "status_changed", map[string]any{"status": next})
	return nil
}

func (e BlockUser) name() string    { return "block_user" }
func (e BlockUser) retryable() bool { return true }

func (e BlockUser) apply(ctx context.Context, x *Effects) error {
	blocked := true
	at := x.now().UTC()
	reason := e.Reason
	_, err := x.store.UpdateUser(ctx, e.UserID, models.UserUpdate{
		IsBlocked:     &blocked,
		BlockedReason: &reason,
		BlockedAt:     &at,
	})
	return err
}

func (e EventUpdate) name() string    { return "event_update" }
func (e EventUpdate) retryable() bool { return true }

func (e EventUpdate) apply(_ context.Context, x *Effects) error {
	x.push.PushEventUpdate(e.EventID, e.Type, e.Data)
	return nil
}
