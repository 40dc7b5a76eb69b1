// Package storage persists users, events, messages, notifications and reports.
// Two implementations exist: MongoStore for deployments and MemoryStore for
// tests and single-node development (optionally snapshotted to a JSON file).
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/eventhub/backend/internal/models"
)

var (
	ErrNotFound = errors.New("storage: not found")

	// ErrDuplicate is returned when a unique key (email, report per user) already exists.
	ErrDuplicate = errors.New("storage: duplicate")

	// ErrStateChanged is returned when a conditional update found the document in another state.
	ErrStateChanged = errors.New("storage: state changed")

	ErrAlreadyParticipant = errors.New("storage: already participant")
	ErrNotParticipant     = errors.New("storage: not participant")
	ErrCapacityFull       = errors.New("storage: capacity full")

	// ErrCapacityBelowRoster is returned when an update would set capacity
	// below the number of confirmed participants.
	ErrCapacityBelowRoster = errors.New("storage: capacity below roster")
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	GetUsers(ctx context.Context, ids []string) (map[string]*models.User, error)
	UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
	IncUserCounters(ctx context.Context, id string, eventsCreated, eventsAttended int) error
	ListUsers(ctx context.Context, f models.UserFilter, p models.Page) ([]*models.User, int64, error)
	CountUsers(ctx context.Context, f models.UserFilter) (int64, error)
	ListAdmins(ctx context.Context) ([]*models.User, error)
	ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

type EventStore interface {
	CreateEvent(ctx context.Context, e *models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	// UpdateEvent fails with ErrCapacityBelowRoster, changing nothing, when
	// upd.Capacity is below the confirmed count at write time.
	UpdateEvent(ctx context.Context, id string, upd models.EventUpdate) (*models.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, f models.EventFilter, p models.Page) ([]*models.Event, int64, error)
	CountEvents(ctx context.Context, f models.EventFilter) (int64, error)
	IncViewCount(ctx context.Context, id string) error

	// TransitionEvent moves the event from one status to another only if it is
	// still in from. It returns ErrStateChanged otherwise.
	TransitionEvent(ctx context.Context, id string, from, to models.EventStatus, mod models.Moderation) (*models.Event, error)

	// AddParticipant confirms userID on the roster. The capacity check and the
	// roster write happen in one atomic step; a cancelled entry is reactivated.
	AddParticipant(ctx context.Context, eventID, userID string, at time.Time) (*models.Event, error)
	CancelParticipant(ctx context.Context, eventID, userID string) (*models.Event, error)

	// AddReport appends r unless r.User already reported the event (ErrDuplicate)
	// and keeps ReportCount equal to the list length.
	AddReport(ctx context.Context, eventID string, r models.EmbeddedReport) (*models.Event, error)

	EventsByCategory(ctx context.Context, status models.EventStatus) ([]models.CategoryCount, error)
	TopReportedEvents(ctx context.Context, limit int) ([]*models.Event, error)
	DistinctCities(ctx context.Context, status models.EventStatus) ([]string, error)
}

type MessageStore interface {
	CreateMessage(ctx context.Context, m *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	// ListMessages returns non-deleted messages newest first.
	ListMessages(ctx context.Context, eventID string, p models.Page) ([]*models.Message, int64, error)
	EditMessage(ctx context.Context, id, content string, at time.Time) (*models.Message, error)
	SoftDeleteMessage(ctx context.Context, id, by string, at time.Time) error
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, recipient string, f models.NotificationFilter, p models.Page) ([]*models.Notification, int64, error)
	CountUnread(ctx context.Context, recipient string) (int64, error)
	MarkRead(ctx context.Context, id, recipient string, at time.Time) (*models.Notification, error)
	MarkAllRead(ctx context.Context, recipient string, at time.Time) (int64, error)
	DeleteNotification(ctx context.Context, id, recipient string) error
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
}

type ReportStore interface {
	CreateReport(ctx context.Context, r *models.EventReport) error
	GetReport(ctx context.Context, id string) (*models.EventReport, error)
	ListReports(ctx context.Context, f models.ReportFilter, p models.Page) ([]*models.EventReport, int64, error)
	CountReports(ctx context.Context, f models.ReportFilter) (int64, error)
	// ReviewReport applies a review only while the report is still in from.
	ReviewReport(ctx context.Context, id string, from models.ReportStatus, r models.EventReport) (*models.EventReport, error)
}

// Store bundles every collection; both implementations satisfy it.
type Store interface {
	UserStore
	EventStore
	MessageStore
	NotificationStore
	ReportStore
	Close(ctx context.Context) error
}
