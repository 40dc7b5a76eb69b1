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

type NotificationService struct {
	store storage.NotificationStore
	push  Pusher
	log   *zap.Logger
	now   func() time.Time
}

func NewNotificationService(store storage.NotificationStore, log *zap.Logger) *NotificationService {
	return &NotificationService{
		store: store,
		push:  nopPusher{},
		log:   log,
		now:   time.Now,
	}
}

type NotificationList struct {
	Notifications []*models.Notification `json:"notifications"`
	Pagination    models.Pagination      `json:"pagination"`
	UnreadCount   int64                  `json:"unreadCount"`
}

// Create persists n and pushes it to the recipient when connected.
func (s *NotificationService) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if n.Recipient == "" {
		return nil, fmt.Errorf("notification without recipient")
	}
	if !n.Type.Valid() {
		return nil, fmt.Errorf("unknown notification type %q", n.Type)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Priority == "" {
		n.Priority = models.PriorityNormal
	}
	if !n.Channels.InApp && !n.Channels.Email && !n.Channels.Push {
		n.Channels.InApp = true
	}
	n.IsRead = false
	n.ReadAt = nil
	n.CreatedAt = s.now().UTC()

	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	s.push.PushNotification(n)
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, userID string, f models.NotificationFilter, p models.Page) (*NotificationList, error) {
	list, total, err := s.store.ListNotifications(ctx, userID, f, p)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Notification{}
	}
	return &NotificationList{
		Notifications: list,
		Pagination:    models.NewPagination(p, total),
		UnreadCount:   unread,
	}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.store.CountUnread(ctx, userID)
}

// MarkRead is scoped to the recipient: another user's id reads as not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) (*models.Notification, error) {
	n, err := s.store.MarkRead(ctx, id, userID, s.now().UTC())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotificationNotFound
	}
	return n, err
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.store.MarkAllRead(ctx, userID, s.now().UTC())
}

func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	err := s.store.DeleteNotification(ctx, id, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

// CleanupRead removes read notifications created more than olderThan ago.
func (s *NotificationService) CleanupRead(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.store.DeleteReadBefore(ctx, s.now().UTC().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	s.log.Info("read notifications purged", zap.Int64("deleted", n), zap.Duration("olderThan", olderThan))
	return n, nil
}
