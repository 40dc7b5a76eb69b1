package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/eventhub/backend/internal/models"
)

func (s *MongoStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	_, err := s.notifications.InsertOne(ctx, n)
	return err
}

func (s *MongoStore) ListNotifications(ctx context.Context, recipient string, f models.NotificationFilter, p models.Page) ([]*models.Notification, int64, error) {
	filter := bson.M{"recipient_id": recipient}
	if f.UnreadOnly {
		filter["is_read"] = false
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}

	total, err := s.notifications.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.notifications.Find(ctx, filter, findPage(p, bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	list, err := decodeAll[models.Notification](ctx, cur)
	return list, total, err
}

func (s *MongoStore) CountUnread(ctx context.Context, recipient string) (int64, error) {
	return s.notifications.CountDocuments(ctx, bson.M{"recipient_id": recipient, "is_read": false})
}

func (s *MongoStore) MarkRead(ctx context.Context, id, recipient string, at time.Time) (*models.Notification, error) {
	filter := bson.M{"_id": id, "recipient_id": recipient}

	// Keep the original read time when already read.
	if _, err := s.notifications.UpdateOne(ctx,
		bson.M{"_id": id, "recipient_id": recipient, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at}},
	); err != nil {
		return nil, err
	}

	var n models.Notification
	if err := s.notifications.FindOne(ctx, filter).Decode(&n); err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

func (s *MongoStore) MarkAllRead(ctx context.Context, recipient string, at time.Time) (int64, error) {
	res, err := s.notifications.UpdateMany(ctx,
		bson.M{"recipient_id": recipient, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *MongoStore) DeleteNotification(ctx context.Context, id, recipient string) error {
	res, err := s.notifications.DeleteOne(ctx, bson.M{"_id": id, "recipient_id": recipient})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteReadBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.notifications.DeleteMany(ctx, bson.M{
		"is_read":    true,
		"created_at": bson.M{"$lt": before},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
