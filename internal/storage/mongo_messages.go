package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/eventhub/backend/internal/models"
)

func (s *MongoStore) CreateMessage(ctx context.Context, m *models.Message) error {
	_, err := s.messages.InsertOne(ctx, m)
	return err
}

func (s *MongoStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var m models.Message
	if err := s.messages.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *MongoStore) ListMessages(ctx context.Context, eventID string, p models.Page) ([]*models.Message, int64, error) {
	filter := bson.M{"event_id": eventID, "is_deleted": false}
	total, err := s.messages.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.messages.Find(ctx, filter, findPage(p, bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	msgs, err := decodeAll[models.Message](ctx, cur)
	return msgs, total, err
}

func (s *MongoStore) EditMessage(ctx context.Context, id, content string, at time.Time) (*models.Message, error) {
	var m models.Message
	err := s.messages.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{"$set": bson.M{
			"content":    content,
			"is_edited":  true,
			"edited_at":  at,
			"updated_at": at,
		}},
		afterUpdate,
	).Decode(&m)
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *MongoStore) SoftDeleteMessage(ctx context.Context, id, by string, at time.Time) error {
	res, err := s.messages.UpdateOne(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{"$set": bson.M{
			"is_deleted": true,
			"deleted_at": at,
			"deleted_by": by,
			"updated_at": at,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
