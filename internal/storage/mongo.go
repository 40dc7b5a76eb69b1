package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/models"
)

type MongoStore struct {
	client        *mongo.Client
	db            *mongo.Database
	users         *mongo.Collection
	events        *mongo.Collection
	messages      *mongo.Collection
	notifications *mongo.Collection
	reports       *mongo.Collection
	log           *zap.Logger
}

type MongoOptions struct {
	URI      string
	Database string

	// ForceTLS12 pins the client to TLS 1.2; some Atlas environments fail negotiation otherwise.
	ForceTLS12 bool
}

func NewMongoStore(ctx context.Context, opts MongoOptions, log *zap.Logger) (*MongoStore, error) {
	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.ForceTLS12 {
		clientOpts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS12,
		})
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	db := client.Database(opts.Database)
	s := &MongoStore{
		client:        client,
		db:            db,
		users:         db.Collection("users"),
		events:        db.Collection("events"),
		messages:      db.Collection("messages"),
		notifications: db.Collection("notifications"),
		reports:       db.Collection("event_reports"),
		log:           log,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	log.Info("MongoDB connected", zap.String("db", opts.Database))
	return s, nil
}

// ensureIndexes creates the unique indexes the store relies on; the rest are best effort.
func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := s.reports.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "reported_by", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}

	_, _ = s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "is_blocked", Value: 1}}},
		{Keys: bson.D{{Key: "reset_token", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	_, _ = s.events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "date.start", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "location.city", Value: 1}}},
		{Keys: bson.D{{Key: "created_by", Value: 1}}},
		{Keys: bson.D{{Key: "participants.user_id", Value: 1}}},
		{Keys: bson.D{{Key: "report_count", Value: -1}}},
	})
	_, _ = s.messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	_, _ = s.notifications.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "is_read", Value: 1}}},
	})
	_, _ = s.reports.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Database exposes the handle for integration tests.
func (s *MongoStore) Database() *mongo.Database {
	return s.db
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func ciRegex(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

func findPage(p models.Page, sort bson.D) *options.FindOptions {
	return options.Find().
		SetSkip(int64(p.Skip())).
		SetLimit(int64(p.Limit)).
		SetSort(sort)
}

func decodeAll[T any](ctx context.Context, cur *mongo.Cursor) ([]*T, error) {
	defer cur.Close(ctx)
	var out []*T
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []*T{}
	}
	return out, nil
}

var _ Store = (*MongoStore)(nil)
