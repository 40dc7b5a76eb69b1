package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/eventhub/backend/internal/models"
)

func (s *MongoStore) CreateReport(ctx context.Context, r *models.EventReport) error {
	_, err := s.reports.InsertOne(ctx, r)
	return duplicate(err)
}

func (s *MongoStore) GetReport(ctx context.Context, id string) (*models.EventReport, error) {
	var r models.EventReport
	if err := s.reports.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func reportFilterDoc(f models.ReportFilter) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.EventID != "" {
		filter["event_id"] = f.EventID
	}
	return filter
}

func (s *MongoStore) ListReports(ctx context.Context, f models.ReportFilter, p models.Page) ([]*models.EventReport, int64, error) {
	filter := reportFilterDoc(f)
	total, err := s.reports.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.reports.Find(ctx, filter, findPage(p, bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	list, err := decodeAll[models.EventReport](ctx, cur)
	return list, total, err
}

func (s *MongoStore) CountReports(ctx context.Context, f models.ReportFilter) (int64, error) {
	return s.reports.CountDocuments(ctx, reportFilterDoc(f))
}

func (s *MongoStore) ReviewReport(ctx context.Context, id string, from models.ReportStatus, r models.EventReport) (*models.EventReport, error) {
	update := bson.M{"$set": bson.M{
		"status":       r.Status,
		"reviewed_by":  r.ReviewedBy,
		"reviewed_at":  r.ReviewedAt,
		"admin_notes":  r.AdminNotes,
		"action_taken": r.ActionTaken,
		"updated_at":   time.Now().UTC(),
	}}

	var out models.EventReport
	err := s.reports.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, update, afterUpdate).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			n, cerr := s.reports.CountDocuments(ctx, bson.M{"_id": id})
			if cerr != nil {
				return nil, cerr
			}
			if n == 0 {
				return nil, ErrNotFound
			}
			return nil, ErrStateChanged
		}
		return nil, err
	}
	return &out, nil
}
