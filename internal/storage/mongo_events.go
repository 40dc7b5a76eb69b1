package storage

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eventhub/backend/internal/models"
)

// activeCountExpr counts confirmed roster entries inside an aggregation expression.
var activeCountExpr = bson.M{"$size": bson.M{"$filter": bson.M{
	"input": bson.M{"$ifNull": bson.A{"$participants", bson.A{}}},
	"cond":  bson.M{"$eq": bson.A{"$$this.status", models.ParticipantConfirmed}},
}}}

var afterUpdate = options.FindOneAndUpdate().SetReturnDocument(options.After)

func (s *MongoStore) CreateEvent(ctx context.Context, e *models.Event) error {
	// $push and $concatArrays refuse null arrays.
	if e.Participants == nil {
		e.Participants = []models.Participant{}
	}
	if e.Reports == nil {
		e.Reports = []models.EmbeddedReport{}
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	_, err := s.events.InsertOne(ctx, e)
	return duplicate(err)
}

func (s *MongoStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var e models.Event
	if err := s.events.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *MongoStore) UpdateEvent(ctx context.Context, id string, upd models.EventUpdate) (*models.Event, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Slug != nil {
		set["slug"] = *upd.Slug
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.Location != nil {
		set["location"] = *upd.Location
	}
	if upd.Date != nil {
		set["date"] = *upd.Date
	}
	if upd.Capacity != nil {
		set["capacity"] = *upd.Capacity
	}
	if upd.Price != nil {
		set["price"] = *upd.Price
	}
	if upd.Image != nil {
		set["image"] = *upd.Image
	}
	if upd.Tags != nil {
		set["tags"] = upd.Tags
	}
	if upd.Settings != nil {
		set["settings"] = *upd.Settings
	}

	filter := bson.M{"_id": id}
	if upd.Capacity != nil {
		// A join landing between the caller's check and this write must not
		// leave more confirmed participants than seats.
		filter["$expr"] = bson.M{"$lte": bson.A{activeCountExpr, *upd.Capacity}}
	}

	var e models.Event
	err := s.events.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, afterUpdate).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.classify(ctx, id, ErrCapacityBelowRoster)
		}
		return nil, err
	}
	return &e, nil
}

func (s *MongoStore) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.events.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func eventFilterDoc(f models.EventFilter) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.City != "" {
		filter["location.city"] = ciRegex(f.City)
	}
	if f.From != nil || f.To != nil {
		rng := bson.M{}
		if f.From != nil {
			rng["$gte"] = *f.From
		}
		if f.To != nil {
			rng["$lte"] = *f.To
		}
		filter["date.start"] = rng
	}
	if f.CreatedBy != "" {
		filter["created_by"] = f.CreatedBy
	}
	if f.CreatedSince != nil {
		filter["created_at"] = bson.M{"$gte": *f.CreatedSince}
	}
	if f.Participant != "" {
		filter["participants"] = bson.M{"$elemMatch": bson.M{
			"user_id": f.Participant,
			"status":  models.ParticipantConfirmed,
		}}
	}
	if f.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"title": ciRegex(f.Search)},
			bson.M{"description": ciRegex(f.Search)},
			bson.M{"tags": ciRegex(f.Search)},
		}
	}
	return filter
}

func eventSort(f models.EventFilter) bson.D {
	if f.NewestFirst {
		return bson.D{{Key: "created_at", Value: -1}}
	}
	return bson.D{{Key: "date.start", Value: 1}}
}

func (s *MongoStore) ListEvents(ctx context.Context, f models.EventFilter, p models.Page) ([]*models.Event, int64, error) {
	filter := eventFilterDoc(f)
	total, err := s.events.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.events.Find(ctx, filter, findPage(p, eventSort(f)))
	if err != nil {
		return nil, 0, err
	}
	events, err := decodeAll[models.Event](ctx, cur)
	return events, total, err
}

func (s *MongoStore) CountEvents(ctx context.Context, f models.EventFilter) (int64, error) {
	return s.events.CountDocuments(ctx, eventFilterDoc(f))
}

func (s *MongoStore) IncViewCount(ctx context.Context, id string) error {
	res, err := s.events.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"view_count": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// classify distinguishes a missing event from a failed precondition after a
// conditional update matched nothing.
func (s *MongoStore) classify(ctx context.Context, eventID string, precondition error) error {
	n, err := s.events.CountDocuments(ctx, bson.M{"_id": eventID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return precondition
}

func (s *MongoStore) TransitionEvent(ctx context.Context, id string, from, to models.EventStatus, mod models.Moderation) (*models.Event, error) {
	update := bson.M{"$set": bson.M{
		"status":     to,
		"moderation": mod,
		"updated_at": time.Now().UTC(),
	}}

	var e models.Event
	err := s.events.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, update, afterUpdate).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.classify(ctx, id, ErrStateChanged)
		}
		return nil, err
	}
	return &e, nil
}

func (s *MongoStore) AddParticipant(ctx context.Context, eventID, userID string, at time.Time) (*models.Event, error) {
	hasRoom := bson.M{"$lt": bson.A{activeCountExpr, "$capacity"}}

	// Reactivate a cancelled entry in place.
	var e models.Event
	err := s.events.FindOneAndUpdate(ctx,
		bson.M{
			"_id": eventID,
			"participants": bson.M{"$elemMatch": bson.M{
				"user_id": userID,
				"status":  models.ParticipantCancelled,
			}},
			"$expr": hasRoom,
		},
		bson.M{"$set": bson.M{
			"participants.$.status":    models.ParticipantConfirmed,
			"participants.$.joined_at": at,
		}},
		afterUpdate,
	).Decode(&e)
	if err == nil {
		return &e, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	err = s.events.FindOneAndUpdate(ctx,
		bson.M{
			"_id":                  eventID,
			"participants.user_id": bson.M{"$ne": userID},
			"$expr":                hasRoom,
		},
		bson.M{"$push": bson.M{"participants": models.Participant{
			User:     userID,
			JoinedAt: at,
			Status:   models.ParticipantConfirmed,
		}}},
		afterUpdate,
	).Decode(&e)
	if err == nil {
		return &e, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	current, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if current.IsConfirmedParticipant(userID) {
		return nil, ErrAlreadyParticipant
	}
	return nil, ErrCapacityFull
}

func (s *MongoStore) CancelParticipant(ctx context.Context, eventID, userID string) (*models.Event, error) {
	var e models.Event
	err := s.events.FindOneAndUpdate(ctx,
		bson.M{
			"_id": eventID,
			"participants": bson.M{"$elemMatch": bson.M{
				"user_id": userID,
				"status":  models.ParticipantConfirmed,
			}},
		},
		bson.M{"$set": bson.M{"participants.$.status": models.ParticipantCancelled}},
		afterUpdate,
	).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.classify(ctx, eventID, ErrNotParticipant)
		}
		return nil, err
	}
	return &e, nil
}

func (s *MongoStore) AddReport(ctx context.Context, eventID string, r models.EmbeddedReport) (*models.Event, error) {
	// Pipeline update so report_count is recomputed from the list in the same write.
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"reports": bson.M{"$concatArrays": bson.A{
			bson.M{"$ifNull": bson.A{"$reports", bson.A{}}},
			bson.A{bson.M{"$literal": r}},
		}}}}},
		{{Key: "$set", Value: bson.M{"report_count": bson.M{"$size": "$reports"}}}},
	}

	var e models.Event
	err := s.events.FindOneAndUpdate(ctx,
		bson.M{"_id": eventID, "reports.user_id": bson.M{"$ne": r.User}},
		update,
		afterUpdate,
	).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.classify(ctx, eventID, ErrDuplicate)
		}
		return nil, err
	}
	return &e, nil
}

func (s *MongoStore) EventsByCategory(ctx context.Context, status models.EventStatus) ([]models.CategoryCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": status}}},
		{{Key: "$group", Value: bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cur, err := s.events.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var out []models.CategoryCount
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) TopReportedEvents(ctx context.Context, limit int) ([]*models.Event, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "report_count", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.events.Find(ctx, bson.M{"report_count": bson.M{"$gt": 0}}, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Event](ctx, cur)
}

func (s *MongoStore) DistinctCities(ctx context.Context, status models.EventStatus) ([]string, error) {
	values, err := s.events.Distinct(ctx, "location.city", bson.M{"status": status})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if city, ok := v.(string); ok && city != "" {
			out = append(out, city)
		}
	}
	sort.Strings(out)
	return out, nil
}
