package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eventhub/backend/internal/models"
)

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.users.InsertOne(ctx, u)
	return duplicate(err)
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *MongoStore) GetUserByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	var u models.User
	filter := bson.M{"reset_token": token, "reset_token_expiry": bson.M{"$gt": now}}
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *MongoStore) GetUsers(ctx context.Context, ids []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	users, err := decodeAll[models.User](ctx, cur)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func userUpdateDoc(upd models.UserUpdate) bson.M {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Avatar != nil {
		set["avatar"] = *upd.Avatar
	}
	if upd.PasswordHash != nil {
		set["password_hash"] = *upd.PasswordHash
	}
	if upd.Role != nil {
		set["role"] = *upd.Role
	}
	if upd.IsBlocked != nil {
		set["is_blocked"] = *upd.IsBlocked
	}
	if upd.BlockedReason != nil {
		set["blocked_reason"] = *upd.BlockedReason
	}
	if upd.BlockedAt != nil {
		set["blocked_at"] = *upd.BlockedAt
	}
	if upd.ClearBlockedAt {
		unset["blocked_at"] = ""
	}
	if upd.IsEmailVerified != nil {
		set["is_email_verified"] = *upd.IsEmailVerified
	}
	if upd.VerificationToken != nil {
		set["verification_token"] = *upd.VerificationToken
	}
	if upd.VerificationExpiry != nil {
		set["verification_expiry"] = *upd.VerificationExpiry
	}
	if upd.ResetToken != nil {
		set["reset_token"] = *upd.ResetToken
	}
	if upd.ResetTokenExpiry != nil {
		set["reset_token_expiry"] = *upd.ResetTokenExpiry
	}
	if upd.ClearResetToken {
		delete(set, "reset_token")
		delete(set, "reset_token_expiry")
		unset["reset_token"] = ""
		unset["reset_token_expiry"] = ""
	}
	if upd.LastLogin != nil {
		set["last_login"] = *upd.LastLogin
	}

	doc := bson.M{"$set": set}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}
	return doc
}

func (s *MongoStore) UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	var u models.User
	err := s.users.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		userUpdateDoc(upd),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *MongoStore) IncUserCounters(ctx context.Context, id string, eventsCreated, eventsAttended int) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"events_created": eventsCreated, "events_attended": eventsAttended},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func userFilterDoc(f models.UserFilter) bson.M {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.IsBlocked != nil {
		filter["is_blocked"] = *f.IsBlocked
	}
	if f.CreatedSince != nil {
		filter["created_at"] = bson.M{"$gte": *f.CreatedSince}
	}
	if f.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"name": ciRegex(f.Search)},
			bson.M{"email": ciRegex(f.Search)},
		}
	}
	return filter
}

func (s *MongoStore) ListUsers(ctx context.Context, f models.UserFilter, p models.Page) ([]*models.User, int64, error) {
	filter := userFilterDoc(f)
	total, err := s.users.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.users.Find(ctx, filter, findPage(p, bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	users, err := decodeAll[models.User](ctx, cur)
	return users, total, err
}

func (s *MongoStore) CountUsers(ctx context.Context, f models.UserFilter) (int64, error) {
	return s.users.CountDocuments(ctx, userFilterDoc(f))
}

func (s *MongoStore) ListAdmins(ctx context.Context) ([]*models.User, error) {
	cur, err := s.users.Find(ctx, bson.M{"role": models.RoleAdmin, "is_blocked": false})
	if err != nil {
		return nil, err
	}
	return decodeAll[models.User](ctx, cur)
}

func (s *MongoStore) ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	reset, err := s.users.UpdateMany(ctx,
		bson.M{"reset_token_expiry": bson.M{"$lte": now}},
		bson.M{"$unset": bson.M{"reset_token": "", "reset_token_expiry": ""}},
	)
	if err != nil {
		return 0, err
	}
	verify, err := s.users.UpdateMany(ctx,
		bson.M{"verification_expiry": bson.M{"$lte": now}},
		bson.M{"$unset": bson.M{"verification_token": "", "verification_expiry": ""}},
	)
	if err != nil {
		return reset.ModifiedCount, err
	}
	return reset.ModifiedCount + verify.ModifiedCount, nil
}
