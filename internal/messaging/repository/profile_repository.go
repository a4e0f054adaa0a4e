package repository

import (
	"context"
	"errors"
	"time"

	"rural_skills_service/internal/messaging/domain"
	"rural_skills_service/pkg/database"
	errprocess "rural_skills_service/pkg/err"
	"rural_skills_service/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Profile subset of a user profile document read by the messaging service
type Profile struct {
	ID         string `bson:"_id" json:"id"`
	Name       string `bson:"name" json:"name"`
	Profession string `bson:"profession,omitempty" json:"profession,omitempty"`
	Location   string `bson:"location,omitempty" json:"location,omitempty"`
	PhotoURL   string `bson:"photoURL,omitempty" json:"photo_url,omitempty"`
}

// ProfileRepository definition read-only profile lookup
type ProfileRepository interface {
	// FindName 回傳使用者目前的顯示名稱, 查無資料回傳 domain.ErrProfileLookup
	FindName(ctx context.Context, userID string) (string, error)
}

type mongoProfileRepository struct {
	coll *mongo.Collection
}

// NewMongoProfileRepository create a ProfileRepository on the profiles collection
func NewMongoProfileRepository(db *mongo.Database) ProfileRepository {
	return &mongoProfileRepository{coll: db.Collection(domain.ProfilesCollection)}
}

func (r *mongoProfileRepository) FindName(ctx context.Context, userID string) (string, error) {
	var p Profile
	opts := options.FindOne().SetProjection(bson.M{"name": 1})
	err := r.coll.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", domain.ErrProfileLookup
	}
	if err != nil {
		return "", errprocess.Wrap("find profile", err, zap.String("userID", userID))
	}
	return p.Name, nil
}

type cachedProfileRepository struct {
	inner ProfileRepository
	cache database.RedisRepository[string]
	ttl   time.Duration
}

// NewCachedProfileRepository front inner with a redis name cache shared by every view
func NewCachedProfileRepository(inner ProfileRepository, cache database.RedisRepository[string], ttl time.Duration) ProfileRepository {
	return &cachedProfileRepository{inner: inner, cache: cache, ttl: ttl}
}

func (r *cachedProfileRepository) FindName(ctx context.Context, userID string) (string, error) {
	name, err := r.cache.Get(ctx, userID)
	if err == nil && name != "" {
		return name, nil
	}
	if err != nil && !errors.Is(err, database.ErrCacheMiss) {
		logger.Log.Warn("profile cache get failed", zap.String("userID", userID), zap.Error(err))
	}

	name, err = r.inner.FindName(ctx, userID)
	if err != nil {
		return "", err
	}
	if name != "" {
		if err := r.cache.Set(ctx, userID, name, r.ttl); err != nil {
			logger.Log.Warn("profile cache set failed", zap.String("userID", userID), zap.Error(err))
		}
	}
	return name, nil
}
