package activity

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/saleflow/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
)

// GormSink stores entries in the activities table.
type GormSink struct {
	db *gorm.DB
}

func NewGormSink(db *gorm.DB) *GormSink {
	return &GormSink{db: db}
}

func (s *GormSink) Append(ctx context.Context, entry *models.ActivityLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormSink) Recent(ctx context.Context, actorID string, limit int) ([]models.ActivityLog, error) {
	var out []models.ActivityLog
	q := s.db.WithContext(ctx).Order("timestamp DESC").Limit(limit)
	if actorID != "" {
		q = q.Where("actor_id = ?", actorID)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MongoSink stores entries as documents in one collection.
type MongoSink struct {
	collection *mongo.Collection
}

func NewMongoSink(db *mongo.Database) *MongoSink {
	return &MongoSink{collection: db.Collection("activities")}
}

func (s *MongoSink) Append(ctx context.Context, entry *models.ActivityLog) error {
	_, err := s.collection.InsertOne(ctx, entry)
	return err
}

func (s *MongoSink) Recent(ctx context.Context, actorID string, limit int) ([]models.ActivityLog, error) {
	filter := bson.M{}
	if actorID != "" {
		filter["actorId"] = actorID
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(int64(limit))
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find activities: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.ActivityLog{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}
	return out, nil
}

// MemorySink keeps entries in process.
type MemorySink struct {
	mu      sync.Mutex
	entries []models.ActivityLog
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(_ context.Context, entry *models.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *MemorySink) Recent(_ context.Context, actorID string, limit int) ([]models.ActivityLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ActivityLog{}
	for _, e := range s.entries {
		if actorID == "" || e.ActorID == actorID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
