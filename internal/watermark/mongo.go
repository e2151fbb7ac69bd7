package watermark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ilyakm/reviewstalk/internal/types"
)

// mongoEntry is the document shape, keyed by product ID.
type mongoEntry struct {
	ProductID       string    `bson:"_id"`
	LastReviewDate  time.Time `bson:"last_review_date,omitempty"`
	RecentReviewIDs []string  `bson:"recent_review_ids,omitempty"`
	TotalReviews    int       `bson:"total_reviews"`
	LastSyncedAt    time.Time `bson:"last_synced_at"`
}

// MongoStore keeps watermarks in a MongoDB collection, one document per
// product. Upsert is read-modify-write: the replace itself is atomic, so
// two concurrent upserts never interleave partially, but the later one
// wins wholesale. The coordinator crawls products sequentially in one
// process, so no product is ever upserted concurrently.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoStore connects to MongoDB and pings it once so a dead store is
// detected at startup, not mid-run.
func NewMongoStore(uri, database, collection string, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "watermark_mongo"),
	}, nil
}

func (s *MongoStore) Name() string { return "mongodb" }

func (s *MongoStore) Get(ctx context.Context, productID string) (types.ProductWatermark, error) {
	var entry mongoEntry
	err := s.collection.FindOne(ctx, bson.M{"_id": productID}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.NewProductWatermark(productID), nil
	}
	if err != nil {
		return types.ProductWatermark{}, fmt.Errorf("mongodb find watermark: %w", err)
	}

	return types.ProductWatermark{
		ProductID:      productID,
		LastReviewDate: entry.LastReviewDate.UTC(),
		Recent:         types.NewRecentIDWindow(entry.RecentReviewIDs...),
		TotalReviews:   entry.TotalReviews,
		LastSyncedAt:   entry.LastSyncedAt,
	}, nil
}

func (s *MongoStore) Upsert(ctx context.Context, productID string, u Update) error {
	wm, err := s.Get(ctx, productID)
	if err != nil {
		return err
	}

	entry := mongoEntry{
		ProductID:      productID,
		LastReviewDate: wm.LastReviewDate,
		TotalReviews:   wm.TotalReviews,
		LastSyncedAt:   time.Now().UTC(),
	}

	if !u.LastReviewDate.IsZero() && u.LastReviewDate.After(entry.LastReviewDate) {
		entry.LastReviewDate = u.LastReviewDate.UTC()
	}

	window := wm.Recent
	for _, id := range u.NewIDs {
		window.Add(id)
	}
	entry.RecentReviewIDs = window.IDs()

	if u.TotalReviews >= 0 {
		entry.TotalReviews = u.TotalReviews
	}

	_, err = s.collection.ReplaceOne(ctx,
		bson.M{"_id": productID},
		entry,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongodb upsert watermark: %w", err)
	}

	s.logger.Debug("watermark updated",
		"product_id", productID,
		"recent_ids", len(entry.RecentReviewIDs),
		"total_reviews", entry.TotalReviews,
	)
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
