package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ilyakm/reviewstalk/internal/types"
)

// MongoBackend stores review records in a MongoDB collection with a
// unique index on review_id, so duplicate saves are upserts that change
// nothing.
type MongoBackend struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoBackend connects, pings, and ensures the collection indexes.
func NewMongoBackend(uri, database, collection string, logger *slog.Logger) (*MongoBackend, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "review_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "product_id", Value: 1}}},
		{Keys: bson.D{{Key: "product_url", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("mongodb create indexes: %w", err)
	}

	return &MongoBackend{
		client:     client,
		collection: coll,
		logger:     logger.With("component", "mongo_backend"),
	}, nil
}

func (b *MongoBackend) Name() string { return "mongodb" }

func (b *MongoBackend) SaveRecords(ctx context.Context, records []types.ReviewRecord) (int, error) {
	saved := 0
	for _, rec := range records {
		res, err := b.collection.UpdateOne(ctx,
			bson.M{"review_id": rec.ReviewID},
			bson.M{"$setOnInsert": rec},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return saved, fmt.Errorf("mongodb upsert review %s: %w", rec.ReviewID, err)
		}
		if res.UpsertedCount > 0 {
			saved++
		}
	}

	b.logger.Debug("records saved", "requested", len(records), "written", saved)
	return saved, nil
}

func (b *MongoBackend) QueryByProduct(ctx context.Context, productID string, limit int) ([]types.ReviewRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "published_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := b.collection.Find(ctx, bson.M{"product_id": productID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find reviews: %w", err)
	}
	defer cursor.Close(ctx)

	var records []types.ReviewRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("mongodb decode reviews: %w", err)
	}
	return records, nil
}

func (b *MongoBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.client.Disconnect(ctx)
}
