package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/foodflow/backend/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCache persists pipeline results in a MongoDB collection so cached
// extractions survive restarts. Expiry is handled by a TTL index on
// created_at.
type MongoCache struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoCache connects to MongoDB and prepares the results collection.
// The ttl controls the collection's TTL index; passing a different ttl on a
// later start updates nothing, Mongo keeps the first index definition.
func NewMongoCache(ctx context.Context, uri, database, collection string, ttl time.Duration) (*MongoCache, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}

	coll := client.Database(database).Collection(collection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "fingerprint", Value: 1}, {Key: "task", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(ttl.Seconds())),
		},
	}
	if _, err := coll.Indexes().CreateMany(connectCtx, indexes); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}

	log.Printf("[CACHE] Connected to MongoDB, collection %s.%s", database, collection)

	return &MongoCache{client: client, collection: coll}, nil
}

// Get retrieves a cached result
func (c *MongoCache) Get(ctx context.Context, fingerprint string, task domain.TaskType) (*domain.CacheEntry, error) {
	filter := bson.M{"fingerprint": fingerprint, "task": task}

	var entry domain.CacheEntry
	err := c.collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}

	return &entry, nil
}

// Put upserts a result on (fingerprint, task). Concurrent writers for the
// same pair race benignly, last write wins.
func (c *MongoCache) Put(ctx context.Context, entry *domain.CacheEntry) error {
	if entry.Fingerprint == "" {
		return domain.ErrInvalidRequest
	}

	stored := *entry
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	filter := bson.M{"fingerprint": entry.Fingerprint, "task": entry.Task}
	update := bson.M{"$set": stored}

	_, err := c.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}

	return nil
}

// Delete removes a cached result
func (c *MongoCache) Delete(ctx context.Context, fingerprint string, task domain.TaskType) error {
	_, err := c.collection.DeleteOne(ctx, bson.M{"fingerprint": fingerprint, "task": task})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}

// Close disconnects from MongoDB
func (c *MongoCache) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
