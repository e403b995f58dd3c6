package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kynaruniverse/storefront/internal/selection"
)

// selectionDoc is the remote row for an authenticated user's selection. Items
// are stored as an opaque array; the local store stays authoritative for the
// session and this row is only read back on sign-in.
type selectionDoc struct {
	UserID    string           `bson:"user_id"`
	Items     []selection.Item `bson:"items"`
	UpdatedAt time.Time        `bson:"updated_at"`
}

// MongoSyncer implements selection.Syncer over a `selections` collection
// keyed by user_id.
type MongoSyncer struct {
	collection *mongo.Collection
}

func NewMongoSyncer(db *mongo.Database) *MongoSyncer {
	return &MongoSyncer{
		collection: db.Collection("selections"),
	}
}

func (m *MongoSyncer) Fetch(ctx context.Context, userID string) ([]selection.Item, error) {
	var doc selectionDoc
	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, selection.ErrNotSynced
		}
		return nil, fmt.Errorf("failed to fetch selection: %w", err)
	}
	return doc.Items, nil
}

func (m *MongoSyncer) Push(ctx context.Context, userID string, items []selection.Item) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{"$set": bson.M{
		"items":      items,
		"updated_at": time.Now(),
	}}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert selection: %w", err)
	}
	return nil
}

func (m *MongoSyncer) Delete(ctx context.Context, userID string) error {
	filter := bson.M{"user_id": userID}
	if _, err := m.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete selection: %w", err)
	}
	return nil
}

// CreateIndexes sets up the unique user_id index and a 90 day TTL on
// abandoned selections.
func (m *MongoSyncer) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
