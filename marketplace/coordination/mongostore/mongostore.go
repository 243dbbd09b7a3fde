// Package mongostore persists coordination snapshots in MongoDB as one
// upserted document holding the JSON payload, overwritten on every save.
package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/recallpoint/lib-marketplace/marketplace/coordination"
)

const documentID = "coordination_snapshot"

// Store is a MongoDB-backed coordination.Store.
type Store struct {
	collection *mongo.Collection
}

var _ coordination.Store = (*Store)(nil)

type snapshotDocument struct {
	ID        string    `bson:"_id"`
	Payload   []byte    `bson:"payload"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// New creates a store using collection. The client's lifecycle belongs to
// the caller.
func New(collection *mongo.Collection) (*Store, error) {
	if collection == nil {
		return nil, errors.New("mongostore: collection is required")
	}

	return &Store{collection: collection}, nil
}

// Load implements coordination.Store. A missing document yields an empty
// snapshot.
func (store *Store) Load(ctx context.Context) (*coordination.Snapshot, error) {
	var document snapshotDocument

	err := store.collection.FindOne(ctx, bson.M{"_id": documentID}).Decode(&document)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &coordination.Snapshot{}, nil
		}

		return nil, fmt.Errorf("mongostore: find snapshot: %w", err)
	}

	var snapshot coordination.Snapshot
	if err := json.Unmarshal(document.Payload, &snapshot); err != nil {
		return nil, fmt.Errorf("mongostore: decode snapshot: %w", err)
	}

	return &snapshot, nil
}

// Save implements coordination.Store.
func (store *Store) Save(ctx context.Context, snapshot *coordination.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("mongostore: encode snapshot: %w", err)
	}

	document := snapshotDocument{
		ID:        documentID,
		Payload:   payload,
		UpdatedAt: time.Now().UTC(),
	}

	_, err = store.collection.ReplaceOne(
		ctx,
		bson.M{"_id": documentID},
		document,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongostore: upsert snapshot: %w", err)
	}

	return nil
}
