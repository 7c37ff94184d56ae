package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	cartstore "github.com/xraph/cart/store"
)

// Collection name constants.
const (
	colEntries = "cart_entries"
)

// compile-time interface check
var _ cartstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db   *grove.DB
	mdb  *mongodriver.MongoDB
	opts cartstore.Options
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB, opts ...cartstore.Option) *Store {
	return &Store{
		db:   db,
		mdb:  mongodriver.Unwrap(db),
		opts: cartstore.Apply(opts...),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all cart collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("cart/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var m entryModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{
			"_id": key,
			"$or": bson.A{
				bson.M{"expires_at": bson.M{"$exists": false}},
				bson.M{"expires_at": bson.M{"$gt": time.Now().UTC()}},
			},
		}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return "", cartstore.ErrNotFound
		}
		return "", fmt.Errorf("cart/mongo: get %s: %w", key, err)
	}
	return m.Value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	now := time.Now().UTC()
	m := &entryModel{Key: key, Value: value, ExpiresAt: s.opts.ExpiresAt(now), UpdatedAt: now}

	update := bson.M{"$set": bson.M{
		"value":      m.Value,
		"updated_at": m.UpdatedAt,
	}}
	if m.ExpiresAt != nil {
		update["$set"].(bson.M)["expires_at"] = *m.ExpiresAt
	} else {
		update["$unset"] = bson.M{"expires_at": ""}
	}

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": key}).
		SetUpdate(update).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("cart/mongo: set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.mdb.NewDelete((*entryModel)(nil)).
		Filter(bson.M{"_id": key}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("cart/mongo: remove %s: %w", key, err)
	}
	return nil
}

// isNoDocuments checks for the mongo no-documents sentinel.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all cart collections.
// Expired entries are reaped by MongoDB's TTL monitor.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colEntries: {
			{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0).SetSparse(true),
			},
			{Keys: bson.D{{Key: "updated_at", Value: -1}}},
		},
	}
}
