// Package persist saves and restores cart records through a store.Store.
//
// Records are written as a flat JSON document under the key
//
//	<namespace>_<storeID>_<partition>
//
// where partition is CART, or PUBLIC/PRIVATE when partitioning is enabled.
// Decoding is field by field: fields missing from the document keep their
// default value, unknown fields are ignored, and a document that cannot be
// parsed at all is treated as absent.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/cart/record"
	"github.com/xraph/cart/store"
)

// DefaultNamespace prefixes every key unless WithNamespace overrides it.
const DefaultNamespace = "REACT_CART_STORAGE_KEY"

// Partition suffixes.
const (
	PartitionCart    = "CART"
	PartitionPublic  = "PUBLIC"
	PartitionPrivate = "PRIVATE"
)

// ErrCorrupt is logged when a stored document cannot be decoded.
var ErrCorrupt = errors.New("cart/persist: corrupt record")

// Adapter maps records to store keys.
type Adapter struct {
	kv          store.Store
	namespace   string
	partitioned bool
	logger      *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithNamespace sets the key prefix.
func WithNamespace(ns string) Option {
	return func(a *Adapter) {
		if ns != "" {
			a.namespace = ns
		}
	}
}

// WithPartitioning keys records by their Private flag.
func WithPartitioning(enabled bool) Option {
	return func(a *Adapter) {
		a.partitioned = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// New creates an adapter over kv.
func New(kv store.Store, opts ...Option) *Adapter {
	a := &Adapter{
		kv:        kv,
		namespace: DefaultNamespace,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Partitioned reports whether keys depend on the Private flag.
func (a *Adapter) Partitioned() bool { return a.partitioned }

// Key returns the store key for a record.
func (a *Adapter) Key(storeID string, private bool) string {
	partition := PartitionCart
	if a.partitioned {
		partition = PartitionPublic
		if private {
			partition = PartitionPrivate
		}
	}
	return a.namespace + "_" + storeID + "_" + partition
}

// Save writes rec under its key.
func (a *Adapter) Save(ctx context.Context, rec *record.Record) error {
	data, err := json.Marshal(encode(rec))
	if err != nil {
		return fmt.Errorf("cart/persist: encode %s: %w", rec.StoreID, err)
	}
	key := a.Key(rec.StoreID, rec.Private)
	if err := a.kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("cart/persist: save %s: %w", key, err)
	}
	return nil
}

// Load reads the record for storeID. When nothing usable is stored it
// returns a fresh default record and false.
func (a *Adapter) Load(ctx context.Context, storeID string, private bool) (*record.Record, bool) {
	key := a.Key(storeID, private)

	raw, err := a.kv.Get(ctx, key)
	if err != nil {
		if !store.IsNotFound(err) {
			a.logger.Warn("cart/persist: load failed, using defaults", "key", key, "error", err)
		}
		return record.New(storeID, private), false
	}

	rec, err := decode([]byte(raw), storeID, private)
	if err != nil {
		a.logger.Warn("cart/persist: corrupt record, using defaults", "key", key, "error", err)
		return record.New(storeID, private), false
	}
	return rec, true
}

// Delete removes the stored record for storeID.
func (a *Adapter) Delete(ctx context.Context, storeID string, private bool) error {
	key := a.Key(storeID, private)
	if err := a.kv.Remove(ctx, key); err != nil {
		return fmt.Errorf("cart/persist: delete %s: %w", key, err)
	}
	return nil
}
