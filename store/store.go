// Package store defines the key-value contract the cart persists through,
// plus the options shared by every backend.
//
// Backends live in subpackages: memory, sqlite, postgres, mongo and redis.
package store

import (
	"context"
	"errors"
	"time"
)

// Store errors.
var (
	ErrNotFound = errors.New("cart/store: key not found")
	ErrClosed   = errors.New("cart/store: store is closed")
)

// Store is a string key-value store. Get returns ErrNotFound for absent or
// expired keys. Remove of an absent key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Options holds settings common to all backends.
type Options struct {
	// TTL expires entries this long after their last write. Zero keeps
	// entries forever.
	TTL time.Duration
}

// Option configures a backend.
type Option func(*Options)

// WithTTL sets the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.TTL = ttl
	}
}

// Apply folds opts into an Options value.
func Apply(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ExpiresAt returns the expiry for an entry written at now, or nil when the
// TTL is zero.
func (o Options) ExpiresAt(now time.Time) *time.Time {
	if o.TTL <= 0 {
		return nil
	}
	t := now.UTC().Add(o.TTL)
	return &t
}

// IsNotFound reports whether err means the key is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
