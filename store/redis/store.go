// Package redis implements store.Store on a Redis server. Entry TTLs map to
// native key expiry.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	cartstore "github.com/xraph/cart/store"
)

// compile-time interface check
var _ cartstore.Store = (*Store)(nil)

// Store implements store.Store using go-redis.
type Store struct {
	client goredis.UniversalClient
	prefix string
	opts   cartstore.Options
}

// New wraps an existing client. prefix is prepended to every key; it may be
// empty.
func New(client goredis.UniversalClient, prefix string, opts ...cartstore.Option) *Store {
	return &Store{
		client: client,
		prefix: prefix,
		opts:   cartstore.Apply(opts...),
	}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, prefix string, opts ...cartstore.Option) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cart/redis: ping: %w", err)
	}
	return New(rdb, prefix, opts...), nil
}

// Client returns the underlying client for direct access.
func (s *Store) Client() goredis.UniversalClient { return s.client }

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", cartstore.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("cart/redis: get %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.opts.TTL).Err(); err != nil {
		return fmt.Errorf("cart/redis: set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("cart/redis: remove %s: %w", key, err)
	}
	return nil
}

// Migrate is a no-op; Redis needs no schema.
func (s *Store) Migrate(context.Context) error { return nil }

// Ping checks server connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
