// Package memory provides an in-process store.Store, used by tests and by
// hosts that do not need persistence across restarts.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/cart/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type entry struct {
	value     string
	expiresAt *time.Time
}

// Store is a map guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	opts    store.Options
	now     func() time.Time
	closed  bool

	writes  int
	removes int
}

// New returns an empty store.
func New(opts ...store.Option) *Store {
	return &Store{
		entries: make(map[string]entry),
		opts:    store.Apply(opts...),
		now:     time.Now,
	}
}

// WithClock replaces the time source used for TTL checks.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", store.ErrClosed
	}
	e, ok := s.entries[key]
	if !ok || (e.expiresAt != nil && !s.now().Before(*e.expiresAt)) {
		return "", store.ErrNotFound
	}
	return e.value, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}
	s.entries[key] = entry{value: value, expiresAt: s.opts.ExpiresAt(s.now())}
	s.writes++
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}
	delete(s.entries, key)
	s.removes++
	return nil
}

// Writes returns how many Set calls succeeded.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Removes returns how many Remove calls succeeded.
func (s *Store) Removes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.removes
}

// Keys returns the keys currently held, expired ones included.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

// Migrate is a no-op.
func (s *Store) Migrate(context.Context) error { return nil }

func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ErrClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
