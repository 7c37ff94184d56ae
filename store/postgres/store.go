package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate"
	"github.com/xraph/grove/migrate"

	cartstore "github.com/xraph/cart/store"
)

// compile-time interface check
var _ cartstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db   *grove.DB
	pg   *pgdriver.PgDB
	opts cartstore.Options
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB, opts ...cartstore.Option) *Store {
	return &Store{
		db:   db,
		pg:   pgdriver.Unwrap(db),
		opts: cartstore.Apply(opts...),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("cart/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("cart/postgres: migration failed: %w", err)
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
	m := new(entryModel)
	err := s.pg.NewSelect(m).
		Where("entry_key = $1", key).
		Where("(expires_at IS NULL OR expires_at > $2)", time.Now().UTC()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return "", cartstore.ErrNotFound
		}
		return "", fmt.Errorf("cart/postgres: get %s: %w", key, err)
	}
	return m.Value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	now := time.Now().UTC()
	m := toEntryModel(key, value, now, s.opts.ExpiresAt(now))
	_, err := s.pg.NewInsert(m).
		OnConflict("(entry_key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("expires_at = EXCLUDED.expires_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("cart/postgres: set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.pg.NewDelete((*entryModel)(nil)).
		Where("entry_key = $1", key).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("cart/postgres: remove %s: %w", key, err)
	}
	return nil
}

// PurgeExpired deletes entries whose TTL has passed and returns how many
// were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.pg.NewDelete((*entryModel)(nil)).
		Where("expires_at IS NOT NULL").
		Where("expires_at <= $1", time.Now().UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return rows, nil
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
