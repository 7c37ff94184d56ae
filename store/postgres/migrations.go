package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the cart store (PostgreSQL).
var Migrations = migrate.NewGroup("cart")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_cart_entries",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS cart_entries (
    entry_key  TEXT PRIMARY KEY,
    value      TEXT NOT NULL DEFAULT '',
    expires_at TIMESTAMPTZ,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_cart_entries_expires ON cart_entries (expires_at) WHERE expires_at IS NOT NULL;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS cart_entries`)
				return err
			},
		},
	)
}
