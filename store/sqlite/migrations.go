package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the cart store (SQLite).
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
    expires_at INTEGER,
    updated_at INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_cart_entries_expires ON cart_entries (expires_at);
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
