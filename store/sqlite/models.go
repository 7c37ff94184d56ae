package sqlite

import (
	"time"

	"github.com/xraph/grove"
)

// Timestamps are unix milliseconds. modernc hands TEXT columns back as
// strings, which database/sql will not scan into time.Time.
type entryModel struct {
	grove.BaseModel `grove:"table:cart_entries"`

	Key       string `grove:"entry_key,pk"`
	Value     string `grove:"value"`
	ExpiresAt *int64 `grove:"expires_at"`
	UpdatedAt int64  `grove:"updated_at"`
}

func toEntryModel(key, value string, now time.Time, expiresAt *time.Time) *entryModel {
	m := &entryModel{
		Key:       key,
		Value:     value,
		UpdatedAt: now.UnixMilli(),
	}
	if expiresAt != nil {
		ms := expiresAt.UnixMilli()
		m.ExpiresAt = &ms
	}
	return m
}
