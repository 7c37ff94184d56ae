package postgres

import (
	"time"

	"github.com/xraph/grove"
)

type entryModel struct {
	grove.BaseModel `grove:"table:cart_entries"`

	Key       string     `grove:"entry_key,pk"`
	Value     string     `grove:"value"`
	ExpiresAt *time.Time `grove:"expires_at"`
	UpdatedAt time.Time  `grove:"updated_at"`
}

func toEntryModel(key, value string, now time.Time, expiresAt *time.Time) *entryModel {
	return &entryModel{
		Key:       key,
		Value:     value,
		ExpiresAt: expiresAt,
		UpdatedAt: now.UTC(),
	}
}
