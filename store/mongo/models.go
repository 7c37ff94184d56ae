package mongo

import (
	"time"

	"github.com/xraph/grove"
)

type entryModel struct {
	grove.BaseModel `grove:"table:cart_entries"`

	Key       string     `grove:"entry_key,pk" bson:"_id"`
	Value     string     `grove:"value"        bson:"value"`
	ExpiresAt *time.Time `grove:"expires_at"   bson:"expires_at,omitempty"`
	UpdatedAt time.Time  `grove:"updated_at"   bson:"updated_at"`
}
