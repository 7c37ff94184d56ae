package types

import "time"

// Entity carries creation and modification timestamps for persisted records.
// Timestamps are always UTC.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity creates a new Entity stamped with the current time.
func NewEntity() Entity {
	return NewEntityAt(time.Now())
}

// NewEntityAt creates a new Entity stamped with at.
func NewEntityAt(at time.Time) Entity {
	at = at.UTC()
	return Entity{CreatedAt: at, UpdatedAt: at}
}

// Touch sets UpdatedAt to at.
func (e *Entity) Touch(at time.Time) {
	e.UpdatedAt = at.UTC()
}

// IdleFor returns how long before now the entity was last updated.
func (e Entity) IdleFor(now time.Time) time.Duration {
	return now.Sub(e.UpdatedAt)
}

// IsStale reports whether the entity has been idle longer than d.
func (e Entity) IsStale(now time.Time, d time.Duration) bool {
	return e.IdleFor(now) > d
}
