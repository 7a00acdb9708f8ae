package models

import "time"

// AuditEntry is one append-only record of a change to an entity, capturing
// before/after snapshots for compliance.
type AuditEntry struct {
	ID         int                    `json:"id,omitempty" db:"id"`
	EntityType string                 `json:"entity_type" db:"entity_type"`
	EntityID   int                    `json:"entity_id" db:"entity_id"`
	Event      string                 `json:"event" db:"event"`
	OldValues  map[string]interface{} `json:"old_values" db:"old_values"`
	NewValues  map[string]interface{} `json:"new_values" db:"new_values"`
	UserID     *int                   `json:"user_id,omitempty" db:"user_id"`
	CreatedAt  time.Time              `json:"created_at,omitempty" db:"created_at"`
}

// AuditQuery narrows audit trail reads. Zero values mean "no constraint".
type AuditQuery struct {
	EntityType string
	EntityID   int
	Event      string
	Since      time.Time
	Limit      int
}
