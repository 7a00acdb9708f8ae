package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"smart-dining/internal/database"
	"smart-dining/internal/models"
)

// Trail reads and writes the append-only audit log. Status-change entries
// are written inside the order transition's transaction by the order
// repository; Trail covers every other producer and all reads.
type Trail struct {
	db *database.DB
}

// NewTrail creates an audit trail over the database.
func NewTrail(db *database.DB) *Trail {
	return &Trail{db: db}
}

// Record appends one audit entry.
func (t *Trail) Record(ctx context.Context, entry *models.AuditEntry) error {
	oldValues, err := json.Marshal(entry.OldValues)
	if err != nil {
		return fmt.Errorf("failed to marshal old values: %w", err)
	}
	newValues, err := json.Marshal(entry.NewValues)
	if err != nil {
		return fmt.Errorf("failed to marshal new values: %w", err)
	}

	err = t.db.QueryRow(ctx, database.InsertAuditLogSQL,
		entry.EntityType, entry.EntityID, entry.Event, oldValues, newValues, entry.UserID,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// List returns audit entries narrowed by the query, newest first.
func (t *Trail) List(ctx context.Context, query models.AuditQuery) ([]models.AuditEntry, error) {
	sql, args := buildListQuery(query)

	rows, err := t.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var oldValues, newValues []byte
		err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Event,
			&oldValues, &newValues, &e.UserID, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(oldValues) > 0 {
			if err := json.Unmarshal(oldValues, &e.OldValues); err != nil {
				return nil, fmt.Errorf("failed to unmarshal old values: %w", err)
			}
		}
		if len(newValues) > 0 {
			if err := json.Unmarshal(newValues, &e.NewValues); err != nil {
				return nil, fmt.Errorf("failed to unmarshal new values: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// buildListQuery turns an AuditQuery into SQL with positional arguments.
func buildListQuery(query models.AuditQuery) (string, []interface{}) {
	sql := `SELECT id, entity_type, entity_id, event, old_values, new_values, user_id, created_at
		FROM audit_logs`

	var conditions []string
	var args []interface{}

	addCondition := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if query.EntityType != "" {
		addCondition("entity_type = $%d", query.EntityType)
	}
	if query.EntityID != 0 {
		addCondition("entity_id = $%d", query.EntityID)
	}
	if query.Event != "" {
		addCondition("event = $%d", query.Event)
	}
	if !query.Since.IsZero() {
		addCondition("created_at >= $%d", query.Since)
	}

	if len(conditions) > 0 {
		sql += " WHERE " + strings.Join(conditions, " AND ")
	}
	sql += " ORDER BY created_at DESC"
	if query.Limit > 0 {
		args = append(args, query.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return sql, args
}
