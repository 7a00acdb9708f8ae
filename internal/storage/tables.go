package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smart-dining/internal/database"
	"smart-dining/internal/models"
)

// TableRepository persists dining tables. It implements workflow.TableStore.
type TableRepository struct {
	db *database.DB
}

// NewTableRepository creates a table repository.
func NewTableRepository(db *database.DB) *TableRepository {
	return &TableRepository{db: db}
}

// Get returns the table, or nil when it does not exist.
func (r *TableRepository) Get(ctx context.Context, tableID int) (*models.Table, error) {
	var t models.Table
	err := r.db.QueryRow(ctx, database.GetTableSQL, tableID).Scan(
		&t.ID, &t.Name, &t.Capacity, &t.Status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query table: %w", err)
	}
	return &t, nil
}

// SetStatus updates a table's occupancy status.
func (r *TableRepository) SetStatus(ctx context.Context, tableID int, status models.TableStatus) error {
	if err := r.db.Exec(ctx, database.SetTableStatusSQL, tableID, status); err != nil {
		return fmt.Errorf("failed to set table status: %w", err)
	}
	return nil
}
