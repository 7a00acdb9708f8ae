package storage

import (
	"context"
	"fmt"

	"smart-dining/internal/database"
	"smart-dining/internal/models"
)

// StaffRepository reads staff members.
type StaffRepository struct {
	db *database.DB
}

// NewStaffRepository creates a staff repository.
func NewStaffRepository(db *database.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// ActiveManagers returns the staff members who receive low-stock alerts.
func (r *StaffRepository) ActiveManagers(ctx context.Context) ([]models.Staff, error) {
	rows, err := r.db.Query(ctx, database.GetActiveManagersSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query active managers: %w", err)
	}
	defer rows.Close()

	var managers []models.Staff
	for rows.Next() {
		var s models.Staff
		if err := rows.Scan(&s.ID, &s.Name, &s.Role, &s.Status); err != nil {
			return nil, fmt.Errorf("failed to scan staff row: %w", err)
		}
		managers = append(managers, s)
	}
	return managers, rows.Err()
}
