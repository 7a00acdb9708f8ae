package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"smart-dining/internal/database"
	"smart-dining/internal/models"
	"smart-dining/internal/workflow"
)

// OrderRepository persists orders, their items, their status log and the
// audit entries of accepted transitions. It implements workflow.OrderStore.
type OrderRepository struct {
	db *database.DB
}

// NewOrderRepository creates an order repository.
func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Get returns the order with its items, or nil when it does not exist.
func (r *OrderRepository) Get(ctx context.Context, orderID int) (*models.Order, error) {
	var o models.Order
	err := r.db.QueryRow(ctx, database.GetOrderSQL, orderID).Scan(
		&o.ID, &o.Number, &o.TableID, &o.GuestID, &o.WaiterID, &o.Source, &o.Status,
		&o.Subtotal, &o.Tax, &o.Total, &o.SpecialInstructions, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt, &o.ServedAt, &o.PaidAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	rows, err := r.db.Query(ctx, database.GetOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Name,
			&item.Quantity, &item.UnitPrice, &item.Subtotal,
			&item.PrepStatus, &item.PrepArea, &item.SpecialInstructions)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}

	return &o, nil
}

// Create persists the order and all its items in one transaction and
// assigns the generated id, daily-sequenced order number and timestamps.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var sequence int
		if err := tx.QueryRow(ctx, database.NextOrderSequenceSQL).Scan(&sequence); err != nil {
			return fmt.Errorf("failed to compute order sequence: %w", err)
		}
		order.Number = models.GenerateOrderNumber(time.Now().UTC(), sequence)

		err := tx.QueryRow(ctx, database.InsertOrderSQL,
			order.Number, order.TableID, order.GuestID, order.WaiterID, order.Source,
			order.Status, order.Subtotal, order.Tax, order.Total, order.SpecialInstructions,
		).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			err := tx.QueryRow(ctx, database.InsertOrderItemSQL,
				order.ID, item.MenuItemID, item.Name, item.Quantity, item.UnitPrice,
				item.Subtotal, item.PrepStatus, item.PrepArea, item.SpecialInstructions,
			).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}
		}

		_, err = tx.Exec(ctx, database.InsertOrderStatusLogSQL,
			order.ID, order.Status, order.WaiterID, "order created")
		if err != nil {
			return fmt.Errorf("failed to insert initial status log: %w", err)
		}

		return nil
	})
}

// ApplyTransition atomically applies one accepted status change: the
// compare-and-set status update, the status log entry and the audit entry
// commit or roll back together. Returns false when the order's status no
// longer matches the expected snapshot.
func (r *OrderRepository) ApplyTransition(ctx context.Context, t workflow.Transition) (bool, error) {
	applied := false

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, database.UpdateOrderStatusSQL,
			t.OrderID, t.To, t.From, t.Notes, t.ServedAt, t.PaidAt)
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		applied = true

		_, err = tx.Exec(ctx, database.InsertOrderStatusLogSQL,
			t.OrderID, t.To, t.ActorID, t.Notes)
		if err != nil {
			return fmt.Errorf("failed to insert status log: %w", err)
		}

		oldValues, err := json.Marshal(map[string]interface{}{"status": t.From})
		if err != nil {
			return fmt.Errorf("failed to marshal old values: %w", err)
		}
		newValues, err := json.Marshal(map[string]interface{}{"status": t.To})
		if err != nil {
			return fmt.Errorf("failed to marshal new values: %w", err)
		}

		var auditID int
		var createdAt time.Time
		err = tx.QueryRow(ctx, database.InsertAuditLogSQL,
			"order", t.OrderID, "status_changed", oldValues, newValues, t.ActorID,
		).Scan(&auditID, &createdAt)
		if err != nil {
			return fmt.Errorf("failed to insert audit entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	return applied, nil
}

// CountItemsNotReady returns how many of the order's items are still being
// prepared.
func (r *OrderRepository) CountItemsNotReady(ctx context.Context, orderID int) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, database.CountItemsNotReadySQL, orderID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unready items: %w", err)
	}
	return count, nil
}

// CountActiveOrdersForTable counts non-terminal orders on a table,
// excluding the given order.
func (r *OrderRepository) CountActiveOrdersForTable(ctx context.Context, tableID, excludeOrderID int) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, database.CountActiveOrdersForTableSQL, tableID, excludeOrderID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active orders: %w", err)
	}
	return count, nil
}

// UpdateItemPrepStatus updates one item's prep status and returns the
// updated item, or nil when the item does not belong to the order.
func (r *OrderRepository) UpdateItemPrepStatus(ctx context.Context, orderID, itemID int, status models.PrepStatus) (*models.OrderItem, error) {
	item := &models.OrderItem{
		ID:         itemID,
		OrderID:    orderID,
		PrepStatus: status,
	}
	err := r.db.QueryRow(ctx, database.UpdateOrderItemPrepStatusSQL, orderID, itemID, status).
		Scan(&item.MenuItemID, &item.PrepArea)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update item prep status: %w", err)
	}
	return item, nil
}

// StatusLog returns the order's status history, oldest first.
func (r *OrderRepository) StatusLog(ctx context.Context, orderID int) ([]models.OrderStatusLogEntry, error) {
	rows, err := r.db.Query(ctx, database.GetOrderStatusLogSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status log: %w", err)
	}
	defer rows.Close()

	var entries []models.OrderStatusLogEntry
	for rows.Next() {
		var e models.OrderStatusLogEntry
		if err := rows.Scan(&e.OrderID, &e.Status, &e.ChangedBy, &e.ChangedAt, &e.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan status log entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
