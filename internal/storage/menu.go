package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"smart-dining/internal/database"
	"smart-dining/internal/inventory"
	"smart-dining/internal/models"
)

// MenuRepository persists menu items, stock levels and the inventory
// transaction ledger. It implements workflow.MenuStore and inventory.Store.
type MenuRepository struct {
	db *database.DB
}

// NewMenuRepository creates a menu repository.
func NewMenuRepository(db *database.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

// GetItem returns the menu item, or nil when it does not exist.
func (r *MenuRepository) GetItem(ctx context.Context, menuItemID int) (*models.MenuItem, error) {
	var m models.MenuItem
	err := r.db.QueryRow(ctx, database.GetMenuItemSQL, menuItemID).Scan(
		&m.ID, &m.CategoryID, &m.Name, &m.Price, &m.PrepArea, &m.PrepTimeMinutes,
		&m.Status, &m.StockQuantity, &m.Unit, &m.LowStockThreshold,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query menu item: %w", err)
	}
	return &m, nil
}

// ApplySale decrements tracked stock and appends the sale transaction in
// one database transaction. The conditional UPDATE serializes concurrent
// decrements on the same row and refuses to go below zero.
func (r *MenuRepository) ApplySale(ctx context.Context, menuItemID, quantity, orderID int, actorID *int, note string) (*inventory.StockChange, error) {
	var change *inventory.StockChange

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		c, err := applyStockDelta(ctx, tx, menuItemID, -quantity)
		if err != nil {
			return err
		}
		change = c

		_, err = tx.Exec(ctx, database.InsertInventoryTransactionSQL,
			menuItemID, models.TransactionSale, -quantity, c.Unit, orderID, note, actorID)
		if err != nil {
			return fmt.Errorf("failed to insert sale transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// ApplyRestore increments stock and appends a compensating restock
// transaction referencing the cancelled order.
func (r *MenuRepository) ApplyRestore(ctx context.Context, menuItemID, quantity, orderID int, actorID *int, note string) (*inventory.StockChange, error) {
	var change *inventory.StockChange

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		c, err := applyStockDelta(ctx, tx, menuItemID, quantity)
		if err != nil {
			return err
		}
		change = c

		_, err = tx.Exec(ctx, database.InsertInventoryTransactionSQL,
			menuItemID, models.TransactionRestock, quantity, c.Unit, orderID, note, actorID)
		if err != nil {
			return fmt.Errorf("failed to insert restock transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// ApplyAdjustment applies a manual stock change with its ledger entry.
func (r *MenuRepository) ApplyAdjustment(ctx context.Context, req *models.AdjustmentRequest) (*inventory.StockChange, error) {
	var change *inventory.StockChange

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		c, err := applyStockDelta(ctx, tx, req.MenuItemID, req.SignedQuantity())
		if err != nil {
			return err
		}
		change = c

		_, err = tx.Exec(ctx, database.InsertInventoryTransactionSQL,
			req.MenuItemID, req.Type, req.SignedQuantity(), req.Unit, nil, req.Notes, req.CreatedBy)
		if err != nil {
			return fmt.Errorf("failed to insert %s transaction: %w", req.Type, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// applyStockDelta mutates stock_quantity by delta inside tx. Negative
// deltas use the guarded decrement so tracked stock can never go negative.
func applyStockDelta(ctx context.Context, tx pgx.Tx, menuItemID, delta int) (*inventory.StockChange, error) {
	change := &inventory.StockChange{MenuItemID: menuItemID}

	var row pgx.Row
	if delta < 0 {
		row = tx.QueryRow(ctx, database.DecrementStockSQL, menuItemID, -delta)
	} else {
		row = tx.QueryRow(ctx, database.IncrementStockSQL, menuItemID, delta)
	}

	err := row.Scan(&change.NewStock, &change.MenuItemName, &change.Unit, &change.Threshold)
	if errors.Is(err, pgx.ErrNoRows) {
		if delta < 0 {
			return nil, inventory.ErrStockExhausted
		}
		return nil, fmt.Errorf("menu item #%d does not track stock", menuItemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}

	return change, nil
}

// SaleTransactionsForOrder returns the sale transactions recorded for an
// order, in application order.
func (r *MenuRepository) SaleTransactionsForOrder(ctx context.Context, orderID int) ([]models.InventoryTransaction, error) {
	rows, err := r.db.Query(ctx, database.GetSaleTransactionsForOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// TransactionsForOrder returns every transaction referencing an order, in
// application order.
func (r *MenuRepository) TransactionsForOrder(ctx context.Context, orderID int) ([]models.InventoryTransaction, error) {
	rows, err := r.db.Query(ctx, database.GetTransactionsForOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListTransactions returns inventory history narrowed by the filter.
func (r *MenuRepository) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.InventoryTransaction, error) {
	sql := `SELECT id, menu_item_id, transaction_type, quantity, unit, order_id,
			notes, created_by, created_at
		FROM inventory_transactions`

	var conditions []string
	var args []interface{}

	addCondition := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.MenuItemID != 0 {
		addCondition("menu_item_id = $%d", filter.MenuItemID)
	}
	if filter.Type != "" {
		addCondition("transaction_type = $%d", filter.Type)
	}
	if filter.OrderID != 0 {
		addCondition("order_id = $%d", filter.OrderID)
	}
	if !filter.From.IsZero() {
		addCondition("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		addCondition("created_at <= $%d", filter.To)
	}

	if len(conditions) > 0 {
		sql += " WHERE " + strings.Join(conditions, " AND ")
	}
	sql += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows pgx.Rows) ([]models.InventoryTransaction, error) {
	var txns []models.InventoryTransaction
	for rows.Next() {
		var t models.InventoryTransaction
		err := rows.Scan(&t.ID, &t.MenuItemID, &t.Type, &t.Quantity, &t.Unit,
			&t.OrderID, &t.Notes, &t.CreatedBy, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
