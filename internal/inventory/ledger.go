package inventory

import (
	"context"
	"errors"
	"fmt"

	"smart-dining/internal/logger"
	"smart-dining/internal/models"
	"smart-dining/internal/workflow"
)

// ErrStockExhausted is returned by a Store when a decrement would drive a
// tracked stock level below zero. At deduction time this means a prior
// sufficiency check was raced past, which is an invariant violation.
var ErrStockExhausted = errors.New("stock level would go negative")

// StockChange reports the outcome of one applied ledger mutation.
type StockChange struct {
	MenuItemID   int
	MenuItemName string
	Unit         string
	NewStock     int
	Threshold    int
}

// Store is the persistence contract for stock levels and the transaction
// ledger. Each Apply* call atomically mutates the stock level and appends
// the corresponding inventory transaction.
type Store interface {
	// GetItem returns the menu item, or nil when it does not exist.
	GetItem(ctx context.Context, menuItemID int) (*models.MenuItem, error)
	// ApplySale decrements tracked stock by quantity and appends a sale
	// transaction with the quantity negated. Returns ErrStockExhausted
	// when the decrement would go below zero.
	ApplySale(ctx context.Context, menuItemID, quantity, orderID int, actorID *int, note string) (*StockChange, error)
	// ApplyRestore increments stock by quantity and appends a restock
	// transaction referencing the order, reversing a prior sale.
	ApplyRestore(ctx context.Context, menuItemID, quantity, orderID int, actorID *int, note string) (*StockChange, error)
	// ApplyAdjustment applies a manual restock/waste/loss/correction.
	ApplyAdjustment(ctx context.Context, req *models.AdjustmentRequest) (*StockChange, error)
	// SaleTransactionsForOrder returns the sale transactions recorded for
	// an order, in application order.
	SaleTransactionsForOrder(ctx context.Context, orderID int) ([]models.InventoryTransaction, error)
	// TransactionsForOrder returns every transaction referencing an order,
	// in application order.
	TransactionsForOrder(ctx context.Context, orderID int) ([]models.InventoryTransaction, error)
}

// AlertNotifier receives low-stock signals. Best-effort, non-blocking.
type AlertNotifier interface {
	LowStock(ctx context.Context, change *StockChange)
}

// Ledger applies stock movements for the order workflow and for manual
// management adjustments, raising a low-stock signal whenever a deduction
// crosses an item's threshold downward.
type Ledger struct {
	store    Store
	notifier AlertNotifier
	logger   *logger.Logger
}

// NewLedger creates an inventory ledger.
func NewLedger(store Store, notifier AlertNotifier, log *logger.Logger) *Ledger {
	return &Ledger{
		store:    store,
		notifier: notifier,
		logger:   log,
	}
}

// DeductOrder deducts stock for every tracked item of the order. The
// operation is idempotent per (order, menu item): items that already have a
// sale transaction for this order are skipped, so redelivery of a deduction
// task cannot double-deduct. Cancelled orders are never deducted; their
// stock has already been settled by the cancellation path.
func (l *Ledger) DeductOrder(ctx context.Context, order *models.Order, actorID *int, requestID string) error {
	if order.Status == models.StatusCancelled {
		l.logger.Info("deduction_skipped", fmt.Sprintf("Order %s is cancelled, skipping deduction", order.Number), requestID, map[string]interface{}{
			"order_id": order.ID,
			"status":   string(order.Status),
		})
		return nil
	}

	existing, err := l.store.SaleTransactionsForOrder(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to read prior deductions for order #%d: %w", order.ID, err)
	}

	deducted := make(map[int]bool, len(existing))
	for _, txn := range existing {
		deducted[txn.MenuItemID] = true
	}

	// An order can hold several lines of the same menu item; deduct the
	// combined quantity once per item.
	quantities := make(map[int]int)
	var itemOrder []int
	for _, item := range order.Items {
		if _, seen := quantities[item.MenuItemID]; !seen {
			itemOrder = append(itemOrder, item.MenuItemID)
		}
		quantities[item.MenuItemID] += item.Quantity
	}

	note := fmt.Sprintf("Order %s", order.Number)

	for _, menuItemID := range itemOrder {
		if deducted[menuItemID] {
			continue
		}

		menuItem, err := l.store.GetItem(ctx, menuItemID)
		if err != nil {
			return fmt.Errorf("failed to load menu item #%d: %w", menuItemID, err)
		}
		if menuItem == nil || !menuItem.TracksStock() {
			continue
		}

		quantity := quantities[menuItemID]
		change, err := l.store.ApplySale(ctx, menuItemID, quantity, order.ID, actorID, note)
		if errors.Is(err, ErrStockExhausted) {
			inv := workflow.ErrInvariant(err,
				"stock for menu item #%d would go negative deducting %d for order %s", menuItemID, quantity, order.Number)
			l.logger.Error("stock_invariant_violation", inv.Message, requestID, err, map[string]interface{}{
				"menu_item_id": menuItemID,
				"order_id":     order.ID,
				"quantity":     quantity,
			})
			return inv
		}
		if err != nil {
			return fmt.Errorf("failed to deduct stock for menu item #%d: %w", menuItemID, err)
		}

		l.logger.Debug("stock_deducted", fmt.Sprintf("Deducted %d %s of %s", quantity, change.Unit, change.MenuItemName), requestID, map[string]interface{}{
			"menu_item_id": menuItemID,
			"order_id":     order.ID,
			"new_stock":    change.NewStock,
		})

		l.maybeAlertLowStock(ctx, change, change.NewStock+quantity, requestID)
	}

	return nil
}

// RestoreOrder reverses the deductions recorded for the order, restoring
// the quantities actually applied rather than recomputing from the order's
// current items. It works off the per-item net of the order's ledger
// entries, so a retry after a partial failure restores only what is still
// outstanding.
func (l *Ledger) RestoreOrder(ctx context.Context, orderID int, actorID *int, requestID string) error {
	txns, err := l.store.TransactionsForOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to read ledger entries for order #%d: %w", orderID, err)
	}

	net := make(map[int]int)
	var itemOrder []int
	for _, txn := range txns {
		if _, seen := net[txn.MenuItemID]; !seen {
			itemOrder = append(itemOrder, txn.MenuItemID)
		}
		net[txn.MenuItemID] += txn.Quantity
	}

	for _, menuItemID := range itemOrder {
		quantity := -net[menuItemID]
		if quantity <= 0 {
			continue
		}

		note := "Reversal on order cancellation"
		change, err := l.store.ApplyRestore(ctx, menuItemID, quantity, orderID, actorID, note)
		if err != nil {
			return fmt.Errorf("failed to restore stock for menu item #%d: %w", menuItemID, err)
		}

		l.logger.Debug("stock_restored", fmt.Sprintf("Restored %d %s of %s", quantity, change.Unit, change.MenuItemName), requestID, map[string]interface{}{
			"menu_item_id": menuItemID,
			"order_id":     orderID,
			"new_stock":    change.NewStock,
		})
	}

	return nil
}

// Adjust applies a manual, management-initiated stock change outside the
// order flow.
func (l *Ledger) Adjust(ctx context.Context, req *models.AdjustmentRequest, requestID string) (*StockChange, error) {
	if err := req.Validate(); err != nil {
		return nil, workflow.ErrValidation("%s", err.Error())
	}

	menuItem, err := l.store.GetItem(ctx, req.MenuItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load menu item #%d: %w", req.MenuItemID, err)
	}
	if menuItem == nil {
		return nil, workflow.ErrMenuItemNotFound(req.MenuItemID)
	}
	if !menuItem.TracksStock() {
		return nil, workflow.ErrValidation("menu item '%s' does not track stock", menuItem.Name)
	}

	delta := req.SignedQuantity()
	if delta < 0 && *menuItem.StockQuantity+delta < 0 {
		return nil, workflow.ErrValidation("cannot remove %d %s of '%s': only %d available",
			req.Quantity, req.Unit, menuItem.Name, *menuItem.StockQuantity)
	}

	change, err := l.store.ApplyAdjustment(ctx, req)
	if errors.Is(err, ErrStockExhausted) {
		return nil, workflow.ErrValidation("cannot remove %d %s of '%s': insufficient stock",
			req.Quantity, req.Unit, menuItem.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply adjustment: %w", err)
	}

	l.logger.Info("stock_adjusted", fmt.Sprintf("%s of %d %s applied to %s", req.Type, req.Quantity, req.Unit, change.MenuItemName), requestID, map[string]interface{}{
		"menu_item_id":     req.MenuItemID,
		"transaction_type": req.Type,
		"new_stock":        change.NewStock,
	})

	if delta < 0 {
		l.maybeAlertLowStock(ctx, change, change.NewStock-delta, requestID)
	}

	return change, nil
}

// maybeAlertLowStock raises exactly one low-stock signal when a deduction
// crosses the item's threshold downward. Deductions that start or stay
// above the threshold, and deductions on an item already below it, fire
// nothing.
func (l *Ledger) maybeAlertLowStock(ctx context.Context, change *StockChange, previousStock int, requestID string) {
	if previousStock < change.Threshold || change.NewStock >= change.Threshold {
		return
	}

	l.logger.Info("low_stock_alert", fmt.Sprintf("%s is low on stock: %d %s left", change.MenuItemName, change.NewStock, change.Unit), requestID, map[string]interface{}{
		"menu_item_id": change.MenuItemID,
		"current":      change.NewStock,
		"threshold":    change.Threshold,
	})

	l.notifier.LowStock(ctx, change)
}
