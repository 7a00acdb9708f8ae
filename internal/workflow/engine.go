package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"smart-dining/internal/logger"
	"smart-dining/internal/models"
)

// OrderStore is the persistence contract the engine drives orders through.
// Implementations must make Create and ApplyTransition atomic.
type OrderStore interface {
	// Get returns the order with its items, or nil when it does not exist.
	Get(ctx context.Context, orderID int) (*models.Order, error)
	// Create persists the order and all its items in one transaction,
	// assigning ID, order number and timestamps on the passed struct.
	Create(ctx context.Context, order *models.Order) error
	// ApplyTransition atomically updates the order status (compare-and-set
	// against t.From), appends the status log entry and the audit entry.
	// It returns false when the order's status no longer equals t.From.
	ApplyTransition(ctx context.Context, t Transition) (bool, error)
	// CountItemsNotReady returns how many of the order's items are not yet
	// ready or served.
	CountItemsNotReady(ctx context.Context, orderID int) (int, error)
	// CountActiveOrdersForTable counts non-terminal orders on a table,
	// excluding the given order.
	CountActiveOrdersForTable(ctx context.Context, tableID, excludeOrderID int) (int, error)
	// UpdateItemPrepStatus updates one item's prep status and returns the
	// updated item, or nil when the item does not exist on that order.
	UpdateItemPrepStatus(ctx context.Context, orderID, itemID int, status models.PrepStatus) (*models.OrderItem, error)
}

// Transition carries everything one accepted status change persists.
type Transition struct {
	OrderID  int
	From     models.OrderStatus
	To       models.OrderStatus
	ActorID  *int
	Notes    *string
	ServedAt *time.Time
	PaidAt   *time.Time
}

// MenuStore resolves menu items referenced by new orders.
type MenuStore interface {
	// GetItem returns the menu item, or nil when it does not exist.
	GetItem(ctx context.Context, menuItemID int) (*models.MenuItem, error)
}

// TableStore occupies and releases dining tables.
type TableStore interface {
	// Get returns the table, or nil when it does not exist.
	Get(ctx context.Context, tableID int) (*models.Table, error)
	SetStatus(ctx context.Context, tableID int, status models.TableStatus) error
}

// PaymentQuery is the read-only aggregate consumed by the paid guard.
type PaymentQuery interface {
	SumCompletedPayments(ctx context.Context, orderID int) (float64, error)
}

// StockLedger deducts and restores inventory for orders. Both operations
// are idempotent per (order, menu item).
type StockLedger interface {
	DeductOrder(ctx context.Context, order *models.Order, actorID *int, requestID string) error
	RestoreOrder(ctx context.Context, orderID int, actorID *int, requestID string) error
}

// DeductionQueue hands stock deduction off to the inventory worker.
type DeductionQueue interface {
	EnqueueDeduction(ctx context.Context, task *models.DeductionTask) error
}

// Notifier publishes events to downstream displays. All methods are
// best-effort: they log failures internally and never block or fail the
// operation that triggered them.
type Notifier interface {
	OrderCreated(ctx context.Context, order *models.Order)
	StatusChanged(ctx context.Context, order *models.Order, old, new models.OrderStatus, actorID *int)
	ItemPrepUpdated(ctx context.Context, order *models.Order, item *models.OrderItem)
}

// Engine owns the order lifecycle: it validates and applies status
// transitions, sequences their side effects, and triggers inventory
// deduction on order creation.
type Engine struct {
	orders   OrderStore
	menu     MenuStore
	tables   TableStore
	payments PaymentQuery
	ledger   StockLedger
	queue    DeductionQueue
	notifier Notifier
	logger   *logger.Logger

	taxRate        float64
	asyncInventory bool

	// Serializes status transitions per order id.
	mu         sync.Mutex
	orderLocks map[int]*sync.Mutex
}

// Options configures an Engine beyond its collaborators.
type Options struct {
	// TaxRate is a percentage applied to order subtotals.
	TaxRate float64
	// AsyncInventory publishes a deduction task instead of deducting inline.
	AsyncInventory bool
}

// NewEngine wires the workflow engine with its collaborators. queue may be
// nil when AsyncInventory is false.
func NewEngine(orders OrderStore, menu MenuStore, tables TableStore, payments PaymentQuery,
	ledger StockLedger, queue DeductionQueue, notifier Notifier, log *logger.Logger, opts Options) *Engine {

	return &Engine{
		orders:         orders,
		menu:           menu,
		tables:         tables,
		payments:       payments,
		ledger:         ledger,
		queue:          queue,
		notifier:       notifier,
		logger:         log,
		taxRate:        opts.TaxRate,
		asyncInventory: opts.AsyncInventory,
		orderLocks:     make(map[int]*sync.Mutex),
	}
}

// lockOrder returns the mutex serializing transitions for one order id.
func (e *Engine) lockOrder(orderID int) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.orderLocks[orderID]
	if !ok {
		lock = &sync.Mutex{}
		e.orderLocks[orderID] = lock
	}
	return lock
}

// CreateOrder validates the request, snapshots menu prices, persists the
// order with its items atomically and triggers inventory deduction. Nothing
// is persisted when validation or a stock check fails.
func (e *Engine) CreateOrder(ctx context.Context, req *models.CreateOrderRequest, actorID *int, requestID string) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, ErrValidation("%s", err.Error())
	}

	if req.TableID != nil {
		table, err := e.tables.Get(ctx, *req.TableID)
		if err != nil {
			return nil, fmt.Errorf("failed to load table: %w", err)
		}
		if table == nil {
			return nil, ErrValidation("table #%d not found", *req.TableID)
		}
	}

	items, err := e.buildOrderItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	subtotal, tax, total := models.ComputeTotals(items, e.taxRate)

	order := &models.Order{
		TableID:             req.TableID,
		GuestID:             req.GuestID,
		WaiterID:            req.WaiterID,
		Source:              models.OrderSource(req.Source),
		Status:              models.StatusPending,
		Subtotal:            subtotal,
		Tax:                 tax,
		Total:               total,
		SpecialInstructions: req.SpecialInstructions,
		Items:               items,
	}

	if err := e.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	e.logger.Info("order_created", fmt.Sprintf("Order %s created", order.Number), requestID, map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.Number,
		"source":       order.Source,
		"total":        order.Total,
		"item_count":   len(order.Items),
	})

	if order.TableID != nil {
		if err := e.tables.SetStatus(ctx, *order.TableID, models.TableOccupied); err != nil {
			e.logger.Error("table_update_failed", "Failed to mark table occupied", requestID, err, map[string]interface{}{
				"table_id": *order.TableID,
				"order_id": order.ID,
			})
		}
	}

	e.notifier.OrderCreated(ctx, order)
	e.dispatchDeduction(ctx, order, actorID, requestID)

	return order, nil
}

// buildOrderItems resolves each requested item against the menu, checks
// availability and stock sufficiency, and snapshots prices.
func (e *Engine) buildOrderItems(ctx context.Context, requested []models.CreateOrderItemRequest) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(requested))

	for _, r := range requested {
		menuItem, err := e.menu.GetItem(ctx, r.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("failed to load menu item #%d: %w", r.MenuItemID, err)
		}
		if menuItem == nil {
			return nil, ErrMenuItemNotFound(r.MenuItemID)
		}
		if !menuItem.IsAvailable() {
			return nil, ErrValidation("menu item '%s' is not available", menuItem.Name)
		}
		if menuItem.TracksStock() && r.Quantity > *menuItem.StockQuantity {
			return nil, ErrInsufficientStock(menuItem.Name, *menuItem.StockQuantity, menuItem.Unit)
		}

		items = append(items, models.OrderItem{
			MenuItemID:          menuItem.ID,
			Name:                menuItem.Name,
			Quantity:            r.Quantity,
			UnitPrice:           menuItem.Price,
			Subtotal:            models.Round2(menuItem.Price * float64(r.Quantity)),
			PrepStatus:          models.PrepPending,
			PrepArea:            menuItem.PrepArea,
			SpecialInstructions: r.SpecialInstructions,
		})
	}

	return items, nil
}

// dispatchDeduction hands stock deduction to the worker queue or runs it
// inline. Deduction never blocks or fails order creation; a failed enqueue
// falls back to the inline path so the deduction is still guaranteed.
func (e *Engine) dispatchDeduction(ctx context.Context, order *models.Order, actorID *int, requestID string) {
	if e.asyncInventory && e.queue != nil {
		task := &models.DeductionTask{
			TaskID:      uuid.NewString(),
			OrderID:     order.ID,
			OrderNumber: order.Number,
			ActorID:     actorID,
			EnqueuedAt:  time.Now().UTC(),
		}
		if err := e.queue.EnqueueDeduction(ctx, task); err == nil {
			return
		} else {
			e.logger.Error("deduction_enqueue_failed", "Falling back to inline stock deduction", requestID, err, map[string]interface{}{
				"order_id": order.ID,
			})
		}
	}

	// The inline path serializes with status transitions and deducts
	// against the order's current state, so a cancellation that lands
	// first wins and no stock moves.
	lock := e.lockOrder(order.ID)
	lock.Lock()
	defer lock.Unlock()

	if fresh, err := e.orders.Get(ctx, order.ID); err == nil && fresh != nil {
		order = fresh
	}
	if order.Status == models.StatusCancelled {
		e.logger.Info("deduction_skipped", "Order was cancelled before deduction", requestID, map[string]interface{}{
			"order_id": order.ID,
		})
		return
	}

	if err := e.ledger.DeductOrder(ctx, order, actorID, requestID); err != nil {
		e.logger.Error("stock_deduction_failed", "Failed to deduct stock for order", requestID, err, map[string]interface{}{
			"order_id":     order.ID,
			"order_number": order.Number,
		})
	}
}

// UpdateStatus validates and applies a status transition. Transitions for
// the same order are serialized; the losing side of a race gets a conflict
// error and must retry against the fresh status.
func (e *Engine) UpdateStatus(ctx context.Context, orderID int, requested models.OrderStatus, actorID *int, reason string, requestID string) (*models.Order, error) {
	lock := e.lockOrder(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound(orderID)
	}

	oldStatus := order.Status
	if !CanTransition(oldStatus, requested) {
		return nil, ErrInvalidTransition(orderID, oldStatus, requested)
	}

	t := Transition{OrderID: orderID, From: oldStatus, To: requested, ActorID: actorID}

	switch requested {
	case models.StatusReady:
		notReady, err := e.orders.CountItemsNotReady(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("failed to check item readiness: %w", err)
		}
		if notReady > 0 {
			return nil, ErrItemsNotReady(orderID, notReady)
		}
	case models.StatusPaid:
		paid, err := e.payments.SumCompletedPayments(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("failed to sum payments: %w", err)
		}
		if paid < order.Total {
			return nil, ErrInsufficientPayment(orderID, paid, order.Total)
		}
		if order.PaidAt == nil {
			now := time.Now().UTC()
			t.PaidAt = &now
		}
	case models.StatusServed:
		if order.ServedAt == nil {
			now := time.Now().UTC()
			t.ServedAt = &now
		}
	case models.StatusCancelled:
		if reason == "" {
			return nil, ErrValidation("a cancellation reason is required")
		}
		notes := "Cancellation reason: " + reason
		if order.Notes != nil && *order.Notes != "" {
			notes = *order.Notes + "\n" + notes
		}
		t.Notes = &notes
	}

	applied, err := e.orders.ApplyTransition(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to apply transition: %w", err)
	}
	if !applied {
		return nil, ErrConflict(orderID)
	}

	e.logger.Info("order_status_changed", fmt.Sprintf("Order %s: %s -> %s", order.Number, oldStatus, requested), requestID, map[string]interface{}{
		"order_id":     orderID,
		"order_number": order.Number,
		"old_status":   oldStatus,
		"new_status":   requested,
	})

	if requested == models.StatusCancelled {
		if err := e.ledger.RestoreOrder(ctx, orderID, actorID, requestID); err != nil {
			e.logger.Error("stock_restore_failed", "Failed to restore stock for cancelled order", requestID, err, map[string]interface{}{
				"order_id": orderID,
			})
			// The cancellation itself is committed; restoration is
			// retryable because it restores only the outstanding net.
			return nil, fmt.Errorf("order #%d cancelled but stock restoration failed: %w", orderID, err)
		}
	}

	if requested == models.StatusPaid || requested == models.StatusCancelled {
		e.releaseTableIfIdle(ctx, order, requestID)
	}

	updated, err := e.orders.Get(ctx, orderID)
	if err != nil || updated == nil {
		// The transition committed; fall back to the stale copy.
		updated = order
		updated.Status = requested
		updated.ServedAt = coalesceTime(updated.ServedAt, t.ServedAt)
		updated.PaidAt = coalesceTime(updated.PaidAt, t.PaidAt)
	}

	e.notifier.StatusChanged(ctx, updated, oldStatus, requested, actorID)

	return updated, nil
}

// CancelOrder is sugar for a transition into cancelled; a reason is
// mandatory and stock deducted for the order is restored exactly.
func (e *Engine) CancelOrder(ctx context.Context, orderID int, actorID *int, reason, requestID string) (*models.Order, error) {
	return e.UpdateStatus(ctx, orderID, models.StatusCancelled, actorID, reason, requestID)
}

// prepRank orders prep statuses so items only ever move forward.
var prepRank = map[models.PrepStatus]int{
	models.PrepPending:   0,
	models.PrepPreparing: 1,
	models.PrepReady:     2,
	models.PrepServed:    3,
}

// UpdateItemPrepStatus moves one order item forward through its prep flow
// and announces the change to the displays.
func (e *Engine) UpdateItemPrepStatus(ctx context.Context, orderID, itemID int, status models.PrepStatus, requestID string) (*models.OrderItem, error) {
	rank, ok := prepRank[status]
	if !ok {
		return nil, ErrValidation("unknown prep status '%s'", status)
	}

	order, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound(orderID)
	}
	if order.Status.IsTerminal() {
		return nil, ErrValidation("cannot update items of a %s order", order.Status)
	}

	var current *models.OrderItem
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			current = &order.Items[i]
			break
		}
	}
	if current == nil {
		return nil, ErrValidation("order #%d has no item #%d", orderID, itemID)
	}
	if rank <= prepRank[current.PrepStatus] {
		return nil, ErrValidation("item prep status cannot move from '%s' to '%s'", current.PrepStatus, status)
	}

	item, err := e.orders.UpdateItemPrepStatus(ctx, orderID, itemID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to update item prep status: %w", err)
	}
	if item == nil {
		return nil, ErrValidation("order #%d has no item #%d", orderID, itemID)
	}

	e.notifier.ItemPrepUpdated(ctx, order, item)

	return item, nil
}

// releaseTableIfIdle marks the order's table available again when no other
// active order still references it.
func (e *Engine) releaseTableIfIdle(ctx context.Context, order *models.Order, requestID string) {
	if order.TableID == nil {
		return
	}

	active, err := e.orders.CountActiveOrdersForTable(ctx, *order.TableID, order.ID)
	if err != nil {
		e.logger.Error("table_check_failed", "Failed to count active orders for table", requestID, err, map[string]interface{}{
			"table_id": *order.TableID,
		})
		return
	}
	if active > 0 {
		return
	}

	if err := e.tables.SetStatus(ctx, *order.TableID, models.TableAvailable); err != nil {
		e.logger.Error("table_update_failed", "Failed to release table", requestID, err, map[string]interface{}{
			"table_id": *order.TableID,
		})
	}
}

func coalesceTime(a, b *time.Time) *time.Time {
	if a != nil {
		return a
	}
	return b
}
