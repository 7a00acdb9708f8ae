package pos

import (
	"context"
	"fmt"

	"smart-dining/internal/audit"
	"smart-dining/internal/database"
	"smart-dining/internal/inventory"
	"smart-dining/internal/logger"
	"smart-dining/internal/models"
	"smart-dining/internal/payment"
	"smart-dining/internal/storage"
	"smart-dining/internal/workflow"
)

// Service is the POS application surface over the workflow engine and the
// repositories. HTTP handlers stay thin; every rule lives here or below.
type Service struct {
	engine     *workflow.Engine
	orders     *storage.OrderRepository
	menu       *storage.MenuRepository
	payments   *storage.PaymentRepository
	ledger     *inventory.Ledger
	reconciler *payment.Reconciler
	trail      *audit.Trail
	db         *database.DB
	logger     *logger.Logger
}

// NewService wires the POS service.
func NewService(engine *workflow.Engine, orders *storage.OrderRepository, menu *storage.MenuRepository,
	payments *storage.PaymentRepository, ledger *inventory.Ledger, reconciler *payment.Reconciler,
	trail *audit.Trail, db *database.DB, log *logger.Logger) *Service {

	return &Service{
		engine:     engine,
		orders:     orders,
		menu:       menu,
		payments:   payments,
		ledger:     ledger,
		reconciler: reconciler,
		trail:      trail,
		db:         db,
		logger:     log,
	}
}

// HealthCheck reports whether the database is reachable.
func (s *Service) HealthCheck(ctx context.Context) bool {
	return s.db.Ping(ctx) == nil
}

// CreateOrder places a new order.
func (s *Service) CreateOrder(ctx context.Context, req *models.CreateOrderRequest, actorID *int, requestID string) (*models.Order, error) {
	return s.engine.CreateOrder(ctx, req, actorID, requestID)
}

// GetOrder returns an order with its items and settlement state.
func (s *Service) GetOrder(ctx context.Context, orderID int) (*OrderDetails, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, workflow.ErrOrderNotFound(orderID)
	}

	paidInFull, totalPaid, err := s.reconciler.IsPaidInFull(ctx, order)
	if err != nil {
		return nil, err
	}

	return &OrderDetails{
		Order:         order,
		TotalPaid:     totalPaid,
		PaymentStatus: payment.StatusFor(totalPaid, order.Total),
		PaidInFull:    paidInFull,
		NextStatuses:  workflow.ValidTransitionsFrom(order.Status),
	}, nil
}

// OrderDetails is an order together with its derived settlement state.
type OrderDetails struct {
	Order         *models.Order        `json:"order"`
	TotalPaid     float64              `json:"total_paid"`
	PaymentStatus payment.Status       `json:"payment_status"`
	PaidInFull    bool                 `json:"paid_in_full"`
	NextStatuses  []models.OrderStatus `json:"next_statuses"`
}

// UpdateStatus applies a status transition to an order.
func (s *Service) UpdateStatus(ctx context.Context, orderID int, status models.OrderStatus, actorID *int, reason, requestID string) (*models.Order, error) {
	return s.engine.UpdateStatus(ctx, orderID, status, actorID, reason, requestID)
}

// CancelOrder cancels an order, restoring any deducted stock.
func (s *Service) CancelOrder(ctx context.Context, orderID int, actorID *int, reason, requestID string) (*models.Order, error) {
	return s.engine.CancelOrder(ctx, orderID, actorID, reason, requestID)
}

// UpdateItemPrepStatus moves one order item forward through its prep flow.
func (s *Service) UpdateItemPrepStatus(ctx context.Context, orderID, itemID int, status models.PrepStatus, requestID string) (*models.OrderItem, error) {
	return s.engine.UpdateItemPrepStatus(ctx, orderID, itemID, status, requestID)
}

// StatusHistory returns the order's accepted status changes, oldest first.
func (s *Service) StatusHistory(ctx context.Context, orderID int) ([]models.OrderStatusLogEntry, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, workflow.ErrOrderNotFound(orderID)
	}
	return s.orders.StatusLog(ctx, orderID)
}

// RecordPayment records a payment against an order and returns the payment
// with the order's updated settlement state. Recording never transitions the
// order; the paid transition is requested separately and gated on the sum.
func (s *Service) RecordPayment(ctx context.Context, req *models.RecordPaymentRequest, actorID *int, requestID string) (*PaymentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, workflow.ErrValidation("%s", err.Error())
	}

	order, err := s.orders.Get(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, workflow.ErrOrderNotFound(req.OrderID)
	}
	if order.Status == models.StatusCancelled {
		return nil, workflow.ErrValidation("cannot record a payment against a cancelled order")
	}

	recorded, err := s.payments.Record(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	if err := s.trail.Record(ctx, &models.AuditEntry{
		EntityType: "payment",
		EntityID:   recorded.ID,
		Event:      "payment_recorded",
		NewValues: map[string]interface{}{
			"order_id": recorded.OrderID,
			"amount":   recorded.Amount,
			"method":   recorded.Method,
			"status":   recorded.Status,
		},
		UserID: actorID,
	}); err != nil {
		s.logger.Error("audit_write_failed", "Failed to record payment audit entry", requestID, err, map[string]interface{}{
			"payment_id": recorded.ID,
		})
	}

	paidInFull, totalPaid, err := s.reconciler.IsPaidInFull(ctx, order)
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment_recorded", fmt.Sprintf("Payment of %.2f recorded for order %s", recorded.Amount, order.Number), requestID, map[string]interface{}{
		"order_id":     order.ID,
		"payment_id":   recorded.ID,
		"total_paid":   totalPaid,
		"paid_in_full": paidInFull,
	})

	return &PaymentResult{
		Payment:       recorded,
		TotalPaid:     totalPaid,
		PaymentStatus: payment.StatusFor(totalPaid, order.Total),
		PaidInFull:    paidInFull,
	}, nil
}

// PaymentResult is a recorded payment plus the order's settlement state.
type PaymentResult struct {
	Payment       *models.Payment `json:"payment"`
	TotalPaid     float64         `json:"total_paid"`
	PaymentStatus payment.Status  `json:"payment_status"`
	PaidInFull    bool            `json:"paid_in_full"`
}

// AttachTip records a tip against an order, attributed to its waiter.
func (s *Service) AttachTip(ctx context.Context, tip *models.Tip) (*models.Tip, error) {
	if tip.OrderID <= 0 {
		return nil, workflow.ErrValidation("order_id is required")
	}
	if tip.Amount <= 0 {
		return nil, workflow.ErrValidation("amount must be positive")
	}

	order, err := s.orders.Get(ctx, tip.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, workflow.ErrOrderNotFound(tip.OrderID)
	}

	if tip.WaiterID == nil {
		tip.WaiterID = order.WaiterID
	}
	if err := s.payments.AttachTip(ctx, tip); err != nil {
		return nil, fmt.Errorf("failed to attach tip: %w", err)
	}
	return tip, nil
}

// AdjustStock applies a manual inventory adjustment and audits it.
func (s *Service) AdjustStock(ctx context.Context, req *models.AdjustmentRequest, requestID string) (*inventory.StockChange, error) {
	change, err := s.ledger.Adjust(ctx, req, requestID)
	if err != nil {
		return nil, err
	}

	if err := s.trail.Record(ctx, &models.AuditEntry{
		EntityType: "menu_item",
		EntityID:   req.MenuItemID,
		Event:      "stock_adjusted",
		OldValues:  map[string]interface{}{"stock_quantity": change.NewStock - req.SignedQuantity()},
		NewValues: map[string]interface{}{
			"stock_quantity":   change.NewStock,
			"transaction_type": req.Type,
		},
		UserID: req.CreatedBy,
	}); err != nil {
		s.logger.Error("audit_write_failed", "Failed to record adjustment audit entry", requestID, err, map[string]interface{}{
			"menu_item_id": req.MenuItemID,
		})
	}

	return change, nil
}

// ListTransactions returns inventory transactions matching the filter.
func (s *Service) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.InventoryTransaction, error) {
	return s.menu.ListTransactions(ctx, filter)
}

// ListAuditEntries returns audit entries matching the query, newest first.
func (s *Service) ListAuditEntries(ctx context.Context, query models.AuditQuery) ([]models.AuditEntry, error) {
	return s.trail.List(ctx, query)
}
