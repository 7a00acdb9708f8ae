package storage

import (
	"context"
	"fmt"

	"smart-dining/internal/database"
	"smart-dining/internal/models"
)

// PaymentRepository records payments and tips and serves the completed
// payment aggregate the paid guard reads.
type PaymentRepository struct {
	db *database.DB
}

// NewPaymentRepository creates a payment repository.
func NewPaymentRepository(db *database.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Record persists a payment against an order. Gateway callbacks and manual
// POS entries both land here; only completed payments count towards the
// paid-in-full check.
func (r *PaymentRepository) Record(ctx context.Context, req *models.RecordPaymentRequest) (*models.Payment, error) {
	payment := &models.Payment{
		OrderID:         req.OrderID,
		Amount:          models.Round2(req.Amount),
		Method:          models.PaymentMethod(req.Method),
		Status:          models.PaymentStatus(req.Status),
		GatewayResponse: req.GatewayResponse,
	}

	err := r.db.QueryRow(ctx, database.InsertPaymentSQL,
		payment.OrderID, payment.Amount, payment.Method, payment.Status, payment.GatewayResponse,
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}

	return payment, nil
}

// SumCompletedPayments returns the total of completed payments for an order.
func (r *PaymentRepository) SumCompletedPayments(ctx context.Context, orderID int) (float64, error) {
	var sum float64
	if err := r.db.QueryRow(ctx, database.SumCompletedPaymentsSQL, orderID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum completed payments: %w", err)
	}
	return sum, nil
}

// AttachTip records or replaces the single tip on an order.
func (r *PaymentRepository) AttachTip(ctx context.Context, tip *models.Tip) error {
	err := r.db.QueryRow(ctx, database.UpsertTipSQL,
		tip.OrderID, tip.WaiterID, tip.Amount, tip.Method,
	).Scan(&tip.ID, &tip.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert tip: %w", err)
	}
	return nil
}
