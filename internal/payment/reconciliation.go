package payment

import (
	"context"
	"fmt"

	"smart-dining/internal/models"
)

// Query is the read-only payment aggregate the reconciler consumes.
type Query interface {
	SumCompletedPayments(ctx context.Context, orderID int) (float64, error)
}

// Status summarizes how much of an order has been settled.
type Status string

const (
	StatusUnpaid        Status = "unpaid"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
)

// PaidInFull is the predicate gating the paid transition: the sum of
// completed payments covers the order total. Tips never count.
func PaidInFull(totalPaid, orderTotal float64) bool {
	return totalPaid >= orderTotal
}

// StatusFor classifies the settled amount against the order total.
func StatusFor(totalPaid, orderTotal float64) Status {
	switch {
	case PaidInFull(totalPaid, orderTotal):
		return StatusPaid
	case totalPaid > 0:
		return StatusPartiallyPaid
	default:
		return StatusUnpaid
	}
}

// Reconciler evaluates an order's settlement state from its completed
// payments.
type Reconciler struct {
	payments Query
}

// NewReconciler creates a payment reconciler.
func NewReconciler(payments Query) *Reconciler {
	return &Reconciler{payments: payments}
}

// SumCompletedPayments exposes the underlying aggregate so the reconciler
// satisfies the workflow engine's payment guard contract.
func (r *Reconciler) SumCompletedPayments(ctx context.Context, orderID int) (float64, error) {
	return r.payments.SumCompletedPayments(ctx, orderID)
}

// IsPaidInFull reports whether the order's completed payments cover its
// total, along with the settled amount.
func (r *Reconciler) IsPaidInFull(ctx context.Context, order *models.Order) (bool, float64, error) {
	paid, err := r.payments.SumCompletedPayments(ctx, order.ID)
	if err != nil {
		return false, 0, fmt.Errorf("failed to sum completed payments: %w", err)
	}
	return PaidInFull(paid, order.Total), paid, nil
}
