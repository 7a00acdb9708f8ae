package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// PaymentMethod identifies how a payment was made
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCard         PaymentMethod = "card"
	PaymentMobileMoney  PaymentMethod = "mobile_money"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentGateway      PaymentMethod = "gateway"
)

// PaymentStatus represents the processing state of a payment
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment records money received against an order. An order may carry
// several payments (split bills); only completed payments count towards
// the paid-in-full check.
type Payment struct {
	ID              int             `json:"id,omitempty" db:"id"`
	OrderID         int             `json:"order_id" db:"order_id"`
	Amount          float64         `json:"amount" db:"amount"`
	Method          PaymentMethod   `json:"payment_method" db:"payment_method"`
	Status          PaymentStatus   `json:"status" db:"status"`
	GatewayResponse json.RawMessage `json:"gateway_response,omitempty" db:"gateway_response"`
	CreatedAt       time.Time       `json:"created_at,omitempty" db:"created_at"`
}

// RecordPaymentRequest asks for a payment to be recorded against an order
type RecordPaymentRequest struct {
	OrderID         int             `json:"order_id"`
	Amount          float64         `json:"amount"`
	Method          string          `json:"payment_method"`
	Status          string          `json:"status"`
	GatewayResponse json.RawMessage `json:"gateway_response,omitempty"`
}

// Validate checks the shape of a record-payment request.
func (r *RecordPaymentRequest) Validate() error {
	if r.OrderID <= 0 {
		return fmt.Errorf("order_id is required")
	}
	if r.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	switch PaymentMethod(r.Method) {
	case PaymentCash, PaymentCard, PaymentMobileMoney, PaymentBankTransfer, PaymentGateway:
	default:
		return fmt.Errorf("payment_method must be one of: cash, card, mobile_money, bank_transfer, gateway")
	}
	switch PaymentStatus(r.Status) {
	case PaymentPending, PaymentCompleted, PaymentFailed:
	default:
		return fmt.Errorf("status must be one of: pending, completed, failed")
	}
	return nil
}
