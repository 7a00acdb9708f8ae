package models

import (
	"fmt"
	"math"
	"time"
)

// OrderSource identifies which surface an order came in through
type OrderSource string

const (
	SourcePOS      OrderSource = "pos"
	SourceWhatsApp OrderSource = "whatsapp"
	SourceQR       OrderSource = "qr"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusServed    OrderStatus = "served"
	StatusPaid      OrderStatus = "paid"
	StatusCancelled OrderStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible from s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// PrepStatus tracks a single order item's progress in the kitchen or bar,
// independent of the order's own status.
type PrepStatus string

const (
	PrepPending   PrepStatus = "pending"
	PrepPreparing PrepStatus = "preparing"
	PrepReady     PrepStatus = "ready"
	PrepServed    PrepStatus = "served"
)

// OrderItem represents a line item in an order. Name and UnitPrice are
// snapshots of the menu item at order time and never change afterwards.
type OrderItem struct {
	ID                  int        `json:"id,omitempty" db:"id"`
	OrderID             int        `json:"order_id,omitempty" db:"order_id"`
	MenuItemID          int        `json:"menu_item_id" db:"menu_item_id"`
	Name                string     `json:"name" db:"name"`
	Quantity            int        `json:"quantity" db:"quantity"`
	UnitPrice           float64    `json:"unit_price" db:"unit_price"`
	Subtotal            float64    `json:"subtotal" db:"subtotal"`
	PrepStatus          PrepStatus `json:"prep_status" db:"prep_status"`
	PrepArea            PrepArea   `json:"prep_area" db:"prep_area"`
	SpecialInstructions *string    `json:"special_instructions,omitempty" db:"special_instructions"`
}

// Order represents a guest order
type Order struct {
	ID                  int         `json:"id,omitempty" db:"id"`
	Number              string      `json:"order_number" db:"number"`
	TableID             *int        `json:"table_id,omitempty" db:"table_id"`
	GuestID             *int        `json:"guest_id,omitempty" db:"guest_id"`
	WaiterID            *int        `json:"waiter_id,omitempty" db:"waiter_id"`
	Source              OrderSource `json:"order_source" db:"source"`
	Status              OrderStatus `json:"status" db:"status"`
	Subtotal            float64     `json:"subtotal" db:"subtotal"`
	Tax                 float64     `json:"tax" db:"tax"`
	Total               float64     `json:"total" db:"total"`
	SpecialInstructions *string     `json:"special_instructions,omitempty" db:"special_instructions"`
	Notes               *string     `json:"notes,omitempty" db:"notes"`
	Items               []OrderItem `json:"items"`
	CreatedAt           time.Time   `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at,omitempty" db:"updated_at"`
	ServedAt            *time.Time  `json:"served_at,omitempty" db:"served_at"`
	PaidAt              *time.Time  `json:"paid_at,omitempty" db:"paid_at"`
}

// CreateOrderItemRequest is one requested line item for a new order
type CreateOrderItemRequest struct {
	MenuItemID          int     `json:"menu_item_id"`
	Quantity            int     `json:"quantity"`
	SpecialInstructions *string `json:"special_instructions,omitempty"`
}

// CreateOrderRequest represents the request to create a new order
type CreateOrderRequest struct {
	TableID             *int                     `json:"table_id,omitempty"`
	GuestID             *int                     `json:"guest_id,omitempty"`
	WaiterID            *int                     `json:"waiter_id,omitempty"`
	Source              string                   `json:"order_source"`
	SpecialInstructions *string                  `json:"special_instructions,omitempty"`
	Items               []CreateOrderItemRequest `json:"items"`
}

// Validate checks the shape of a create-order request. Referenced entities
// (table, menu items) are resolved against the stores later.
func (req *CreateOrderRequest) Validate() error {
	if err := validateSource(req.Source); err != nil {
		return err
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("items array cannot be empty")
	}
	if len(req.Items) > 50 {
		return fmt.Errorf("items array cannot contain more than 50 items")
	}
	for i, item := range req.Items {
		if item.MenuItemID <= 0 {
			return fmt.Errorf("items[%d].menu_item_id is required", i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("items[%d].quantity must be a positive integer", i)
		}
	}
	return nil
}

func validateSource(source string) error {
	switch OrderSource(source) {
	case SourcePOS, SourceWhatsApp, SourceQR:
		return nil
	default:
		return fmt.Errorf("order_source must be one of: pos, whatsapp, qr")
	}
}

// Round2 rounds a monetary amount to two decimal places.
func Round2(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// ComputeTotals returns subtotal, tax and total for the given items at the
// given tax rate (a percentage).
func ComputeTotals(items []OrderItem, taxRate float64) (subtotal, tax, total float64) {
	for _, item := range items {
		subtotal += item.Subtotal
	}
	subtotal = Round2(subtotal)
	tax = Round2(subtotal * taxRate / 100)
	total = Round2(subtotal + tax)
	return subtotal, tax, total
}

// GenerateOrderNumber generates an order number in format ORD-YYYYMMDD-NNNN,
// where the sequence restarts each day.
func GenerateOrderNumber(date time.Time, sequence int) string {
	return fmt.Sprintf("ORD-%s-%04d", date.Format("20060102"), sequence)
}

// OrderStatusLogEntry records one accepted status change of an order
type OrderStatusLogEntry struct {
	OrderID   int         `json:"order_id" db:"order_id"`
	Status    OrderStatus `json:"status" db:"status"`
	ChangedBy *int        `json:"changed_by,omitempty" db:"changed_by"`
	ChangedAt time.Time   `json:"changed_at" db:"changed_at"`
	Notes     *string     `json:"notes,omitempty" db:"notes"`
}

// Tip is an optional gratuity attached to an order, attributed to the waiter.
// Tips are tracked separately from payments and never count towards the
// paid-in-full check.
type Tip struct {
	ID        int       `json:"id,omitempty" db:"id"`
	OrderID   int       `json:"order_id" db:"order_id"`
	WaiterID  *int      `json:"waiter_id,omitempty" db:"waiter_id"`
	Amount    float64   `json:"amount" db:"amount"`
	Method    string    `json:"method" db:"method"`
	CreatedAt time.Time `json:"created_at,omitempty" db:"created_at"`
}
