package models

import (
	"fmt"
	"time"
)

// TransactionType classifies a stock movement
type TransactionType string

const (
	TransactionSale       TransactionType = "sale"
	TransactionRestock    TransactionType = "restock"
	TransactionWaste      TransactionType = "waste"
	TransactionLoss       TransactionType = "loss"
	TransactionCorrection TransactionType = "correction"
)

// InventoryTransaction is one append-only entry in the stock ledger.
// Quantity is signed: negative for deductions, positive for additions.
// The running sum of all transactions for a tracked menu item equals its
// current stock quantity.
type InventoryTransaction struct {
	ID         int             `json:"id,omitempty" db:"id"`
	MenuItemID int             `json:"menu_item_id" db:"menu_item_id"`
	Type       TransactionType `json:"transaction_type" db:"transaction_type"`
	Quantity   int             `json:"quantity" db:"quantity"`
	Unit       string          `json:"unit" db:"unit"`
	OrderID    *int            `json:"order_id,omitempty" db:"order_id"`
	Notes      *string         `json:"notes,omitempty" db:"notes"`
	CreatedBy  *int            `json:"created_by,omitempty" db:"created_by"`
	CreatedAt  time.Time       `json:"created_at,omitempty" db:"created_at"`
}

// AdjustmentRequest is a manual, management-initiated stock change outside
// the order flow.
type AdjustmentRequest struct {
	MenuItemID int             `json:"menu_item_id"`
	Type       TransactionType `json:"transaction_type"`
	Quantity   int             `json:"quantity"`
	Unit       string          `json:"unit"`
	Notes      *string         `json:"notes,omitempty"`
	CreatedBy  *int            `json:"created_by,omitempty"`
}

// Validate checks a manual adjustment request.
func (r *AdjustmentRequest) Validate() error {
	if r.MenuItemID <= 0 {
		return fmt.Errorf("menu_item_id is required")
	}
	switch r.Type {
	case TransactionRestock, TransactionWaste, TransactionLoss, TransactionCorrection:
	default:
		return fmt.Errorf("transaction_type must be one of: restock, waste, loss, correction")
	}
	if r.Quantity < 1 {
		return fmt.Errorf("quantity must be a positive integer")
	}
	if r.Unit == "" {
		return fmt.Errorf("unit is required")
	}
	return nil
}

// SignedQuantity returns the ledger delta this adjustment applies: positive
// for restocks, negative for waste, loss and downward corrections.
func (r *AdjustmentRequest) SignedQuantity() int {
	if r.Type == TransactionRestock {
		return r.Quantity
	}
	return -r.Quantity
}

// TransactionFilter narrows inventory history reads. Zero values mean
// "no constraint".
type TransactionFilter struct {
	MenuItemID int
	Type       TransactionType
	OrderID    int
	From       time.Time
	To         time.Time
	Limit      int
}
