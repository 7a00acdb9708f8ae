package models

import (
	"testing"
	"time"
)

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name         string
		items        []OrderItem
		taxRate      float64
		wantSubtotal float64
		wantTax      float64
		wantTotal    float64
	}{
		{
			name: "two of one item at 18 percent",
			items: []OrderItem{
				{Quantity: 2, UnitPrice: 15000, Subtotal: 30000},
			},
			taxRate:      18,
			wantSubtotal: 30000,
			wantTax:      5400,
			wantTotal:    35400,
		},
		{
			name: "multiple items",
			items: []OrderItem{
				{Quantity: 1, UnitPrice: 12.50, Subtotal: 12.50},
				{Quantity: 3, UnitPrice: 4.25, Subtotal: 12.75},
			},
			taxRate:      18,
			wantSubtotal: 25.25,
			wantTax:      4.55,
			wantTotal:    29.80,
		},
		{
			name:         "no items",
			items:        nil,
			taxRate:      18,
			wantSubtotal: 0,
			wantTax:      0,
			wantTotal:    0,
		},
		{
			name: "zero tax rate",
			items: []OrderItem{
				{Quantity: 2, UnitPrice: 10, Subtotal: 20},
			},
			taxRate:      0,
			wantSubtotal: 20,
			wantTax:      0,
			wantTotal:    20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subtotal, tax, total := ComputeTotals(tt.items, tt.taxRate)
			if subtotal != tt.wantSubtotal {
				t.Errorf("subtotal = %v, want %v", subtotal, tt.wantSubtotal)
			}
			if tax != tt.wantTax {
				t.Errorf("tax = %v, want %v", tax, tt.wantTax)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %v, want %v", total, tt.wantTotal)
			}
			if total != Round2(subtotal+tax) {
				t.Errorf("total %v != subtotal %v + tax %v", total, subtotal, tax)
			}
		})
	}
}

func TestGenerateOrderNumber(t *testing.T) {
	date := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	if got, want := GenerateOrderNumber(date, 7), "ORD-20260314-0007"; got != want {
		t.Errorf("GenerateOrderNumber() = %q, want %q", got, want)
	}
	if got, want := GenerateOrderNumber(date, 1234), "ORD-20260314-1234"; got != want {
		t.Errorf("GenerateOrderNumber() = %q, want %q", got, want)
	}
}

func TestCreateOrderRequestValidate(t *testing.T) {
	one := CreateOrderItemRequest{MenuItemID: 1, Quantity: 2}

	tests := []struct {
		name    string
		req     CreateOrderRequest
		wantErr bool
	}{
		{
			name:    "valid pos order",
			req:     CreateOrderRequest{Source: "pos", Items: []CreateOrderItemRequest{one}},
			wantErr: false,
		},
		{
			name:    "valid qr order",
			req:     CreateOrderRequest{Source: "qr", Items: []CreateOrderItemRequest{one}},
			wantErr: false,
		},
		{
			name:    "invalid source",
			req:     CreateOrderRequest{Source: "carrier_pigeon", Items: []CreateOrderItemRequest{one}},
			wantErr: true,
		},
		{
			name:    "no items",
			req:     CreateOrderRequest{Source: "pos"},
			wantErr: true,
		},
		{
			name: "zero quantity",
			req: CreateOrderRequest{Source: "pos", Items: []CreateOrderItemRequest{
				{MenuItemID: 1, Quantity: 0},
			}},
			wantErr: true,
		},
		{
			name: "negative quantity",
			req: CreateOrderRequest{Source: "pos", Items: []CreateOrderItemRequest{
				{MenuItemID: 1, Quantity: -3},
			}},
			wantErr: true,
		},
		{
			name: "missing menu item id",
			req: CreateOrderRequest{Source: "pos", Items: []CreateOrderItemRequest{
				{Quantity: 1},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAdjustmentRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     AdjustmentRequest
		wantErr bool
	}{
		{"valid restock", AdjustmentRequest{MenuItemID: 1, Type: TransactionRestock, Quantity: 5, Unit: "bottles"}, false},
		{"valid waste", AdjustmentRequest{MenuItemID: 1, Type: TransactionWaste, Quantity: 2, Unit: "kg"}, false},
		{"sale not allowed manually", AdjustmentRequest{MenuItemID: 1, Type: TransactionSale, Quantity: 1, Unit: "kg"}, true},
		{"zero quantity", AdjustmentRequest{MenuItemID: 1, Type: TransactionRestock, Quantity: 0, Unit: "kg"}, true},
		{"missing unit", AdjustmentRequest{MenuItemID: 1, Type: TransactionRestock, Quantity: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAdjustmentSignedQuantity(t *testing.T) {
	if got := (&AdjustmentRequest{Type: TransactionRestock, Quantity: 5}).SignedQuantity(); got != 5 {
		t.Errorf("restock SignedQuantity() = %d, want 5", got)
	}
	if got := (&AdjustmentRequest{Type: TransactionWaste, Quantity: 5}).SignedQuantity(); got != -5 {
		t.Errorf("waste SignedQuantity() = %d, want -5", got)
	}
	if got := (&AdjustmentRequest{Type: TransactionLoss, Quantity: 3}).SignedQuantity(); got != -3 {
		t.Errorf("loss SignedQuantity() = %d, want -3", got)
	}
}
