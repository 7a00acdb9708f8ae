package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-dining/internal/logger"
	"smart-dining/internal/models"
	"smart-dining/internal/workflow"
)

// fakeStore keeps stock levels and the transaction ledger in memory,
// mirroring the guarded-decrement behavior of the real store.
type fakeStore struct {
	items map[int]*models.MenuItem
	txns  []models.InventoryTransaction
}

func newFakeStore(items ...*models.MenuItem) *fakeStore {
	s := &fakeStore{items: make(map[int]*models.MenuItem)}
	for _, item := range items {
		s.items[item.ID] = item
	}
	return s
}

func (s *fakeStore) GetItem(_ context.Context, menuItemID int) (*models.MenuItem, error) {
	item, ok := s.items[menuItemID]
	if !ok {
		return nil, nil
	}
	return item, nil
}

func (s *fakeStore) apply(menuItemID, delta int, txnType models.TransactionType, orderID *int, actorID *int, note string) (*StockChange, error) {
	item := s.items[menuItemID]
	newStock := *item.StockQuantity + delta
	if newStock < 0 {
		return nil, ErrStockExhausted
	}
	*item.StockQuantity = newStock

	s.txns = append(s.txns, models.InventoryTransaction{
		MenuItemID: menuItemID,
		Type:       txnType,
		Quantity:   delta,
		Unit:       item.Unit,
		OrderID:    orderID,
		Notes:      &note,
		CreatedBy:  actorID,
	})

	return &StockChange{
		MenuItemID:   menuItemID,
		MenuItemName: item.Name,
		Unit:         item.Unit,
		NewStock:     newStock,
		Threshold:    item.LowStockThreshold,
	}, nil
}

func (s *fakeStore) ApplySale(_ context.Context, menuItemID, quantity, orderID int, actorID *int, note string) (*StockChange, error) {
	return s.apply(menuItemID, -quantity, models.TransactionSale, &orderID, actorID, note)
}

func (s *fakeStore) ApplyRestore(_ context.Context, menuItemID, quantity, orderID int, actorID *int, note string) (*StockChange, error) {
	return s.apply(menuItemID, quantity, models.TransactionRestock, &orderID, actorID, note)
}

func (s *fakeStore) ApplyAdjustment(_ context.Context, req *models.AdjustmentRequest) (*StockChange, error) {
	var note string
	if req.Notes != nil {
		note = *req.Notes
	}
	return s.apply(req.MenuItemID, req.SignedQuantity(), req.Type, nil, req.CreatedBy, note)
}

func (s *fakeStore) SaleTransactionsForOrder(_ context.Context, orderID int) ([]models.InventoryTransaction, error) {
	var sales []models.InventoryTransaction
	for _, txn := range s.txns {
		if txn.Type == models.TransactionSale && txn.OrderID != nil && *txn.OrderID == orderID {
			sales = append(sales, txn)
		}
	}
	return sales, nil
}

func (s *fakeStore) TransactionsForOrder(_ context.Context, orderID int) ([]models.InventoryTransaction, error) {
	var matched []models.InventoryTransaction
	for _, txn := range s.txns {
		if txn.OrderID != nil && *txn.OrderID == orderID {
			matched = append(matched, txn)
		}
	}
	return matched, nil
}

type fakeAlerts struct {
	alerts []*StockChange
}

func (a *fakeAlerts) LowStock(_ context.Context, change *StockChange) {
	a.alerts = append(a.alerts, change)
}

func trackedItem(id int, name string, stock, threshold int) *models.MenuItem {
	qty := stock
	return &models.MenuItem{
		ID:                id,
		Name:              name,
		Status:            models.MenuItemAvailable,
		StockQuantity:     &qty,
		Unit:              "portion",
		LowStockThreshold: threshold,
	}
}

func testOrder(id int, items ...models.OrderItem) *models.Order {
	return &models.Order{
		ID:     id,
		Number: "ORD-20260830-0001",
		Status: models.StatusConfirmed,
		Items:  items,
	}
}

func TestDeductOrder(t *testing.T) {
	store := newFakeStore(
		trackedItem(1, "Nasi Goreng", 10, 3),
		&models.MenuItem{ID: 2, Name: "Es Teh", Status: models.MenuItemAvailable},
	)
	ledger := NewLedger(store, &fakeAlerts{}, logger.New("inventory-test"))

	order := testOrder(7,
		models.OrderItem{MenuItemID: 1, Quantity: 2},
		models.OrderItem{MenuItemID: 2, Quantity: 1},
	)

	require.NoError(t, ledger.DeductOrder(context.Background(), order, nil, "req-1"))

	assert.Equal(t, 8, *store.items[1].StockQuantity)

	// Untracked items never hit the ledger.
	require.Len(t, store.txns, 1)
	assert.Equal(t, models.TransactionSale, store.txns[0].Type)
	assert.Equal(t, -2, store.txns[0].Quantity)
}

func TestDeductOrderIsIdempotent(t *testing.T) {
	store := newFakeStore(trackedItem(1, "Nasi Goreng", 10, 3))
	ledger := NewLedger(store, &fakeAlerts{}, logger.New("inventory-test"))

	order := testOrder(7, models.OrderItem{MenuItemID: 1, Quantity: 2})

	require.NoError(t, ledger.DeductOrder(context.Background(), order, nil, "req-1"))
	require.NoError(t, ledger.DeductOrder(context.Background(), order, nil, "req-2"))

	assert.Equal(t, 8, *store.items[1].StockQuantity)
	assert.Len(t, store.txns, 1)
}

func TestDeductOrderCombinesDuplicateLines(t *testing.T) {
	store := newFakeStore(trackedItem(1, "Nasi Goreng", 10, 3))
	ledger := NewLedger(store, &fakeAlerts{}, logger.New("inventory-test"))

	order := testOrder(7,
		models.OrderItem{MenuItemID: 1, Quantity: 2},
		models.OrderItem{MenuItemID: 1, Quantity: 3},
	)

	require.NoError(t, ledger.DeductOrder(context.Background(), order, nil, "req-1"))

	assert.Equal(t, 5, *store.items[1].StockQuantity)
	require.Len(t, store.txns, 1)
	assert.Equal(t, -5, store.txns[0].Quantity)
}

func TestDeductOrderStockExhaustedIsInvariantViolation(t *testing.T) {
	store := newFakeStore(trackedItem(1, "Nasi Goreng", 1, 3))
	ledger := NewLedger(store, &fakeAlerts{}, logger.New("inventory-test"))

	order := testOrder(7, models.OrderItem{MenuItemID: 1, Quantity: 2})

	err := ledger.DeductOrder(context.Background(), order, nil, "req-1")
	require.Error(t, err)
	assert.Equal(t, workflow.KindInvariant, workflow.KindOf(err))
	assert.Equal(t, 1, *store.items[1].StockQuantity)
}

func TestRestoreOrderReversesAppliedDeductions(t *testing.T) {
	store := newFakeStore(trackedItem(1, "Nasi Goreng", 10, 3))
	ledger := NewLedger(store, &fakeAlerts{}, logger.New("inventory-test"))

	order := testOrder(7, models.OrderItem{MenuItemID: 1, Quantity: 4})
	require.NoError(t, ledger.DeductOrder(context.Background(), order, nil, "req-1"))
	require.Equal(t, 6, *store.items[1].StockQuantity)

	require.NoError(t, ledger.RestoreOrder(context.Background(), 7, nil, "req-2"))

	assert.Equal(t, 10, *store.items[1].StockQuantity)
	require.Len(t, store.txns, 2)
	assert.Equal(t, models.TransactionRestock, store.txns[1].Type)
	assert.Equal(t, 4, store.txns[1].Quantity)
}

func TestDeductOrderSkipsCancelledOrder(t *testing.T) {
	store := newFakeStore(trackedItem(1, "Nasi Goreng", 10, 3))
	ledger := NewLedger(store, &fakeAlerts{}, logger.New("inventory-test"))

	// The order is cancelled before its deduction ever ran, so the
	// restoration found nothing to reverse.
	order := testOrder(7, models.OrderItem{MenuItemID: 1, Quantity: 4})
	order.Status = models.StatusCancelled
	require.NoError(t, ledger.RestoreOrder(context.Background(), 7, nil, "req-1"))

	// A deduction arriving afterwards must not move stock.
	require.NoError(t, ledger.DeductOrder(context.Background(), order, nil, "req-2"))

	assert.Equal(t, 10, *store.items[1].StockQuantity)
	assert.Empty(t, store.txns)
}

func TestRestoreOrderRetryRestoresOnlyOutstanding(t *testing.T) {
	store := newFakeStore(trackedItem(1, "Nasi Goreng", 10, 3))
	ledger := NewLedger(store, &fakeAlerts{}, logger.New("inventory-test"))

	order := testOrder(7, models.OrderItem{MenuItemID: 1, Quantity: 4})
	require.NoError(t, ledger.DeductOrder(context.Background(), order, nil, "req-1"))
	require.NoError(t, ledger.RestoreOrder(context.Background(), 7, nil, "req-2"))

	// A second restoration finds a zero net for the order and applies
	// nothing.
	require.NoError(t, ledger.RestoreOrder(context.Background(), 7, nil, "req-3"))

	assert.Equal(t, 10, *store.items[1].StockQuantity)
	assert.Len(t, store.txns, 2)
}

func TestRestoreOrderWithoutDeductionsIsNoop(t *testing.T) {
	store := newFakeStore(trackedItem(1, "Nasi Goreng", 10, 3))
	ledger := NewLedger(store, &fakeAlerts{}, logger.New("inventory-test"))

	require.NoError(t, ledger.RestoreOrder(context.Background(), 7, nil, "req-1"))
	assert.Empty(t, store.txns)
}

func TestLowStockAlertFiresOnDownwardCrossing(t *testing.T) {
	store := newFakeStore(trackedItem(1, "Nasi Goreng", 5, 4))
	alerts := &fakeAlerts{}
	ledger := NewLedger(store, alerts, logger.New("inventory-test"))

	// 5 -> 3 crosses the threshold of 4.
	order := testOrder(7, models.OrderItem{MenuItemID: 1, Quantity: 2})
	require.NoError(t, ledger.DeductOrder(context.Background(), order, nil, "req-1"))

	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, 1, alerts.alerts[0].MenuItemID)
	assert.Equal(t, 3, alerts.alerts[0].NewStock)
	assert.Equal(t, 4, alerts.alerts[0].Threshold)
}

func TestLowStockAlertNotRepeatedBelowThreshold(t *testing.T) {
	// Already below threshold; a further deduction stays silent.
	store := newFakeStore(trackedItem(1, "Nasi Goreng", 3, 4))
	alerts := &fakeAlerts{}
	ledger := NewLedger(store, alerts, logger.New("inventory-test"))

	order := testOrder(7, models.OrderItem{MenuItemID: 1, Quantity: 1})
	require.NoError(t, ledger.DeductOrder(context.Background(), order, nil, "req-1"))

	assert.Empty(t, alerts.alerts)
}

func TestLowStockAlertNotFiredAboveThreshold(t *testing.T) {
	store := newFakeStore(trackedItem(1, "Nasi Goreng", 20, 4))
	alerts := &fakeAlerts{}
	ledger := NewLedger(store, alerts, logger.New("inventory-test"))

	order := testOrder(7, models.OrderItem{MenuItemID: 1, Quantity: 2})
	require.NoError(t, ledger.DeductOrder(context.Background(), order, nil, "req-1"))

	assert.Empty(t, alerts.alerts)
}

func TestAdjustRestock(t *testing.T) {
	store := newFakeStore(trackedItem(1, "Nasi Goreng", 2, 4))
	ledger := NewLedger(store, &fakeAlerts{}, logger.New("inventory-test"))

	change, err := ledger.Adjust(context.Background(), &models.AdjustmentRequest{
		MenuItemID: 1,
		Type:       models.TransactionRestock,
		Quantity:   10,
		Unit:       "portion",
	}, "req-1")
	require.NoError(t, err)

	assert.Equal(t, 12, change.NewStock)
	assert.Equal(t, 12, *store.items[1].StockQuantity)
	require.Len(t, store.txns, 1)
	assert.Equal(t, 10, store.txns[0].Quantity)
}

func TestAdjustWasteCrossingThresholdAlerts(t *testing.T) {
	store := newFakeStore(trackedItem(1, "Nasi Goreng", 6, 4))
	alerts := &fakeAlerts{}
	ledger := NewLedger(store, alerts, logger.New("inventory-test"))

	change, err := ledger.Adjust(context.Background(), &models.AdjustmentRequest{
		MenuItemID: 1,
		Type:       models.TransactionWaste,
		Quantity:   3,
		Unit:       "portion",
	}, "req-1")
	require.NoError(t, err)

	assert.Equal(t, 3, change.NewStock)
	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, 3, alerts.alerts[0].NewStock)
}

func TestAdjustValidation(t *testing.T) {
	store := newFakeStore(
		trackedItem(1, "Nasi Goreng", 2, 4),
		&models.MenuItem{ID: 2, Name: "Es Teh", Status: models.MenuItemAvailable},
	)
	ledger := NewLedger(store, &fakeAlerts{}, logger.New("inventory-test"))

	tests := []struct {
		name string
		req  *models.AdjustmentRequest
		want string
	}{
		{
			"sale type rejected",
			&models.AdjustmentRequest{MenuItemID: 1, Type: models.TransactionSale, Quantity: 1, Unit: "portion"},
			"transaction_type must be one of",
		},
		{
			"zero quantity",
			&models.AdjustmentRequest{MenuItemID: 1, Type: models.TransactionRestock, Quantity: 0, Unit: "portion"},
			"quantity must be a positive integer",
		},
		{
			"missing unit",
			&models.AdjustmentRequest{MenuItemID: 1, Type: models.TransactionRestock, Quantity: 1},
			"unit is required",
		},
		{
			"untracked item",
			&models.AdjustmentRequest{MenuItemID: 2, Type: models.TransactionWaste, Quantity: 1, Unit: "glass"},
			"does not track stock",
		},
		{
			"removing more than available",
			&models.AdjustmentRequest{MenuItemID: 1, Type: models.TransactionLoss, Quantity: 5, Unit: "portion"},
			"only 2 available",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Adjust(context.Background(), tt.req, "req-1")
			require.Error(t, err)
			assert.Equal(t, workflow.KindValidation, workflow.KindOf(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAdjustUnknownItem(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store, &fakeAlerts{}, logger.New("inventory-test"))

	_, err := ledger.Adjust(context.Background(), &models.AdjustmentRequest{
		MenuItemID: 99,
		Type:       models.TransactionRestock,
		Quantity:   1,
		Unit:       "portion",
	}, "req-1")
	require.Error(t, err)
	assert.Equal(t, workflow.KindNotFound, workflow.KindOf(err))
}
