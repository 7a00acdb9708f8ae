package inventory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-dining/internal/logger"
	"smart-dining/internal/models"
)

type fakeOrderGetter struct {
	orders map[int]*models.Order
}

func (g *fakeOrderGetter) Get(_ context.Context, orderID int) (*models.Order, error) {
	return g.orders[orderID], nil
}

func deductionTaskBody(t *testing.T, orderID int, orderNumber string) []byte {
	t.Helper()
	body, err := json.Marshal(&models.DeductionTask{
		TaskID:      uuid.NewString(),
		OrderID:     orderID,
		OrderNumber: orderNumber,
		EnqueuedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	return body
}

func TestHandleTaskDeductsOrder(t *testing.T) {
	store := newFakeStore(trackedItem(1, "Nasi Goreng", 10, 3))
	log := logger.New("inventory-test")
	ledger := NewLedger(store, &fakeAlerts{}, log)

	order := testOrder(7, models.OrderItem{MenuItemID: 1, Quantity: 4})
	orders := &fakeOrderGetter{orders: map[int]*models.Order{7: order}}
	worker := NewWorker(nil, orders, ledger, log)

	err := worker.handleTask(context.Background(), deductionTaskBody(t, 7, order.Number))

	require.NoError(t, err)
	assert.Equal(t, 6, *store.items[1].StockQuantity)
	assert.Len(t, store.txns, 1)
}

func TestHandleTaskDropsTaskForCancelledOrder(t *testing.T) {
	store := newFakeStore(trackedItem(1, "Nasi Goreng", 10, 3))
	log := logger.New("inventory-test")
	ledger := NewLedger(store, &fakeAlerts{}, log)

	// The order was cancelled while its deduction task sat in the queue;
	// the redelivered task must be dropped without touching stock.
	order := testOrder(7, models.OrderItem{MenuItemID: 1, Quantity: 4})
	order.Status = models.StatusCancelled
	orders := &fakeOrderGetter{orders: map[int]*models.Order{7: order}}
	worker := NewWorker(nil, orders, ledger, log)

	err := worker.handleTask(context.Background(), deductionTaskBody(t, 7, order.Number))

	require.NoError(t, err)
	assert.Equal(t, 10, *store.items[1].StockQuantity)
	assert.Empty(t, store.txns)
}

func TestHandleTaskDropsTaskForMissingOrder(t *testing.T) {
	store := newFakeStore(trackedItem(1, "Nasi Goreng", 10, 3))
	log := logger.New("inventory-test")
	ledger := NewLedger(store, &fakeAlerts{}, log)

	orders := &fakeOrderGetter{orders: map[int]*models.Order{}}
	worker := NewWorker(nil, orders, ledger, log)

	err := worker.handleTask(context.Background(), deductionTaskBody(t, 99, "ORD-20260830-0099"))

	require.NoError(t, err)
	assert.Empty(t, store.txns)
}

func TestHandleTaskRejectsMalformedBody(t *testing.T) {
	store := newFakeStore(trackedItem(1, "Nasi Goreng", 10, 3))
	log := logger.New("inventory-test")
	ledger := NewLedger(store, &fakeAlerts{}, log)

	worker := NewWorker(nil, &fakeOrderGetter{}, ledger, log)

	err := worker.handleTask(context.Background(), []byte("{not json"))

	assert.Error(t, err)
}
