package notifier

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-dining/internal/inventory"
	"smart-dining/internal/logger"
	"smart-dining/internal/models"
)

type published struct {
	msg        interface{}
	routingKey string
}

type fakePublisher struct {
	orders        []published
	tasks         []interface{}
	notifications []interface{}
	fail          bool
}

func (p *fakePublisher) PublishOrder(_ context.Context, msg interface{}, routingKey string) error {
	if p.fail {
		return context.DeadlineExceeded
	}
	p.orders = append(p.orders, published{msg: msg, routingKey: routingKey})
	return nil
}

func (p *fakePublisher) PublishDeductionTask(_ context.Context, task interface{}) error {
	if p.fail {
		return context.DeadlineExceeded
	}
	p.tasks = append(p.tasks, task)
	return nil
}

func (p *fakePublisher) PublishNotification(_ context.Context, msg interface{}) error {
	if p.fail {
		return context.DeadlineExceeded
	}
	p.notifications = append(p.notifications, msg)
	return nil
}

func (p *fakePublisher) lastEnvelope(t *testing.T) *models.NotificationEnvelope {
	t.Helper()
	require.NotEmpty(t, p.notifications)
	envelope, ok := p.notifications[len(p.notifications)-1].(*models.NotificationEnvelope)
	require.True(t, ok)
	return envelope
}

func TestRoutingArea(t *testing.T) {
	tests := []struct {
		name  string
		areas []models.PrepArea
		want  models.PrepArea
	}{
		{"kitchen only", []models.PrepArea{models.PrepAreaKitchen, models.PrepAreaKitchen}, models.PrepAreaKitchen},
		{"bar only", []models.PrepArea{models.PrepAreaBar}, models.PrepAreaBar},
		{"mixed", []models.PrepArea{models.PrepAreaKitchen, models.PrepAreaBar}, models.PrepAreaBoth},
		{"both item", []models.PrepArea{models.PrepAreaBoth}, models.PrepAreaBoth},
		{"empty defaults to kitchen", nil, models.PrepAreaKitchen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]models.OrderItem, len(tt.areas))
			for i, area := range tt.areas {
				items[i] = models.OrderItem{PrepArea: area}
			}
			assert.Equal(t, tt.want, routingArea(items))
		})
	}
}

func TestOrderCreatedPublishesTicketAndEvent(t *testing.T) {
	pub := &fakePublisher{}
	events := NewEvents(pub, nil, logger.New("notifier-test"))

	events.OrderCreated(context.Background(), &models.Order{
		ID:     7,
		Number: "ORD-20260830-0001",
		Source: models.SourcePOS,
		Total:  35400,
		Items: []models.OrderItem{
			{MenuItemID: 1, Name: "Nasi Goreng", Quantity: 2, PrepArea: models.PrepAreaKitchen},
			{MenuItemID: 2, Name: "Es Teh", Quantity: 1, PrepArea: models.PrepAreaBar},
		},
	})

	require.Len(t, pub.orders, 1)
	assert.Equal(t, "both.pos", pub.orders[0].routingKey)

	envelope := pub.lastEnvelope(t)
	assert.Equal(t, models.EventOrderCreated, envelope.Event)

	var msg models.OrderCreatedMessage
	require.NoError(t, json.Unmarshal(envelope.Payload, &msg))
	assert.Equal(t, "ORD-20260830-0001", msg.OrderNumber)
	assert.Len(t, msg.Items, 2)
}

func TestStatusChangedPublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	events := NewEvents(pub, nil, logger.New("notifier-test"))

	events.StatusChanged(context.Background(), &models.Order{ID: 7, Number: "ORD-20260830-0001"},
		models.StatusPending, models.StatusConfirmed, nil)

	envelope := pub.lastEnvelope(t)
	assert.Equal(t, models.EventStatusChanged, envelope.Event)

	var msg models.StatusChangedMessage
	require.NoError(t, json.Unmarshal(envelope.Payload, &msg))
	assert.Equal(t, models.StatusPending, msg.OldStatus)
	assert.Equal(t, models.StatusConfirmed, msg.NewStatus)
}

func TestLowStockPublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	events := NewEvents(pub, nil, logger.New("notifier-test"))

	events.LowStock(context.Background(), &inventory.StockChange{
		MenuItemID:   1,
		MenuItemName: "Nasi Goreng",
		Unit:         "portion",
		NewStock:     3,
		Threshold:    4,
	})

	envelope := pub.lastEnvelope(t)
	assert.Equal(t, models.EventLowStock, envelope.Event)

	var msg models.LowStockMessage
	require.NoError(t, json.Unmarshal(envelope.Payload, &msg))
	assert.Equal(t, 3, msg.CurrentStock)
	assert.Equal(t, 4, msg.Threshold)
	assert.False(t, msg.Timestamp.IsZero())
}

type fakeDirectory struct {
	staff []models.Staff
}

func (d *fakeDirectory) ActiveManagers(_ context.Context) ([]models.Staff, error) {
	return d.staff, nil
}

func TestLowStockResolvesManagerRecipients(t *testing.T) {
	pub := &fakePublisher{}
	directory := &fakeDirectory{staff: []models.Staff{
		{ID: 2, Name: "Ana", Role: models.RoleManager},
		{ID: 9, Name: "Bo", Role: models.RoleAdmin},
	}}
	events := NewEvents(pub, directory, logger.New("notifier-test"))

	events.LowStock(context.Background(), &inventory.StockChange{
		MenuItemID: 1, MenuItemName: "Nasi Goreng", Unit: "portion", NewStock: 3, Threshold: 4,
	})

	var msg models.LowStockMessage
	require.NoError(t, json.Unmarshal(pub.lastEnvelope(t).Payload, &msg))
	assert.Equal(t, []int{2, 9}, msg.ManagerIDs)
}

func TestEnqueueDeductionPropagatesFailure(t *testing.T) {
	pub := &fakePublisher{fail: true}
	events := NewEvents(pub, nil, logger.New("notifier-test"))

	err := events.EnqueueDeduction(context.Background(), &models.DeductionTask{TaskID: "t1", OrderID: 7})
	require.Error(t, err)

	pub.fail = false
	require.NoError(t, events.EnqueueDeduction(context.Background(), &models.DeductionTask{TaskID: "t1", OrderID: 7}))
	assert.Len(t, pub.tasks, 1)
}

func TestNotificationFailuresDoNotPanic(t *testing.T) {
	pub := &fakePublisher{fail: true}
	events := NewEvents(pub, nil, logger.New("notifier-test"))

	events.OrderCreated(context.Background(), &models.Order{ID: 7, Number: "ORD-20260830-0001"})
	events.StatusChanged(context.Background(), &models.Order{ID: 7}, models.StatusPending, models.StatusConfirmed, nil)
	assert.Empty(t, pub.notifications)
}

func TestFormatTicketFiltersByArea(t *testing.T) {
	note := "no ice"
	msg := &models.OrderCreatedMessage{
		OrderNumber: "ORD-20260830-0001",
		Source:      models.SourcePOS,
		Items: []models.OrderItem{
			{Name: "Nasi Goreng", Quantity: 2, PrepArea: models.PrepAreaKitchen},
			{Name: "Es Teh", Quantity: 1, PrepArea: models.PrepAreaBar, SpecialInstructions: &note},
		},
	}

	kitchen := FormatTicket(DisplayKitchen, msg)
	assert.Contains(t, kitchen, "2x Nasi Goreng")
	assert.NotContains(t, kitchen, "Es Teh")

	bar := FormatTicket(DisplayBar, msg)
	assert.Contains(t, bar, "1x Es Teh (no ice)")
	assert.NotContains(t, bar, "Nasi Goreng")
}

func TestFormatEvent(t *testing.T) {
	ts := time.Date(2026, 8, 30, 12, 30, 0, 0, time.UTC)

	statusEnvelope, err := models.WrapNotification(models.EventStatusChanged, &models.StatusChangedMessage{
		OrderNumber: "ORD-20260830-0001",
		OldStatus:   models.StatusServed,
		NewStatus:   models.StatusPaid,
		Timestamp:   ts,
	})
	require.NoError(t, err)

	line, err := FormatEvent(statusEnvelope)
	require.NoError(t, err)
	assert.Equal(t, "[12:30:00] Order ORD-20260830-0001: served -> paid", line)

	stockEnvelope, err := models.WrapNotification(models.EventLowStock, &models.LowStockMessage{
		MenuItemName: "Nasi Goreng",
		CurrentStock: 3,
		Threshold:    4,
		Unit:         "portion",
		Timestamp:    ts,
	})
	require.NoError(t, err)

	line, err = FormatEvent(stockEnvelope)
	require.NoError(t, err)
	assert.Equal(t, "[12:30:00] LOW STOCK: Nasi Goreng down to 3 portion (threshold 4)", line)

	unknown := &models.NotificationEnvelope{Event: "mystery", Payload: []byte(`{}`)}
	line, err = FormatEvent(unknown)
	require.NoError(t, err)
	assert.Contains(t, line, "mystery")
}
