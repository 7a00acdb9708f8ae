package notifier

import (
	"context"
	"fmt"
	"time"

	"smart-dining/internal/inventory"
	"smart-dining/internal/logger"
	"smart-dining/internal/models"
)

// publisher is the slice of the messaging publisher the notifier uses.
type publisher interface {
	PublishOrder(ctx context.Context, orderMsg interface{}, routingKey string) error
	PublishDeductionTask(ctx context.Context, task interface{}) error
	PublishNotification(ctx context.Context, notificationMsg interface{}) error
}

// ManagerDirectory resolves the staff members low-stock alerts address.
type ManagerDirectory interface {
	ActiveManagers(ctx context.Context) ([]models.Staff, error)
}

// Events publishes workflow events to the displays and hands deduction
// tasks to the inventory worker. All notification methods are best-effort:
// failures are logged and never propagate back into the workflow.
type Events struct {
	publisher publisher
	managers  ManagerDirectory
	logger    *logger.Logger
}

// NewEvents creates the event notifier. managers may be nil; low-stock
// alerts then carry no recipient list.
func NewEvents(pub publisher, managers ManagerDirectory, log *logger.Logger) *Events {
	return &Events{publisher: pub, managers: managers, logger: log}
}

// routingArea aggregates the prep areas of an order's items into the single
// area its ticket is routed under. A mixed order routes as "both" so the
// kitchen and bar displays each receive it.
func routingArea(items []models.OrderItem) models.PrepArea {
	var kitchen, bar bool
	for _, item := range items {
		switch item.PrepArea {
		case models.PrepAreaKitchen:
			kitchen = true
		case models.PrepAreaBar:
			bar = true
		case models.PrepAreaBoth:
			kitchen, bar = true, true
		}
	}
	switch {
	case kitchen && bar:
		return models.PrepAreaBoth
	case bar:
		return models.PrepAreaBar
	default:
		return models.PrepAreaKitchen
	}
}

// OrderCreated publishes the order ticket to the display queues and the
// created event to the notifications fanout.
func (e *Events) OrderCreated(ctx context.Context, order *models.Order) {
	msg := &models.OrderCreatedMessage{
		OrderID:             order.ID,
		OrderNumber:         order.Number,
		Source:              order.Source,
		TableID:             order.TableID,
		Items:               order.Items,
		Total:               order.Total,
		SpecialInstructions: order.SpecialInstructions,
		CreatedAt:           order.CreatedAt,
	}

	routingKey := models.OrderRoutingKey(routingArea(order.Items), order.Source)
	if err := e.publisher.PublishOrder(ctx, msg, routingKey); err != nil {
		e.logger.Error("order_publish_failed", "Failed to publish order to displays", "", err, map[string]interface{}{
			"order_number": order.Number,
			"routing_key":  routingKey,
		})
	}

	e.fanout(ctx, models.EventOrderCreated, msg, order.Number)
}

// StatusChanged publishes a status transition event.
func (e *Events) StatusChanged(ctx context.Context, order *models.Order, old, new models.OrderStatus, actorID *int) {
	msg := &models.StatusChangedMessage{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		OldStatus:   old,
		NewStatus:   new,
		ChangedBy:   actorID,
		Timestamp:   time.Now().UTC(),
	}
	e.fanout(ctx, models.EventStatusChanged, msg, order.Number)
}

// ItemPrepUpdated publishes a prep-status change for one order item.
func (e *Events) ItemPrepUpdated(ctx context.Context, order *models.Order, item *models.OrderItem) {
	msg := &models.ItemPrepUpdatedMessage{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		OrderItemID: item.ID,
		PrepArea:    item.PrepArea,
		PrepStatus:  item.PrepStatus,
		Timestamp:   time.Now().UTC(),
	}
	e.fanout(ctx, models.EventItemPrepUpdated, msg, order.Number)
}

// LowStock alerts the displays that an item crossed its low-stock threshold.
func (e *Events) LowStock(ctx context.Context, change *inventory.StockChange) {
	msg := &models.LowStockMessage{
		MenuItemID:   change.MenuItemID,
		MenuItemName: change.MenuItemName,
		CurrentStock: change.NewStock,
		Threshold:    change.Threshold,
		Unit:         change.Unit,
		ManagerIDs:   e.managerIDs(ctx),
		Timestamp:    time.Now().UTC(),
	}
	e.fanout(ctx, models.EventLowStock, msg, fmt.Sprintf("menu item #%d", change.MenuItemID))
}

// EnqueueDeduction publishes a stock deduction task to the inventory queue.
// Unlike the notification methods this is not best-effort: the caller falls
// back to inline deduction when the enqueue fails.
func (e *Events) EnqueueDeduction(ctx context.Context, task *models.DeductionTask) error {
	return e.publisher.PublishDeductionTask(ctx, task)
}

// managerIDs resolves the alert recipients. An empty list degrades the
// alert to broadcast-only, never blocks it.
func (e *Events) managerIDs(ctx context.Context) []int {
	if e.managers == nil {
		return nil
	}
	staff, err := e.managers.ActiveManagers(ctx)
	if err != nil {
		e.logger.Error("manager_lookup_failed", "Failed to resolve low-stock alert recipients", "", err, nil)
		return nil
	}
	ids := make([]int, 0, len(staff))
	for _, s := range staff {
		ids = append(ids, s.ID)
	}
	return ids
}

func (e *Events) fanout(ctx context.Context, event string, payload interface{}, subject string) {
	envelope, err := models.WrapNotification(event, payload)
	if err != nil {
		e.logger.Error("notification_marshal_failed", "Failed to build notification envelope", "", err, map[string]interface{}{
			"event": event,
		})
		return
	}

	if err := e.publisher.PublishNotification(ctx, envelope); err != nil {
		e.logger.Error("notification_publish_failed", fmt.Sprintf("Failed to publish %s notification", event), "", err, map[string]interface{}{
			"event":   event,
			"subject": subject,
		})
	}
}
