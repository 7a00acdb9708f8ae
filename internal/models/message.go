package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// OrderCreatedMessage announces a new order to the kitchen and bar displays
type OrderCreatedMessage struct {
	OrderID             int         `json:"order_id"`
	OrderNumber         string      `json:"order_number"`
	Source              OrderSource `json:"order_source"`
	TableID             *int        `json:"table_id,omitempty"`
	Items               []OrderItem `json:"items"`
	Total               float64     `json:"total"`
	SpecialInstructions *string     `json:"special_instructions,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
}

// StatusChangedMessage announces an accepted order status transition
type StatusChangedMessage struct {
	OrderID     int         `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	OldStatus   OrderStatus `json:"old_status"`
	NewStatus   OrderStatus `json:"new_status"`
	ChangedBy   *int        `json:"changed_by,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// ItemPrepUpdatedMessage announces a prep-status change for one order item
type ItemPrepUpdatedMessage struct {
	OrderID     int        `json:"order_id"`
	OrderNumber string     `json:"order_number"`
	OrderItemID int        `json:"order_item_id"`
	PrepArea    PrepArea   `json:"prep_area"`
	PrepStatus  PrepStatus `json:"prep_status"`
	Timestamp   time.Time  `json:"timestamp"`
}

// LowStockMessage alerts managers that an item crossed its low-stock threshold
type LowStockMessage struct {
	MenuItemID   int       `json:"menu_item_id"`
	MenuItemName string    `json:"menu_item_name"`
	CurrentStock int       `json:"current_stock"`
	Threshold    int       `json:"threshold"`
	Unit         string    `json:"unit"`
	ManagerIDs   []int     `json:"manager_ids,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// DeductionTask asks the inventory worker to deduct stock for an order.
// TaskID is an idempotency key; redelivery of the same order's task must
// not double-deduct.
type DeductionTask struct {
	TaskID      string    `json:"task_id"`
	OrderID     int       `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	ActorID     *int      `json:"actor_id,omitempty"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// Event names carried by the notification envelope
const (
	EventOrderCreated    = "order_created"
	EventStatusChanged   = "status_changed"
	EventItemPrepUpdated = "item_prep_updated"
	EventLowStock        = "low_stock"
)

// NotificationEnvelope wraps every message on the notifications fanout so
// one queue can carry all event types.
type NotificationEnvelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// WrapNotification builds an envelope around an event payload.
func WrapNotification(event string, payload interface{}) (*NotificationEnvelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	return &NotificationEnvelope{Event: event, Payload: body}, nil
}

// OrderRoutingKey generates the routing key an order created message is
// published under, so dedicated kitchen and bar queues can filter on it.
func OrderRoutingKey(area PrepArea, source OrderSource) string {
	return fmt.Sprintf("%s.%s", area, source)
}
