package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"smart-dining/internal/logger"
	"smart-dining/internal/messaging"
	"smart-dining/internal/models"
)

// DisplayKind selects which queue a display drains and how it renders.
type DisplayKind string

const (
	// DisplayKitchen and DisplayBar render order tickets for their prep area.
	DisplayKitchen DisplayKind = "kitchen"
	DisplayBar     DisplayKind = "bar"
	// DisplayNotifications renders the event stream for the waiter station.
	DisplayNotifications DisplayKind = "notifications"
)

// Display consumes a display queue and prints human-readable output to the
// console while logging the structured event.
type Display struct {
	kind     DisplayKind
	consumer *messaging.Consumer
	logger   *logger.Logger

	shutdown chan os.Signal
	done     chan bool
}

// NewDisplay creates a display subscriber over an already-bound consumer.
func NewDisplay(kind DisplayKind, consumer *messaging.Consumer, log *logger.Logger) *Display {
	return &Display{
		kind:     kind,
		consumer: consumer,
		logger:   log,
		shutdown: make(chan os.Signal, 1),
		done:     make(chan bool, 1),
	}
}

// Start consumes until the context ends or a termination signal arrives.
func (d *Display) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()

	signal.Notify(d.shutdown, syscall.SIGINT, syscall.SIGTERM)

	d.logger.Info("service_started", fmt.Sprintf("%s display started", d.kind), requestID, nil)

	go func() {
		if err := d.consumer.StartConsuming(ctx, d.handleMessage); err != nil {
			d.logger.Error("consumer_failed", "Display consumer failed", requestID, err, nil)
		}
		d.done <- true
	}()

	select {
	case <-d.shutdown:
		d.logger.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		return d.gracefulShutdown(requestID)
	case <-d.done:
		return nil
	}
}

func (d *Display) handleMessage(ctx context.Context, body []byte) error {
	if d.kind == DisplayNotifications {
		return d.handleEvent(body)
	}
	return d.handleTicket(body)
}

// handleTicket renders an order ticket, limited to the items this display's
// prep area is responsible for.
func (d *Display) handleTicket(body []byte) error {
	requestID := logger.GenerateRequestID()

	var msg models.OrderCreatedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		d.logger.Error("message_parsing_failed", "Failed to parse order message", requestID, err, nil)
		return fmt.Errorf("failed to parse order message: %w", err)
	}

	fmt.Println(FormatTicket(d.kind, &msg))

	d.logger.Info("ticket_displayed", fmt.Sprintf("Order %s displayed", msg.OrderNumber), requestID, map[string]interface{}{
		"order_number": msg.OrderNumber,
		"order_source": msg.Source,
		"item_count":   len(msg.Items),
	})

	return nil
}

// handleEvent renders one entry of the notifications fanout.
func (d *Display) handleEvent(body []byte) error {
	requestID := logger.GenerateRequestID()

	var envelope models.NotificationEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		d.logger.Error("message_parsing_failed", "Failed to parse notification envelope", requestID, err, nil)
		return fmt.Errorf("failed to parse notification: %w", err)
	}

	line, err := FormatEvent(&envelope)
	if err != nil {
		d.logger.Error("message_parsing_failed", "Failed to parse notification payload", requestID, err, map[string]interface{}{
			"event": envelope.Event,
		})
		return err
	}

	fmt.Println(line)

	d.logger.Debug("notification_displayed", "Notification displayed", requestID, map[string]interface{}{
		"event": envelope.Event,
	})

	return nil
}

// FormatTicket renders an order ticket for a kitchen or bar display.
func FormatTicket(kind DisplayKind, msg *models.OrderCreatedMessage) string {
	var b strings.Builder

	table := "takeaway"
	if msg.TableID != nil {
		table = fmt.Sprintf("table %d", *msg.TableID)
	}
	fmt.Fprintf(&b, "=== Order %s (%s, %s) ===\n", msg.OrderNumber, msg.Source, table)

	for _, item := range msg.Items {
		if !itemForDisplay(kind, item.PrepArea) {
			continue
		}
		fmt.Fprintf(&b, "  %dx %s", item.Quantity, item.Name)
		if item.SpecialInstructions != nil && *item.SpecialInstructions != "" {
			fmt.Fprintf(&b, " (%s)", *item.SpecialInstructions)
		}
		b.WriteString("\n")
	}

	if msg.SpecialInstructions != nil && *msg.SpecialInstructions != "" {
		fmt.Fprintf(&b, "  Note: %s\n", *msg.SpecialInstructions)
	}

	return strings.TrimRight(b.String(), "\n")
}

// itemForDisplay reports whether an item of the given prep area belongs on
// this display.
func itemForDisplay(kind DisplayKind, area models.PrepArea) bool {
	switch kind {
	case DisplayKitchen:
		return area == models.PrepAreaKitchen || area == models.PrepAreaBoth
	case DisplayBar:
		return area == models.PrepAreaBar || area == models.PrepAreaBoth
	default:
		return true
	}
}

// FormatEvent renders one notification envelope as a human-readable line.
func FormatEvent(envelope *models.NotificationEnvelope) (string, error) {
	switch envelope.Event {
	case models.EventOrderCreated:
		var msg models.OrderCreatedMessage
		if err := json.Unmarshal(envelope.Payload, &msg); err != nil {
			return "", fmt.Errorf("failed to parse %s payload: %w", envelope.Event, err)
		}
		return fmt.Sprintf("[%s] New order %s: %d item(s), total %.2f",
			msg.CreatedAt.Format("15:04:05"), msg.OrderNumber, len(msg.Items), msg.Total), nil

	case models.EventStatusChanged:
		var msg models.StatusChangedMessage
		if err := json.Unmarshal(envelope.Payload, &msg); err != nil {
			return "", fmt.Errorf("failed to parse %s payload: %w", envelope.Event, err)
		}
		return fmt.Sprintf("[%s] Order %s: %s -> %s",
			msg.Timestamp.Format("15:04:05"), msg.OrderNumber, msg.OldStatus, msg.NewStatus), nil

	case models.EventItemPrepUpdated:
		var msg models.ItemPrepUpdatedMessage
		if err := json.Unmarshal(envelope.Payload, &msg); err != nil {
			return "", fmt.Errorf("failed to parse %s payload: %w", envelope.Event, err)
		}
		return fmt.Sprintf("[%s] Order %s item #%d (%s) is now %s",
			msg.Timestamp.Format("15:04:05"), msg.OrderNumber, msg.OrderItemID, msg.PrepArea, msg.PrepStatus), nil

	case models.EventLowStock:
		var msg models.LowStockMessage
		if err := json.Unmarshal(envelope.Payload, &msg); err != nil {
			return "", fmt.Errorf("failed to parse %s payload: %w", envelope.Event, err)
		}
		return fmt.Sprintf("[%s] LOW STOCK: %s down to %d %s (threshold %d)",
			msg.Timestamp.Format("15:04:05"), msg.MenuItemName, msg.CurrentStock, msg.Unit, msg.Threshold), nil

	default:
		return fmt.Sprintf("Unknown event '%s'", envelope.Event), nil
	}
}

func (d *Display) gracefulShutdown(requestID string) error {
	d.logger.Info("graceful_shutdown", "Starting graceful shutdown", requestID, nil)

	if d.consumer != nil {
		d.consumer.Close()
	}

	d.logger.Info("graceful_shutdown", "Graceful shutdown completed", requestID, nil)
	return nil
}
