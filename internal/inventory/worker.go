package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	"smart-dining/internal/logger"
	"smart-dining/internal/messaging"
	"smart-dining/internal/models"
)

// OrderGetter loads an order with its items for deduction.
type OrderGetter interface {
	Get(ctx context.Context, orderID int) (*models.Order, error)
}

// Worker consumes deduction tasks from the inventory queue and applies them
// through the ledger. Because the ledger is idempotent per (order, menu
// item), redelivered tasks are harmless.
type Worker struct {
	consumer *messaging.Consumer
	orders   OrderGetter
	ledger   *Ledger
	logger   *logger.Logger
}

// NewWorker creates an inventory worker.
func NewWorker(consumer *messaging.Consumer, orders OrderGetter, ledger *Ledger, log *logger.Logger) *Worker {
	return &Worker{
		consumer: consumer,
		orders:   orders,
		ledger:   ledger,
		logger:   log,
	}
}

// Start consumes deduction tasks until the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	w.logger.Info("worker_started", "Inventory worker started", requestID, nil)
	return w.consumer.StartConsuming(ctx, w.handleTask)
}

// handleTask processes one deduction task. Returning an error nacks and
// requeues the task; the at-least-once delivery combined with ledger
// idempotency guarantees the deduction eventually applies exactly once.
func (w *Worker) handleTask(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var task models.DeductionTask
	if err := json.Unmarshal(body, &task); err != nil {
		w.logger.Error("message_parsing_failed", "Failed to parse deduction task", requestID, err, nil)
		return fmt.Errorf("failed to parse deduction task: %w", err)
	}

	w.logger.Debug("deduction_task_received", fmt.Sprintf("Deducting stock for order %s", task.OrderNumber), requestID, map[string]interface{}{
		"task_id":  task.TaskID,
		"order_id": task.OrderID,
	})

	order, err := w.orders.Get(ctx, task.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order #%d: %w", task.OrderID, err)
	}
	if order == nil {
		// The order is gone; requeueing cannot help.
		w.logger.Error("order_not_found", "Dropping deduction task for missing order", requestID, nil, map[string]interface{}{
			"task_id":  task.TaskID,
			"order_id": task.OrderID,
		})
		return nil
	}
	if order.Status == models.StatusCancelled {
		// The order was cancelled while the task sat in the queue; its
		// stock is already settled, so the task is dropped.
		w.logger.Info("deduction_task_dropped", fmt.Sprintf("Order %s was cancelled, dropping deduction task", order.Number), requestID, map[string]interface{}{
			"task_id":  task.TaskID,
			"order_id": task.OrderID,
		})
		return nil
	}

	if err := w.ledger.DeductOrder(ctx, order, task.ActorID, requestID); err != nil {
		return fmt.Errorf("failed to deduct stock for order #%d: %w", task.OrderID, err)
	}

	return nil
}

// Close stops the worker's consumer.
func (w *Worker) Close() error {
	return w.consumer.Close()
}
