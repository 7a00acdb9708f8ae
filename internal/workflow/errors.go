package workflow

import (
	"errors"
	"fmt"

	"smart-dining/internal/models"
)

// ErrorKind classifies a workflow failure so callers can map it to the
// right surface behavior without parsing messages.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindNotFound            ErrorKind = "not_found"
	KindInvalidTransition   ErrorKind = "invalid_transition"
	KindItemsNotReady       ErrorKind = "items_not_ready"
	KindInsufficientPayment ErrorKind = "insufficient_payment"
	KindInsufficientStock   ErrorKind = "insufficient_stock"
	KindConflict            ErrorKind = "conflict"
	KindInvariant           ErrorKind = "invariant_violation"
)

// Error is a structured workflow failure. Business-rule violations are
// always recoverable by the caller choosing a different action; invariant
// violations are not and are logged at high severity where they occur.
type Error struct {
	Kind    ErrorKind
	Message string
	OrderID int
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf returns the workflow error kind of err, or "" if err is not a
// workflow error.
func KindOf(err error) ErrorKind {
	var wfErr *Error
	if errors.As(err, &wfErr) {
		return wfErr.Kind
	}
	return ""
}

// ErrValidation reports malformed or missing input.
func ErrValidation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// ErrOrderNotFound reports a reference to a nonexistent order.
func ErrOrderNotFound(orderID int) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("order #%d not found", orderID),
		OrderID: orderID,
	}
}

// ErrMenuItemNotFound reports a reference to a nonexistent menu item.
func ErrMenuItemNotFound(menuItemID int) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("menu item #%d not found", menuItemID),
	}
}

// ErrInvalidTransition names both statuses so the rejection can be
// surfaced verbatim.
func ErrInvalidTransition(orderID int, current, requested models.OrderStatus) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("invalid status transition from '%s' to '%s'", current, requested),
		OrderID: orderID,
	}
}

// ErrItemsNotReady rejects a ready transition while items are still in prep.
func ErrItemsNotReady(orderID int, notReady int) *Error {
	return &Error{
		Kind:    KindItemsNotReady,
		Message: fmt.Sprintf("order #%d cannot be marked as ready: %d item(s) not yet ready", orderID, notReady),
		OrderID: orderID,
	}
}

// ErrInsufficientPayment states the shortfall.
func ErrInsufficientPayment(orderID int, paid, required float64) *Error {
	return &Error{
		Kind: KindInsufficientPayment,
		Message: fmt.Sprintf("order #%d cannot be marked as paid: total paid %.2f, required %.2f (short %.2f)",
			orderID, paid, required, required-paid),
		OrderID: orderID,
	}
}

// ErrInsufficientStock names the item and the quantity actually available.
func ErrInsufficientStock(itemName string, available int, unit string) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for %s: only %d %s available", itemName, available, unit),
	}
}

// ErrConflict reports that a concurrent transition won the race; the caller
// should re-read the order and retry if still applicable.
func ErrConflict(orderID int) *Error {
	return &Error{
		Kind:    KindConflict,
		Message: fmt.Sprintf("order #%d was modified concurrently, retry the transition", orderID),
		OrderID: orderID,
	}
}

// ErrInvariant wraps a state corruption that prior checks should have made
// impossible, such as a stock level about to go negative.
func ErrInvariant(cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindInvariant,
		Message: fmt.Sprintf(format, args...),
		cause:   cause,
	}
}
