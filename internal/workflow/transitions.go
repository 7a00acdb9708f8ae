package workflow

import "smart-dining/internal/models"

// transitions is the authoritative state machine for order status. The
// forward chain is strictly linear; cancellation is reachable from every
// non-terminal state and is handled separately in CanTransition so the
// table stays a pure forward map.
var transitions = map[models.OrderStatus]models.OrderStatus{
	models.StatusPending:   models.StatusConfirmed,
	models.StatusConfirmed: models.StatusPreparing,
	models.StatusPreparing: models.StatusReady,
	models.StatusReady:     models.StatusServed,
	models.StatusServed:    models.StatusPaid,
}

// CanTransition reports whether moving from current to next is legal.
// Requesting the current status again is not a transition and is rejected.
func CanTransition(current, next models.OrderStatus) bool {
	if next == models.StatusCancelled {
		return !current.IsTerminal()
	}
	return transitions[current] == next
}

// NextStatus returns the single legal forward status after current, or ""
// when current is terminal.
func NextStatus(current models.OrderStatus) models.OrderStatus {
	return transitions[current]
}

// ValidTransitionsFrom lists every status reachable from current,
// cancellation included.
func ValidTransitionsFrom(current models.OrderStatus) []models.OrderStatus {
	var next []models.OrderStatus
	if forward, ok := transitions[current]; ok {
		next = append(next, forward)
	}
	if !current.IsTerminal() {
		next = append(next, models.StatusCancelled)
	}
	return next
}
