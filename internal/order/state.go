// Package order owns the lifecycle of limit, snipe and auto orders.
package order

import (
	"errors"

	"solana-token-sniper/internal/domain"
)

var (
	// ErrInvalidTransition is returned when a status change is not on the graph.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrTerminal is returned when an operation targets a finished order.
	ErrTerminal = errors.New("order is in a terminal status")
)

// transitions lists forward edges. CANCELLED is handled separately.
var transitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:        {domain.OrderStatusWatching, domain.OrderStatusReadyToExecute},
	domain.OrderStatusWatching:       {domain.OrderStatusReadyToExecute},
	domain.OrderStatusReadyToExecute: {domain.OrderStatusFilledEntry},
	domain.OrderStatusFilledEntry:    {domain.OrderStatusReadyToExit, domain.OrderStatusReadyToStop},
	domain.OrderStatusReadyToExit:    {domain.OrderStatusFilledExit},
	domain.OrderStatusReadyToStop:    {domain.OrderStatusStoppedOut},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to domain.OrderStatus) bool {
	if to == domain.OrderStatusCancelled {
		return from.IsValid() && !from.IsTerminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Evaluate returns the status an order should move to at the given price.
// PENDING orders that do not fire move to WATCHING so a sweep marks them seen.
// For FILLED_ENTRY the stop is checked before the exit target.
func Evaluate(o *domain.Order, price float64) (domain.OrderStatus, bool) {
	if price <= 0 {
		return o.Status, false
	}

	switch o.Status {
	case domain.OrderStatusPending, domain.OrderStatusWatching:
		if price <= o.EntryPrice {
			return domain.OrderStatusReadyToExecute, true
		}
		if o.Status == domain.OrderStatusPending {
			return domain.OrderStatusWatching, true
		}
	case domain.OrderStatusFilledEntry:
		if o.StopLoss != nil && price <= *o.StopLoss {
			return domain.OrderStatusReadyToStop, true
		}
		if o.ExitPrice != nil && price >= *o.ExitPrice {
			return domain.OrderStatusReadyToExit, true
		}
	}
	return o.Status, false
}
