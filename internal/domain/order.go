package domain

import "time"

// OrderType is the kind of order.
type OrderType string

const (
	OrderTypeSnipe OrderType = "snipe"
	OrderTypeLimit OrderType = "limit"
	OrderTypeAuto  OrderType = "auto"
)

// IsValid reports whether the order type is known.
func (t OrderType) IsValid() bool {
	switch t {
	case OrderTypeSnipe, OrderTypeLimit, OrderTypeAuto:
		return true
	}
	return false
}

// OrderStatus is the persisted lifecycle state of an order.
// Values are stored and exposed verbatim and are case-sensitive.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusWatching       OrderStatus = "WATCHING"
	OrderStatusReadyToExecute OrderStatus = "READY_TO_EXECUTE"
	OrderStatusFilledEntry    OrderStatus = "FILLED_ENTRY"
	OrderStatusReadyToExit    OrderStatus = "READY_TO_EXIT"
	OrderStatusReadyToStop    OrderStatus = "READY_TO_STOP"
	OrderStatusFilledExit     OrderStatus = "FILLED_EXIT"
	OrderStatusStoppedOut     OrderStatus = "STOPPED_OUT"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// OrderStatuses lists every status.
var OrderStatuses = []OrderStatus{
	OrderStatusPending, OrderStatusWatching, OrderStatusReadyToExecute,
	OrderStatusFilledEntry, OrderStatusReadyToExit, OrderStatusReadyToStop,
	OrderStatusFilledExit, OrderStatusStoppedOut, OrderStatusCancelled,
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilledExit, OrderStatusStoppedOut, OrderStatusCancelled:
		return true
	}
	return false
}

// IsReady reports whether the order waits for an external fill.
func (s OrderStatus) IsReady() bool {
	switch s {
	case OrderStatusReadyToExecute, OrderStatusReadyToExit, OrderStatusReadyToStop:
		return true
	}
	return false
}

// IsMonitored reports whether the periodic sweep evaluates orders in this status.
func (s OrderStatus) IsMonitored() bool {
	return !s.IsTerminal() && !s.IsReady()
}

// IsValid reports whether the status is known.
func (s OrderStatus) IsValid() bool {
	for _, st := range OrderStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// MonitoredStatuses lists statuses evaluated by the sweep.
var MonitoredStatuses = []OrderStatus{
	OrderStatusPending, OrderStatusWatching, OrderStatusFilledEntry,
}

// Order is a persisted limit/snipe order.
// Status is the only concurrency guard: every status write is a compare-and-set.
type Order struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	WalletAddress string    `json:"walletAddress"`
	TokenAddress  string    `json:"tokenAddress"`
	Type          OrderType `json:"type"`

	EntryPrice      float64  `json:"entryPrice"`          // buy at or below
	ExitPrice       *float64 `json:"exitPrice,omitempty"` // take profit at or above (nullable)
	StopLoss        *float64 `json:"stopLoss,omitempty"`  // stop at or below (nullable)
	BuyAmountNative float64  `json:"buyAmountNative"`     // SOL per entry

	Status             OrderStatus `json:"status"`
	TradesExecuted     int         `json:"tradesExecuted"`
	MaxTradesRemaining *int        `json:"maxTradesRemaining,omitempty"` // auto mode only
	ConsecutiveLosses  int         `json:"consecutiveLosses"`

	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	FilledEntryAt *time.Time `json:"filledEntryAt,omitempty"`
	FilledExitAt  *time.Time `json:"filledExitAt,omitempty"`
}
