package domain

import "time"

// ExecutionStatus is the state of an execution in the trade ledger.
type ExecutionStatus string

const (
	ExecutionStatusHolding ExecutionStatus = "holding"
	ExecutionStatusClosed  ExecutionStatus = "closed"
)

// Exit reasons recorded on the exit leg.
const (
	ExitReasonTakeProfit = "take_profit"
	ExitReasonStopLoss   = "stop_loss"
	ExitReasonManual     = "manual"
)

// ExecutionLeg is one side of a round trip.
type ExecutionLeg struct {
	Price        float64 `json:"price"`
	AmountNative float64 `json:"amountNative"` // SOL spent (entry) or received (exit)
	TxRef        string  `json:"txRef"`        // transaction signature
	Reason       string  `json:"reason"`       // exit only
}

// PnL is the realised profit of a closed execution.
type PnL struct {
	Native  float64 `json:"native"`
	Quote   float64 `json:"quote"`
	Percent float64 `json:"percent"`
}

// Execution records a filled order in the trade ledger.
// Created when the entry fills; closed when the exit or stop fills.
type Execution struct {
	ID           string          `json:"id"`
	OrderID      string          `json:"orderId"`
	TokenAddress string          `json:"tokenAddress"`
	Dex          string          `json:"dex"`
	Entry        ExecutionLeg    `json:"entry"`
	Exit         *ExecutionLeg   `json:"exit,omitempty"`
	PnL          *PnL            `json:"pnl,omitempty"`
	Status       ExecutionStatus `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	ClosedAt     *time.Time      `json:"closedAt,omitempty"`
}

// IsWin reports whether the execution closed in profit.
func (e *Execution) IsWin() bool {
	return e.PnL != nil && e.PnL.Native > 0
}
