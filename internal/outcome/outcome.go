// Package outcome publishes closed trades to the external learning loop.
package outcome

import (
	"context"
	"time"

	"solana-token-sniper/internal/domain"
)

// Outcome is the message published when an execution closes.
type Outcome struct {
	ExecutionID       string           `json:"executionId"`
	OrderID           string           `json:"orderId"`
	UserID            string           `json:"userId"`
	TokenAddress      string           `json:"tokenAddress"`
	OrderType         domain.OrderType `json:"orderType"`
	EntryPrice        float64          `json:"entryPrice"`
	ExitPrice         float64          `json:"exitPrice"`
	AmountInNative    float64          `json:"amountInNative"`
	AmountOutNative   float64          `json:"amountOutNative"`
	PnLNative         float64          `json:"pnlNative"`
	PnLPercent        float64          `json:"pnlPercent"`
	ExitReason        string           `json:"exitReason"`
	Win               bool             `json:"win"`
	ConsecutiveLosses int              `json:"consecutiveLosses"`
	HoldSeconds       float64          `json:"holdSeconds"`
	ClosedAt          time.Time        `json:"closedAt"`
}

// FromExecution builds the outcome of a closed execution.
func FromExecution(o *domain.Order, e *domain.Execution) Outcome {
	out := Outcome{
		ExecutionID:       e.ID,
		OrderID:           e.OrderID,
		TokenAddress:      e.TokenAddress,
		EntryPrice:        e.Entry.Price,
		AmountInNative:    e.Entry.AmountNative,
		Win:               e.IsWin(),
		ConsecutiveLosses: o.ConsecutiveLosses,
		UserID:            o.UserID,
		OrderType:         o.Type,
	}
	if e.Exit != nil {
		out.ExitPrice = e.Exit.Price
		out.AmountOutNative = e.Exit.AmountNative
		out.ExitReason = e.Exit.Reason
	}
	if e.PnL != nil {
		out.PnLNative = e.PnL.Native
		out.PnLPercent = e.PnL.Percent
	}
	if e.ClosedAt != nil {
		out.ClosedAt = *e.ClosedAt
		out.HoldSeconds = e.ClosedAt.Sub(e.CreatedAt).Seconds()
	}
	return out
}

// Publisher sends outcomes downstream.
type Publisher interface {
	PublishOutcome(ctx context.Context, o Outcome) error
}

// NopPublisher drops every outcome.
type NopPublisher struct{}

// PublishOutcome does nothing.
func (NopPublisher) PublishOutcome(context.Context, Outcome) error { return nil }
