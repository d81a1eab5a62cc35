package domain

import (
	"encoding/json"
	"time"
)

// RouteStep is one hop of a swap route.
type RouteStep struct {
	AMMKey     string
	Label      string
	InputMint  string
	OutputMint string
	InAmount   uint64
	OutAmount  uint64
	Percent    int
}

// Quote is a swap quote from the aggregator. Quotes go stale quickly and
// must be re-fetched before building a transaction from an old one.
type Quote struct {
	InputMint            string
	OutputMint           string
	InAmount             uint64
	OutAmount            uint64
	OtherAmountThreshold uint64
	PriceImpactPct       float64 // percent
	SlippageBps          int
	RoutePlan            []RouteStep
	ContextSlot          uint64
	FetchedAt            time.Time

	// Raw holds the aggregator's response verbatim; the swap endpoint expects it back.
	Raw json.RawMessage
}

// IsStale reports whether the quote is older than maxAge.
func (q *Quote) IsStale(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return now.Sub(q.FetchedAt) > maxAge
}

// Dex returns the label of the first route hop, or empty.
func (q *Quote) Dex() string {
	if len(q.RoutePlan) == 0 {
		return ""
	}
	return q.RoutePlan[0].Label
}
