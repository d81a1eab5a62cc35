package safety

import (
	"context"

	"solana-token-sniper/internal/dexscreener"
	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/jupiter"
	"solana-token-sniper/internal/rugcheck"
)

// Quoter returns swap quotes; *jupiter.Client implements it.
type Quoter interface {
	Quote(ctx context.Context, req jupiter.QuoteRequest) (*domain.Quote, error)
}

// PairSource returns the deepest pool of a token; *dexscreener.Client implements it.
type PairSource interface {
	BestPair(ctx context.Context, address string, chain domain.Chain) (*dexscreener.Pair, error)
}

// RugReporter returns an explicit honeypot verdict for a mint, or an error
// wrapping rugcheck.ErrNoVerdict; *rugcheck.Client implements it.
type RugReporter interface {
	Honeypot(ctx context.Context, mint string) (*domain.HoneypotResult, error)
}

var (
	_ Quoter      = (*jupiter.Client)(nil)
	_ PairSource  = (*dexscreener.Client)(nil)
	_ RugReporter = (*rugcheck.Client)(nil)
)
