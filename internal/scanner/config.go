package scanner

import (
	"fmt"
	"time"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/safety"
)

// Config holds scanner filters.
type Config struct {
	Chain            domain.Chain
	MinAgeMinutes    float64
	MaxAgeMinutes    float64
	MinLiquidityUSD  float64
	MinPriceChange5m float64 // absolute percent
	ItemDelay        time.Duration
	MaxCandidates    int // 0 keeps all
	Safety           safety.Config
}

// DefaultConfig returns filters tuned for freshly launched tokens.
func DefaultConfig() Config {
	return Config{
		Chain:            domain.ChainSolana,
		MinAgeMinutes:    5,
		MaxAgeMinutes:    240,
		MinLiquidityUSD:  10_000,
		MinPriceChange5m: 2,
		ItemDelay:        300 * time.Millisecond,
		MaxCandidates:    20,
		Safety:           safety.DefaultConfig(),
	}
}

// Validate checks the filter bounds.
func (c Config) Validate() error {
	if c.MinAgeMinutes < 0 || c.MaxAgeMinutes < c.MinAgeMinutes {
		return fmt.Errorf("age window [%v, %v] is invalid", c.MinAgeMinutes, c.MaxAgeMinutes)
	}
	if c.MinLiquidityUSD < 0 {
		return fmt.Errorf("min liquidity must be non-negative")
	}
	if c.MinPriceChange5m < 0 {
		return fmt.Errorf("min 5m price change must be non-negative")
	}
	if c.ItemDelay < 0 {
		return fmt.Errorf("item delay must be non-negative")
	}
	return nil
}
