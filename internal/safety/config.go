// Package safety runs the multi-check token risk assessment.
package safety

import (
	"time"

	"solana-token-sniper/internal/domain"
)

// Config holds thresholds for a safety check.
type Config struct {
	MaxTop10HoldersPercent float64
	MinLiquidityUSD        float64
	MaxSellTax             float64 // percent
	MaxBuyTax              float64 // percent
	RequireLiquidityLocked bool
	MinHolders             int

	// CreatorHighRisk is the creator score at or above which a warning is raised.
	CreatorHighRisk int
	// CheckTimeout bounds each individual sub-check.
	CheckTimeout time.Duration
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		MaxTop10HoldersPercent: 50,
		MinLiquidityUSD:        5000,
		MaxSellTax:             10,
		MaxBuyTax:              10,
		RequireLiquidityLocked: true,
		MinHolders:             15,
		CreatorHighRisk:        70,
		CheckTimeout:           8 * time.Second,
	}
}

// Validate rejects out-of-range thresholds.
func (c Config) Validate() error {
	if c.MaxTop10HoldersPercent <= 0 || c.MaxTop10HoldersPercent > 100 {
		return domain.Validationf("max top10 holders percent must be in (0,100], got %v", c.MaxTop10HoldersPercent)
	}
	if c.MinLiquidityUSD < 0 {
		return domain.Validationf("min liquidity must be non-negative")
	}
	if c.MaxSellTax < 0 || c.MaxSellTax > 100 || c.MaxBuyTax < 0 || c.MaxBuyTax > 100 {
		return domain.Validationf("tax thresholds must be in [0,100]")
	}
	if c.MinHolders < 0 {
		return domain.Validationf("min holders must be non-negative")
	}
	return nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CheckTimeout <= 0 {
		c.CheckTimeout = d.CheckTimeout
	}
	if c.CreatorHighRisk <= 0 {
		c.CreatorHighRisk = d.CreatorHighRisk
	}
	return c
}
