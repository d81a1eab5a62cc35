package scanner

import (
	"math"

	"solana-token-sniper/internal/domain"
)

// Composite score weights. They sum to 100.
const (
	weightSafety    = 50.0
	weightLiquidity = 20.0
	weightMomentum  = 15.0
	weightPressure  = 15.0

	// Liquidity and momentum saturate at these levels.
	liquidityCapUSD = 100_000.0
	momentumCapPct  = 20.0
)

// CompositeScore rates a token 0..100. A safetyScore below zero means the
// check did not run and contributes nothing.
func CompositeScore(t domain.Token, safetyScore int) float64 {
	score := 0.0
	if safetyScore > 0 {
		score += weightSafety * math.Min(float64(safetyScore), 100) / 100
	}
	score += weightLiquidity * saturate(t.LiquidityUSD, liquidityCapUSD)
	score += weightMomentum * saturate(t.PriceChange5m, momentumCapPct)
	score += weightPressure * buyPressure(t.Buys5m, t.Sells5m)
	return math.Round(score*100) / 100
}

func saturate(v, limit float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Min(v/limit, 1)
}

// buyPressure is the share of buys among recent transactions, 0.5 with no trades.
func buyPressure(buys, sells int) float64 {
	total := buys + sells
	if total <= 0 {
		return 0.5
	}
	return float64(buys) / float64(total)
}
