package domain

import "time"

// Token is a point-in-time market snapshot of a token.
// Snapshots are never mutated; a newer observation replaces the older one.
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	ChainID  Chain  `json:"chainId"`
	Decimals uint8  `json:"decimals"`

	PriceNative   float64 `json:"priceNative"`  // price in the chain's native asset
	PriceUSD      float64 `json:"priceUsd"`     // price in quote currency
	LiquidityUSD  float64 `json:"liquidityUsd"` // pool liquidity in quote currency
	Volume24hUSD  float64 `json:"volume24hUsd"`
	PriceChange5m float64 `json:"priceChange5m"` // percent
	PriceChange1h float64 `json:"priceChange1h"` // percent
	Buys5m        int     `json:"buys5m"`
	Sells5m       int     `json:"sells5m"`

	PairAddress string    `json:"pairAddress"`
	DexID       string    `json:"dexId"`
	AgeMinutes  float64   `json:"ageMinutes"` // minutes since first liquidity
	ObservedAt  time.Time `json:"observedAt"`
}

// TokenSnapshot is one scanner observation of a token with its scores.
type TokenSnapshot struct {
	Token
	SafetyScore    int     `json:"safetyScore"` // -1 when the safety check did not run
	SafetyGrade    Grade   `json:"safetyGrade,omitempty"`
	CompositeScore float64 `json:"compositeScore"`
}
