package dexscreener

import (
	"strconv"
	"time"

	"solana-token-sniper/internal/domain"
)

// PairsResponse is the body of /latest/dex/tokens/{address}.
type PairsResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []Pair `json:"pairs"`
}

// Pair is one trading pair.
type Pair struct {
	ChainID       string      `json:"chainId"`
	DexID         string      `json:"dexId"`
	URL           string      `json:"url"`
	PairAddress   string      `json:"pairAddress"`
	BaseToken     PairToken   `json:"baseToken"`
	QuoteToken    PairToken   `json:"quoteToken"`
	PriceNative   string      `json:"priceNative"`
	PriceUSD      string      `json:"priceUsd"`
	Txns          Txns        `json:"txns"`
	Volume        Volume      `json:"volume"`
	PriceChange   PriceChange `json:"priceChange"`
	Liquidity     *Liquidity  `json:"liquidity,omitempty"`
	FDV           float64     `json:"fdv"`
	PairCreatedAt int64       `json:"pairCreatedAt"` // unix millis
}

// PairToken identifies a side of the pair.
type PairToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Txns holds buy/sell counts per window.
type Txns struct {
	M5  BuysSells `json:"m5"`
	H1  BuysSells `json:"h1"`
	H24 BuysSells `json:"h24"`
}

// BuysSells counts.
type BuysSells struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// Volume in USD per window.
type Volume struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H24 float64 `json:"h24"`
}

// PriceChange in percent per window.
type PriceChange struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H24 float64 `json:"h24"`
}

// Liquidity of the pool.
type Liquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// TokenProfile is an entry of /token-profiles/latest/v1.
type TokenProfile struct {
	URL          string `json:"url"`
	ChainID      string `json:"chainId"`
	TokenAddress string `json:"tokenAddress"`
	Description  string `json:"description"`
}

// LiquidityUSD returns pool liquidity, zero when unreported.
func (p *Pair) LiquidityUSD() float64 {
	if p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.USD
}

// AgeMinutes returns minutes since the pair was created, zero when unknown.
func (p *Pair) AgeMinutes(now time.Time) float64 {
	if p.PairCreatedAt <= 0 {
		return 0
	}
	return now.Sub(time.UnixMilli(p.PairCreatedAt)).Minutes()
}

// Token converts the pair into a token snapshot of its base token.
func (p *Pair) Token(now time.Time) domain.Token {
	priceUSD, _ := strconv.ParseFloat(p.PriceUSD, 64)
	priceNative, _ := strconv.ParseFloat(p.PriceNative, 64)
	return domain.Token{
		Address:       p.BaseToken.Address,
		Symbol:        p.BaseToken.Symbol,
		Name:          p.BaseToken.Name,
		ChainID:       domain.Chain(p.ChainID),
		PriceNative:   priceNative,
		PriceUSD:      priceUSD,
		LiquidityUSD:  p.LiquidityUSD(),
		Volume24hUSD:  p.Volume.H24,
		PriceChange5m: p.PriceChange.M5,
		PriceChange1h: p.PriceChange.H1,
		Buys5m:        p.Txns.M5.Buys,
		Sells5m:       p.Txns.M5.Sells,
		PairAddress:   p.PairAddress,
		DexID:         p.DexID,
		AgeMinutes:    p.AgeMinutes(now),
		ObservedAt:    now,
	}
}

// BestPair returns the pair with the highest USD liquidity, or nil.
func BestPair(pairs []Pair) *Pair {
	var best *Pair
	for i := range pairs {
		if best == nil || pairs[i].LiquidityUSD() > best.LiquidityUSD() {
			best = &pairs[i]
		}
	}
	return best
}
