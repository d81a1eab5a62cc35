package dexscreener

import (
	"context"
	"fmt"
	"strconv"

	"solana-token-sniper/internal/domain"
)

// PriceSource reports the current USD price of a token from its deepest pool.
type PriceSource struct {
	client *Client
	chain  domain.Chain
}

// NewPriceSource creates a price source restricted to chain.
func NewPriceSource(client *Client, chain domain.Chain) *PriceSource {
	return &PriceSource{client: client, chain: chain}
}

// CurrentPrice returns the USD price of the token.
func (s *PriceSource) CurrentPrice(ctx context.Context, token string) (float64, error) {
	pair, err := s.client.BestPair(ctx, token, s.chain)
	if err != nil {
		return 0, err
	}
	price, err := strconv.ParseFloat(pair.PriceUSD, 64)
	if err != nil || price <= 0 {
		return 0, domain.Upstream("dexscreener price", fmt.Errorf("invalid priceUsd %q", pair.PriceUSD))
	}
	return price, nil
}
