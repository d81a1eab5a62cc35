// Package dexscreener is a client for the DexScreener market data API.
package dexscreener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/httpx"
)

// DefaultBaseURL is the public DexScreener API.
const DefaultBaseURL = "https://api.dexscreener.com"

// DefaultRateLimit stays under the documented 300 requests per minute.
const DefaultRateLimit = 4.0

// ErrNoPairs means DexScreener has no pairs for the token.
var ErrNoPairs = errors.New("no pairs found")

// Client calls the DexScreener API.
type Client struct {
	http *httpx.Client
}

// NewClient creates a client. Empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, log logrus.FieldLogger, opts ...httpx.Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	opts = append([]httpx.Option{
		httpx.WithRateLimit(DefaultRateLimit),
		httpx.WithLogger(log.WithField("component", "dexscreener")),
	}, opts...)
	return &Client{http: httpx.New(strings.TrimRight(baseURL, "/"), opts...)}
}

// TokenPairs returns all pairs that trade the token.
func (c *Client) TokenPairs(ctx context.Context, address string) ([]Pair, error) {
	var resp PairsResponse
	if err := c.http.GetJSON(ctx, "/latest/dex/tokens/"+url.PathEscape(address), nil, &resp); err != nil {
		return nil, domain.Upstream("dexscreener tokens", err)
	}
	return resp.Pairs, nil
}

// BestPair returns the highest-liquidity pair for the token, optionally
// restricted to a chain.
func (c *Client) BestPair(ctx context.Context, address string, chain domain.Chain) (*Pair, error) {
	pairs, err := c.TokenPairs(ctx, address)
	if err != nil {
		return nil, err
	}
	if chain != "" {
		filtered := pairs[:0:0]
		for _, p := range pairs {
			if p.ChainID == string(chain) {
				filtered = append(filtered, p)
			}
		}
		pairs = filtered
	}
	best := BestPair(pairs)
	if best == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPairs, address)
	}
	return best, nil
}

// LatestProfiles returns recently listed token profiles, optionally filtered by chain.
func (c *Client) LatestProfiles(ctx context.Context, chain domain.Chain) ([]TokenProfile, error) {
	var profiles []TokenProfile
	if err := c.http.GetJSON(ctx, "/token-profiles/latest/v1", nil, &profiles); err != nil {
		return nil, domain.Upstream("dexscreener profiles", err)
	}
	if chain == "" {
		return profiles, nil
	}
	out := make([]TokenProfile, 0, len(profiles))
	for _, p := range profiles {
		if p.ChainID == string(chain) {
			out = append(out, p)
		}
	}
	return out, nil
}
