// Package honeypot is a client for the honeypot.is simulation API used for
// contract-model chains.
package honeypot

import (
	"context"
	"errors"
	"math/big"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/httpx"
)

// DefaultBaseURL is the public honeypot.is API.
const DefaultBaseURL = "https://api.honeypot.is"

// ErrNoVerdict means the API answered without a simulation result.
var ErrNoVerdict = errors.New("honeypot api returned no verdict")

// Result is the subset of /v2/IsHoneypot the safety engine reads.
type Result struct {
	Token struct {
		Name         string `json:"name"`
		Symbol       string `json:"symbol"`
		TotalHolders int    `json:"totalHolders"`
	} `json:"token"`
	SimulationSuccess bool `json:"simulationSuccess"`
	HoneypotResult    *struct {
		IsHoneypot     bool   `json:"isHoneypot"`
		HoneypotReason string `json:"honeypotReason"`
	} `json:"honeypotResult"`
	SimulationResult *struct {
		BuyTax      float64 `json:"buyTax"`
		SellTax     float64 `json:"sellTax"`
		TransferTax float64 `json:"transferTax"`
	} `json:"simulationResult"`
}

// Holder is an entry of /v1/TopHolders.
type Holder struct {
	Address    string `json:"address"`
	Balance    string `json:"balance"`
	Alias      string `json:"alias"`
	IsContract bool   `json:"isContract"`
}

// TopHoldersResult is the body of /v1/TopHolders.
type TopHoldersResult struct {
	TotalSupply string   `json:"totalSupply"`
	Holders     []Holder `json:"holders"`
}

// Client calls honeypot.is.
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
	opts = append([]httpx.Option{httpx.WithLogger(log.WithField("component", "honeypot"))}, opts...)
	return &Client{http: httpx.New(strings.TrimRight(baseURL, "/"), opts...)}
}

func chainParams(address string, chainID int64) url.Values {
	params := url.Values{}
	params.Set("address", address)
	params.Set("chainID", strconv.FormatInt(chainID, 10))
	return params
}

// Analyze returns the raw simulation result for a token.
func (c *Client) Analyze(ctx context.Context, address string, chainID int64) (*Result, error) {
	var resp Result
	if err := c.http.GetJSON(ctx, "/v2/IsHoneypot", chainParams(address, chainID), &resp); err != nil {
		return nil, domain.Upstream("honeypot.is", err)
	}
	return &resp, nil
}

// Check runs the honeypot simulation and returns an explicit verdict.
func (c *Client) Check(ctx context.Context, address string, chainID int64) (*domain.HoneypotResult, error) {
	resp, err := c.Analyze(ctx, address, chainID)
	if err != nil {
		return nil, err
	}
	if resp.HoneypotResult == nil {
		return nil, ErrNoVerdict
	}

	result := &domain.HoneypotResult{
		IsHoneypot: resp.HoneypotResult.IsHoneypot,
		CanSell:    !resp.HoneypotResult.IsHoneypot,
		Reason:     resp.HoneypotResult.HoneypotReason,
		Source:     "honeypot.is",
	}
	if resp.SimulationResult != nil {
		result.BuyTax = resp.SimulationResult.BuyTax
		result.SellTax = resp.SimulationResult.SellTax
	}
	return result, nil
}

// TopHolders returns the largest holders and the total supply.
func (c *Client) TopHolders(ctx context.Context, address string, chainID int64) (*TopHoldersResult, error) {
	var resp TopHoldersResult
	if err := c.http.GetJSON(ctx, "/v1/TopHolders", chainParams(address, chainID), &resp); err != nil {
		return nil, domain.Upstream("honeypot.is top holders", err)
	}
	return &resp, nil
}

// Top10Percent returns the share of supply held by the ten largest holders.
func (r *TopHoldersResult) Top10Percent() (float64, error) {
	supply, ok := new(big.Float).SetString(r.TotalSupply)
	if !ok || supply.Sign() <= 0 {
		return 0, errors.New("invalid total supply")
	}
	sum := new(big.Float)
	for i, h := range r.Holders {
		if i == 10 {
			break
		}
		bal, ok := new(big.Float).SetString(h.Balance)
		if !ok {
			return 0, errors.New("invalid holder balance")
		}
		sum.Add(sum, bal)
	}
	pct, _ := new(big.Float).Quo(sum, supply).Float64()
	return pct * 100, nil
}
