// Package jupiter is a client for the Jupiter swap aggregator quote and swap APIs.
package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/httpx"
)

// DefaultBaseURL is the public Jupiter swap API.
const DefaultBaseURL = "https://lite-api.jup.ag/swap/v1"

// ErrNoRoute means the aggregator found no route for the pair and amount.
var ErrNoRoute = errors.New("no route found")

// noRouteCodes are error codes Jupiter returns when no route exists.
var noRouteCodes = []string{"COULD_NOT_FIND_ANY_ROUTE", "NO_ROUTES_FOUND", "TOKEN_NOT_TRADABLE"}

// QuoteRequest parameters for GET /quote.
type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      uint64
	SlippageBps int
}

// SwapRequest parameters for POST /swap.
type SwapRequest struct {
	Quote                         *domain.Quote
	UserPublicKey                 string
	ComputeUnitPriceMicroLamports uint64
	WrapAndUnwrapSol              bool
}

// SwapResponse is the unsigned transaction returned by POST /swap.
type SwapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// Client calls the Jupiter API.
type Client struct {
	http *httpx.Client
	now  func() time.Time
}

// NewClient creates a Jupiter client. Empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, log logrus.FieldLogger, opts ...httpx.Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	opts = append([]httpx.Option{httpx.WithLogger(log.WithField("component", "jupiter"))}, opts...)
	return &Client{
		http: httpx.New(strings.TrimRight(baseURL, "/"), opts...),
		now:  time.Now,
	}
}

type quoteResponse struct {
	InputMint            string `json:"inputMint"`
	InAmount             string `json:"inAmount"`
	OutputMint           string `json:"outputMint"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	SlippageBps          int    `json:"slippageBps"`
	PriceImpactPct       string `json:"priceImpactPct"`
	RoutePlan            []struct {
		SwapInfo struct {
			AmmKey     string `json:"ammKey"`
			Label      string `json:"label"`
			InputMint  string `json:"inputMint"`
			OutputMint string `json:"outputMint"`
			InAmount   string `json:"inAmount"`
			OutAmount  string `json:"outAmount"`
		} `json:"swapInfo"`
		Percent int `json:"percent"`
	} `json:"routePlan"`
	ContextSlot uint64 `json:"contextSlot"`
}

type errorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
}

// Quote fetches a swap quote.
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	if req.Amount == 0 {
		return nil, domain.Validationf("quote amount must be positive")
	}
	params := url.Values{}
	params.Set("inputMint", req.InputMint)
	params.Set("outputMint", req.OutputMint)
	params.Set("amount", strconv.FormatUint(req.Amount, 10))
	params.Set("slippageBps", strconv.Itoa(req.SlippageBps))

	var raw json.RawMessage
	if err := c.http.GetJSON(ctx, "/quote", params, &raw); err != nil {
		return nil, c.mapError("quote", err)
	}

	var resp quoteResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	var apiErr errorResponse
	if json.Unmarshal(raw, &apiErr) == nil && (apiErr.Error != "" || apiErr.ErrorCode != "") {
		if isNoRoute(apiErr) {
			return nil, fmt.Errorf("%w: %s", ErrNoRoute, apiErr.Error)
		}
		return nil, domain.Upstream("quote", errors.New(apiErr.Error))
	}

	return resp.toDomain(raw, c.now())
}

// Swap requests the unsigned swap transaction for a quote.
func (c *Client) Swap(ctx context.Context, req SwapRequest) (*SwapResponse, error) {
	if req.Quote == nil || len(req.Quote.Raw) == 0 {
		return nil, domain.Validationf("swap requires a quote")
	}
	body := map[string]interface{}{
		"quoteResponse":                 req.Quote.Raw,
		"userPublicKey":                 req.UserPublicKey,
		"computeUnitPriceMicroLamports": req.ComputeUnitPriceMicroLamports,
		"wrapAndUnwrapSol":              req.WrapAndUnwrapSol,
		"dynamicComputeUnitLimit":       true,
	}

	var resp SwapResponse
	if err := c.http.PostJSON(ctx, "/swap", body, &resp); err != nil {
		return nil, c.mapError("swap", err)
	}
	if resp.SwapTransaction == "" {
		return nil, domain.Upstream("swap", errors.New("empty swap transaction"))
	}
	return &resp, nil
}

func (c *Client) mapError(op string, err error) error {
	var statusErr *httpx.StatusError
	if errors.As(err, &statusErr) {
		var apiErr errorResponse
		_ = json.Unmarshal(statusErr.Body, &apiErr)
		if isNoRoute(apiErr) || statusErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNoRoute, apiErr.Error)
		}
		if statusErr.StatusCode == http.StatusBadRequest {
			return domain.Validationf("%s rejected: %s", op, apiErr.Error)
		}
		return domain.Upstream(op, err)
	}
	return domain.Upstream(op, err)
}

func isNoRoute(e errorResponse) bool {
	for _, code := range noRouteCodes {
		if e.ErrorCode == code || strings.Contains(e.Error, code) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(e.Error), "no route")
}

func (r *quoteResponse) toDomain(raw json.RawMessage, now time.Time) (*domain.Quote, error) {
	in, err := parseAmount("inAmount", r.InAmount)
	if err != nil {
		return nil, err
	}
	out, err := parseAmount("outAmount", r.OutAmount)
	if err != nil {
		return nil, err
	}
	threshold, err := parseAmount("otherAmountThreshold", r.OtherAmountThreshold)
	if err != nil {
		return nil, err
	}
	if out == 0 {
		return nil, fmt.Errorf("%w: zero output amount", ErrNoRoute)
	}

	var impact float64
	if r.PriceImpactPct != "" {
		impact, err = strconv.ParseFloat(r.PriceImpactPct, 64)
		if err != nil {
			return nil, fmt.Errorf("parse priceImpactPct: %w", err)
		}
	}

	q := &domain.Quote{
		InputMint:            r.InputMint,
		OutputMint:           r.OutputMint,
		InAmount:             in,
		OutAmount:            out,
		OtherAmountThreshold: threshold,
		// Jupiter reports price impact as a fraction.
		PriceImpactPct: impact * 100,
		SlippageBps:    r.SlippageBps,
		ContextSlot:    r.ContextSlot,
		FetchedAt:      now,
		Raw:            raw,
	}
	for _, step := range r.RoutePlan {
		stepIn, _ := strconv.ParseUint(step.SwapInfo.InAmount, 10, 64)
		stepOut, _ := strconv.ParseUint(step.SwapInfo.OutAmount, 10, 64)
		q.RoutePlan = append(q.RoutePlan, domain.RouteStep{
			AMMKey:     step.SwapInfo.AmmKey,
			Label:      step.SwapInfo.Label,
			InputMint:  step.SwapInfo.InputMint,
			OutputMint: step.SwapInfo.OutputMint,
			InAmount:   stepIn,
			OutAmount:  stepOut,
			Percent:    step.Percent,
		})
	}
	return q, nil
}

func parseAmount(field, s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	return v, nil
}
