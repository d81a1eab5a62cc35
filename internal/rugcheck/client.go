// Package rugcheck is a client for the rugcheck.xyz token report API used for
// account-model (Solana) tokens.
package rugcheck

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/httpx"
)

// DefaultBaseURL is the public rugcheck.xyz API.
const DefaultBaseURL = "https://api.rugcheck.xyz"

// ErrNoVerdict means the report carried no honeypot finding either way.
var ErrNoVerdict = errors.New("rugcheck report has no honeypot verdict")

// Risk is one finding of a report.
type Risk struct {
	Name        string `json:"name"`
	Level       string `json:"level"`
	Description string `json:"description"`
}

// Severe reports whether the finding is critical or high.
func (r Risk) Severe() bool {
	level := strings.ToLower(r.Level)
	return level == "critical" || level == "high" || level == "danger"
}

// Report is the subset of /v1/tokens/{mint}/report the safety engine reads.
type Report struct {
	TokenMeta struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"tokenMeta"`
	Score      float64 `json:"score"`
	Risks      []Risk  `json:"risks"`
	TopHolders []struct {
		Address string  `json:"address"`
		Pct     float64 `json:"pct"`
	} `json:"topHolders"`
}

// HoneypotRisk returns the first severe finding that names a honeypot.
func (r *Report) HoneypotRisk() (Risk, bool) {
	for _, risk := range r.Risks {
		if risk.Severe() && strings.Contains(strings.ToLower(risk.Name), "honeypot") {
			return risk, true
		}
	}
	return Risk{}, false
}

// Client calls rugcheck.xyz.
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
	opts = append([]httpx.Option{httpx.WithLogger(log.WithField("component", "rugcheck"))}, opts...)
	return &Client{http: httpx.New(strings.TrimRight(baseURL, "/"), opts...)}
}

// Report fetches the token report for a mint.
func (c *Client) Report(ctx context.Context, mint string) (*Report, error) {
	var resp Report
	path := "/v1/tokens/" + url.PathEscape(mint) + "/report"
	if err := c.http.GetJSON(ctx, path, nil, &resp); err != nil {
		return nil, domain.Upstream("rugcheck", err)
	}
	return &resp, nil
}

// Honeypot returns an explicit honeypot verdict, or ErrNoVerdict when the
// report does not flag one.
func (c *Client) Honeypot(ctx context.Context, mint string) (*domain.HoneypotResult, error) {
	report, err := c.Report(ctx, mint)
	if err != nil {
		return nil, err
	}
	risk, ok := report.HoneypotRisk()
	if !ok {
		return nil, ErrNoVerdict
	}
	reason := risk.Name
	if risk.Description != "" {
		reason += ": " + risk.Description
	}
	return &domain.HoneypotResult{
		IsHoneypot: true,
		CanSell:    false,
		Reason:     reason,
		Source:     "rugcheck",
	}, nil
}
