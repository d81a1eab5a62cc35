// Package rpcservice selects the active Solana RPC endpoint, estimates
// priority fees and submits signed transactions with bounded retries.
package rpcservice

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/observability"
	"solana-token-sniper/internal/solana"
)

// EndpointKind tells the premium endpoint apart from a user override.
type EndpointKind string

const (
	EndpointPremium EndpointKind = "premium"
	EndpointCustom  EndpointKind = "custom"
)

// Endpoint describes the active RPC connection.
type Endpoint struct {
	Kind EndpointKind `json:"kind"`
	URL  string       `json:"url"`
}

// Client is the node surface the service needs.
type Client interface {
	solana.RPCClient
	Endpoint() string
	GetSlot(ctx context.Context) (int64, error)
	GetHealth(ctx context.Context) error
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
	GetLatestBlockhash(ctx context.Context) (*solana.Blockhash, error)
	GetPriorityFeeEstimate(ctx context.Context, accountKeys []string) (*solana.PriorityFeeResult, error)
	SendTransaction(ctx context.Context, signedTx string, opts solana.SendOpts) (string, error)
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*solana.SignatureStatus, error)
}

// Compile-time interface check.
var _ Client = (*solana.HTTPClient)(nil)

// Dialer builds a client for an endpoint URL.
type Dialer func(endpoint string) Client

// WatcherDialer builds a signature watcher for an HTTP endpoint URL.
type WatcherDialer func(endpoint string) solana.SignatureWatcher

// Config holds service tuning.
type Config struct {
	PremiumURL          string
	ProbeTimeout        time.Duration
	FeeTimeout          time.Duration
	SendMaxRetries      int
	SendBackoff         time.Duration
	ConfirmTimeout      time.Duration
	ConfirmPollInterval time.Duration
	HealthyLatency      time.Duration
	DegradedLatency     time.Duration
	HealthTimeout       time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ProbeTimeout:        5 * time.Second,
		FeeTimeout:          3 * time.Second,
		SendMaxRetries:      3,
		SendBackoff:         500 * time.Millisecond,
		ConfirmTimeout:      30 * time.Second,
		ConfirmPollInterval: 500 * time.Millisecond,
		HealthyLatency:      2 * time.Second,
		DegradedLatency:     5 * time.Second,
		HealthTimeout:       8 * time.Second,
	}
}

// Options configures Service.
type Options struct {
	Config  Config
	Dial        Dialer        // defaults to solana.NewHTTPClient
	DialWatcher WatcherDialer // optional, polling is used when nil
	Logger      *logrus.Entry
}

// Service owns endpoint selection. Clients are stateless and shared; only
// the custom endpoint and its watcher are guarded.
type Service struct {
	cfg         Config
	dial        Dialer
	dialWatcher WatcherDialer
	log         *logrus.Entry

	premium        Client
	premiumWatcher solana.SignatureWatcher

	mu            sync.RWMutex
	custom        Client
	customWatcher solana.SignatureWatcher
}

// PremiumURL appends the API key to the premium base URL.
func PremiumURL(base, apiKey string) string {
	if apiKey == "" {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "api-key=" + url.QueryEscape(apiKey)
}

// New creates a Service bound to the premium endpoint.
func New(opts Options) (*Service, error) {
	cfg := opts.Config
	def := DefaultConfig()
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}
	if cfg.FeeTimeout <= 0 {
		cfg.FeeTimeout = def.FeeTimeout
	}
	if cfg.SendMaxRetries <= 0 {
		cfg.SendMaxRetries = def.SendMaxRetries
	}
	if cfg.SendBackoff <= 0 {
		cfg.SendBackoff = def.SendBackoff
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = def.ConfirmTimeout
	}
	if cfg.ConfirmPollInterval <= 0 {
		cfg.ConfirmPollInterval = def.ConfirmPollInterval
	}
	if cfg.HealthyLatency <= 0 {
		cfg.HealthyLatency = def.HealthyLatency
	}
	if cfg.DegradedLatency <= 0 {
		cfg.DegradedLatency = def.DegradedLatency
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = def.HealthTimeout
	}

	if err := validateEndpoint(cfg.PremiumURL); err != nil {
		return nil, fmt.Errorf("premium endpoint: %w", err)
	}

	dial := opts.Dial
	if dial == nil {
		dial = func(endpoint string) Client {
			return solana.NewHTTPClient(endpoint)
		}
	}

	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger().WithField("component", "rpcservice")
	}

	s := &Service{
		cfg:         cfg,
		dial:        dial,
		dialWatcher: opts.DialWatcher,
		log:         log,
		premium:     dial(cfg.PremiumURL),
	}
	if s.dialWatcher != nil {
		s.premiumWatcher = s.dialWatcher(cfg.PremiumURL)
	}
	return s, nil
}

func validateEndpoint(raw string) error {
	if raw == "" {
		return domain.Validationf("endpoint is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return domain.Validationf("endpoint %q: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return domain.Validationf("endpoint %q must use http or https", raw)
	}
	if u.Host == "" {
		return domain.Validationf("endpoint %q has no host", raw)
	}
	return nil
}

// ActiveEndpoint returns the endpoint new calls go to. A custom endpoint wins over premium.
func (s *Service) ActiveEndpoint() Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.custom != nil {
		return Endpoint{Kind: EndpointCustom, URL: s.custom.Endpoint()}
	}
	return Endpoint{Kind: EndpointPremium, URL: s.cfg.PremiumURL}
}

// ActiveClient returns the client for the active endpoint.
func (s *Service) ActiveClient() Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.custom != nil {
		return s.custom
	}
	return s.premium
}

func (s *Service) active() (Client, EndpointKind) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.custom != nil {
		return s.custom, EndpointCustom
	}
	return s.premium, EndpointPremium
}

// watcherFor returns the watcher bound to client's endpoint, or nil when the
// client was replaced or no watcher is configured.
func (s *Service) watcherFor(client Client) solana.SignatureWatcher {
	if client == s.premium {
		return s.premiumWatcher
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if client == s.custom {
		return s.customWatcher
	}
	return nil
}

// swapCustom installs a custom client and watcher and closes the previous watcher.
func (s *Service) swapCustom(client Client, watcher solana.SignatureWatcher) {
	s.mu.Lock()
	prev := s.customWatcher
	s.custom, s.customWatcher = client, watcher
	s.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
}

// Close closes every signature watcher.
func (s *Service) Close() error {
	s.swapCustom(nil, nil)
	if s.premiumWatcher != nil {
		return s.premiumWatcher.Close()
	}
	return nil
}

// SetCustomRPC probes and activates a custom endpoint. An empty endpoint
// clears the override. On any failure the previously active endpoint stays.
func (s *Service) SetCustomRPC(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		s.swapCustom(nil, nil)
		s.log.Info("custom rpc cleared, using premium endpoint")
		observability.RecordCustomRPCChange("cleared")
		return nil
	}

	if err := validateEndpoint(endpoint); err != nil {
		observability.RecordCustomRPCChange("invalid")
		return err
	}

	candidate := s.dial(endpoint)

	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()
	if _, err := candidate.GetSlot(probeCtx); err != nil {
		s.log.WithError(err).WithField("endpoint", redact(endpoint)).Warn("custom rpc probe failed, keeping current endpoint")
		observability.RecordCustomRPCChange("probe_failed")
		return domain.Upstream("probe custom rpc", err)
	}

	var watcher solana.SignatureWatcher
	if s.dialWatcher != nil {
		watcher = s.dialWatcher(endpoint)
	}
	s.swapCustom(candidate, watcher)

	s.log.WithField("endpoint", redact(endpoint)).Info("custom rpc activated")
	observability.RecordCustomRPCChange("activated")
	return nil
}

// Balance returns the SOL balance of a wallet.
func (s *Service) Balance(ctx context.Context, wallet string) (decimal.Decimal, error) {
	if err := solana.ValidateAddress(wallet); err != nil {
		return decimal.Zero, err
	}
	lamports, err := s.ActiveClient().GetBalance(ctx, wallet)
	if err != nil {
		return decimal.Zero, domain.Upstream("get balance", err)
	}
	return LamportsToSOL(lamports), nil
}

// LamportsToSOL converts lamports to SOL without float rounding.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromInt(int64(lamports)).Shift(-9)
}

// SOLToLamports converts a SOL amount to lamports, truncating dust.
func SOLToLamports(sol decimal.Decimal) uint64 {
	return uint64(sol.Shift(9).Truncate(0).IntPart())
}

// redact strips query strings, which usually carry API keys.
func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "invalid-url"
	}
	u.RawQuery = ""
	return u.String()
}
