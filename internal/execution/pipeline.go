// Package execution turns quotes into unsigned swap transactions and submits
// signed ones. It never holds keys: callers sign what it builds.
package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/jupiter"
	"solana-token-sniper/internal/observability"
	"solana-token-sniper/internal/rpcservice"
	"solana-token-sniper/internal/solana"
)

// Swapper quotes and builds swaps; *jupiter.Client implements it.
type Swapper interface {
	Quote(ctx context.Context, req jupiter.QuoteRequest) (*domain.Quote, error)
	Swap(ctx context.Context, req jupiter.SwapRequest) (*jupiter.SwapResponse, error)
}

// ChainService estimates fees and submits transactions; *rpcservice.Service implements it.
type ChainService interface {
	GetPriorityFeeEstimate(ctx context.Context, accountKeys []string) domain.PriorityFeeEstimate
	SendTransaction(ctx context.Context, signedTx string, opts rpcservice.SendOptions) (*rpcservice.SendResult, error)
}

var (
	_ Swapper      = (*jupiter.Client)(nil)
	_ ChainService = (*rpcservice.Service)(nil)
)

// Config configures the pipeline.
type Config struct {
	DefaultSlippageBps int
	QuoteMaxAge        time.Duration
	// MaxBuildAttempts bounds BuildSwapTransactionWithRetry.
	MaxBuildAttempts int
	SkipPreflight    bool
	Commitment       string
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		DefaultSlippageBps: 100,
		QuoteMaxAge:        10 * time.Second,
		MaxBuildAttempts:   3,
		SkipPreflight:      true,
		Commitment:         "confirmed",
	}
}

// BuiltTransaction is an unsigned swap transaction ready for signing.
type BuiltTransaction struct {
	Base64               string
	LastValidBlockHeight uint64
	PriorityLevel        domain.PriorityLevel
	PriorityFee          uint64 // micro-lamports per compute unit
	Quote                *domain.Quote
}

// RetryOutcome is the result of ExecuteSwapWithRetry. Exactly one of Result
// and Rebuilt is set; a rebuilt transaction must be signed and submitted again.
type RetryOutcome struct {
	Result  *rpcservice.SendResult
	Rebuilt *BuiltTransaction
	SendErr error
}

// Pipeline is the quote, build and submit flow.
type Pipeline struct {
	swapper Swapper
	chain   ChainService
	cfg     Config
	log     *logrus.Entry
	now     func() time.Time
}

// NewPipeline creates a pipeline. Zero config fields take defaults.
func NewPipeline(swapper Swapper, chain ChainService, cfg Config, log *logrus.Entry) *Pipeline {
	d := DefaultConfig()
	if cfg.DefaultSlippageBps <= 0 {
		cfg.DefaultSlippageBps = d.DefaultSlippageBps
	}
	if cfg.QuoteMaxAge <= 0 {
		cfg.QuoteMaxAge = d.QuoteMaxAge
	}
	if cfg.MaxBuildAttempts <= 0 {
		cfg.MaxBuildAttempts = d.MaxBuildAttempts
	}
	if cfg.Commitment == "" {
		cfg.Commitment = d.Commitment
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pipeline{
		swapper: swapper,
		chain:   chain,
		cfg:     cfg,
		log:     log.WithField("component", "execution"),
		now:     time.Now,
	}
}

// GetSwapQuote fetches a quote. Zero slippage uses the configured default.
func (p *Pipeline) GetSwapQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*domain.Quote, error) {
	if amount == 0 {
		return nil, domain.Validationf("amount must be positive")
	}
	if err := solana.ValidateAddress(inputMint); err != nil {
		return nil, err
	}
	if err := solana.ValidateAddress(outputMint); err != nil {
		return nil, err
	}
	if slippageBps <= 0 {
		slippageBps = p.cfg.DefaultSlippageBps
	}
	if slippageBps > 10_000 {
		return nil, domain.Validationf("slippage %d bps exceeds 100%%", slippageBps)
	}
	return p.swapper.Quote(ctx, jupiter.QuoteRequest{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		Amount:      amount,
		SlippageBps: slippageBps,
	})
}

// GetBuyQuote quotes spending amountSOL on token.
func (p *Pipeline) GetBuyQuote(ctx context.Context, token string, amountSOL decimal.Decimal) (*domain.Quote, error) {
	if !amountSOL.IsPositive() {
		return nil, domain.Validationf("buy amount must be positive, got %s", amountSOL)
	}
	return p.GetSwapQuote(ctx, solana.WrappedSOLMint, token, rpcservice.SOLToLamports(amountSOL), 0)
}

// GetSellQuote quotes selling amountTokens base units of token for SOL.
func (p *Pipeline) GetSellQuote(ctx context.Context, token string, amountTokens uint64) (*domain.Quote, error) {
	return p.GetSwapQuote(ctx, token, solana.WrappedSOLMint, amountTokens, 0)
}

// BuildSwapTransaction builds an unsigned swap for signer at the given fee
// level. A stale quote is re-fetched first.
func (p *Pipeline) BuildSwapTransaction(ctx context.Context, quote *domain.Quote, signer string, level domain.PriorityLevel) (*BuiltTransaction, error) {
	if quote == nil {
		return nil, domain.Validationf("quote is required")
	}
	if err := solana.ValidateAddress(signer); err != nil {
		return nil, err
	}
	if !level.IsValid() {
		return nil, domain.Validationf("unknown priority level %q", level)
	}

	if quote.IsStale(p.now(), p.cfg.QuoteMaxAge) {
		p.log.WithField("age", p.now().Sub(quote.FetchedAt)).Debug("quote stale, refetching")
		fresh, err := p.GetSwapQuote(ctx, quote.InputMint, quote.OutputMint, quote.InAmount, quote.SlippageBps)
		if err != nil {
			return nil, fmt.Errorf("refresh quote: %w", err)
		}
		quote = fresh
	}

	fees := p.chain.GetPriorityFeeEstimate(ctx, feeAccounts(quote))
	fee := fees.Level(level)

	resp, err := p.swapper.Swap(ctx, jupiter.SwapRequest{
		Quote:                         quote,
		UserPublicKey:                 signer,
		ComputeUnitPriceMicroLamports: fee,
		WrapAndUnwrapSol:              true,
	})
	if err != nil {
		observability.RecordSwapBuild(string(level), "error")
		return nil, err
	}
	observability.RecordSwapBuild(string(level), "ok")

	return &BuiltTransaction{
		Base64:               resp.SwapTransaction,
		LastValidBlockHeight: resp.LastValidBlockHeight,
		PriorityLevel:        level,
		PriorityFee:          fee,
		Quote:                quote,
	}, nil
}

// BuildSwapTransactionWithRetry builds at medium priority, escalating one
// rung per failed attempt up to veryHigh, for at most MaxBuildAttempts.
func (p *Pipeline) BuildSwapTransactionWithRetry(ctx context.Context, quote *domain.Quote, signer string) (*BuiltTransaction, error) {
	level := domain.PriorityMedium
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxBuildAttempts; attempt++ {
		built, err := p.BuildSwapTransaction(ctx, quote, signer, level)
		if err == nil {
			return built, nil
		}
		lastErr = err
		if errors.Is(err, domain.ErrValidation) || ctx.Err() != nil {
			break
		}
		p.log.WithError(err).WithFields(logrus.Fields{"attempt": attempt, "level": level}).Warn("swap build failed")

		next, ok := NextLevel(level)
		if !ok {
			break
		}
		level = next
	}
	if errors.Is(lastErr, domain.ErrValidation) {
		return nil, lastErr
	}
	return nil, domain.ExecutionFailed("build swap", lastErr)
}

// ExecuteSwap submits a signed transaction.
func (p *Pipeline) ExecuteSwap(ctx context.Context, signedTx string) (*rpcservice.SendResult, error) {
	res, err := p.chain.SendTransaction(ctx, signedTx, rpcservice.SendOptions{
		SkipPreflight: p.cfg.SkipPreflight,
		Commitment:    p.cfg.Commitment,
	})
	if err != nil {
		observability.RecordSwapSubmit("error")
		return nil, err
	}
	observability.RecordSwapSubmit("confirmed")
	return res, nil
}

// ExecuteSwapWithRetry submits signedTx. If submission fails below the
// ceiling level the swap is rebuilt one rung higher and returned for
// re-signing; at the ceiling the failure is final.
func (p *Pipeline) ExecuteSwapWithRetry(ctx context.Context, signedTx string, quote *domain.Quote, signer string, level domain.PriorityLevel) (*RetryOutcome, error) {
	res, sendErr := p.ExecuteSwap(ctx, signedTx)
	if sendErr == nil {
		return &RetryOutcome{Result: res}, nil
	}
	if errors.Is(sendErr, domain.ErrValidation) {
		return nil, sendErr
	}

	next, ok := NextLevel(level)
	if !ok {
		return nil, domain.ExecutionFailed("execute swap at ceiling fee", sendErr)
	}
	p.log.WithError(sendErr).WithFields(logrus.Fields{"from": level, "to": next}).Warn("submission failed, rebuilding")

	rebuilt, err := p.BuildSwapTransaction(ctx, quote, signer, next)
	if err != nil {
		return nil, domain.ExecutionFailed("rebuild swap", errors.Join(sendErr, err))
	}
	return &RetryOutcome{Rebuilt: rebuilt, SendErr: sendErr}, nil
}

// escalation is the fee ladder used for retries.
var escalation = []domain.PriorityLevel{domain.PriorityMedium, domain.PriorityHigh, domain.PriorityVeryHigh}

// NextLevel returns the next escalation rung. Levels below medium escalate to
// medium; veryHigh and above have no next rung.
func NextLevel(l domain.PriorityLevel) (domain.PriorityLevel, bool) {
	ceiling := escalation[len(escalation)-1]
	if l.Rank() >= ceiling.Rank() {
		return "", false
	}
	for _, e := range escalation {
		if e.Rank() > l.Rank() {
			return e, true
		}
	}
	return "", false
}

func feeAccounts(q *domain.Quote) []string {
	keys := []string{q.InputMint, q.OutputMint}
	for _, step := range q.RoutePlan {
		if step.AMMKey != "" {
			keys = append(keys, step.AMMKey)
		}
	}
	return keys
}
