package safety

import (
	"context"
	"errors"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/evm"
	"solana-token-sniper/internal/honeypot"
)

// HoneypotAPI is the honeypot.is client surface; *honeypot.Client implements it.
type HoneypotAPI interface {
	Check(ctx context.Context, address string, chainID int64) (*domain.HoneypotResult, error)
	Analyze(ctx context.Context, address string, chainID int64) (*honeypot.Result, error)
	TopHolders(ctx context.Context, address string, chainID int64) (*honeypot.TopHoldersResult, error)
}

var _ HoneypotAPI = (*honeypot.Client)(nil)

// EVMInspector checks ERC-20 tokens.
type EVMInspector struct {
	chain   *evm.Inspector
	api     HoneypotAPI
	pairs   PairSource
	lockers map[string]string
}

// NewEVMInspector creates an inspector. A nil lockers map uses evm.DefaultLockers.
func NewEVMInspector(chain *evm.Inspector, api HoneypotAPI, pairs PairSource, lockers map[string]string) *EVMInspector {
	return &EVMInspector{chain: chain, api: api, pairs: pairs, lockers: lockers}
}

var _ Inspector = (*EVMInspector)(nil)

// Family implements Inspector.
func (e *EVMInspector) Family() domain.ChainFamily { return domain.ChainFamilyContract }

// ValidateAddress implements Inspector.
func (e *EVMInspector) ValidateAddress(token string) error {
	_, err := evm.ParseAddress(token)
	return err
}

// Authority reads owner and permission selectors from the contract.
func (e *EVMInspector) Authority(ctx context.Context, token string, _ domain.Chain) (domain.AuthorityFlags, error) {
	if e.chain == nil {
		return domain.AuthorityFlags{}, errors.New("evm rpc not configured")
	}
	return e.chain.Authority(ctx, token)
}

// Honeypot trusts an explicit verdict from the simulation API.
func (e *EVMInspector) Honeypot(ctx context.Context, token string, chain domain.Chain) (domain.HoneypotResult, error) {
	res, err := e.api.Check(ctx, token, chain.EVMChainID())
	if errors.Is(err, honeypot.ErrNoVerdict) {
		return domain.HoneypotResult{}, ErrNoSellRoute
	}
	if err != nil {
		return domain.HoneypotResult{}, err
	}
	return *res, nil
}

// Liquidity checks LP burn and lock balances of the deepest pair.
func (e *EVMInspector) Liquidity(ctx context.Context, token string, chain domain.Chain) (domain.LiquidityStatus, error) {
	pair, err := e.pairs.BestPair(ctx, token, chain)
	if err != nil {
		return domain.LiquidityStatus{}, err
	}
	partial := domain.LiquidityStatus{PoolAddress: pair.PairAddress, LiquidityUSD: pair.LiquidityUSD()}
	if e.chain == nil {
		return partial, errors.New("evm rpc not configured")
	}
	status, err := e.chain.LiquidityLock(ctx, pair.PairAddress, e.lockers)
	status.LiquidityUSD = partial.LiquidityUSD
	status.PoolAddress = partial.PoolAddress
	return status, err
}

// Holders reads top-holder concentration and holder count from the API.
func (e *EVMInspector) Holders(ctx context.Context, token string, chain domain.Chain) (domain.HolderStats, error) {
	top, err := e.api.TopHolders(ctx, token, chain.EVMChainID())
	if err != nil {
		return domain.HolderStats{}, err
	}
	pct, err := top.Top10Percent()
	if err != nil {
		return domain.HolderStats{}, err
	}
	stats := domain.HolderStats{Top10Percent: pct, HolderCount: len(top.Holders)}
	if summary, err := e.api.Analyze(ctx, token, chain.EVMChainID()); err == nil && summary.Token.TotalHolders > 0 {
		stats.HolderCount = summary.Token.TotalHolders
	}
	return stats, nil
}

// CreatorRisk is not assessed for contract-model tokens.
func (e *EVMInspector) CreatorRisk(context.Context, string, domain.Chain) (int, error) {
	return 0, ErrUnsupported
}
