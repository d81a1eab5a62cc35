package safety

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/solana"
)

// Burn destinations for SPL LP tokens.
var SolanaDeadOwners = []string{
	"1nc1nerator11111111111111111111111111111111",
	"11111111111111111111111111111111",
}

// DefaultSolanaLockers maps owner address prefixes of LP lockers to the locker name.
var DefaultSolanaLockers = map[string]string{
	"strm":  "streamflow",
	"Lockr": "raydium-locker",
}

const (
	burnThresholdPercent = 95.0
	creatorPageLimit     = 1000
	creatorMaxPages      = 5
)

// SolanaInspector checks SPL tokens.
type SolanaInspector struct {
	rpc     solana.RPCClient
	quoter  Quoter
	pairs   PairSource
	rug     RugReporter
	lockers map[string]string
	now     func() time.Time
}

// NewSolanaInspector creates an inspector. A nil lockers map uses DefaultSolanaLockers.
func NewSolanaInspector(rpc solana.RPCClient, quoter Quoter, pairs PairSource, lockers map[string]string) *SolanaInspector {
	if lockers == nil {
		lockers = DefaultSolanaLockers
	}
	return &SolanaInspector{rpc: rpc, quoter: quoter, pairs: pairs, lockers: lockers, now: time.Now}
}

// WithRugReporter consults r for an explicit honeypot verdict before probing sell routes.
func (s *SolanaInspector) WithRugReporter(r RugReporter) *SolanaInspector {
	s.rug = r
	return s
}

var (
	_ Inspector         = (*SolanaInspector)(nil)
	_ MetadataInspector = (*SolanaInspector)(nil)
)

// Family implements Inspector.
func (s *SolanaInspector) Family() domain.ChainFamily { return domain.ChainFamilyAccount }

// ValidateAddress implements Inspector.
func (s *SolanaInspector) ValidateAddress(token string) error {
	return solana.ValidateAddress(token)
}

// Authority decodes the mint account.
func (s *SolanaInspector) Authority(ctx context.Context, token string, _ domain.Chain) (domain.AuthorityFlags, error) {
	info, err := s.rpc.GetAccountInfo(ctx, token)
	if err != nil {
		return domain.AuthorityFlags{}, err
	}
	if info == nil {
		return domain.AuthorityFlags{}, errors.New("mint account not found")
	}
	mint, err := solana.DecodeMint(info.Data)
	if err != nil {
		return domain.AuthorityFlags{}, err
	}
	return domain.AuthorityFlags{
		HasMintAuthority:   mint.HasMintAuthority(),
		HasFreezeAuthority: mint.HasFreezeAuthority(),
		MintAuthority:      mint.MintAuthority,
		FreezeAuthority:    mint.FreezeAuthority,
		CanMint:            mint.HasMintAuthority(),
		OwnerRenounced:     !mint.HasMintAuthority() && !mint.HasFreezeAuthority(),
	}, nil
}

// Honeypot trusts an explicit rug report verdict and otherwise probes sell
// routes into SOL. A failing report falls back to the probe.
func (s *SolanaInspector) Honeypot(ctx context.Context, token string, _ domain.Chain) (domain.HoneypotResult, error) {
	if s.rug != nil {
		res, err := s.rug.Honeypot(ctx, token)
		if err == nil && res != nil {
			return *res, nil
		}
		if ctx.Err() != nil {
			return domain.HoneypotResult{}, ctx.Err()
		}
	}
	if s.quoter == nil {
		return domain.HoneypotResult{}, ErrUnsupported
	}
	return probeSellRoute(ctx, s.quoter, token, solana.WrappedSOLMint)
}

// Liquidity inspects LP token holders of the deepest pool.
func (s *SolanaInspector) Liquidity(ctx context.Context, token string, chain domain.Chain) (domain.LiquidityStatus, error) {
	var status domain.LiquidityStatus
	if s.pairs == nil {
		return status, ErrUnsupported
	}
	pair, err := s.pairs.BestPair(ctx, token, chain)
	if err != nil {
		return status, err
	}
	status.PoolAddress = pair.PairAddress
	status.LiquidityUSD = pair.LiquidityUSD()

	pool, err := s.rpc.GetAccountInfo(ctx, pair.PairAddress)
	if err != nil {
		return status, err
	}
	lpMint, err := solana.RaydiumLPMint(pool)
	if err != nil {
		return status, fmt.Errorf("lp mint: %w", err)
	}

	supply, err := s.rpc.GetTokenSupply(ctx, lpMint)
	if err != nil {
		return status, err
	}
	total, err := decimal.NewFromString(supply.Amount)
	if err != nil {
		return status, fmt.Errorf("parse lp supply: %w", err)
	}
	if total.IsZero() {
		// Every LP token was burned.
		status.Burned = true
		status.BurnedPercent = 100
		status.Platform = "burn"
		return status, nil
	}

	holders, err := s.rpc.GetTokenLargestAccounts(ctx, lpMint)
	if err != nil {
		return status, err
	}
	addrs := make([]string, len(holders))
	for i, h := range holders {
		addrs[i] = h.Address
	}
	accounts, err := s.rpc.GetMultipleAccounts(ctx, addrs)
	if err != nil {
		return status, err
	}

	dead := decimal.Zero
	for i, acc := range accounts {
		if acc == nil {
			continue
		}
		ta, err := solana.DecodeTokenAccount(acc.Data)
		if err != nil {
			continue
		}
		amount := decimal.NewFromInt(0)
		if v, err := decimal.NewFromString(holders[i].Amount); err == nil {
			amount = v
		}
		if isDeadOwner(ta.Owner) {
			dead = dead.Add(amount)
			continue
		}
		if platform, ok := s.lockerFor(ta.Owner); ok && amount.IsPositive() && !status.Locked {
			status.Locked = true
			status.Platform = platform
		}
	}

	status.BurnedPercent, _ = dead.Div(total).Mul(decimal.NewFromInt(100)).Float64()
	if status.BurnedPercent > burnThresholdPercent {
		status.Burned = true
		status.Locked = false
		status.Platform = "burn"
	}
	return status, nil
}

func (s *SolanaInspector) lockerFor(owner string) (string, bool) {
	for prefix, platform := range s.lockers {
		if strings.HasPrefix(owner, prefix) {
			return platform, true
		}
	}
	return "", false
}

func isDeadOwner(owner string) bool {
	for _, d := range SolanaDeadOwners {
		if owner == d {
			return true
		}
	}
	return false
}

// Holders computes top-10 concentration from the largest token accounts.
// Holder count is estimated from the non-empty largest accounts, so it
// saturates at the RPC page size.
func (s *SolanaInspector) Holders(ctx context.Context, token string, _ domain.Chain) (domain.HolderStats, error) {
	supply, err := s.rpc.GetTokenSupply(ctx, token)
	if err != nil {
		return domain.HolderStats{}, err
	}
	total, err := decimal.NewFromString(supply.Amount)
	if err != nil {
		return domain.HolderStats{}, fmt.Errorf("parse supply: %w", err)
	}
	if !total.IsPositive() {
		return domain.HolderStats{}, errors.New("zero supply")
	}

	largest, err := s.rpc.GetTokenLargestAccounts(ctx, token)
	if err != nil {
		return domain.HolderStats{}, err
	}

	top := decimal.Zero
	count := 0
	for i, acc := range largest {
		amount, err := decimal.NewFromString(acc.Amount)
		if err != nil || !amount.IsPositive() {
			continue
		}
		count++
		if i < 10 {
			top = top.Add(amount)
		}
	}
	pct, _ := top.Div(total).Mul(decimal.NewFromInt(100)).Float64()
	return domain.HolderStats{Top10Percent: pct, HolderCount: count}, nil
}

// CreatorRisk finds the mint's creator (fee payer of its oldest transaction)
// and scores the creator wallet's history. Young wallets with little
// activity score high.
func (s *SolanaInspector) CreatorRisk(ctx context.Context, token string, _ domain.Chain) (int, error) {
	oldest, err := s.oldestSignature(ctx, token)
	if err != nil {
		return 0, err
	}
	tx, err := s.rpc.GetTransaction(ctx, oldest)
	if err != nil {
		return 0, err
	}
	creator := tx.FeePayer()
	if creator == "" {
		return 0, errors.New("creator transaction not found")
	}

	history, err := s.rpc.GetSignaturesForAddress(ctx, creator, &solana.SignaturesOpts{Limit: creatorPageLimit})
	if err != nil {
		return 0, err
	}
	return scoreCreator(history, s.now()), nil
}

func (s *SolanaInspector) oldestSignature(ctx context.Context, address string) (string, error) {
	var oldest string
	before := ""
	for page := 0; page < creatorMaxPages; page++ {
		sigs, err := s.rpc.GetSignaturesForAddress(ctx, address, &solana.SignaturesOpts{Before: before, Limit: creatorPageLimit})
		if err != nil {
			return "", err
		}
		if len(sigs) == 0 {
			break
		}
		oldest = sigs[len(sigs)-1].Signature
		if len(sigs) < creatorPageLimit {
			break
		}
		before = oldest
	}
	if oldest == "" {
		return "", errors.New("no signatures for mint")
	}
	return oldest, nil
}

// scoreCreator rates a wallet 0..100 from its transaction count, age and
// failed-transaction ratio. history is newest first.
func scoreCreator(history []solana.SignatureInfo, now time.Time) int {
	score := 0
	switch n := len(history); {
	case n < 10:
		score += 40
	case n < 100:
		score += 20
	}

	var oldest *int64
	failed := 0
	for i := range history {
		if history[i].BlockTime != nil {
			oldest = history[i].BlockTime
		}
		if history[i].Err != nil {
			failed++
		}
	}
	if oldest == nil {
		score += 20
	} else {
		age := now.Sub(time.Unix(*oldest, 0))
		switch {
		case age < 24*time.Hour:
			score += 40
		case age < 7*24*time.Hour:
			score += 20
		}
	}
	if len(history) > 0 && failed*2 > len(history) {
		score += 20
	}
	return clamp(score, 0, 100)
}

// Metadata implements MetadataInspector.
func (s *SolanaInspector) Metadata(ctx context.Context, token string) (string, string, error) {
	meta, err := solana.FetchTokenMetadata(ctx, s.rpc, token)
	if err != nil {
		return "", "", err
	}
	return meta.Name, meta.Symbol, nil
}

// ParseLockers parses "prefix=name,prefix=name" into a locker map.
func ParseLockers(s string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
