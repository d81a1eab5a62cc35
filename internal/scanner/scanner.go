// Package scanner discovers freshly listed tokens, filters them and ranks the
// survivors by a composite of safety and market signals.
package scanner

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"solana-token-sniper/internal/dexscreener"
	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/observability"
	"solana-token-sniper/internal/safety"
	"solana-token-sniper/internal/storage"
)

// Candidate outcomes reported to metrics.
const (
	outcomeAccepted = "accepted"
	outcomeFiltered = "filtered"
	outcomeUnsafe   = "unsafe"
	outcomeError    = "error"
)

// MarketData lists new tokens and their pairs. *dexscreener.Client implements it.
type MarketData interface {
	LatestProfiles(ctx context.Context, chain domain.Chain) ([]dexscreener.TokenProfile, error)
	BestPair(ctx context.Context, address string, chain domain.Chain) (*dexscreener.Pair, error)
}

var _ MarketData = (*dexscreener.Client)(nil)

// SafetyChecker runs the full safety check on a token.
type SafetyChecker interface {
	RunFullSafetyCheck(ctx context.Context, token string, chain domain.Chain, cfg safety.Config) (*domain.SafetyReport, error)
}

// Candidate is a token that passed every filter.
type Candidate struct {
	Token          domain.Token         `json:"token"`
	Safety         *domain.SafetyReport `json:"safety"`
	CompositeScore float64              `json:"compositeScore"`
	ProfileURL     string               `json:"profileUrl,omitempty"`
}

// Scanner turns DexScreener listings into ranked candidates.
type Scanner struct {
	market    MarketData
	checker   SafetyChecker
	snapshots storage.TokenSnapshotStore
	cfg       Config
	limiter   *rate.Limiter
	log       *logrus.Entry
	now       func() time.Time
}

// New creates a scanner. snapshots may be nil to skip recording.
func New(market MarketData, checker SafetyChecker, snapshots storage.TokenSnapshotStore, cfg Config, log *logrus.Entry) *Scanner {
	if cfg.Chain == "" {
		cfg.Chain = domain.ChainSolana
	}
	if log == nil {
		log = logrus.WithField("component", "scanner")
	}
	limit := rate.Inf
	if cfg.ItemDelay > 0 {
		limit = rate.Every(cfg.ItemDelay)
	}
	return &Scanner{
		market:    market,
		checker:   checker,
		snapshots: snapshots,
		cfg:       cfg,
		limiter:   rate.NewLimiter(limit, 1),
		log:       log,
		now:       time.Now,
	}
}

// Scan runs one discovery pass. Items are processed one at a time; a failing
// item is logged and skipped. The error is non-nil only when the listing
// itself cannot be fetched or the context ends.
func (s *Scanner) Scan(ctx context.Context) ([]Candidate, error) {
	profiles, err := s.market.LatestProfiles(ctx, s.cfg.Chain)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(profiles))
	var candidates []Candidate
	for _, p := range profiles {
		if p.TokenAddress == "" || seen[p.TokenAddress] {
			continue
		}
		seen[p.TokenAddress] = true

		if err := s.limiter.Wait(ctx); err != nil {
			return sortCandidates(candidates, s.cfg.MaxCandidates), err
		}

		c, outcome, err := s.evaluate(ctx, p)
		observability.RecordScannerCandidate(outcome)
		if err != nil {
			s.log.WithField("token", p.TokenAddress).WithError(err).Warn("scan item failed")
			continue
		}
		if c != nil {
			candidates = append(candidates, *c)
		}
	}

	out := sortCandidates(candidates, s.cfg.MaxCandidates)
	s.log.WithFields(logrus.Fields{
		"profiles":   len(profiles),
		"candidates": len(out),
	}).Info("scan complete")
	return out, nil
}

func (s *Scanner) evaluate(ctx context.Context, p dexscreener.TokenProfile) (*Candidate, string, error) {
	pair, err := s.market.BestPair(ctx, p.TokenAddress, s.cfg.Chain)
	if errors.Is(err, dexscreener.ErrNoPairs) {
		return nil, outcomeFiltered, nil
	}
	if err != nil {
		return nil, outcomeError, err
	}

	tok := pair.Token(s.now().UTC())
	if !s.passesFilters(tok) {
		s.record(ctx, tok, nil)
		return nil, outcomeFiltered, nil
	}

	var report *domain.SafetyReport
	if s.checker != nil {
		report, err = s.checker.RunFullSafetyCheck(ctx, tok.Address, s.cfg.Chain, s.cfg.Safety)
		if err != nil {
			s.record(ctx, tok, nil)
			return nil, outcomeError, err
		}
	}
	snap := s.record(ctx, tok, report)

	if report != nil && !report.PassesAllChecks {
		s.log.WithFields(logrus.Fields{
			"token": tok.Address,
			"score": report.SafetyScore,
			"risks": report.Risks,
		}).Debug("token rejected by safety checks")
		return nil, outcomeUnsafe, nil
	}

	return &Candidate{
		Token:          tok,
		Safety:         report,
		CompositeScore: snap.CompositeScore,
		ProfileURL:     p.URL,
	}, outcomeAccepted, nil
}

func (s *Scanner) passesFilters(t domain.Token) bool {
	if t.AgeMinutes < s.cfg.MinAgeMinutes || t.AgeMinutes > s.cfg.MaxAgeMinutes {
		return false
	}
	if t.LiquidityUSD < s.cfg.MinLiquidityUSD {
		return false
	}
	return math.Abs(t.PriceChange5m) >= s.cfg.MinPriceChange5m
}

// record stores the observation. Storage failures are logged only.
func (s *Scanner) record(ctx context.Context, t domain.Token, report *domain.SafetyReport) *domain.TokenSnapshot {
	snap := &domain.TokenSnapshot{Token: t, SafetyScore: -1}
	if report != nil {
		snap.SafetyScore = report.SafetyScore
		snap.SafetyGrade = report.SafetyGrade
	}
	snap.CompositeScore = CompositeScore(t, snap.SafetyScore)

	if s.snapshots != nil {
		if err := s.snapshots.Insert(ctx, snap); err != nil {
			s.log.WithField("token", t.Address).WithError(err).Warn("snapshot not recorded")
		}
	}
	return snap
}

func sortCandidates(c []Candidate, limit int) []Candidate {
	sort.SliceStable(c, func(i, j int) bool {
		return c[i].CompositeScore > c[j].CompositeScore
	})
	if limit > 0 && len(c) > limit {
		c = c[:limit]
	}
	return c
}
