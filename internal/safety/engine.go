package safety

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/observability"
)

// NeutralCreatorRisk is used when the creator cannot be assessed.
const NeutralCreatorRisk = 50

var (
	// ErrNoSellRoute means no sell quote could be found at any probe size.
	// It never implies a honeypot.
	ErrNoSellRoute = errors.New("no sell route")
	// ErrUnsupported means the check does not exist for the chain family.
	ErrUnsupported = errors.New("check not supported")
	// ErrNoInspector means no inspector is registered for the chain family.
	ErrNoInspector = errors.New("no inspector for chain family")
)

// Inspector gathers raw check results for one chain family.
type Inspector interface {
	Family() domain.ChainFamily
	ValidateAddress(token string) error

	Authority(ctx context.Context, token string, chain domain.Chain) (domain.AuthorityFlags, error)
	Honeypot(ctx context.Context, token string, chain domain.Chain) (domain.HoneypotResult, error)
	// Liquidity may return a partial status alongside an error.
	Liquidity(ctx context.Context, token string, chain domain.Chain) (domain.LiquidityStatus, error)
	Holders(ctx context.Context, token string, chain domain.Chain) (domain.HolderStats, error)
	CreatorRisk(ctx context.Context, token string, chain domain.Chain) (int, error)
}

// MetadataInspector is implemented by inspectors that can resolve name and symbol.
type MetadataInspector interface {
	Metadata(ctx context.Context, token string) (name, symbol string, err error)
}

// Engine runs all checks for a token concurrently and aggregates them into a report.
type Engine struct {
	inspectors map[domain.ChainFamily]Inspector
	log        *logrus.Entry
	now        func() time.Time
}

// NewEngine creates an engine with one inspector per chain family.
func NewEngine(log *logrus.Entry, inspectors ...Inspector) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	e := &Engine{
		inspectors: make(map[domain.ChainFamily]Inspector, len(inspectors)),
		log:        log.WithField("component", "safety"),
		now:        time.Now,
	}
	for _, in := range inspectors {
		e.inspectors[in.Family()] = in
	}
	return e
}

// check results, each written by exactly one goroutine.
type checkResults struct {
	authority   domain.AuthorityFlags
	honeypot    domain.HoneypotResult
	liquidity   domain.LiquidityStatus
	holders     domain.HolderStats
	creatorRisk int
	name        string
	symbol      string

	authorityWarn, honeypotWarn, liquidityWarn, holdersWarn, creatorWarn string
}

// RunFullSafetyCheck runs every check for the token and returns the report.
// The only error is a malformed address or an unknown chain; sub-check
// failures degrade to conservative values and add a warning.
func (e *Engine) RunFullSafetyCheck(ctx context.Context, token string, chain domain.Chain, cfg Config) (*domain.SafetyReport, error) {
	if chain == "" {
		chain = domain.ChainSolana
	}
	if !chain.IsValid() {
		return nil, domain.Validationf("unknown chain %q", chain)
	}
	in, ok := e.inspectors[chain.Family()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoInspector, chain.Family())
	}
	if err := in.ValidateAddress(token); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	start := time.Now()
	log := e.log.WithFields(logrus.Fields{"token": token, "chain": chain})
	res := &checkResults{}

	// Each check degrades on failure, so none of them fail the group.
	g, gctx := errgroup.WithContext(ctx)
	run := func(name string, fn func(context.Context) error, degrade func(error)) {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, cfg.CheckTimeout)
			defer cancel()
			if err := fn(cctx); err != nil {
				degrade(err)
				if !errors.Is(err, ErrUnsupported) && !errors.Is(err, ErrNoSellRoute) {
					observability.RecordSafetyDegradation(name)
					log.WithError(err).WithField("check", name).Warn("check degraded")
				}
			}
			return nil
		})
	}

	run("authority", func(ctx context.Context) (err error) {
		res.authority, err = in.Authority(ctx, token, chain)
		return err
	}, func(err error) {
		// Unknown authority is treated as present.
		res.authority = domain.AuthorityFlags{HasMintAuthority: true, HasFreezeAuthority: true}
		if chain.Family() == domain.ChainFamilyContract {
			res.authority = domain.AuthorityFlags{HasMintAuthority: true, CanMint: true}
		}
		res.authorityWarn = unavailable("authority", err)
	})

	run("honeypot", func(ctx context.Context) (err error) {
		res.honeypot, err = in.Honeypot(ctx, token, chain)
		return err
	}, func(err error) {
		res.honeypot = domain.HoneypotResult{CanSell: false, IsHoneypot: false, Source: "unknown"}
		if errors.Is(err, ErrNoSellRoute) {
			res.honeypotWarn = WarnHoneypotNoRoute
			return
		}
		res.honeypotWarn = unavailable("honeypot", err)
	})

	run("liquidity", func(ctx context.Context) (err error) {
		res.liquidity, err = in.Liquidity(ctx, token, chain)
		return err
	}, func(err error) {
		res.liquidity.Locked = false
		res.liquidity.Burned = false
		res.liquidity.Platform = ""
		res.liquidityWarn = unavailable("liquidity", err)
	})

	run("holders", func(ctx context.Context) (err error) {
		res.holders, err = in.Holders(ctx, token, chain)
		return err
	}, func(err error) {
		res.holders = domain.HolderStats{Top10Percent: 100, HolderCount: 0}
		res.holdersWarn = unavailable("holders", err)
	})

	run("creator", func(ctx context.Context) (err error) {
		res.creatorRisk, err = in.CreatorRisk(ctx, token, chain)
		return err
	}, func(err error) {
		res.creatorRisk = NeutralCreatorRisk
		if !errors.Is(err, ErrUnsupported) {
			res.creatorWarn = unavailable("creator", err)
		}
	})

	if meta, ok := in.(MetadataInspector); ok {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, cfg.CheckTimeout)
			defer cancel()
			name, symbol, err := meta.Metadata(cctx, token)
			if err != nil {
				log.WithError(err).Debug("metadata lookup failed")
				return nil
			}
			res.name, res.symbol = name, symbol
			return nil
		})
	}

	_ = g.Wait()

	report := &domain.SafetyReport{
		TokenAddress:     token,
		Chain:            chain,
		Name:             res.name,
		Symbol:           res.symbol,
		Authority:        res.authority,
		Honeypot:         res.honeypot,
		Liquidity:        res.liquidity,
		Holders:          res.holders,
		CreatorRiskScore: clamp(res.creatorRisk, 0, 100),
		CheckedAt:        e.now().UTC(),
	}
	for _, w := range []string{res.authorityWarn, res.honeypotWarn, res.liquidityWarn, res.holdersWarn, res.creatorWarn} {
		if w != "" {
			report.Warnings = append(report.Warnings, w)
		}
	}
	Assess(report, cfg)

	observability.RecordSafetyCheck(string(chain.Family()), string(report.SafetyGrade), time.Since(start).Seconds())
	log.WithFields(logrus.Fields{
		"score":  report.SafetyScore,
		"grade":  report.SafetyGrade,
		"risks":  len(report.Risks),
		"passes": report.PassesAllChecks,
	}).Info("safety check complete")

	return report, nil
}

func unavailable(check string, err error) string {
	return fmt.Sprintf("%s check unavailable: %v", check, err)
}
