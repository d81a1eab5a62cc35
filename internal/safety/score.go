package safety

import (
	"fmt"

	"solana-token-sniper/internal/domain"
)

// Risk messages.
const (
	RiskHoneypot        = "honeypot detected"
	RiskMintAuthority   = "mint authority active"
	RiskFreezeAuthority = "freeze authority active"
	RiskBlacklist       = "blacklist function with active owner"
	RiskSellTax         = "sell tax exceeds threshold"
	RiskBuyTax          = "buy tax exceeds threshold"
	RiskLiquidityUnsafe = "liquidity not locked or burned"
	RiskTop10           = "top10 concentration exceeds threshold"
	WarnLowLiquidity    = "low liquidity"
	WarnFewHolders      = "few holders"
	WarnCreatorHighRisk = "creator wallet high risk"
	WarnHoneypotNoRoute = "honeypot check inconclusive: no sell route"
	WarnOwnerActive     = "ownership not renounced"
	WarnPauseWithOwner  = "pause function with active owner"
)

type riskKind int

const (
	kindOther riskKind = iota
	kindHoneypot
	kindMint
	kindFreeze
	kindBlacklist
)

type risk struct {
	kind    riskKind
	message string
}

// Penalties are the score deductions for one chain family.
type Penalties struct {
	Major     int
	Honeypot  int
	Mint      int
	Freeze    int
	Blacklist int
	Warning   int
}

// Account-model tokens deduct a flat amount per major risk; contract-model
// tokens weight honeypots and privileged functions.
var (
	AccountPenalties  = Penalties{Major: 20, Honeypot: 20, Mint: 20, Freeze: 20, Blacklist: 20, Warning: 5}
	ContractPenalties = Penalties{Major: 20, Honeypot: 30, Mint: 20, Freeze: 15, Blacklist: 15, Warning: 5}
)

// PenaltiesFor returns the deduction table of a family.
func PenaltiesFor(family domain.ChainFamily) Penalties {
	if family == domain.ChainFamilyContract {
		return ContractPenalties
	}
	return AccountPenalties
}

func (p Penalties) cost(k riskKind) int {
	switch k {
	case kindHoneypot:
		return p.Honeypot
	case kindMint:
		return p.Mint
	case kindFreeze:
		return p.Freeze
	case kindBlacklist:
		return p.Blacklist
	default:
		return p.Major
	}
}

// gradeCutoffs lists minimum scores for A, B, C and D.
type gradeCutoffs [4]int

var (
	// contractGrades applies to contract-model chains.
	contractGrades = gradeCutoffs{90, 75, 60, 40}
	// accountGrades applies to account-model chains.
	accountGrades = gradeCutoffs{80, 60, 40, 20}
)

// GradeFor maps a score to a letter using the family's table. The two tables
// are not interchangeable.
func GradeFor(family domain.ChainFamily, score int) domain.Grade {
	cut := accountGrades
	if family == domain.ChainFamilyContract {
		cut = contractGrades
	}
	switch {
	case score >= cut[0]:
		return domain.GradeA
	case score >= cut[1]:
		return domain.GradeB
	case score >= cut[2]:
		return domain.GradeC
	case score >= cut[3]:
		return domain.GradeD
	default:
		return domain.GradeF
	}
}

// Assess derives risks, warnings, score, grade and the pass flag from the
// check results already on the report. Warnings present on the report (from
// degraded checks) are kept and also cost points.
func Assess(report *domain.SafetyReport, cfg Config) {
	family := report.Chain.Family()
	risks := findRisks(report, cfg, family)
	warnings := append(report.Warnings[:len(report.Warnings):len(report.Warnings)], findWarnings(report, cfg, family)...)

	p := PenaltiesFor(family)
	score := 100
	report.Risks = make([]string, 0, len(risks))
	for _, r := range risks {
		score -= p.cost(r.kind)
		report.Risks = append(report.Risks, r.message)
	}
	score -= p.Warning * len(warnings)

	report.Warnings = warnings
	report.SafetyScore = clamp(score, 0, 100)
	report.SafetyGrade = GradeFor(family, report.SafetyScore)
	report.PassesAllChecks = len(report.Risks) == 0 && !report.Honeypot.IsHoneypot
}

func findRisks(r *domain.SafetyReport, cfg Config, family domain.ChainFamily) []risk {
	var risks []risk
	add := func(k riskKind, msg string) { risks = append(risks, risk{kind: k, message: msg}) }

	if r.Honeypot.IsHoneypot {
		add(kindHoneypot, RiskHoneypot)
	}
	if r.Authority.HasMintAuthority {
		add(kindMint, RiskMintAuthority)
	}
	if family == domain.ChainFamilyAccount && r.Authority.HasFreezeAuthority {
		add(kindFreeze, RiskFreezeAuthority)
	}
	if family == domain.ChainFamilyContract && r.Authority.CanBlacklist && !r.Authority.OwnerRenounced {
		add(kindBlacklist, RiskBlacklist)
	}
	if r.Honeypot.SellTax > cfg.MaxSellTax && !r.Honeypot.IsHoneypot {
		add(kindOther, fmt.Sprintf("%s (%.1f%%)", RiskSellTax, r.Honeypot.SellTax))
	}
	if r.Honeypot.BuyTax > cfg.MaxBuyTax {
		add(kindOther, fmt.Sprintf("%s (%.1f%%)", RiskBuyTax, r.Honeypot.BuyTax))
	}
	if cfg.RequireLiquidityLocked && !r.Liquidity.Locked && !r.Liquidity.Burned {
		add(kindOther, RiskLiquidityUnsafe)
	}
	if r.Holders.Top10Percent > cfg.MaxTop10HoldersPercent {
		add(kindOther, RiskTop10)
	}
	return risks
}

func findWarnings(r *domain.SafetyReport, cfg Config, family domain.ChainFamily) []string {
	var warnings []string
	if r.Liquidity.LiquidityUSD < cfg.MinLiquidityUSD {
		warnings = append(warnings, WarnLowLiquidity)
	}
	if r.Holders.HolderCount < cfg.MinHolders {
		warnings = append(warnings, WarnFewHolders)
	}
	if r.CreatorRiskScore >= cfg.CreatorHighRisk {
		warnings = append(warnings, WarnCreatorHighRisk)
	}
	if family == domain.ChainFamilyContract && !r.Authority.OwnerRenounced {
		warnings = append(warnings, WarnOwnerActive)
		if r.Authority.CanPause {
			warnings = append(warnings, WarnPauseWithOwner)
		}
	}
	return warnings
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
