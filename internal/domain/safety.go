package domain

import "time"

// Grade is the letter grade derived from a safety score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// AuthorityFlags describes who can still change a token.
// Account-model chains use MintAuthority/FreezeAuthority; contract-model chains
// use the owner and capability fields.
type AuthorityFlags struct {
	HasMintAuthority   bool   `json:"hasMintAuthority"`
	HasFreezeAuthority bool   `json:"hasFreezeAuthority"`
	MintAuthority      string `json:"mintAuthority"`   // base58, empty when revoked
	FreezeAuthority    string `json:"freezeAuthority"` // base58, empty when revoked

	Owner          string `json:"owner"` // hex, empty when unknown
	OwnerRenounced bool   `json:"ownerRenounced"`
	CanMint        bool   `json:"canMint"`
	CanPause       bool   `json:"canPause"`
	CanBlacklist   bool   `json:"canBlacklist"`
}

// HoneypotResult is the outcome of the sellability check.
type HoneypotResult struct {
	CanSell    bool    `json:"canSell"`
	BuyTax     float64 `json:"buyTax"`  // percent
	SellTax    float64 `json:"sellTax"` // percent
	IsHoneypot bool    `json:"isHoneypot"`
	Reason     string  `json:"reason"`
	Source     string  `json:"source"` // "api", "quote_probe" or "unknown"
}

// LiquidityStatus describes the LP position of the main pool.
type LiquidityStatus struct {
	Locked        bool    `json:"locked"`
	Burned        bool    `json:"burned"`
	Platform      string  `json:"platform"` // locker name, "burn" or empty
	PoolAddress   string  `json:"poolAddress"`
	LiquidityUSD  float64 `json:"liquidityUsd"`
	BurnedPercent float64 `json:"burnedPercent"`
}

// HolderStats summarises holder distribution.
type HolderStats struct {
	Top10Percent float64 `json:"top10Percent"`
	HolderCount  int     `json:"holderCount"`
}

// SafetyReport is the result of a full safety check.
// Reports are produced per request and must not be cached.
type SafetyReport struct {
	TokenAddress     string          `json:"tokenAddress"`
	Chain            Chain           `json:"chain"`
	Name             string          `json:"name"`   // best effort
	Symbol           string          `json:"symbol"` // best effort
	Authority        AuthorityFlags  `json:"authority"`
	Honeypot         HoneypotResult  `json:"honeypot"`
	Liquidity        LiquidityStatus `json:"liquidity"`
	Holders          HolderStats     `json:"holders"`
	CreatorRiskScore int             `json:"creatorRiskScore"` // 0 (clean) .. 100 (high risk)
	SafetyScore      int             `json:"safetyScore"`      // clamped to [0,100]
	SafetyGrade      Grade           `json:"safetyGrade"`
	Risks            []string        `json:"risks,omitempty"`
	Warnings         []string        `json:"warnings,omitempty"`
	PassesAllChecks  bool            `json:"passesAllChecks"`
	CheckedAt        time.Time       `json:"checkedAt"`
}
