package domain

// PriorityLevel names a rung on the priority fee ladder.
type PriorityLevel string

const (
	PriorityMin       PriorityLevel = "min"
	PriorityLow       PriorityLevel = "low"
	PriorityMedium    PriorityLevel = "medium"
	PriorityHigh      PriorityLevel = "high"
	PriorityVeryHigh  PriorityLevel = "veryHigh"
	PriorityUnsafeMax PriorityLevel = "unsafeMax"
)

// PriorityLevels lists the ladder from cheapest to most expensive.
var PriorityLevels = []PriorityLevel{
	PriorityMin, PriorityLow, PriorityMedium, PriorityHigh, PriorityVeryHigh, PriorityUnsafeMax,
}

// Rank returns the position of the level on the ladder, -1 if unknown.
func (l PriorityLevel) Rank() int {
	for i, lvl := range PriorityLevels {
		if lvl == l {
			return i
		}
	}
	return -1
}

// IsValid reports whether the level is on the ladder.
func (l PriorityLevel) IsValid() bool {
	return l.Rank() >= 0
}

// PriorityFeeEstimate is a fee ladder in micro-lamports per compute unit.
// Estimates are regenerated per request and never persisted.
type PriorityFeeEstimate struct {
	Min         uint64 `json:"min"`
	Low         uint64 `json:"low"`
	Medium      uint64 `json:"medium"`
	High        uint64 `json:"high"`
	VeryHigh    uint64 `json:"veryHigh"`
	UnsafeMax   uint64 `json:"unsafeMax"`
	Recommended uint64 `json:"recommended"`
	Source      string `json:"source"` // "api" or "fallback"
}

// Level returns the fee for the given rung. Unknown levels return Recommended.
func (e PriorityFeeEstimate) Level(l PriorityLevel) uint64 {
	switch l {
	case PriorityMin:
		return e.Min
	case PriorityLow:
		return e.Low
	case PriorityMedium:
		return e.Medium
	case PriorityHigh:
		return e.High
	case PriorityVeryHigh:
		return e.VeryHigh
	case PriorityUnsafeMax:
		return e.UnsafeMax
	default:
		return e.Recommended
	}
}
