package rpcservice

import (
	"context"
	"math"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/observability"
)

// FallbackFeeEstimate is served whenever the fee API cannot answer.
// Values are micro-lamports per compute unit.
func FallbackFeeEstimate() domain.PriorityFeeEstimate {
	return domain.PriorityFeeEstimate{
		Min:         0,
		Low:         1_000,
		Medium:      10_000,
		High:        100_000,
		VeryHigh:    1_000_000,
		UnsafeMax:   10_000_000,
		Recommended: 10_000,
		Source:      "fallback",
	}
}

// GetPriorityFeeEstimate returns an account-scoped fee ladder. It never fails:
// any upstream problem yields FallbackFeeEstimate.
func (s *Service) GetPriorityFeeEstimate(ctx context.Context, accountKeys []string) domain.PriorityFeeEstimate {
	client, kind := s.active()

	feeCtx, cancel := context.WithTimeout(ctx, s.cfg.FeeTimeout)
	defer cancel()

	res, err := client.GetPriorityFeeEstimate(feeCtx, accountKeys)
	if err != nil || res == nil || res.PriorityFeeLevels == nil {
		entry := s.log.WithField("endpoint", kind)
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Warn("priority fee estimate unavailable, using fallback ladder")
		observability.RecordFeeFallback()
		return FallbackFeeEstimate()
	}

	lv := res.PriorityFeeLevels
	est := domain.PriorityFeeEstimate{
		Min:       toMicroLamports(lv.Min),
		Low:       toMicroLamports(lv.Low),
		Medium:    toMicroLamports(lv.Medium),
		High:      toMicroLamports(lv.High),
		VeryHigh:  toMicroLamports(lv.VeryHigh),
		UnsafeMax: toMicroLamports(lv.UnsafeMax),
		Source:    "api",
	}
	normalizeLadder(&est)

	est.Recommended = toMicroLamports(res.PriorityFeeEstimate)
	if est.Recommended == 0 {
		est.Recommended = est.Medium
	}
	return est
}

func toMicroLamports(v float64) uint64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return uint64(math.Ceil(v))
}

// normalizeLadder makes each rung at least as expensive as the one below,
// so escalating the level never lowers the fee.
func normalizeLadder(e *domain.PriorityFeeEstimate) {
	rungs := []*uint64{&e.Min, &e.Low, &e.Medium, &e.High, &e.VeryHigh, &e.UnsafeMax}
	for i := 1; i < len(rungs); i++ {
		if *rungs[i] < *rungs[i-1] {
			*rungs[i] = *rungs[i-1]
		}
	}
}
