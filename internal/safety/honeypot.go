package safety

import (
	"context"
	"errors"
	"fmt"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/jupiter"
)

// ProbeAmounts are the sell sizes tried, largest first, in token base units.
var ProbeAmounts = []uint64{1_000_000_000, 100_000_000, 10_000_000, 1_000_000}

// HoneypotSellTax is the effective sell tax treated as an observed failed sell.
const HoneypotSellTax = 99.0

// probeSellRoute asks the aggregator for sell quotes at decreasing sizes.
// The first quote below HoneypotSellTax wins. A quote at or above it may be
// the probe's own price impact on a thin pool, so smaller sizes are still
// tried; the token is a honeypot only when every quoted size is confiscatory,
// and otherwise the smallest quoted size sets the sell tax. If every size
// reports no route the result is inconclusive (ErrNoSellRoute); other
// failures are returned as errors.
func probeSellRoute(ctx context.Context, q Quoter, token, nativeMint string) (domain.HoneypotResult, error) {
	var (
		lastErr   error
		noRoute   int
		quoted    bool
		highTax   bool
		sellTax float64
	)
	for _, amount := range ProbeAmounts {
		quote, err := q.Quote(ctx, jupiter.QuoteRequest{
			InputMint:   token,
			OutputMint:  nativeMint,
			Amount:      amount,
			SlippageBps: 5000,
		})
		if err != nil {
			if errors.Is(err, jupiter.ErrNoRoute) {
				noRoute++
			} else {
				lastErr = err
			}
			if ctx.Err() != nil {
				return domain.HoneypotResult{}, ctx.Err()
			}
			continue
		}

		quoted = true
		if quote.PriceImpactPct < HoneypotSellTax {
			if !highTax {
				return domain.HoneypotResult{CanSell: true, SellTax: quote.PriceImpactPct, Source: "quote_probe"}, nil
			}
			sellTax = quote.PriceImpactPct
			continue
		}
		if !highTax || quote.PriceImpactPct < sellTax {
			sellTax = quote.PriceImpactPct
		}
		highTax = true
	}

	if quoted {
		if sellTax < HoneypotSellTax {
			return domain.HoneypotResult{CanSell: true, SellTax: sellTax, Source: "quote_probe"}, nil
		}
		return domain.HoneypotResult{
			IsHoneypot: true,
			SellTax:    sellTax,
			Source:     "quote_probe",
			Reason:     fmt.Sprintf("effective sell tax %.1f%% at every size", sellTax),
		}, nil
	}
	if noRoute == len(ProbeAmounts) || lastErr == nil {
		return domain.HoneypotResult{}, ErrNoSellRoute
	}
	return domain.HoneypotResult{}, fmt.Errorf("sell probe: %w", lastErr)
}
