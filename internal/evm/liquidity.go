package evm

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"solana-token-sniper/internal/domain"
)

// BurnThresholdPercent is the share of LP supply held by dead addresses
// above which liquidity counts as burned.
const BurnThresholdPercent = 95.0

// DeadAddresses hold LP tokens that can never be withdrawn.
var DeadAddresses = []common.Address{
	common.HexToAddress("0x000000000000000000000000000000000000dEaD"),
	common.HexToAddress("0x0000000000000000000000000000000000000000"),
}

// DefaultLockers maps well-known LP locker contracts to their platform name.
var DefaultLockers = map[string]string{
	"0x663a5c229c09b049e36dcc11a9b0d4a8eb9db214": "unicrypt",
	"0xe2fe530c047f2d85298b07d9333c05737f1435fb": "team.finance",
	"0x71b5759d73262fbb223956913ecf4ecc51057641": "pinklock",
}

// LiquidityLock checks how much of the pair's LP supply is burned or held by lockers.
func (i *Inspector) LiquidityLock(ctx context.Context, pair string, lockers map[string]string) (domain.LiquidityStatus, error) {
	status := domain.LiquidityStatus{PoolAddress: pair}
	lp, err := ParseAddress(pair)
	if err != nil {
		return status, err
	}
	if lockers == nil {
		lockers = DefaultLockers
	}

	supply, err := i.TotalSupply(ctx, lp)
	if err != nil {
		return status, err
	}
	if supply.Sign() == 0 {
		return status, nil
	}

	dead := new(big.Int)
	for _, addr := range DeadAddresses {
		bal, err := i.BalanceOf(ctx, lp, addr)
		if err != nil {
			return status, err
		}
		dead.Add(dead, bal)
	}
	status.BurnedPercent = percentOf(dead, supply)
	if status.BurnedPercent > BurnThresholdPercent {
		status.Burned = true
		status.Platform = "burn"
		return status, nil
	}

	for addr, platform := range lockers {
		bal, err := i.BalanceOf(ctx, lp, common.HexToAddress(strings.ToLower(addr)))
		if err != nil {
			return status, err
		}
		if bal.Sign() > 0 {
			status.Locked = true
			status.Platform = platform
			break
		}
	}
	return status, nil
}

func percentOf(part, whole *big.Int) float64 {
	pct, _ := new(big.Float).Quo(
		new(big.Float).Mul(new(big.Float).SetInt(part), big.NewFloat(100)),
		new(big.Float).SetInt(whole),
	).Float64()
	return pct
}
