package analytics

import (
	"math/big"

	"github.com/akbaridria/obrix/internal/domain"
)

func poolWithDecimals(d0, d1 *int) domain.PoolInfo {
	return domain.PoolInfo{
		ID:     "0xpool",
		Token0: domain.Token{Symbol: "WETH", Decimals: d0},
		Token1: domain.Token{Symbol: "USDC", Decimals: d1},
	}
}

// flatPool prices swaps 1:1 so that a sqrtPriceX96 of k*2^96 is a price of k^2.
func flatPool() domain.PoolInfo {
	zero := 0
	return poolWithDecimals(&zero, &zero)
}

type tick struct {
	t int64
	k int64
}

func swapsOf(ticks ...tick) []domain.SwapRecord {
	out := make([]domain.SwapRecord, len(ticks))
	for i, tk := range ticks {
		out[i] = domain.SwapRecord{
			ID:           big.NewInt(int64(i)).String(),
			Timestamp:    tk.t,
			SqrtPriceX96: sqrtX96(tk.k),
		}
	}
	return out
}

// evenly spaces one swap per minute at the given sqrt multipliers.
func evenly(ks ...int64) []domain.SwapRecord {
	ticks := make([]tick, len(ks))
	for i, k := range ks {
		ticks[i] = tick{t: int64(i) * 60, k: k}
	}
	return swapsOf(ticks...)
}
