package analytics

import (
	"math"
	"math/big"

	"github.com/akbaridria/obrix/internal/domain"
)

// q96 is 2^96, the fixed-point scale of Uniswap sqrtPriceX96 values.
var q96 = math.Ldexp(1, 96)

// SqrtPriceX96ToPrice converts a Q64.96 square-root price into the spot price
// of token0 denominated in token1, adjusted for the two tokens' decimals.
//
// The integer is first rounded to the nearest float64 and only then divided
// by 2^96, so small values never truncate to zero the way integer division
// would. A nil input converts to 0.
func SqrtPriceX96ToPrice(sqrtPriceX96 *big.Int, decimals0, decimals1 int) float64 {
	if sqrtPriceX96 == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(sqrtPriceX96).Float64()
	sqrtPrice := f / q96
	price := sqrtPrice * sqrtPrice

	return price * math.Pow(10, float64(decimals0-decimals1))
}

// decimals resolves the pool's token decimals, falling back to the engine
// defaults for whichever side is missing.
func (e *Engine) decimals(pool domain.PoolInfo) (int, int) {
	d0 := e.cfg.DefaultToken0Decimals
	d1 := e.cfg.DefaultToken1Decimals
	if pool.Token0.Decimals != nil {
		d0 = *pool.Token0.Decimals
	}
	if pool.Token1.Decimals != nil {
		d1 = *pool.Token1.Decimals
	}
	return d0, d1
}

// prices converts every swap in order. It fails on a missing or negative
// sqrtPriceX96 instead of silently pricing it.
func (e *Engine) prices(swaps []domain.SwapRecord, pool domain.PoolInfo) ([]float64, error) {
	d0, d1 := e.decimals(pool)
	out := make([]float64, len(swaps))
	for i, s := range swaps {
		if err := checkSqrtPrice(s); err != nil {
			return nil, err
		}
		out[i] = SqrtPriceX96ToPrice(s.SqrtPriceX96, d0, d1)
	}
	return out, nil
}

// SpotPrice returns the converted price of a single swap using the engine's
// decimal defaults.
func (e *Engine) SpotPrice(swap domain.SwapRecord, pool domain.PoolInfo) (float64, error) {
	if err := checkSqrtPrice(swap); err != nil {
		return 0, err
	}
	d0, d1 := e.decimals(pool)
	return SqrtPriceX96ToPrice(swap.SqrtPriceX96, d0, d1), nil
}
