package analytics

import (
	"math"

	"github.com/akbaridria/obrix/internal/domain"
)

// Outcome is the result of a single calculator. A calculator that lacks data
// or hits a numeric anomaly reports Success=false with a zero Value instead of
// returning an error, so one failing statistic never blocks the others.
type Outcome struct {
	Success bool
	Value   float64
}

func failed() Outcome { return Outcome{} }

func succeeded(v float64) Outcome {
	if !finite(v) {
		return failed()
	}
	return Outcome{Success: true, Value: v}
}

// Engine computes pool risk metrics from swap windows.
type Engine struct {
	cfg Config
}

// New creates an Engine. Non-positive tunables in cfg fall back to
// DefaultConfig. Default decimals fall back when negative or when both are
// zero; a single zero is kept.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Config returns the effective engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Hurst runs SimplifiedHurst with the engine's sample floor.
func (e *Engine) Hurst(prices []float64) float64 {
	return SimplifiedHurst(prices, e.cfg.MinSamplesHurst)
}

// TWAP returns the time-weighted average price of the window. Each interval
// between consecutive swaps is priced at the swap that opens it (left
// endpoint). A window spanning zero seconds yields a successful 0.
func (e *Engine) TWAP(swaps []domain.SwapRecord, pool domain.PoolInfo) Outcome {
	if len(swaps) < e.cfg.MinSwapsTWAP || len(swaps) < 2 {
		return failed()
	}
	prices, err := e.prices(swaps, pool)
	if err != nil {
		return failed()
	}

	priceTimeSum := 0.0
	totalTime := 0.0
	for i := 1; i < len(swaps); i++ {
		dt := float64(swaps[i].Timestamp - swaps[i-1].Timestamp)
		priceTimeSum += prices[i-1] * dt
		totalTime += dt
	}

	if totalTime <= 0 {
		return succeeded(0)
	}
	return succeeded(priceTimeSum / totalTime)
}

// Volatility returns the annualized standard deviation of log returns. The
// variance uses the population divisor and the annualization factor is
// derived from the average spacing between swaps.
func (e *Engine) Volatility(swaps []domain.SwapRecord, pool domain.PoolInfo) Outcome {
	n := len(swaps)
	if n < e.cfg.MinSwapsVolatility || n < 2 {
		return failed()
	}
	prices, err := e.prices(swaps, pool)
	if err != nil {
		return failed()
	}

	returns := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}

	sum := 0.0
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	sumSq := 0.0
	for _, r := range returns {
		d := r - mean
		sumSq += d * d
	}
	volatility := math.Sqrt(sumSq / float64(len(returns)))

	avgInterval := float64(swaps[n-1].Timestamp-swaps[0].Timestamp) / float64(n-1)
	periodsPerYear := e.cfg.SecondsPerYear / avgInterval

	return succeeded(volatility * math.Sqrt(periodsPerYear))
}

// MeanReversion returns the mean-reversion index in [0, 1]: a weighted blend
// of how often price crosses its moving average relative to a random walk,
// and how far the Hurst estimate sits below 0.5.
func (e *Engine) MeanReversion(swaps []domain.SwapRecord, pool domain.PoolInfo) Outcome {
	n := len(swaps)
	if n < e.cfg.MinSwapsMeanReversion || n < 2 {
		return failed()
	}
	prices, err := e.prices(swaps, pool)
	if err != nil {
		return failed()
	}

	window := min(e.cfg.MaxMAWindow, n/2)
	ma := MovingAverage(prices, window)
	if ma == nil {
		return failed()
	}

	// price[i] is compared against the average of the window starting at
	// i-window+1, and price[i-1] against the one starting at i-window.
	crossings := 0
	for i := window; i < n; i++ {
		if sign(prices[i]-ma[i-window+1]) != sign(prices[i-1]-ma[i-window]) {
			crossings++
		}
	}

	windows := float64(n - window + 1)
	expected := windows / 2
	crossingScore := math.Min(float64(crossings)/expected, 2) / 2

	hurst := e.Hurst(prices)
	hurstScore := math.Max(0, 1-2*hurst)

	return succeeded(e.cfg.CrossingWeight*crossingScore + e.cfg.HurstWeight*hurstScore)
}

// Compute runs every calculator over the window and assembles the result.
// Windows with fewer than two swaps short-circuit to an empty result that
// still carries the pool identity, so callers can tell "no data" apart from
// a computed zero. Compute never fails.
func (e *Engine) Compute(window domain.SwapWindow) domain.MetricsResult {
	res := domain.MetricsResult{
		PoolID:       window.PoolID,
		Token0Symbol: window.Pool.Token0.Symbol,
		Token1Symbol: window.Pool.Token1.Symbol,
		Swaps:        window.Swaps,
	}
	if len(window.Swaps) < 2 {
		res.IsEmpty = true
		return res
	}

	twap := e.TWAP(window.Swaps, window.Pool)
	vol := e.Volatility(window.Swaps, window.Pool)
	mr := e.MeanReversion(window.Swaps, window.Pool)

	res.TWAP = twap.Value
	res.Volatility = vol.Value
	res.MeanReversion = mr.Value
	res.Success = domain.SuccessFlags{
		TWAP:          twap.Success,
		Volatility:    vol.Success,
		MeanReversion: mr.Success,
	}
	return res
}
