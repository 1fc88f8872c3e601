// Package analytics turns a window of AMM swaps into the pool risk metrics:
// time-weighted average price, annualized volatility and the mean-reversion
// index. Every function in this package is pure; an Engine can be shared by
// any number of goroutines.
package analytics

// Config holds the tunables of the metrics engine. The zero value is not
// useful; start from DefaultConfig and override individual fields.
type Config struct {
	// DefaultToken0Decimals is used when the pool does not report decimals
	// for token0.
	DefaultToken0Decimals int
	// DefaultToken1Decimals is used when the pool does not report decimals
	// for token1.
	DefaultToken1Decimals int

	// MaxMAWindow caps the moving-average window used for crossing counts.
	MaxMAWindow int

	// Minimum number of swaps each calculator needs before it produces a value.
	MinSwapsTWAP          int
	MinSwapsVolatility    int
	MinSwapsMeanReversion int
	// MinSamplesHurst is the shortest price series that gets a real Hurst
	// estimate; shorter series report the random-walk value 0.5.
	MinSamplesHurst int

	// CrossingWeight and HurstWeight blend the two mean-reversion signals.
	CrossingWeight float64
	HurstWeight    float64

	// SecondsPerYear is the annualization horizon for volatility.
	SecondsPerYear float64
}

// DefaultConfig returns the engine parameters the alerting thresholds were
// tuned against.
func DefaultConfig() Config {
	return Config{
		DefaultToken0Decimals: 18,
		DefaultToken1Decimals: 6,
		MaxMAWindow:           20,
		MinSwapsTWAP:          2,
		MinSwapsVolatility:    2,
		MinSwapsMeanReversion: 10,
		MinSamplesHurst:       20,
		CrossingWeight:        0.6,
		HurstWeight:           0.4,
		SecondsPerYear:        365.25 * 24 * 3600,
	}
}

// withDefaults fills any non-positive tunable from DefaultConfig so that a
// partially populated Config still yields a usable engine. Decimals are
// different because 0 is a real token precision: a negative value falls
// back, and so does an all-zero pair, which is how an unset pair looks.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultToken0Decimals == 0 && c.DefaultToken1Decimals == 0 {
		c.DefaultToken0Decimals = d.DefaultToken0Decimals
		c.DefaultToken1Decimals = d.DefaultToken1Decimals
	}
	if c.DefaultToken0Decimals < 0 {
		c.DefaultToken0Decimals = d.DefaultToken0Decimals
	}
	if c.DefaultToken1Decimals < 0 {
		c.DefaultToken1Decimals = d.DefaultToken1Decimals
	}
	if c.MaxMAWindow <= 0 {
		c.MaxMAWindow = d.MaxMAWindow
	}
	if c.MinSwapsTWAP <= 0 {
		c.MinSwapsTWAP = d.MinSwapsTWAP
	}
	if c.MinSwapsVolatility <= 0 {
		c.MinSwapsVolatility = d.MinSwapsVolatility
	}
	if c.MinSwapsMeanReversion <= 0 {
		c.MinSwapsMeanReversion = d.MinSwapsMeanReversion
	}
	if c.MinSamplesHurst <= 0 {
		c.MinSamplesHurst = d.MinSamplesHurst
	}
	if c.CrossingWeight <= 0 && c.HurstWeight <= 0 {
		c.CrossingWeight = d.CrossingWeight
		c.HurstWeight = d.HurstWeight
	}
	if c.SecondsPerYear <= 0 {
		c.SecondsPerYear = d.SecondsPerYear
	}
	return c
}
