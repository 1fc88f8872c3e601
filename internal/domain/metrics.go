package domain

import "time"

// SuccessFlags records which calculators produced a real value. A false flag
// means the matching metric is a default zero, not a computed one.
type SuccessFlags struct {
	TWAP          bool `json:"twap"`
	Volatility    bool `json:"volatility"`
	MeanReversion bool `json:"meanReversion"`
}

// MetricsResult is the outcome of one metrics computation over a swap window.
type MetricsResult struct {
	IsEmpty       bool         `json:"isEmpty"`
	TWAP          float64      `json:"twap"`
	Volatility    float64      `json:"volatility"`
	MeanReversion float64      `json:"meanReversion"`
	PoolID        string       `json:"poolId"`
	Token0Symbol  string       `json:"token0Symbol"`
	Token1Symbol  string       `json:"token1Symbol"`
	Swaps         []SwapRecord `json:"swaps,omitempty"`
	Success       SuccessFlags `json:"success"`
}

// PoolMetrics is a persisted metrics row.
type PoolMetrics struct {
	ID            string       `json:"id"`
	Protocol      string       `json:"protocol"`
	Chain         string       `json:"chain"`
	Version       string       `json:"version"`
	PoolID        string       `json:"poolId"`
	Token0Symbol  string       `json:"token0Symbol"`
	Token1Symbol  string       `json:"token1Symbol"`
	TWAP          float64      `json:"twap"`
	Volatility    float64      `json:"volatility"`
	MeanReversion float64      `json:"meanReversion"`
	IsEmpty       bool         `json:"isEmpty"`
	Success       SuccessFlags `json:"success"`
	SwapCount     int          `json:"swapCount"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// Source identifies the venue a metrics row was computed for.
type Source struct {
	Protocol string
	Chain    string
	Version  string
}

// NewPoolMetrics flattens a computation result into a row ready to persist.
func NewPoolMetrics(src Source, res MetricsResult) PoolMetrics {
	return PoolMetrics{
		Protocol:      src.Protocol,
		Chain:         src.Chain,
		Version:       src.Version,
		PoolID:        res.PoolID,
		Token0Symbol:  res.Token0Symbol,
		Token1Symbol:  res.Token1Symbol,
		TWAP:          res.TWAP,
		Volatility:    res.Volatility,
		MeanReversion: res.MeanReversion,
		IsEmpty:       res.IsEmpty,
		Success:       res.Success,
		SwapCount:     len(res.Swaps),
	}
}
