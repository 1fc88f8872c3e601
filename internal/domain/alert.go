package domain

import "time"

// Alert is a threshold breach raised from a metrics computation.
type Alert struct {
	Event     string    `json:"event"`
	PoolID    string    `json:"poolId"`
	Pair      string    `json:"pair"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	CreatedAt time.Time `json:"createdAt"`
}

// Alert event names. They double as notification filter keys.
const (
	EventVolatilitySpike   = "volatility_spike"
	EventMeanReversionHigh = "mean_reversion_high"
	EventTWAPDeviation     = "twap_deviation"
	EventError             = "error"
)
