// Package alert turns computed pool metrics into threshold alerts.
package alert

import (
	"math"
	"time"

	"github.com/akbaridria/obrix/internal/analytics"
	"github.com/akbaridria/obrix/internal/domain"
)

// Thresholds configures the alert rules. A zero value disables its rule.
type Thresholds struct {
	VolatilityAbove    float64
	MeanReversionAbove float64
	// TWAPDeviationPct fires when the latest spot price differs from the
	// window TWAP by more than this many percent.
	TWAPDeviationPct float64
}

// Evaluator checks metrics results against Thresholds.
type Evaluator struct {
	th     Thresholds
	engine *analytics.Engine
}

// NewEvaluator creates an Evaluator. engine converts the latest swap price
// for the TWAP deviation rule.
func NewEvaluator(th Thresholds, engine *analytics.Engine) *Evaluator {
	return &Evaluator{th: th, engine: engine}
}

// Evaluate returns the alerts raised by res, computed over window. Empty
// results and metrics whose calculator failed never alert.
func (e *Evaluator) Evaluate(window domain.SwapWindow, res domain.MetricsResult, at time.Time) []domain.Alert {
	if res.IsEmpty {
		return nil
	}

	pair := res.Token0Symbol + "/" + res.Token1Symbol
	mk := func(event, metric string, value, threshold float64) domain.Alert {
		return domain.Alert{
			Event:     event,
			PoolID:    res.PoolID,
			Pair:      pair,
			Metric:    metric,
			Value:     value,
			Threshold: threshold,
			CreatedAt: at,
		}
	}

	var alerts []domain.Alert
	if e.th.VolatilityAbove > 0 && res.Success.Volatility && res.Volatility > e.th.VolatilityAbove {
		alerts = append(alerts, mk(domain.EventVolatilitySpike, "volatility", res.Volatility, e.th.VolatilityAbove))
	}
	if e.th.MeanReversionAbove > 0 && res.Success.MeanReversion && res.MeanReversion > e.th.MeanReversionAbove {
		alerts = append(alerts, mk(domain.EventMeanReversionHigh, "mean_reversion", res.MeanReversion, e.th.MeanReversionAbove))
	}
	if dev, ok := e.twapDeviation(window, res); ok && e.th.TWAPDeviationPct > 0 && dev > e.th.TWAPDeviationPct {
		alerts = append(alerts, mk(domain.EventTWAPDeviation, "twap_deviation_pct", dev, e.th.TWAPDeviationPct))
	}
	return alerts
}

// twapDeviation returns |spot - twap| / twap in percent, using the last swap
// of the window as spot.
func (e *Evaluator) twapDeviation(window domain.SwapWindow, res domain.MetricsResult) (float64, bool) {
	if !res.Success.TWAP || res.TWAP <= 0 || len(window.Swaps) == 0 {
		return 0, false
	}
	spot, err := e.engine.SpotPrice(window.Swaps[len(window.Swaps)-1], window.Pool)
	if err != nil {
		return 0, false
	}
	dev := math.Abs(spot-res.TWAP) / res.TWAP * 100
	if math.IsNaN(dev) || math.IsInf(dev, 0) {
		return 0, false
	}
	return dev, true
}
