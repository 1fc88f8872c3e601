package analytics

import "math"

// neutralHurst is the Hurst value of a random walk.
const neutralHurst = 0.5

// MovingAverage returns the arithmetic means of every run of window
// consecutive prices, len(prices)-window+1 values in input order. It returns
// nil when window is outside [1, len(prices)].
func MovingAverage(prices []float64, window int) []float64 {
	if window < 1 || window > len(prices) {
		return nil
	}
	ma := make([]float64, 0, len(prices)-window+1)
	for i := 0; i <= len(prices)-window; i++ {
		sum := 0.0
		for _, p := range prices[i : i+window] {
			sum += p
		}
		ma = append(ma, sum/float64(window))
	}
	return ma
}

// SimplifiedHurst estimates the Hurst exponent of prices from a single
// rescaled range over the whole series: ln(R/S) / ln(n), clamped to [0, 1].
// This is deliberately not a multi-scale R/S regression; the mean-reversion
// weighting is tuned against this form.
//
// Series shorter than minSamples, and series whose estimate is not finite
// (non-positive prices), report the random-walk value 0.5.
func SimplifiedHurst(prices []float64, minSamples int) float64 {
	n := len(prices)
	if n < minSamples || n < 2 {
		return neutralHurst
	}

	logPrices := make([]float64, n)
	sum := 0.0
	for i, p := range prices {
		logPrices[i] = math.Log(p)
		sum += logPrices[i]
	}
	mean := sum / float64(n)

	cumDev := 0.0
	minDev, maxDev := math.Inf(1), math.Inf(-1)
	for _, lp := range logPrices {
		cumDev += lp - mean
		minDev = math.Min(minDev, cumDev)
		maxDev = math.Max(maxDev, cumDev)
	}
	rng := maxDev - minDev

	sumSq := 0.0
	for _, lp := range logPrices {
		d := lp - mean
		sumSq += d * d
	}
	stdDev := math.Sqrt(sumSq / float64(n))

	rs := 1.0
	if stdDev != 0 {
		rs = rng / stdDev
	}
	hurst := math.Log(rs) / math.Log(float64(n))
	if math.IsNaN(hurst) {
		return neutralHurst
	}

	return math.Max(0, math.Min(1, hurst))
}

// sign mirrors a three-way signum: -1, 0 or 1.
func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
