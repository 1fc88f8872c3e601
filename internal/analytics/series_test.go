package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMovingAverage(t *testing.T) {
	ma := MovingAverage([]float64{1, 2, 3, 4}, 2)
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, ma)

	ma = MovingAverage([]float64{1, 2, 3, 4}, 4)
	assert.Equal(t, []float64{2.5}, ma)

	ma = MovingAverage([]float64{5, 7}, 1)
	assert.Equal(t, []float64{5, 7}, ma)
}

func TestMovingAverage_InvalidWindow(t *testing.T) {
	assert.Nil(t, MovingAverage([]float64{1, 2}, 0))
	assert.Nil(t, MovingAverage([]float64{1, 2}, 3))
	assert.Nil(t, MovingAverage(nil, 1))
}

func TestSimplifiedHurst_ShortSeriesIsNeutral(t *testing.T) {
	for n := 0; n < 20; n++ {
		prices := make([]float64, n)
		for i := range prices {
			prices[i] = float64(i + 1)
		}
		assert.Equal(t, 0.5, SimplifiedHurst(prices, 20), "n=%d", n)
	}
}

func TestSimplifiedHurst_ConstantSeries(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 1
	}
	// Zero deviation: rs falls back to 1 and ln(1)/ln(n) is 0.
	assert.Equal(t, 0.0, SimplifiedHurst(prices, 20))
}

func TestSimplifiedHurst_AlwaysClamped(t *testing.T) {
	series := map[string]func(i int) float64{
		"trend":       func(i int) float64 { return math.Exp(float64(i) * 0.05) },
		"alternating": func(i int) float64 { return 1 + float64(i%2) },
		"sawtooth":    func(i int) float64 { return 10 + float64(i%7) },
		"spike":       func(i int) float64 { return 1 + 1e6*float64(btoi(i == 13)) },
	}
	for name, gen := range series {
		for _, n := range []int{20, 21, 50, 200, 1000} {
			prices := make([]float64, n)
			for i := range prices {
				prices[i] = gen(i)
			}
			h := SimplifiedHurst(prices, 20)
			assert.GreaterOrEqual(t, h, 0.0, "%s n=%d", name, n)
			assert.LessOrEqual(t, h, 1.0, "%s n=%d", name, n)
		}
	}
}

func TestSimplifiedHurst_TrendIsPersistent(t *testing.T) {
	prices := make([]float64, 100)
	for i := range prices {
		prices[i] = math.Exp(float64(i) * 0.01)
	}
	assert.Greater(t, SimplifiedHurst(prices, 20), 0.5)
}

func TestSimplifiedHurst_NonPositivePriceIsNeutral(t *testing.T) {
	prices := make([]float64, 25)
	for i := range prices {
		prices[i] = float64(i)
	}
	assert.Equal(t, 0.5, SimplifiedHurst(prices, 20))
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
