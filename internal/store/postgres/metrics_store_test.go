package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akbaridria/obrix/internal/domain"
)

func TestBuildListQuery_Defaults(t *testing.T) {
	query, args := buildListQuery(domain.ListOpts{})
	assert.Contains(t, query, "ORDER BY created_at DESC LIMIT $1")
	assert.NotContains(t, query, "OFFSET")
	assert.Equal(t, []any{10}, args)
}

func TestBuildListQuery_Filters(t *testing.T) {
	query, args := buildListQuery(domain.ListOpts{Limit: 5000, Offset: 20, Protocol: "uniswap", PoolID: "0xp"})
	assert.Contains(t, query, "AND protocol = $1")
	assert.Contains(t, query, "AND pool_id = $2")
	assert.Contains(t, query, "LIMIT $3")
	assert.Contains(t, query, "OFFSET $4")
	assert.Equal(t, []any{"uniswap", "0xp", 200, 20}, args)
}

func TestFormatMetric_RoundTrips(t *testing.T) {
	for _, v := range []float64{0, 1, 0.5, 3712.123456789, 1e-12, 2.5e-25, 1.8446744073709552e19, 7.3e-80} {
		s := formatMetric(v)
		assert.LessOrEqual(t, len(s), metricColumnWidth, "%v", v)
		got, err := parseMetric(s)
		require.NoError(t, err, s)
		assert.Equal(t, v, got, s)
	}
}

func TestFormatMetric_PlainDecimal(t *testing.T) {
	assert.Equal(t, "0", formatMetric(0))
	assert.Equal(t, "0.25", formatMetric(0.25))
	assert.Equal(t, "3000", formatMetric(3000))
}

func TestParseMetric_Rejects(t *testing.T) {
	_, err := parseMetric("NaN-ish")
	assert.Error(t, err)
	_, err = parseMetric("")
	assert.Error(t, err)
}
