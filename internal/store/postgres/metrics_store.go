package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/akbaridria/obrix/internal/domain"
)

const (
	defaultListLimit = 10
	maxListLimit     = 200
	// metricColumnWidth matches the VARCHAR width of the stored metric columns.
	metricColumnWidth = 64
)

// MetricsStore implements domain.MetricsStore using PostgreSQL.
type MetricsStore struct {
	pool *pgxpool.Pool
}

// NewMetricsStore creates a new MetricsStore backed by the given connection pool.
func NewMetricsStore(pool *pgxpool.Pool) *MetricsStore {
	return &MetricsStore{pool: pool}
}

const metricsCols = `id::text, protocol, chain, version, pool_id,
	token0_symbol, token1_symbol, twap, volatility, mean_reversion,
	is_empty, twap_ok, volatility_ok, mean_reversion_ok, swap_count, created_at`

// Create inserts a metrics row and returns it with the generated id and
// creation time filled in.
func (s *MetricsStore) Create(ctx context.Context, m domain.PoolMetrics) (domain.PoolMetrics, error) {
	const query = `
		INSERT INTO metrics (
			protocol, chain, version, pool_id,
			token0_symbol, token1_symbol, twap, volatility, mean_reversion,
			is_empty, twap_ok, volatility_ok, mean_reversion_ok, swap_count
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14
		)
		RETURNING ` + metricsCols

	row := s.pool.QueryRow(ctx, query,
		m.Protocol, m.Chain, m.Version, m.PoolID,
		m.Token0Symbol, m.Token1Symbol,
		formatMetric(m.TWAP), formatMetric(m.Volatility), formatMetric(m.MeanReversion),
		m.IsEmpty, m.Success.TWAP, m.Success.Volatility, m.Success.MeanReversion, m.SwapCount,
	)
	out, err := scanMetrics(row)
	if err != nil {
		return domain.PoolMetrics{}, fmt.Errorf("postgres: create metrics for pool %s: %w", m.PoolID, err)
	}
	return out, nil
}

// GetByID retrieves a metrics row by its primary key.
func (s *MetricsStore) GetByID(ctx context.Context, id string) (domain.PoolMetrics, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+metricsCols+` FROM metrics WHERE id::text = $1`, id)
	m, err := scanMetrics(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PoolMetrics{}, domain.ErrNotFound
		}
		return domain.PoolMetrics{}, fmt.Errorf("postgres: get metrics %s: %w", id, err)
	}
	return m, nil
}

// LatestByPool returns the most recent metrics row for a pool.
func (s *MetricsStore) LatestByPool(ctx context.Context, poolID string) (domain.PoolMetrics, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+metricsCols+` FROM metrics WHERE pool_id = $1 ORDER BY created_at DESC LIMIT 1`, poolID)
	m, err := scanMetrics(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PoolMetrics{}, domain.ErrNotFound
		}
		return domain.PoolMetrics{}, fmt.Errorf("postgres: latest metrics for pool %s: %w", poolID, err)
	}
	return m, nil
}

// List returns metrics rows newest first, filtered by protocol and pool when
// set.
func (s *MetricsStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.PoolMetrics, error) {
	query, args := buildListQuery(opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list metrics: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PoolMetrics, 0)
	for rows.Next() {
		m, err := scanMetrics(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan metrics: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list metrics rows: %w", err)
	}
	return out, nil
}

// CountUniquePools returns how many distinct pools have metrics rows.
func (s *MetricsStore) CountUniquePools(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT pool_id) FROM metrics`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count unique pools: %w", err)
	}
	return n, nil
}

// buildListQuery assembles the filtered, paginated SELECT for List. A
// non-positive limit falls back to 10 and large limits are capped.
func buildListQuery(opts domain.ListOpts) (string, []any) {
	query := `SELECT ` + metricsCols + ` FROM metrics WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Protocol != "" {
		query += fmt.Sprintf(" AND protocol = $%d", argIdx)
		args = append(args, opts.Protocol)
		argIdx++
	}
	if opts.PoolID != "" {
		query += fmt.Sprintf(" AND pool_id = $%d", argIdx)
		args = append(args, opts.PoolID)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)
	argIdx++

	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}
	return query, args
}

// scanMetrics scans a single metrics row into a domain.PoolMetrics.
func scanMetrics(row pgx.Row) (domain.PoolMetrics, error) {
	var m domain.PoolMetrics
	var twap, vol, mr string
	err := row.Scan(
		&m.ID, &m.Protocol, &m.Chain, &m.Version, &m.PoolID,
		&m.Token0Symbol, &m.Token1Symbol, &twap, &vol, &mr,
		&m.IsEmpty, &m.Success.TWAP, &m.Success.Volatility, &m.Success.MeanReversion,
		&m.SwapCount, &m.CreatedAt,
	)
	if err != nil {
		return domain.PoolMetrics{}, err
	}
	if m.TWAP, err = parseMetric(twap); err != nil {
		return domain.PoolMetrics{}, fmt.Errorf("twap: %w", err)
	}
	if m.Volatility, err = parseMetric(vol); err != nil {
		return domain.PoolMetrics{}, fmt.Errorf("volatility: %w", err)
	}
	if m.MeanReversion, err = parseMetric(mr); err != nil {
		return domain.PoolMetrics{}, fmt.Errorf("mean_reversion: %w", err)
	}
	return m, nil
}

// formatMetric renders a metric as an exact decimal string. Values too long
// for the column (very small prices) switch to exponent notation.
func formatMetric(v float64) string {
	s := decimal.NewFromFloat(v).String()
	if len(s) > metricColumnWidth {
		s = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return s
}

func parseMetric(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}
