package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akbaridria/obrix/internal/domain"
)

// AlertStore implements domain.AlertStore using PostgreSQL.
type AlertStore struct {
	pool *pgxpool.Pool
}

// NewAlertStore creates a new AlertStore backed by the given connection pool.
func NewAlertStore(pool *pgxpool.Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Log appends a raised alert. The full alert is stored as JSONB.
func (s *AlertStore) Log(ctx context.Context, a domain.Alert) error {
	detailJSON, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("postgres: marshal alert: %w", err)
	}

	const query = `INSERT INTO alert_log (event, pool_id, detail, created_at) VALUES ($1, $2, $3, $4)`
	_, err = s.pool.Exec(ctx, query, a.Event, a.PoolID, detailJSON, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: log alert %s: %w", a.Event, err)
	}
	return nil
}

// List returns alerts newest first, optionally filtered by pool.
func (s *AlertStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Alert, error) {
	query := `SELECT detail FROM alert_log WHERE 1=1`
	args := []any{}
	argIdx := 1

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
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, min(limit, maxListLimit))
	argIdx++

	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]domain.Alert, 0)
	for rows.Next() {
		var detailJSON []byte
		if err := rows.Scan(&detailJSON); err != nil {
			return nil, fmt.Errorf("postgres: scan alert: %w", err)
		}
		var a domain.Alert
		if err := json.Unmarshal(detailJSON, &a); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list alerts rows: %w", err)
	}
	return alerts, nil
}
