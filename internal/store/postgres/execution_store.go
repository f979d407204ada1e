package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

// ExecutionStore implements domain.ExecutionHistory. Entries are stored
// with their full JSON body plus the composite identity columns, so
// re-appending a redelivered entry is a no-op.
type ExecutionStore struct {
	pool *pgxpool.Pool
}

// NewExecutionStore creates an ExecutionStore backed by the given pool.
func NewExecutionStore(pool *pgxpool.Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

// EnsureSchema creates the executions table if it does not exist.
func (s *ExecutionStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS executions (
			strategy_id   TEXT        NOT NULL,
			timestamp_ms  BIGINT      NOT NULL,
			qty           DOUBLE PRECISION NOT NULL,
			status        TEXT        NOT NULL,
			leg_index     INT         NOT NULL DEFAULT 0,
			leg1_order_id TEXT        NOT NULL DEFAULT '',
			leg2_order_id TEXT        NOT NULL DEFAULT '',
			entry         JSONB       NOT NULL,
			inserted_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (strategy_id, timestamp_ms, qty, status, leg_index, leg1_order_id, leg2_order_id)
		)`)
	if err != nil {
		return fmt.Errorf("postgres: ensure executions schema: %w", err)
	}
	return nil
}

// Append inserts raw entries, silently skipping redelivered duplicates and
// rows without a strategy id.
func (s *ExecutionStore) Append(ctx context.Context, entries []domain.RawExecutionEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	queued := 0
	for _, e := range entries {
		if e.StrategyID == "" {
			continue
		}
		body, err := json.Marshal(e)
		if err != nil {
			continue
		}

		status := string(e.Status)
		if e.Schema == domain.SchemaLegacy {
			status = fmt.Sprintf("legacy_success_%t", e.Success)
		}
		var leg1ID, leg2ID string
		if e.Leg1 != nil {
			leg1ID = e.Leg1.OrderID
		}
		if e.Leg2 != nil {
			leg2ID = e.Leg2.OrderID
		}

		batch.Queue(`
			INSERT INTO executions
				(strategy_id, timestamp_ms, qty, status, leg_index, leg1_order_id, leg2_order_id, entry)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT DO NOTHING`,
			e.StrategyID, e.TimestampMs, e.Qty, status, e.LegIndex, leg1ID, leg2ID, body,
		)
		queued++
	}
	if queued == 0 {
		return nil
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < queued; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: append execution: %w", err)
		}
	}
	return nil
}

// ListRecent returns the most recent raw entries, newest first.
func (s *ExecutionStore) ListRecent(ctx context.Context, limit int) ([]domain.RawExecutionEntry, error) {
	if limit <= 0 {
		limit = domain.RecentExecutionLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT entry FROM executions
		ORDER BY timestamp_ms DESC, strategy_id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent executions: %w", err)
	}
	defer rows.Close()

	var out []domain.RawExecutionEntry
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("postgres: scan execution: %w", err)
		}
		var e domain.RawExecutionEntry
		if err := json.Unmarshal(body, &e); err != nil {
			// A historic row written by an older build: skip it rather
			// than fail the listing.
			continue
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate executions: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.ExecutionHistory = (*ExecutionStore)(nil)
