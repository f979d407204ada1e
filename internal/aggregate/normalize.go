// Package aggregate collapses the raw, append-only, multi-format execution
// log into per-strategy performance rollups. Every pass is a full stateless
// recompute over the deduplicated raw set, so the output is idempotent and
// independent of input order under replay and redelivery.
package aggregate

import (
	"fmt"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

// row is the single internal shape both raw schemas are normalized into
// before any grouping or counting happens. The rest of the aggregator never
// branches on the wire format again.
type row struct {
	strategyID  string
	schema      domain.ExecutionSchema
	status      domain.ExecutionStatus
	legIndex    int
	qty         float64
	price       float64
	orderID     string
	spread      float64 // spreadPercent as recorded on the raw row
	leg1        *domain.ExecutionLegFill
	leg2        *domain.ExecutionLegFill
	timestampMs int64
}

// normalizeEntry converts one raw entry into the internal row shape. It
// returns false for rows that cannot participate in aggregation: no
// resolvable strategy id, an undiscriminated schema, or an unknown status.
// Such rows are dropped silently; they must never fail the pass.
func normalizeEntry(e domain.RawExecutionEntry) (row, bool) {
	if e.StrategyID == "" {
		return row{}, false
	}

	switch e.Schema {
	case domain.SchemaLegacy:
		status := domain.ExecFailed
		if e.Success {
			status = domain.ExecSuccess
		}
		return row{
			strategyID:  e.StrategyID,
			schema:      domain.SchemaLegacy,
			status:      status,
			legIndex:    e.LegIndex,
			qty:         e.Qty,
			price:       e.Price,
			orderID:     e.OrderID,
			timestampMs: e.TimestampMs,
		}, true

	case domain.SchemaUnified:
		switch e.Status {
		case domain.ExecSuccess, domain.ExecFailed, domain.ExecCancelled, domain.ExecRolledBack:
		default:
			return row{}, false
		}
		return row{
			strategyID:  e.StrategyID,
			schema:      domain.SchemaUnified,
			status:      e.Status,
			qty:         e.Qty,
			spread:      e.SpreadPercent,
			leg1:        e.Leg1,
			leg2:        e.Leg2,
			timestampMs: e.TimestampMs,
		}, true

	default:
		return row{}, false
	}
}

// dedupKey is the composite identity under which redelivered copies of the
// same fact collapse to one. Source streams are append-only and may
// redeliver on retry or reload re-fetch.
func (r row) dedupKey() string {
	if r.schema == domain.SchemaLegacy {
		return fmt.Sprintf("l|%d|%g|%s|%d", r.timestampMs, r.qty, r.status, r.legIndex)
	}
	var leg1ID, leg2ID string
	if r.leg1 != nil {
		leg1ID = r.leg1.OrderID
	}
	if r.leg2 != nil {
		leg2ID = r.leg2.OrderID
	}
	return fmt.Sprintf("u|%d|%g|%s|%s|%s", r.timestampMs, r.qty, r.status, leg1ID, leg2ID)
}
