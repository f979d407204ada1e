package aggregate

import (
	"log/slog"
	"math/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

func newAggregator() *Aggregator {
	return New(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func unifiedEntry(sid string, status domain.ExecutionStatus, qty float64, ts int64, leg1, leg2 *domain.ExecutionLegFill) domain.RawExecutionEntry {
	return domain.RawExecutionEntry{
		StrategyID:  sid,
		Schema:      domain.SchemaUnified,
		Status:      status,
		Qty:         qty,
		TimestampMs: ts,
		Leg1:        leg1,
		Leg2:        leg2,
	}
}

func legacyEntry(sid string, legIndex int, success bool, qty, price float64, ts int64) domain.RawExecutionEntry {
	return domain.RawExecutionEntry{
		StrategyID:  sid,
		Schema:      domain.SchemaLegacy,
		LegIndex:    legIndex,
		Success:     success,
		Qty:         qty,
		Price:       price,
		TimestampMs: ts,
	}
}

func buySellPair(id string) domain.PairConfig {
	return domain.PairConfig{
		ID:   id,
		Leg1: domain.LegConfig{Exchange: "bybit", Symbol: "BTCUSDT", Side: domain.SideBuy, InstrumentType: domain.InstrumentLinear},
		Leg2: domain.LegConfig{Exchange: "okx", Symbol: "BTCUSDT", Side: domain.SideSell, InstrumentType: domain.InstrumentSpot},
	}
}

func TestAggregateLegacyLegPairing(t *testing.T) {
	// Two legacy rows for the same plan, one per leg, same timestamp and
	// qty: together they are one round-trip execution.
	entries := []domain.RawExecutionEntry{
		legacyEntry("plan-1", 0, true, 1, 30000, 1000),
		legacyEntry("plan-1", 1, true, 1, 30050, 1000),
	}

	out := newAggregator().Aggregate(entries, []domain.PairConfig{buySellPair("plan-1")}, nil)
	require.Len(t, out, 1)
	s := out[0]
	assert.Equal(t, 1, s.SuccessCount)
	assert.InDelta(t, 1.0, s.TotalQty, 1e-9)
	assert.Equal(t, domain.SummaryCompleted, s.Status)
	assert.Equal(t, int64(1000), s.LastTimestampMs)
	// leg1 buys at 30000, leg2 sells at 30050.
	assert.InDelta(t, 50.0/30000*100, s.AvgSpreadPercent, 1e-9)
}

func TestAggregateDuplicatesCountOnce(t *testing.T) {
	leg1 := &domain.ExecutionLegFill{OrderID: "o1", Price: 100}
	leg2 := &domain.ExecutionLegFill{OrderID: "o2", Price: 101}
	e := unifiedEntry("plan-1", domain.ExecSuccess, 2, 1000, leg1, leg2)

	// The same fact redelivered three times contributes exactly once.
	out := newAggregator().Aggregate([]domain.RawExecutionEntry{e, e, e}, []domain.PairConfig{buySellPair("plan-1")}, nil)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].SuccessCount)
	assert.InDelta(t, 2.0, out[0].TotalQty, 1e-9)
}

func TestAggregateStatusPrecedence(t *testing.T) {
	cases := []struct {
		name     string
		statuses []domain.ExecutionStatus
		want     domain.SummaryStatus
	}{
		{"success then cancelled", []domain.ExecutionStatus{domain.ExecSuccess, domain.ExecCancelled}, domain.SummaryCancelled},
		{"failed beats success", []domain.ExecutionStatus{domain.ExecFailed, domain.ExecSuccess}, domain.SummaryFailed},
		{"failed beats cancelled", []domain.ExecutionStatus{domain.ExecCancelled, domain.ExecFailed, domain.ExecSuccess}, domain.SummaryFailed},
		{"rolled back beats plain success", []domain.ExecutionStatus{domain.ExecSuccess, domain.ExecRolledBack}, domain.SummaryRolledBack},
		{"cancelled beats rolled back", []domain.ExecutionStatus{domain.ExecRolledBack, domain.ExecCancelled}, domain.SummaryCancelled},
		{"all success", []domain.ExecutionStatus{domain.ExecSuccess, domain.ExecSuccess}, domain.SummaryCompleted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var entries []domain.RawExecutionEntry
			for i, st := range tc.statuses {
				entries = append(entries, unifiedEntry("plan-1", st, 1, int64(1000+i), nil, nil))
			}
			out := newAggregator().Aggregate(entries, nil, nil)
			require.Len(t, out, 1)
			assert.Equal(t, tc.want, out[0].Status)
		})
	}
}

func TestAggregateIdempotentUnderPermutationAndReplay(t *testing.T) {
	pairs := []domain.PairConfig{buySellPair("plan-1"), buySellPair("plan-2")}
	entries := []domain.RawExecutionEntry{
		unifiedEntry("plan-1", domain.ExecSuccess, 1, 1000, &domain.ExecutionLegFill{OrderID: "a", Price: 100}, &domain.ExecutionLegFill{OrderID: "b", Price: 102}),
		unifiedEntry("plan-1", domain.ExecCancelled, 1, 2000, nil, nil),
		legacyEntry("plan-2", 0, true, 3, 50, 1500),
		legacyEntry("plan-2", 1, true, 3, 51, 1500),
		legacyEntry("plan-2", 0, false, 3, 0, 1600),
	}

	agg := newAggregator()
	baseline := agg.Aggregate(entries, pairs, nil)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]domain.RawExecutionEntry(nil), entries...)
		// Replay some duplicates on top of the permutation.
		shuffled = append(shuffled, entries[rng.Intn(len(entries))], entries[rng.Intn(len(entries))])
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		assert.Equal(t, baseline, agg.Aggregate(shuffled, pairs, nil))
	}
}

func TestAggregateDropsKeylessRows(t *testing.T) {
	entries := []domain.RawExecutionEntry{
		{Schema: domain.SchemaUnified, Status: domain.ExecSuccess, Qty: 1, TimestampMs: 1000}, // no strategy id
		{StrategyID: "plan-1"}, // no discriminable schema
		unifiedEntry("plan-1", domain.ExecSuccess, 1, 1000, nil, nil),
	}

	out := newAggregator().Aggregate(entries, nil, nil)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].SuccessCount)
}

func TestAggregateMetadataBackfill(t *testing.T) {
	leg1 := &domain.ExecutionLegFill{Exchange: "bybit", Symbol: "ETHUSDT", Side: domain.SideBuy, InstrumentType: domain.InstrumentLinear, OrderID: "a", Price: 2000}
	leg2 := &domain.ExecutionLegFill{Exchange: "okx", Symbol: "ETHUSDT", Side: domain.SideSell, InstrumentType: domain.InstrumentSpot, OrderID: "b", Price: 2004}
	entries := []domain.RawExecutionEntry{
		unifiedEntry("gone-plan", domain.ExecSuccess, 1, 1000, leg1, leg2),
	}

	// The originating pair config was deleted: metadata comes from the rows.
	out := newAggregator().Aggregate(entries, nil, nil)
	require.Len(t, out, 1)
	assert.Equal(t, "bybit", out[0].Leg1.Exchange)
	assert.Equal(t, "ETHUSDT", out[0].Leg1.Symbol)
	assert.Equal(t, domain.SideSell, out[0].Leg2.Side)
	// Sides embedded in the fills still allow the spread recompute.
	assert.InDelta(t, 4.0/2000*100, out[0].AvgSpreadPercent, 1e-9)

	// With a live config, its metadata wins over the embedded values.
	cfg := buySellPair("gone-plan")
	cfg.Leg1.Symbol = "BTCUSDT"
	out = newAggregator().Aggregate(entries, []domain.PairConfig{cfg}, nil)
	assert.Equal(t, "BTCUSDT", out[0].Leg1.Symbol)
}

func TestAggregateSpreadFallsBackToRecordedValue(t *testing.T) {
	// Cancelled leg2: no fill prices, so the recorded spread is used.
	e := unifiedEntry("plan-1", domain.ExecSuccess, 1, 1000, &domain.ExecutionLegFill{OrderID: "a", Price: 100}, nil)
	e.SpreadPercent = 0.42

	out := newAggregator().Aggregate([]domain.RawExecutionEntry{e}, []domain.PairConfig{buySellPair("plan-1")}, nil)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.42, out[0].AvgSpreadPercent, 1e-9)
}

func TestAggregateOrderedByRecencyWithAvgPrices(t *testing.T) {
	entries := []domain.RawExecutionEntry{
		unifiedEntry("plan-old", domain.ExecSuccess, 1, 1000, nil, nil),
		unifiedEntry("plan-new", domain.ExecSuccess, 1, 2000, nil, nil),
	}
	avg := map[string]domain.LegAveragePrices{
		"plan-new": {Leg1AvgPrice: 100.5, Leg2AvgPrice: 101.5},
	}

	out := newAggregator().Aggregate(entries, nil, avg)
	require.Len(t, out, 2)
	assert.Equal(t, "plan-new", out[0].StrategyID)
	assert.Equal(t, 100.5, out[0].Leg1AvgPrice)
	assert.Equal(t, "plan-old", out[1].StrategyID)
	assert.Zero(t, out[1].Leg1AvgPrice)
}
