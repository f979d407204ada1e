package aggregate

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

// Aggregator computes per-strategy summaries from the full raw execution
// list. It holds no state between passes.
type Aggregator struct {
	logger *slog.Logger
}

// New creates an Aggregator.
func New(logger *slog.Logger) *Aggregator {
	return &Aggregator{logger: logger.With(slog.String("component", "aggregator"))}
}

// Aggregate groups the raw entries by strategy id, deduplicates them,
// resolves the final status per group, and computes totals. pairs supplies
// live metadata; entries referencing deleted pairs fall back to metadata
// embedded in the rows themselves. avgPrices optionally enriches summaries
// with backend-reported average fill prices and may be nil.
//
// The result is ordered by recency, newest group first, and is identical
// for any permutation or duplication of the input.
func (a *Aggregator) Aggregate(entries []domain.RawExecutionEntry, pairs []domain.PairConfig, avgPrices map[string]domain.LegAveragePrices) []domain.StrategySummary {
	pairsByID := make(map[string]domain.PairConfig, len(pairs))
	for _, p := range pairs {
		pairsByID[p.ID] = p
	}

	groups := make(map[string][]row)
	seen := make(map[string]map[string]struct{})
	dropped := 0
	for _, e := range entries {
		r, ok := normalizeEntry(e)
		if !ok {
			dropped++
			continue
		}
		keys := seen[r.strategyID]
		if keys == nil {
			keys = make(map[string]struct{})
			seen[r.strategyID] = keys
		}
		key := r.dedupKey()
		if _, dup := keys[key]; dup {
			continue
		}
		keys[key] = struct{}{}
		groups[r.strategyID] = append(groups[r.strategyID], r)
	}
	if dropped > 0 {
		a.logger.Debug("dropped unaggregatable rows", slog.Int("count", dropped))
	}

	summaries := make([]domain.StrategySummary, 0, len(groups))
	for sid, rows := range groups {
		// Fix an input-order-independent traversal before accumulating.
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].timestampMs != rows[j].timestampMs {
				return rows[i].timestampMs < rows[j].timestampMs
			}
			return rows[i].dedupKey() < rows[j].dedupKey()
		})

		var cfg *domain.PairConfig
		if c, ok := pairsByID[sid]; ok {
			cfg = &c
		}

		s := a.summarize(sid, rows, cfg)
		if avg, ok := avgPrices[sid]; ok {
			s.Leg1AvgPrice = avg.Leg1AvgPrice
			s.Leg2AvgPrice = avg.Leg2AvgPrice
		}
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].LastTimestampMs != summaries[j].LastTimestampMs {
			return summaries[i].LastTimestampMs > summaries[j].LastTimestampMs
		}
		return summaries[i].StrategyID < summaries[j].StrategyID
	})
	return summaries
}

// summarize folds one deduplicated group into its summary. rows is sorted
// and non-empty.
func (a *Aggregator) summarize(sid string, rows []row, cfg *domain.PairConfig) domain.StrategySummary {
	var (
		hasFailed, hasCancelled, hasRolledBack bool

		unifiedSuccess int
		legacySuccess  int
		legacyQtySum   float64
		totalQty       float64

		spreadSum   float64
		spreadCount int

		lastTs int64
	)

	legacyPairs := make(map[string]*legacyExecution)

	for _, r := range rows {
		if r.timestampMs > lastTs {
			lastTs = r.timestampMs
		}

		switch r.status {
		case domain.ExecFailed:
			hasFailed = true
		case domain.ExecCancelled:
			hasCancelled = true
		case domain.ExecRolledBack:
			hasRolledBack = true
		}

		if r.status != domain.ExecSuccess {
			continue
		}

		if r.schema == domain.SchemaUnified {
			unifiedSuccess++
			totalQty += r.qty
			if spread, ok := rowSpread(r, cfg); ok {
				spreadSum += spread
				spreadCount++
			}
			continue
		}

		// Legacy: two same-timestamp same-qty rows across legIndex 0/1
		// together represent one round-trip execution.
		legacySuccess++
		legacyQtySum += r.qty
		pairLegacyRow(legacyPairs, r)
	}

	totalQty += legacyQtySum / 2
	successCount := unifiedSuccess + legacySuccess/2

	// Deterministic accumulation order keeps float sums identical across
	// passes regardless of input order.
	legacyKeys := make([]string, 0, len(legacyPairs))
	for key := range legacyPairs {
		legacyKeys = append(legacyKeys, key)
	}
	sort.Strings(legacyKeys)
	for _, key := range legacyKeys {
		if spread, ok := legacyPairs[key].spread(cfg); ok {
			spreadSum += spread
			spreadCount++
		}
	}

	var avgSpread float64
	if spreadCount > 0 {
		avgSpread = spreadSum / float64(spreadCount)
	}

	return domain.StrategySummary{
		StrategyID:       sid,
		SuccessCount:     successCount,
		TotalQty:         totalQty,
		AvgSpreadPercent: avgSpread,
		Status:           resolveStatus(hasFailed, hasCancelled, hasRolledBack),
		LastTimestampMs:  lastTs,
		Leg1:             legMeta(cfg, rows, 0),
		Leg2:             legMeta(cfg, rows, 1),
	}
}

// resolveStatus applies the group status precedence: failed > cancelled >
// rolled_back > completed. A rolled-back row therefore only sets the group
// status when no higher-precedence outcome exists; it does not outrank an
// explicit failure or cancellation, and it does outrank a plain success.
func resolveStatus(hasFailed, hasCancelled, hasRolledBack bool) domain.SummaryStatus {
	switch {
	case hasFailed:
		return domain.SummaryFailed
	case hasCancelled:
		return domain.SummaryCancelled
	case hasRolledBack:
		return domain.SummaryRolledBack
	default:
		return domain.SummaryCompleted
	}
}

// rowSpread returns the spread percent to attribute to one unified success
// row: recomputed from the actual fill prices when both legs are present,
// otherwise the spread recorded on the row.
func rowSpread(r row, cfg *domain.PairConfig) (float64, bool) {
	if r.leg1 == nil || r.leg2 == nil || r.leg1.Price <= 0 || r.leg2.Price <= 0 {
		return r.spread, true
	}
	side1, ok := resolveSide(cfg, r.leg1, 0)
	if !ok {
		return r.spread, true
	}
	return spreadPercent(side1, r.leg1.Price, r.leg2.Price), true
}

// spreadPercent applies the §buy/sell identification rule anchored on leg1's
// side to two actual fill prices.
func spreadPercent(leg1Side domain.OrderSide, price1, price2 float64) float64 {
	buy, sell := price1, price2
	if leg1Side != domain.SideBuy {
		buy, sell = price2, price1
	}
	if buy <= 0 {
		return 0
	}
	return (sell - buy) / buy * 100
}

// resolveSide determines a leg's configured side, preferring the live pair
// config and falling back to the side embedded in the fill.
func resolveSide(cfg *domain.PairConfig, fill *domain.ExecutionLegFill, legIndex int) (domain.OrderSide, bool) {
	if cfg != nil {
		if legIndex == 0 {
			return cfg.Leg1.Side, true
		}
		return cfg.Leg2.Side, true
	}
	if fill != nil && (fill.Side == domain.SideBuy || fill.Side == domain.SideSell) {
		return fill.Side, true
	}
	return "", false
}

// legacyExecution collects the two single-leg rows of one legacy round trip.
type legacyExecution struct {
	prices [2]float64
	filled [2]bool
}

func legacyPairKey(tsMs int64, qty float64) string {
	return fmt.Sprintf("%d|%g", tsMs, qty)
}

func pairLegacyRow(pairs map[string]*legacyExecution, r row) {
	key := legacyPairKey(r.timestampMs, r.qty)
	le := pairs[key]
	if le == nil {
		le = &legacyExecution{}
		pairs[key] = le
	}
	if r.legIndex == 0 || r.legIndex == 1 {
		le.prices[r.legIndex] = r.price
		le.filled[r.legIndex] = true
	}
}

// spread recomputes the fill spread of a completed legacy round trip. Both
// leg prices and the pair's configured sides are required; legacy rows carry
// no side of their own, so with the config gone the round trip contributes
// nothing to the average.
func (le *legacyExecution) spread(cfg *domain.PairConfig) (float64, bool) {
	if cfg == nil || !le.filled[0] || !le.filled[1] || le.prices[0] <= 0 || le.prices[1] <= 0 {
		return 0, false
	}
	return spreadPercent(cfg.Leg1.Side, le.prices[0], le.prices[1]), true
}

// legMeta backfills display metadata for one leg: the live config wins, the
// first row carrying that leg's fill details is the fallback.
func legMeta(cfg *domain.PairConfig, rows []row, legIndex int) domain.LegMeta {
	if cfg != nil {
		leg := cfg.Leg1
		if legIndex == 1 {
			leg = cfg.Leg2
		}
		return domain.LegMeta{
			Exchange:       leg.Exchange,
			Symbol:         leg.Symbol,
			Side:           leg.Side,
			InstrumentType: leg.InstrumentType,
		}
	}
	for _, r := range rows {
		fill := r.leg1
		if legIndex == 1 {
			fill = r.leg2
		}
		if fill != nil && (fill.Exchange != "" || fill.Symbol != "") {
			return domain.LegMeta{
				Exchange:       fill.Exchange,
				Symbol:         fill.Symbol,
				Side:           fill.Side,
				InstrumentType: fill.InstrumentType,
			}
		}
	}
	return domain.LegMeta{}
}
