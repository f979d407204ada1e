// Package engine contains the live opportunity computation core: the spread
// calculator, throttle coordinator, opportunity state store, event bus, and
// the monitor loop that drives them.
package engine

import (
	"github.com/alanyoungcy/arbdeck/internal/domain"
)

// ExecutablePrice returns the price a leg would actually fill at given its
// configured side: the ask when buying, the bid when selling.
func ExecutablePrice(side domain.OrderSide, tick domain.Tick) float64 {
	if side == domain.SideBuy {
		return tick.BestAsk.Price
	}
	return tick.BestBid.Price
}

// ComputeOpportunity derives the live opportunity for a pair from one tick
// per leg. Callers must only invoke it with ticks the normalizer emitted;
// absent or non-positive prices are an upstream contract violation, never
// silently defaulted here.
//
// The buy leg and sell leg are identified from each leg's own configured
// side, anchored on leg1: when leg1 buys, leg1 is the buy leg, otherwise
// leg2 is. spreadPercent = (sellExec - buyExec) / buyExec * 100.
// shouldTrigger compares spreadPercent against the signed threshold as a
// plain lower bound, so negative thresholds express reverse-direction
// intents without any special casing.
//
// ComputedAtMs is left zero; the caller stamps it.
func ComputeOpportunity(cfg domain.PairConfig, leg1, leg2 domain.Tick) domain.Opportunity {
	exec1 := ExecutablePrice(cfg.Leg1.Side, leg1)
	exec2 := ExecutablePrice(cfg.Leg2.Side, leg2)

	direction := domain.DirectionForward
	buyExec, sellExec := exec1, exec2
	if cfg.Leg1.Side != domain.SideBuy {
		direction = domain.DirectionReverse
		buyExec, sellExec = exec2, exec1
	}

	spread := sellExec - buyExec
	var spreadPercent float64
	if buyExec > 0 {
		spreadPercent = spread / buyExec * 100
	}

	return domain.Opportunity{
		PairID:        cfg.ID,
		Leg1Tick:      leg1,
		Leg2Tick:      leg2,
		Spread:        spread,
		SpreadPercent: spreadPercent,
		ShouldTrigger: spreadPercent >= cfg.ThresholdPercent,
		Direction:     direction,
	}
}
