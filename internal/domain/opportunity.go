package domain

// Direction indicates which leg is economically buying in a computed
// opportunity.
type Direction string

const (
	// DirectionForward means leg1 is the buy leg and leg2 the sell leg.
	DirectionForward Direction = "forward"
	// DirectionReverse means leg2 is the buy leg and leg1 the sell leg.
	DirectionReverse Direction = "reverse"
)

// Opportunity is the computed live state for one monitored pair. It is
// recomputed at most once per pair per throttle window and replaced wholesale
// on every update.
type Opportunity struct {
	PairID        string    `json:"pairId"`
	Leg1Tick      Tick      `json:"leg1Tick"`
	Leg2Tick      Tick      `json:"leg2Tick"`
	Spread        float64   `json:"spread"`
	SpreadPercent float64   `json:"spreadPercent"`
	ShouldTrigger bool      `json:"shouldTrigger"`
	Direction     Direction `json:"direction"`
	ComputedAtMs  int64     `json:"computedAtMs"`
}
