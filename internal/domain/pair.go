package domain

// OrderSide is the configured direction of one leg.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// InstrumentType distinguishes the contract style of a leg's instrument.
type InstrumentType string

const (
	InstrumentSpot    InstrumentType = "spot"
	InstrumentLinear  InstrumentType = "linear"
	InstrumentInverse InstrumentType = "inverse"
)

// LegConfig describes one side of a monitored pair.
type LegConfig struct {
	Exchange       string         `json:"exchange"`
	Symbol         string         `json:"symbol"`
	InstrumentType InstrumentType `json:"instrumentType"`
	Side           OrderSide      `json:"side"`
}

// PairConfig is a user-defined monitored pair. Deleting a pair retires it
// logically; execution history referencing its ID is kept.
type PairConfig struct {
	ID               string    `json:"id"`
	Leg1             LegConfig `json:"leg1"`
	Leg2             LegConfig `json:"leg2"`
	ThresholdPercent float64   `json:"thresholdPercent"` // negative encodes reverse-direction intent
	QtyPerExecution  float64   `json:"qtyPerExecution"`
	MaxExecutions    int       `json:"maxExecutions"`
	Enabled          bool      `json:"enabled"`
}
