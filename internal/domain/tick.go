package domain

// PriceLevel is a single price+size entry at the top of an orderbook.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Tick is the canonical normalized top-of-book sample for one instrument.
// Ticks are ephemeral: each update replaces the previous one and nothing
// persists them.
type Tick struct {
	Exchange    string     `json:"exchange"`
	Symbol      string     `json:"symbol"`
	TimestampMs int64      `json:"timestampMs"`
	BestBid     PriceLevel `json:"bestBid"`
	BestAsk     PriceLevel `json:"bestAsk"`
}

// Valid reports whether both best prices are present and positive. The
// normalizer never emits an invalid tick; downstream code may still use this
// as a guard at trust boundaries.
func (t Tick) Valid() bool {
	return t.BestBid.Price > 0 && t.BestAsk.Price > 0
}
