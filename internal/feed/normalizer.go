// Package feed turns heterogeneous price payloads and push frames into the
// canonical tick and event types the engine consumes.
package feed

import (
	"encoding/json"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

// BookSnapshotPayload is the level-array order-book response shape:
// {"bids":[[price,size],...],"asks":[[price,size],...]}. Prices and sizes
// may be JSON numbers or strings depending on the exchange.
type BookSnapshotPayload struct {
	Bids        [][]json.Number `json:"bids"`
	Asks        [][]json.Number `json:"asks"`
	TimestampMs int64           `json:"ts"`
}

// BookTickerPayload is the flat top-of-book response shape:
// {"bidPrice":...,"bidQty":...,"askPrice":...,"askQty":...}.
type BookTickerPayload struct {
	BidPrice    float64 `json:"bidPrice"`
	BidQty      float64 `json:"bidQty"`
	AskPrice    float64 `json:"askPrice"`
	AskQty      float64 `json:"askQty"`
	TimestampMs int64   `json:"ts"`
}

// PushTickPayload is the per-leg tick shape carried inside push frames.
type PushTickPayload struct {
	BestBid     domain.PriceLevel `json:"bestBid"`
	BestAsk     domain.PriceLevel `json:"bestAsk"`
	TimestampMs int64             `json:"timestampMs"`
}

// Normalize converts a raw order-book payload into a canonical tick. It
// probes the two known response shapes in a fixed order: level-array
// snapshot first, flat book ticker second. nowMs is used as the tick
// timestamp when the payload carries none.
//
// Only the top bid and ask are extracted; deeper levels are discarded. When
// the best bid or best ask is missing or non-positive, no tick is emitted:
// the normalizer never guesses a price and callers must tolerate gaps.
func Normalize(exchange, symbol string, raw []byte, nowMs int64) (domain.Tick, bool) {
	var snap BookSnapshotPayload
	if err := json.Unmarshal(raw, &snap); err == nil && (len(snap.Bids) > 0 || len(snap.Asks) > 0) {
		return FromBookSnapshot(exchange, symbol, snap, nowMs)
	}

	var ticker BookTickerPayload
	if err := json.Unmarshal(raw, &ticker); err == nil {
		return FromBookTicker(exchange, symbol, ticker, nowMs)
	}

	return domain.Tick{}, false
}

// FromBookSnapshot extracts the top of book from a level-array snapshot.
func FromBookSnapshot(exchange, symbol string, p BookSnapshotPayload, nowMs int64) (domain.Tick, bool) {
	bid, ok := topLevel(p.Bids)
	if !ok {
		return domain.Tick{}, false
	}
	ask, ok := topLevel(p.Asks)
	if !ok {
		return domain.Tick{}, false
	}
	return buildTick(exchange, symbol, bid, ask, p.TimestampMs, nowMs)
}

// FromBookTicker converts a flat book-ticker payload.
func FromBookTicker(exchange, symbol string, p BookTickerPayload, nowMs int64) (domain.Tick, bool) {
	bid := domain.PriceLevel{Price: p.BidPrice, Size: p.BidQty}
	ask := domain.PriceLevel{Price: p.AskPrice, Size: p.AskQty}
	return buildTick(exchange, symbol, bid, ask, p.TimestampMs, nowMs)
}

// FromPushTick validates a push-delivered leg tick.
func FromPushTick(exchange, symbol string, p PushTickPayload, nowMs int64) (domain.Tick, bool) {
	return buildTick(exchange, symbol, p.BestBid, p.BestAsk, p.TimestampMs, nowMs)
}

func buildTick(exchange, symbol string, bid, ask domain.PriceLevel, tsMs, nowMs int64) (domain.Tick, bool) {
	if bid.Price <= 0 || ask.Price <= 0 {
		return domain.Tick{}, false
	}
	if tsMs <= 0 {
		tsMs = nowMs
	}
	return domain.Tick{
		Exchange:    exchange,
		Symbol:      symbol,
		TimestampMs: tsMs,
		BestBid:     bid,
		BestAsk:     ask,
	}, true
}

// topLevel parses the first [price,size] entry of a level array.
func topLevel(levels [][]json.Number) (domain.PriceLevel, bool) {
	if len(levels) == 0 || len(levels[0]) < 2 {
		return domain.PriceLevel{}, false
	}
	price, err := levels[0][0].Float64()
	if err != nil {
		return domain.PriceLevel{}, false
	}
	size, err := levels[0][1].Float64()
	if err != nil {
		return domain.PriceLevel{}, false
	}
	return domain.PriceLevel{Price: price, Size: size}, true
}
