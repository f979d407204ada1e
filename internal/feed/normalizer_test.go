package feed

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBookSnapshot(t *testing.T) {
	raw := []byte(`{"bids":[["30000.5","2.5"],["29999","1"]],"asks":[[30001,1.25]],"ts":1700000000000}`)

	tick, ok := Normalize("bybit", "BTCUSDT", raw, 42)
	require.True(t, ok)
	assert.Equal(t, "bybit", tick.Exchange)
	assert.Equal(t, "BTCUSDT", tick.Symbol)
	assert.Equal(t, int64(1700000000000), tick.TimestampMs)
	assert.Equal(t, 30000.5, tick.BestBid.Price)
	assert.Equal(t, 2.5, tick.BestBid.Size)
	assert.Equal(t, 30001.0, tick.BestAsk.Price)
	assert.Equal(t, 1.25, tick.BestAsk.Size)
}

func TestNormalizeBookTicker(t *testing.T) {
	raw := []byte(`{"bidPrice":105,"bidQty":3,"askPrice":106,"askQty":4}`)

	tick, ok := Normalize("okx", "ETHUSDT", raw, 1700000000123)
	require.True(t, ok)
	assert.Equal(t, 105.0, tick.BestBid.Price)
	assert.Equal(t, 106.0, tick.BestAsk.Price)
	// Payload carries no timestamp, falls back to the caller's clock.
	assert.Equal(t, int64(1700000000123), tick.TimestampMs)
}

func TestNormalizeRejectsIncompletePayloads(t *testing.T) {
	cases := map[string]string{
		"empty object":       `{}`,
		"missing asks":       `{"bids":[["100","1"]],"asks":[]}`,
		"zero bid price":     `{"bidPrice":0,"askPrice":101}`,
		"negative ask price": `{"bidPrice":100,"askPrice":-1}`,
		"unparseable levels": `{"bids":[["abc","1"]],"asks":[["101","1"]]}`,
		"not json":           `[[]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := Normalize("bybit", "BTCUSDT", []byte(raw), 1)
			assert.False(t, ok)
		})
	}
}

func TestFromPushTick(t *testing.T) {
	var p PushTickPayload
	require.NoError(t, json.Unmarshal([]byte(`{"bestBid":{"price":100,"size":1},"bestAsk":{"price":101,"size":2},"timestampMs":5}`), &p))

	tick, ok := FromPushTick("bybit", "BTCUSDT", p, 99)
	require.True(t, ok)
	assert.Equal(t, int64(5), tick.TimestampMs)

	p.BestAsk.Price = 0
	_, ok = FromPushTick("bybit", "BTCUSDT", p, 99)
	assert.False(t, ok)
}
