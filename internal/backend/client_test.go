package backend

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

const entryJSON = `{"planId":"p1","status":"success","qty":1.5,"timestampMs":1000,` +
	`"leg1":{"orderId":"a","price":100},"leg2":{"orderId":"b","price":101}}`

func TestDecodeExecutionEnvelopeVariants(t *testing.T) {
	variants := map[string]string{
		"bare array":  `[` + entryJSON + `]`,
		"data array":  `{"data":[` + entryJSON + `]}`,
		"data.recent": `{"data":{"recent":[` + entryJSON + `]}}`,
		"recent":      `{"recent":[` + entryJSON + `]}`,
	}
	for name, body := range variants {
		t.Run(name, func(t *testing.T) {
			entries, err := decodeExecutionEnvelope([]byte(body))
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, "p1", entries[0].StrategyID)
			assert.Equal(t, domain.SchemaUnified, entries[0].Schema)
			assert.Equal(t, domain.ExecSuccess, entries[0].Status)
		})
	}
}

func TestDecodeExecutionEnvelopeEmptyAndBad(t *testing.T) {
	entries, err := decodeExecutionEnvelope([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = decodeExecutionEnvelope([]byte(`"nope"`))
	assert.ErrorIs(t, err, domain.ErrBadPayload)

	_, err = decodeExecutionEnvelope([]byte(`{"something":"else"}`))
	assert.ErrorIs(t, err, domain.ErrBadPayload)
}

func TestDecodeExecutionEnvelopeSkipsMalformedRows(t *testing.T) {
	// A type-broken row (string qty) must not take its siblings down with
	// it: the log is append-only, so a single bad row would otherwise pin
	// every future fetch to the stale cached snapshot.
	bad := `{"planId":"broken","status":"success","qty":"oops","timestampMs":2000}`

	variants := map[string]string{
		"bare array":  `[` + entryJSON + `,` + bad + `]`,
		"data array":  `{"data":[` + bad + `,` + entryJSON + `]}`,
		"data.recent": `{"data":{"recent":[` + entryJSON + `,` + bad + `]}}`,
		"recent":      `{"recent":[` + bad + `,` + entryJSON + `]}`,
	}
	for name, body := range variants {
		t.Run(name, func(t *testing.T) {
			entries, err := decodeExecutionEnvelope([]byte(body))
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, "p1", entries[0].StrategyID)
		})
	}

	// An array of nothing but broken rows still decodes, to empty.
	entries, err := decodeExecutionEnvelope([]byte(`[` + bad + `]`))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDecodeLegacyAndAliasFields(t *testing.T) {
	body := `[{"pairId":"p2","legIndex":1,"success":true,"qty":2,"price":99.5,"orderId":"x","timestampMs":2000}]`
	entries, err := decodeExecutionEnvelope([]byte(body))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "p2", e.StrategyID) // pairId alias resolves
	assert.Equal(t, domain.SchemaLegacy, e.Schema)
	assert.Equal(t, 1, e.LegIndex)
	assert.True(t, e.Success)
	assert.Equal(t, 99.5, e.Price)
}

func TestClientExecutionLog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/executions", r.URL.Path)
		w.Write([]byte(`{"data":{"recent":[` + entryJSON + `]}}`))
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	c := New(srv.URL, 0, logger)

	entries, err := c.ExecutionLog(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1.5, entries[0].Qty)
}

func TestClientTopOfBookQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "bybit", q.Get("exchange"))
		assert.Equal(t, "BTCUSDT", q.Get("symbol"))
		assert.Equal(t, "linear", q.Get("instrumentType"))
		w.Write([]byte(`{"bidPrice":100,"askPrice":101}`))
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	c := New(srv.URL, 0, logger)

	raw, err := c.TopOfBook(context.Background(), "bybit", "BTCUSDT", domain.InstrumentLinear)
	require.NoError(t, err)
	assert.JSONEq(t, `{"bidPrice":100,"askPrice":101}`, string(raw))
}
