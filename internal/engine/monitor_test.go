package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbdeck/internal/cache/memory"
	"github.com/alanyoungcy/arbdeck/internal/domain"
)

// fakeBackend serves a fixed pair list and per-exchange book payloads.
type fakeBackend struct {
	pairs    []domain.PairConfig
	pairsErr error
	books    map[string]string // exchange -> raw payload
	onBook   func()            // if set, runs before each TopOfBook reply
}

func (f *fakeBackend) MonitoringPairs(context.Context) ([]domain.PairConfig, error) {
	return f.pairs, f.pairsErr
}

func (f *fakeBackend) TopOfBook(_ context.Context, exchange, _ string, _ domain.InstrumentType) ([]byte, error) {
	if f.onBook != nil {
		f.onBook()
	}
	raw, ok := f.books[exchange]
	if !ok {
		return nil, errors.New("no book")
	}
	return []byte(raw), nil
}

func testPair() domain.PairConfig {
	return domain.PairConfig{
		ID:               "pair-1",
		Leg1:             domain.LegConfig{Exchange: "bybit", Symbol: "BTCUSDT", Side: domain.SideBuy},
		Leg2:             domain.LegConfig{Exchange: "okx", Symbol: "BTCUSDT", Side: domain.SideSell},
		ThresholdPercent: 0.1,
		QtyPerExecution:  0.01,
		MaxExecutions:    10,
		Enabled:          true,
	}
}

func newTestMonitor(backend BackendClient) (*Monitor, *Bus) {
	bus := NewBus()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	m := NewMonitor(Options{ThrottleWindow: time.Second}, backend, memory.NewMirror(), bus, logger)
	return m, bus
}

func TestMonitorPollComputesOpportunity(t *testing.T) {
	backend := &fakeBackend{
		pairs: []domain.PairConfig{testPair()},
		books: map[string]string{
			"bybit": `{"bids":[["29990","1"]],"asks":[["30000","1"]]}`,
			"okx":   `{"bidPrice":30050,"askPrice":30060}`,
		},
	}
	m, _ := newTestMonitor(backend)
	ctx := context.Background()

	m.reloadPairs(ctx)
	require.Len(t, m.Pairs(), 1)

	m.pollPrices(ctx)

	opp, ok := m.GetOpportunity("pair-1")
	require.True(t, ok)
	assert.InDelta(t, 50, opp.Spread, 1e-9)
	assert.True(t, opp.ShouldTrigger)
	assert.NotZero(t, opp.ComputedAtMs)
}

func TestMonitorThrottleBoundsRecomputation(t *testing.T) {
	backend := &fakeBackend{
		pairs: []domain.PairConfig{testPair()},
		books: map[string]string{
			"bybit": `{"bidPrice":100,"askPrice":101}`,
			"okx":   `{"bidPrice":105,"askPrice":106}`,
		},
	}
	m, _ := newTestMonitor(backend)
	ctx := context.Background()

	now := time.UnixMilli(1_000_000)
	m.now = func() time.Time { return now }

	m.reloadPairs(ctx)
	m.pollPrices(ctx)
	first, ok := m.GetOpportunity("pair-1")
	require.True(t, ok)

	// Half a window later prices moved, but the recompute is suppressed.
	backend.books["okx"] = `{"bidPrice":205,"askPrice":206}`
	now = now.Add(500 * time.Millisecond)
	m.pollPrices(ctx)
	unchanged, _ := m.GetOpportunity("pair-1")
	assert.Equal(t, first, unchanged)

	// Past the window the new prices land.
	now = now.Add(600 * time.Millisecond)
	m.pollPrices(ctx)
	updated, _ := m.GetOpportunity("pair-1")
	assert.NotEqual(t, first.SpreadPercent, updated.SpreadPercent)
}

func TestMonitorPushDuringPollFetchCommitsOnce(t *testing.T) {
	backend := &fakeBackend{
		pairs: []domain.PairConfig{testPair()},
		books: map[string]string{
			"bybit": `{"bidPrice":100,"askPrice":101}`,
			"okx":   `{"bidPrice":105,"askPrice":106}`,
		},
	}
	m, bus := newTestMonitor(backend)
	ctx := context.Background()

	now := time.UnixMilli(1_000_000)
	m.now = func() time.Time { return now }

	m.reloadPairs(ctx)

	sub := bus.Subscribe(domain.EventOpportunityChanged)
	defer sub.Unsubscribe()

	push := domain.PriceUpdateEvent{
		PairID: "pair-1",
		Leg1Tick: domain.Tick{
			Exchange: "bybit", Symbol: "BTCUSDT",
			BestBid: domain.PriceLevel{Price: 200, Size: 1},
			BestAsk: domain.PriceLevel{Price: 201, Size: 1},
		},
		Leg2Tick: domain.Tick{
			Exchange: "okx", Symbol: "BTCUSDT",
			BestBid: domain.PriceLevel{Price: 205, Size: 1},
			BestAsk: domain.PriceLevel{Price: 206, Size: 1},
		},
	}

	// Land a push while the poll's book fetches are still in flight. The
	// poll reserved the window at its gate, so the push must lose.
	delivered := false
	backend.onBook = func() {
		if delivered {
			return
		}
		delivered = true
		m.handlePriceUpdate(ctx, push)
	}

	m.pollPrices(ctx)
	require.True(t, delivered)

	commits := 0
drain:
	for {
		select {
		case <-sub.Events():
			commits++
		default:
			break drain
		}
	}
	assert.Equal(t, 1, commits, "one window admits one commit across racing sources")

	// The surviving state is the poll's, not the push's.
	opp, ok := m.GetOpportunity("pair-1")
	require.True(t, ok)
	assert.InDelta(t, 100, opp.Leg1Tick.BestBid.Price, 1e-9)
}

func TestMonitorDropsRemovedPair(t *testing.T) {
	backend := &fakeBackend{
		pairs: []domain.PairConfig{testPair()},
		books: map[string]string{
			"bybit": `{"bidPrice":100,"askPrice":101}`,
			"okx":   `{"bidPrice":105,"askPrice":106}`,
		},
	}
	m, _ := newTestMonitor(backend)
	ctx := context.Background()

	m.reloadPairs(ctx)
	m.pollPrices(ctx)
	_, ok := m.GetOpportunity("pair-1")
	require.True(t, ok)

	// Backend no longer returns the pair: it is swept everywhere.
	backend.pairs = nil
	m.reloadPairs(ctx)

	_, ok = m.GetOpportunity("pair-1")
	assert.False(t, ok)
	assert.Empty(t, m.Pairs())
}

func TestMonitorDiscardsPushForUntrackedPair(t *testing.T) {
	m, _ := newTestMonitor(&fakeBackend{})
	ctx := context.Background()

	m.handlePriceUpdate(ctx, domain.PriceUpdateEvent{
		PairID:   "ghost",
		Leg1Tick: tick(100, 101),
		Leg2Tick: tick(105, 106),
	})

	_, ok := m.GetOpportunity("ghost")
	assert.False(t, ok)
}

func TestMonitorPushUpdateEmitsChangeEvent(t *testing.T) {
	backend := &fakeBackend{pairs: []domain.PairConfig{testPair()}}
	m, bus := newTestMonitor(backend)
	ctx := context.Background()
	m.reloadPairs(ctx)

	sub := bus.Subscribe(domain.EventOpportunityChanged)
	defer sub.Unsubscribe()

	m.handlePriceUpdate(ctx, domain.PriceUpdateEvent{
		PairID:   "pair-1",
		Leg1Tick: tick(29990, 30000),
		Leg2Tick: tick(30050, 30060),
	})

	select {
	case ev := <-sub.Events():
		changed, ok := ev.(domain.OpportunityChangedEvent)
		require.True(t, ok)
		assert.Equal(t, "pair-1", changed.PairID)
		assert.True(t, changed.Opportunity.ShouldTrigger)
	case <-time.After(time.Second):
		t.Fatal("expected an opportunity change event")
	}
}

func TestMonitorRestoresMirroredState(t *testing.T) {
	mirror := memory.NewMirror()
	ctx := context.Background()
	require.NoError(t, mirror.Save(ctx, domain.MirrorKeyPairs, []domain.PairConfig{testPair()}))
	require.NoError(t, mirror.Save(ctx, domain.MirrorKeyOpportunities, []domain.Opportunity{
		{PairID: "pair-1", SpreadPercent: 0.2, ComputedAtMs: 123},
	}))

	bus := NewBus()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	m := NewMonitor(Options{}, &fakeBackend{pairsErr: errors.New("backend down")}, mirror, bus, logger)
	m.restore(ctx)

	// Cached state is visible even though the backend is unreachable.
	m.reloadPairs(ctx)
	require.Len(t, m.Pairs(), 1)
	opp, ok := m.GetOpportunity("pair-1")
	require.True(t, ok)
	assert.Equal(t, int64(123), opp.ComputedAtMs)
}
