package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbdeck/internal/domain"
	"github.com/alanyoungcy/arbdeck/internal/feed"
)

// BackendClient is the slice of the backend API the monitor needs.
type BackendClient interface {
	MonitoringPairs(ctx context.Context) ([]domain.PairConfig, error)
	TopOfBook(ctx context.Context, exchange, symbol string, instrumentType domain.InstrumentType) ([]byte, error)
}

// Options holds the monitor loop timings.
type Options struct {
	PricePollInterval  time.Duration
	PairReloadInterval time.Duration
	ThrottleWindow     time.Duration
}

// Monitor owns the live per-pair state: the tracked pair set, the throttle,
// the opportunity store, and the recompute loops feeding them. One Monitor
// exists per dashboard session; its Run loops and the push feed are torn
// down together when the owning context is cancelled.
type Monitor struct {
	opts     Options
	backend  BackendClient
	mirror   domain.StateMirror
	bus      *Bus
	store    *Store
	throttle *Throttle
	logger   *slog.Logger
	now      func() time.Time

	pairs *pairSet
}

// NewMonitor wires a Monitor. mirror may be a no-op implementation but not
// nil.
func NewMonitor(opts Options, backend BackendClient, mirror domain.StateMirror, bus *Bus, logger *slog.Logger) *Monitor {
	if opts.PricePollInterval <= 0 {
		opts.PricePollInterval = time.Second
	}
	if opts.PairReloadInterval <= 0 {
		opts.PairReloadInterval = time.Second
	}
	if opts.ThrottleWindow <= 0 {
		opts.ThrottleWindow = time.Second
	}
	return &Monitor{
		opts:     opts,
		backend:  backend,
		mirror:   mirror,
		bus:      bus,
		store:    NewStore(),
		throttle: NewThrottle(),
		logger:   logger.With(slog.String("component", "monitor")),
		now:      time.Now,
		pairs:    newPairSet(),
	}
}

// HandlePushEvent is the push feed's event handler. It republishes decoded
// frames on the core bus where the monitor and the summary service consume
// them through their own subscriptions.
func (m *Monitor) HandlePushEvent(_ context.Context, ev domain.Event) {
	m.bus.Publish(ev)
}

// GetOpportunity returns the latest computed opportunity for a pair.
func (m *Monitor) GetOpportunity(pairID string) (domain.Opportunity, bool) {
	return m.store.Get(pairID)
}

// GetAllOpportunities returns every live opportunity, newest first.
func (m *Monitor) GetAllOpportunities() []domain.Opportunity {
	return m.store.All()
}

// Pairs returns the currently tracked pair configs.
func (m *Monitor) Pairs() []domain.PairConfig {
	return m.pairs.all()
}

// Run restores cached state, then drives the price poll loop, the pair
// reload loop, and the push event consumer until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.restore(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.pricePollLoop(ctx) })
	g.Go(func() error { return m.pairReloadLoop(ctx) })
	g.Go(func() error { return m.consumeEvents(ctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// restore loads the last known pairs and opportunities from the mirror so a
// reloaded dashboard shows cached state while the first live pass runs.
func (m *Monitor) restore(ctx context.Context) {
	var pairs []domain.PairConfig
	if err := m.mirror.Load(ctx, domain.MirrorKeyPairs, &pairs); err == nil {
		m.pairs.replace(pairs)
	} else if !errors.Is(err, domain.ErrNotFound) {
		m.logger.Warn("mirror restore of pairs failed", slog.String("error", err.Error()))
	}

	var opps []domain.Opportunity
	if err := m.mirror.Load(ctx, domain.MirrorKeyOpportunities, &opps); err == nil {
		for _, opp := range opps {
			m.store.Upsert(opp)
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		m.logger.Warn("mirror restore of opportunities failed", slog.String("error", err.Error()))
	}
}

func (m *Monitor) pricePollLoop(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.PricePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.pollPrices(ctx)
		}
	}
}

// pollPrices recomputes every enabled pair whose throttle window has
// elapsed. Results that arrive after the pair was deleted are discarded.
func (m *Monitor) pollPrices(ctx context.Context) {
	windowMs := m.opts.ThrottleWindow.Milliseconds()
	updated := false

	for _, cfg := range m.pairs.all() {
		if !cfg.Enabled {
			continue
		}
		// Reserve the window before the fetches so a push arriving while
		// they are in flight cannot commit a second time inside it.
		nowMs := m.now().UnixMilli()
		if !m.throttle.Acquire(cfg.ID, nowMs, windowMs) {
			continue
		}

		leg1, ok := m.fetchTick(ctx, cfg.Leg1)
		if !ok {
			continue
		}
		leg2, ok := m.fetchTick(ctx, cfg.Leg2)
		if !ok {
			continue
		}
		// The fetches may have outlived a deletion; drop the result then.
		if _, tracked := m.pairs.get(cfg.ID); !tracked {
			continue
		}

		m.commit(cfg, leg1, leg2)
		updated = true
	}

	if updated {
		m.persistOpportunities(ctx)
	}
}

// fetchTick pulls and normalizes the top of book for one leg. A transport
// fault or malformed payload yields no tick; the pair simply keeps its
// previous state for this pass.
func (m *Monitor) fetchTick(ctx context.Context, leg domain.LegConfig) (domain.Tick, bool) {
	raw, err := m.backend.TopOfBook(ctx, leg.Exchange, leg.Symbol, leg.InstrumentType)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Debug("top of book fetch failed",
				slog.String("exchange", leg.Exchange),
				slog.String("symbol", leg.Symbol),
				slog.String("error", err.Error()),
			)
		}
		return domain.Tick{}, false
	}
	return feed.Normalize(leg.Exchange, leg.Symbol, raw, m.now().UnixMilli())
}

// commit recomputes, stamps, stores, and announces one pair's opportunity.
// The caller has already acquired the throttle window.
func (m *Monitor) commit(cfg domain.PairConfig, leg1, leg2 domain.Tick) {
	nowMs := m.now().UnixMilli()
	opp := ComputeOpportunity(cfg, leg1, leg2)
	opp.ComputedAtMs = nowMs

	m.store.Upsert(opp)
	m.bus.Publish(domain.OpportunityChangedEvent{PairID: cfg.ID, Opportunity: opp})
}

func (m *Monitor) pairReloadLoop(ctx context.Context) error {
	// Load once immediately so the first poll pass has pairs to work on.
	m.reloadPairs(ctx)

	ticker := time.NewTicker(m.opts.PairReloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.reloadPairs(ctx)
		}
	}
}

// reloadPairs refreshes the tracked pair set from the backend. Transport
// faults keep the previous (or mirrored) set; deleted pairs are swept from
// the store and the throttle.
func (m *Monitor) reloadPairs(ctx context.Context) {
	pairs, err := m.backend.MonitoringPairs(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Warn("pair reload failed, keeping last known set",
				slog.String("error", err.Error()),
			)
		}
		return
	}

	removed := m.pairs.replace(pairs)
	for _, id := range removed {
		m.dropPair(id)
	}

	if err := m.mirror.Save(ctx, domain.MirrorKeyPairs, pairs); err != nil {
		m.logger.Debug("mirror save of pairs failed", slog.String("error", err.Error()))
	}
}

func (m *Monitor) dropPair(pairID string) {
	m.pairs.remove(pairID)
	m.store.RemoveAll(pairID)
	m.throttle.Forget(pairID)
	m.logger.Info("pair removed", slog.String("pair_id", pairID))
}

func (m *Monitor) consumeEvents(ctx context.Context) error {
	sub := m.bus.Subscribe(domain.EventPriceUpdate, domain.EventPairRemoved)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-sub.Events():
			switch e := ev.(type) {
			case domain.PriceUpdateEvent:
				m.handlePriceUpdate(ctx, e)
			case domain.PairRemovedEvent:
				m.dropPair(e.PairID)
			}
		}
	}
}

// handlePriceUpdate applies one push-delivered price sample, subject to the
// same throttle the poll loop uses so racing sources still produce at most
// one recompute per pair per window.
func (m *Monitor) handlePriceUpdate(ctx context.Context, ev domain.PriceUpdateEvent) {
	cfg, ok := m.pairs.get(ev.PairID)
	if !ok {
		// Push for an untracked (possibly just-deleted) pair: discard.
		return
	}
	if !ev.Leg1Tick.Valid() || !ev.Leg2Tick.Valid() {
		return
	}

	nowMs := m.now().UnixMilli()
	if !m.throttle.Acquire(ev.PairID, nowMs, m.opts.ThrottleWindow.Milliseconds()) {
		return
	}

	m.commit(cfg, ev.Leg1Tick, ev.Leg2Tick)
	m.persistOpportunities(ctx)
}

func (m *Monitor) persistOpportunities(ctx context.Context) {
	if err := m.mirror.Save(ctx, domain.MirrorKeyOpportunities, m.store.All()); err != nil {
		m.logger.Debug("mirror save of opportunities failed", slog.String("error", err.Error()))
	}
}
