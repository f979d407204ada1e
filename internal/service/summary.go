// Package service hosts the execution reconciliation service that keeps
// per-strategy summaries current.
package service

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/arbdeck/internal/aggregate"
	"github.com/alanyoungcy/arbdeck/internal/domain"
	"github.com/alanyoungcy/arbdeck/internal/engine"
)

// Backend is the slice of the backend API the summary service needs.
type Backend interface {
	ExecutionLog(ctx context.Context) ([]domain.RawExecutionEntry, error)
	AveragePrices(ctx context.Context) (map[string]domain.LegAveragePrices, error)
}

// PairSource supplies the live pair configs for metadata backfill.
type PairSource interface {
	Pairs() []domain.PairConfig
}

// SummaryService periodically reconciles the raw execution log into
// strategy summaries. Every refresh is a full recompute; push notifications
// only shorten the wait for the next one.
type SummaryService struct {
	backend      Backend
	pairs        PairSource
	agg          *aggregate.Aggregator
	mirror       domain.StateMirror
	history      domain.ExecutionHistory // optional, may be nil
	bus          *engine.Bus
	refreshEvery time.Duration
	logger       *slog.Logger

	mu        sync.RWMutex
	summaries []domain.StrategySummary
	lastRaw   []domain.RawExecutionEntry
}

// NewSummaryService wires a SummaryService. history may be nil when durable
// persistence is disabled.
func NewSummaryService(backend Backend, pairs PairSource, mirror domain.StateMirror, history domain.ExecutionHistory, bus *engine.Bus, refreshEvery time.Duration, logger *slog.Logger) *SummaryService {
	if refreshEvery <= 0 {
		refreshEvery = 5 * time.Second
	}
	return &SummaryService{
		backend:      backend,
		pairs:        pairs,
		agg:          aggregate.New(logger),
		mirror:       mirror,
		history:      history,
		bus:          bus,
		refreshEvery: refreshEvery,
		logger:       logger.With(slog.String("component", "summary_service")),
	}
}

// GetStrategySummaries returns the latest summaries, newest first. The
// returned slice is safe to mutate.
func (s *SummaryService) GetStrategySummaries() []domain.StrategySummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.StrategySummary, len(s.summaries))
	copy(out, s.summaries)
	return out
}

// RecentExecutions returns the most recent raw entries from the last
// successful refresh, newest first.
func (s *SummaryService) RecentExecutions(limit int) []domain.RawExecutionEntry {
	if limit <= 0 {
		limit = domain.RecentExecutionLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit > len(s.lastRaw) {
		limit = len(s.lastRaw)
	}
	out := make([]domain.RawExecutionEntry, limit)
	copy(out, s.lastRaw[:limit])
	return out
}

// Run refreshes on a fixed interval and whenever an execution push event
// arrives, until ctx is cancelled.
func (s *SummaryService) Run(ctx context.Context) error {
	sub := s.bus.Subscribe(domain.EventExecuted, domain.EventFailed)
	defer sub.Unsubscribe()

	s.Refresh(ctx)

	ticker := time.NewTicker(s.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Refresh(ctx)
		case <-sub.Events():
			s.Refresh(ctx)
		}
	}
}

// Refresh runs one reconciliation pass. Transport faults degrade to the
// mirrored (or durable) snapshot and never surface as fatal.
func (s *SummaryService) Refresh(ctx context.Context) {
	entries, live := s.fetchEntries(ctx)
	if entries == nil {
		// No live data and no cached snapshot: keep showing what we have.
		return
	}

	if live {
		s.persist(ctx, entries)
	}

	avgPrices := s.fetchAveragePrices(ctx)
	next := s.agg.Aggregate(entries, s.pairs.Pairs(), avgPrices)

	s.mu.Lock()
	changed := !reflect.DeepEqual(s.summaries, next)
	s.summaries = next
	s.lastRaw = recentFirst(entries)
	s.mu.Unlock()

	if changed {
		s.bus.Publish(domain.SummariesChangedEvent{Summaries: next})
	}
}

// fetchEntries returns the raw execution list and whether it came from the
// live backend. Fallback order on transport fault: state mirror, then the
// durable history store.
func (s *SummaryService) fetchEntries(ctx context.Context) ([]domain.RawExecutionEntry, bool) {
	entries, err := s.backend.ExecutionLog(ctx)
	if err == nil {
		return entries, true
	}
	if ctx.Err() != nil {
		return nil, false
	}
	s.logger.Warn("execution log fetch failed, falling back to cached snapshot",
		slog.String("error", err.Error()),
	)

	var cached []domain.RawExecutionEntry
	if err := s.mirror.Load(ctx, domain.MirrorKeyRecentExecutions, &cached); err == nil {
		return cached, false
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Debug("mirror load of executions failed", slog.String("error", err.Error()))
	}

	if s.history != nil {
		if stored, err := s.history.ListRecent(ctx, domain.RecentExecutionLimit); err == nil {
			return stored, false
		}
	}
	return nil, false
}

func (s *SummaryService) fetchAveragePrices(ctx context.Context) map[string]domain.LegAveragePrices {
	avg, err := s.backend.AveragePrices(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Debug("average prices fetch failed", slog.String("error", err.Error()))
		}
		return nil
	}
	return avg
}

// persist mirrors the most recent entries for reload resilience and appends
// them to the durable history. Both are best-effort.
func (s *SummaryService) persist(ctx context.Context, entries []domain.RawExecutionEntry) {
	recent := recentFirst(entries)
	if len(recent) > domain.RecentExecutionLimit {
		recent = recent[:domain.RecentExecutionLimit]
	}
	if err := s.mirror.Save(ctx, domain.MirrorKeyRecentExecutions, recent); err != nil {
		s.logger.Debug("mirror save of executions failed", slog.String("error", err.Error()))
	}

	if s.history != nil {
		if err := s.history.Append(ctx, entries); err != nil {
			s.logger.Warn("history append failed", slog.String("error", err.Error()))
		}
	}
}

// recentFirst returns a copy of entries sorted newest first.
func recentFirst(entries []domain.RawExecutionEntry) []domain.RawExecutionEntry {
	out := make([]domain.RawExecutionEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimestampMs > out[j].TimestampMs
	})
	return out
}
