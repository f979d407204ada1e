// Package notify delivers operator alerts for triggered opportunities and
// failed executions. Alerts are dispatched to all registered senders
// (Telegram, Discord) and can be filtered by event kind so operators receive
// only the alerts they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/arbdeck/internal/domain"
	"github.com/alanyoungcy/arbdeck/internal/engine"
)

// Sender is the interface that each alert channel must implement.
type Sender interface {
	// Send delivers an alert with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Alerter watches the core event bus and pushes operator alerts when a pair's
// live spread crosses its trigger threshold or a strategy attempt fails.
// Trigger alerts are throttled per pair so a spread that oscillates around
// the threshold does not flood the channels.
type Alerter struct {
	bus      *engine.Bus
	senders  []Sender
	events   map[domain.EventKind]bool // allowed kinds; empty allows all
	throttle *engine.Throttle
	windowMs int64
	logger   *slog.Logger
	now      func() time.Time
}

// NewAlerter creates an Alerter delivering to the given senders. Only events
// whose kind appears in events are forwarded; an empty list allows all.
// minInterval bounds how often a trigger alert fires per pair.
func NewAlerter(bus *engine.Bus, senders []Sender, events []string, minInterval time.Duration, logger *slog.Logger) *Alerter {
	allowed := make(map[domain.EventKind]bool, len(events))
	for _, e := range events {
		allowed[domain.EventKind(strings.TrimSpace(e))] = true
	}
	return &Alerter{
		bus:      bus,
		senders:  senders,
		events:   allowed,
		throttle: engine.NewThrottle(),
		windowMs: minInterval.Milliseconds(),
		logger:   logger.With(slog.String("component", "alerter")),
		now:      time.Now,
	}
}

// Run consumes bus events until ctx is cancelled.
func (a *Alerter) Run(ctx context.Context) error {
	sub := a.bus.Subscribe(domain.EventOpportunityChanged, domain.EventFailed, domain.EventPairRemoved)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-sub.Events():
			a.handle(ctx, ev)
		}
	}
}

func (a *Alerter) handle(ctx context.Context, ev domain.Event) {
	if len(a.events) > 0 && !a.events[ev.Kind()] {
		return
	}

	switch e := ev.(type) {
	case domain.OpportunityChangedEvent:
		a.handleOpportunity(ctx, e)
	case domain.FailedEvent:
		title := "Execution failed"
		msg := fmt.Sprintf("strategy %s: %s", e.StrategyID, e.Reason)
		a.dispatch(ctx, title, msg)
	case domain.PairRemovedEvent:
		a.throttle.Forget(e.PairID)
	}
}

func (a *Alerter) handleOpportunity(ctx context.Context, e domain.OpportunityChangedEvent) {
	if !e.Opportunity.ShouldTrigger {
		return
	}
	nowMs := a.now().UnixMilli()
	if !a.throttle.Acquire(e.PairID, nowMs, a.windowMs) {
		return
	}

	buySym, sellSym := e.Opportunity.Leg1Tick.Symbol, e.Opportunity.Leg2Tick.Symbol
	if e.Opportunity.Direction == domain.DirectionReverse {
		buySym, sellSym = sellSym, buySym
	}
	msg := fmt.Sprintf("pair %s: spread %.4f%% (%s), buy %s / sell %s",
		e.PairID,
		e.Opportunity.SpreadPercent,
		e.Opportunity.Direction,
		buySym,
		sellSym,
	)
	a.dispatch(ctx, "Opportunity triggered", msg)
}

// dispatch iterates over all senders. Errors from individual senders are
// logged; a single sender failure does not prevent delivery to the rest.
func (a *Alerter) dispatch(ctx context.Context, title, message string) {
	for _, s := range a.senders {
		if err := s.Send(ctx, title, message); err != nil {
			a.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		a.logger.DebugContext(ctx, "alert sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
}
