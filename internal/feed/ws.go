package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

// EventHandler is invoked for each decoded push event.
type EventHandler func(ctx context.Context, ev domain.Event)

// PushFeed connects to the backend's push WebSocket and invokes the handler
// for every tagged frame it can decode. It reconnects with backoff on
// disconnect and stops when the context is cancelled.
type PushFeed struct {
	wsURL   string
	handler EventHandler
	logger  *slog.Logger

	dialTimeout    time.Duration
	reconnectDelay time.Duration
}

// NewPushFeed creates a feed for the given WebSocket URL.
func NewPushFeed(wsURL string, handler EventHandler, logger *slog.Logger) *PushFeed {
	return &PushFeed{
		wsURL:          wsURL,
		handler:        handler,
		logger:         logger.With(slog.String("component", "push_feed")),
		dialTimeout:    10 * time.Second,
		reconnectDelay: 2 * time.Second,
	}
}

// Run connects and dispatches frames until ctx is cancelled.
func (f *PushFeed) Run(ctx context.Context) error {
	if f.wsURL == "" {
		f.logger.Info("no push url configured, feed disabled")
		return nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("push feed disconnected, reconnecting",
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.reconnectDelay):
		}
	}
}

func (f *PushFeed) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: f.dialTimeout}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", f.wsURL, err)
	}
	defer conn.Close()

	// Close the connection when the context is cancelled so the blocking
	// read below unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	f.logger.Info("push feed connected", slog.String("url", f.wsURL))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed: read: %w", domain.ErrWSDisconnect)
		}
		f.dispatch(ctx, data)
	}
}

// pushFrame is the tagged envelope of every push message.
type pushFrame struct {
	Type domain.EventKind `json:"type"`
	Data json.RawMessage  `json:"data"`
}

// pushLegTick is the per-leg tick shape inside a priceUpdate frame.
type pushLegTick struct {
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
	PushTickPayload
}

// pushPriceUpdate is the priceUpdate frame body.
type pushPriceUpdate struct {
	PairID    string      `json:"pairId"`
	Leg1Tick  pushLegTick `json:"leg1Tick"`
	Leg2Tick  pushLegTick `json:"leg2Tick"`
	Threshold float64     `json:"threshold"`
}

// dispatch decodes one frame and forwards the typed event. Frames that fail
// to decode are dropped; one malformed message never tears down the
// connection.
func (f *PushFeed) dispatch(ctx context.Context, data []byte) {
	var frame pushFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		f.logger.Debug("dropping undecodable push frame", slog.String("error", err.Error()))
		return
	}

	switch frame.Type {
	case domain.EventPriceUpdate:
		var p pushPriceUpdate
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			f.logger.Debug("dropping malformed priceUpdate", slog.String("error", err.Error()))
			return
		}
		nowMs := time.Now().UnixMilli()
		leg1, ok1 := FromPushTick(p.Leg1Tick.Exchange, p.Leg1Tick.Symbol, p.Leg1Tick.PushTickPayload, nowMs)
		leg2, ok2 := FromPushTick(p.Leg2Tick.Exchange, p.Leg2Tick.Symbol, p.Leg2Tick.PushTickPayload, nowMs)
		if !ok1 || !ok2 {
			// Partial price data: skip the whole update rather than guess.
			return
		}
		f.handler(ctx, domain.PriceUpdateEvent{
			PairID:           p.PairID,
			Leg1Tick:         leg1,
			Leg2Tick:         leg2,
			ThresholdPercent: p.Threshold,
		})

	case domain.EventExecuted:
		var ev domain.ExecutedEvent
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			return
		}
		f.handler(ctx, ev)

	case domain.EventFailed:
		var ev domain.FailedEvent
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			return
		}
		f.handler(ctx, ev)

	case domain.EventPairRemoved:
		var ev domain.PairRemovedEvent
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			return
		}
		f.handler(ctx, ev)

	default:
		f.logger.Debug("ignoring unknown push frame", slog.String("type", string(frame.Type)))
	}
}
