package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/arbdeck/internal/backend"
	"github.com/alanyoungcy/arbdeck/internal/cache/memory"
	"github.com/alanyoungcy/arbdeck/internal/cache/redis"
	"github.com/alanyoungcy/arbdeck/internal/config"
	"github.com/alanyoungcy/arbdeck/internal/domain"
	"github.com/alanyoungcy/arbdeck/internal/engine"
	"github.com/alanyoungcy/arbdeck/internal/feed"
	"github.com/alanyoungcy/arbdeck/internal/notify"
	"github.com/alanyoungcy/arbdeck/internal/server"
	"github.com/alanyoungcy/arbdeck/internal/server/handler"
	"github.com/alanyoungcy/arbdeck/internal/server/ws"
	"github.com/alanyoungcy/arbdeck/internal/service"
	"github.com/alanyoungcy/arbdeck/internal/store/postgres"
)

// Dependencies bundles every long-lived component the application runs. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Bus     *engine.Bus
	Monitor *engine.Monitor
	Summary *service.SummaryService
	Feed    *feed.PushFeed  // nil when no push endpoint is configured
	Alerter *notify.Alerter // nil when no alert channel is configured
	Hub     *ws.Hub
	Server  *server.Server
}

// Wire constructs the full dependency graph from the configuration. The
// returned cleanup function closes held connections in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// State mirror: Redis when an address is configured, otherwise
	// in-process memory. The memory mirror keeps restart recovery working
	// within a single process only.
	var mirror domain.StateMirror
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: connect redis: %w", err)
		}
		closers = append(closers, func() { rc.Close() })
		mirror = redis.NewStateMirror(rc)
	} else {
		mirror = memory.NewMirror()
	}

	// Durable execution history: optional, enabled by Postgres settings.
	var history domain.ExecutionHistory
	if postgres.DSN(postgres.ClientConfig{
		DSN: cfg.Postgres.DSN, Host: cfg.Postgres.Host,
	}) != "" {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.MaxConns,
			MinConns: cfg.Postgres.MinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: connect postgres: %w", err)
		}
		closers = append(closers, pg.Close)

		store := postgres.NewExecutionStore(pg.Pool())
		if err := store.EnsureSchema(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: ensure schema: %w", err)
		}
		history = store
	}

	be := backend.New(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout.Duration, logger)
	bus := engine.NewBus()

	monitor := engine.NewMonitor(engine.Options{
		PricePollInterval:  cfg.Monitor.PricePollInterval.Duration,
		PairReloadInterval: cfg.Monitor.PairReloadInterval.Duration,
		ThrottleWindow:     cfg.Monitor.ThrottleWindow.Duration,
	}, be, mirror, bus, logger)

	summary := service.NewSummaryService(
		be, monitor, mirror, history, bus, cfg.Monitor.ExecutionRefreshEach.Duration, logger)

	var pushFeed *feed.PushFeed
	if strings.TrimSpace(cfg.Backend.WSURL) != "" {
		pushFeed = feed.NewPushFeed(cfg.Backend.WSURL, monitor.HandlePushEvent, logger)
	}

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhook != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhook))
	}
	var alerter *notify.Alerter
	if len(senders) > 0 {
		alerter = notify.NewAlerter(bus, senders, cfg.Notify.Events, cfg.Notify.MinInterval.Duration, logger)
	}

	hub := ws.NewHub(bus, logger)

	srv := server.NewServer(server.Config{
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		APIKey:      cfg.Server.APIKey,
	}, server.Handlers{
		Health:        handler.NewHealthHandler(logger),
		Pairs:         handler.NewPairHandler(monitor),
		Opportunities: handler.NewOpportunityHandler(monitor),
		Summaries:     handler.NewSummaryHandler(summary),
	}, hub, logger)

	return &Dependencies{
		Bus:     bus,
		Monitor: monitor,
		Summary: summary,
		Feed:    pushFeed,
		Alerter: alerter,
		Hub:     hub,
		Server:  srv,
	}, cleanup, nil
}
