// Package config defines the top-level configuration for the arbdeck engine
// and provides validation helpers.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ARBDECK_* environment
// variables.
type Config struct {
	Backend  BackendConfig  `toml:"backend"`
	Monitor  MonitorConfig  `toml:"monitor"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
}

// BackendConfig holds the trading backend's API endpoints.
type BackendConfig struct {
	BaseURL        string   `toml:"base_url"`
	WSURL          string   `toml:"ws_url"`
	RequestTimeout duration `toml:"request_timeout"`
}

// MonitorConfig holds the live monitoring loop parameters.
type MonitorConfig struct {
	PricePollInterval    duration `toml:"price_poll_interval"`
	PairReloadInterval   duration `toml:"pair_reload_interval"`
	ExecutionRefreshEach duration `toml:"execution_refresh_interval"`
	ThrottleWindow       duration `toml:"throttle_window"`
}

// RedisConfig holds Redis connection parameters for the state mirror. An
// empty Addr disables the mirror.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters for the execution
// history store. An empty DSN disables durable history.
type PostgresConfig struct {
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	SSLMode  string `toml:"ssl_mode"`
	MaxConns int    `toml:"pool_max_conns"`
	MinConns int    `toml:"pool_min_conns"`
}

// ServerConfig holds the HTTP/WebSocket API server configuration.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"` // empty disables authentication
}

// NotifyConfig holds operator alert channel settings. All channels are
// optional; leaving every credential empty disables alerting.
type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	DiscordWebhook string   `toml:"discord_webhook"`
	Events         []string `toml:"events"` // empty allows all alert kinds
	MinInterval    duration `toml:"min_interval"`
}

// Defaults returns a Config populated with sensible defaults for local use.
func Defaults() Config {
	return Config{
		Backend: BackendConfig{
			RequestTimeout: duration{10 * time.Second},
		},
		Monitor: MonitorConfig{
			PricePollInterval:    duration{time.Second},
			PairReloadInterval:   duration{time.Second},
			ExecutionRefreshEach: duration{5 * time.Second},
			ThrottleWindow:       duration{time.Second},
		},
		Redis: RedisConfig{
			PoolSize:   10,
			MaxRetries: 3,
		},
		Postgres: PostgresConfig{
			SSLMode:  "disable",
			MaxConns: 4,
			MinConns: 1,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Notify: NotifyConfig{
			MinInterval: duration{time.Minute},
		},
		LogLevel: "info",
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("config: backend.base_url is required")
	}
	if c.Monitor.PricePollInterval.Duration <= 0 {
		return fmt.Errorf("config: monitor.price_poll_interval must be positive")
	}
	if c.Monitor.PairReloadInterval.Duration <= 0 {
		return fmt.Errorf("config: monitor.pair_reload_interval must be positive")
	}
	if c.Monitor.ExecutionRefreshEach.Duration <= 0 {
		return fmt.Errorf("config: monitor.execution_refresh_interval must be positive")
	}
	if c.Monitor.ThrottleWindow.Duration <= 0 {
		return fmt.Errorf("config: monitor.throttle_window must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
