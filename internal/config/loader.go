package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBDECK_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBDECK_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject endpoints and secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Backend.BaseURL, "ARBDECK_BACKEND_BASE_URL")
	setStr(&cfg.Backend.WSURL, "ARBDECK_BACKEND_WS_URL")
	setDuration(&cfg.Backend.RequestTimeout, "ARBDECK_BACKEND_REQUEST_TIMEOUT")

	setDuration(&cfg.Monitor.PricePollInterval, "ARBDECK_MONITOR_PRICE_POLL_INTERVAL")
	setDuration(&cfg.Monitor.PairReloadInterval, "ARBDECK_MONITOR_PAIR_RELOAD_INTERVAL")
	setDuration(&cfg.Monitor.ExecutionRefreshEach, "ARBDECK_MONITOR_EXECUTION_REFRESH_INTERVAL")
	setDuration(&cfg.Monitor.ThrottleWindow, "ARBDECK_MONITOR_THROTTLE_WINDOW")

	setStr(&cfg.Redis.Addr, "ARBDECK_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBDECK_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBDECK_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBDECK_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBDECK_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBDECK_REDIS_TLS_ENABLED")

	setStr(&cfg.Postgres.DSN, "ARBDECK_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ARBDECK_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARBDECK_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARBDECK_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARBDECK_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARBDECK_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARBDECK_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.MaxConns, "ARBDECK_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.MinConns, "ARBDECK_POSTGRES_POOL_MIN_CONNS")

	setInt(&cfg.Server.Port, "ARBDECK_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "ARBDECK_SERVER_API_KEY")

	setStr(&cfg.Notify.TelegramToken, "ARBDECK_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBDECK_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhook, "ARBDECK_NOTIFY_DISCORD_WEBHOOK")
	setDuration(&cfg.Notify.MinInterval, "ARBDECK_NOTIFY_MIN_INTERVAL")

	setStr(&cfg.LogLevel, "ARBDECK_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
