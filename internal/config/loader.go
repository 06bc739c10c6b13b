package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies STINKBOT_* environment variable overrides, and
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

// applyEnvOverrides reads well-known STINKBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Binance.RestURL, "STINKBOT_BINANCE_REST_URL")
	setStr(&cfg.Binance.WsURL, "STINKBOT_BINANCE_WS_URL")
	setStr(&cfg.Binance.Symbol, "STINKBOT_BINANCE_SYMBOL")
	setInt(&cfg.Binance.DepthLimit, "STINKBOT_BINANCE_DEPTH_LIMIT")
	setBool(&cfg.Binance.UseAggTrades, "STINKBOT_BINANCE_USE_AGG_TRADES")

	setInt(&cfg.Window.Size, "STINKBOT_WINDOW_SIZE")
	setFloat(&cfg.Window.EWMALambda, "STINKBOT_WINDOW_EWMA_LAMBDA")

	setFloat(&cfg.Maker.BaseK, "STINKBOT_MAKER_BASE_K")
	setFloat(&cfg.Maker.OrderSize, "STINKBOT_MAKER_ORDER_SIZE")
	setInt(&cfg.Maker.MaxActiveOrders, "STINKBOT_MAKER_MAX_ACTIVE_ORDERS")
	setFloat(&cfg.Maker.StrongImbalanceThreshold, "STINKBOT_MAKER_STRONG_IMBALANCE_THRESHOLD")
	setFloat(&cfg.Maker.ModerateImbalanceThreshold, "STINKBOT_MAKER_MODERATE_IMBALANCE_THRESHOLD")
	setFloat(&cfg.Maker.VolDampening, "STINKBOT_MAKER_VOL_DAMPENING")
	setFloat(&cfg.Maker.LearningRate, "STINKBOT_MAKER_LEARNING_RATE")
	setFloat(&cfg.Maker.MinDistancePct, "STINKBOT_MAKER_MIN_DISTANCE_PCT")

	setInt(&cfg.Session.DurationSec, "STINKBOT_SESSION_DURATION_SEC")
	setInt(&cfg.Session.StatsIntervalSec, "STINKBOT_SESSION_STATS_INTERVAL_SEC")
	setInt(&cfg.Session.DepthBuffer, "STINKBOT_SESSION_DEPTH_BUFFER")
	setInt(&cfg.Session.TradeBuffer, "STINKBOT_SESSION_TRADE_BUFFER")

	setStr(&cfg.Redis.Addr, "STINKBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "STINKBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "STINKBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "STINKBOT_REDIS_POOL_SIZE")

	setStr(&cfg.Postgres.DSN, "STINKBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "STINKBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "STINKBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "STINKBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "STINKBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "STINKBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "STINKBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "STINKBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "STINKBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "STINKBOT_POSTGRES_RUN_MIGRATIONS")

	setStr(&cfg.LogLevel, "STINKBOT_LOG_LEVEL")
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

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
