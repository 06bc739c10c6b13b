// Package config defines the top-level configuration for the stink-bid bot
// and provides loading and validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by STINKBOT_* environment
// variables.
type Config struct {
	Binance  BinanceConfig  `toml:"binance"`
	Window   WindowConfig   `toml:"window"`
	Maker    MakerConfig    `toml:"maker"`
	Session  SessionConfig  `toml:"session"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	LogLevel string         `toml:"log_level"`
}

// BinanceConfig holds exchange endpoints and the traded symbol.
type BinanceConfig struct {
	RestURL      string `toml:"rest_url"`
	WsURL        string `toml:"ws_url"`
	Symbol       string `toml:"symbol"`
	DepthLimit   int    `toml:"depth_limit"`
	UseAggTrades bool   `toml:"use_agg_trades"`
}

// WindowConfig sizes the rolling trade window.
type WindowConfig struct {
	Size       int     `toml:"size"`
	EWMALambda float64 `toml:"ewma_lambda"`
}

// MakerConfig holds the market maker policy parameters.
type MakerConfig struct {
	BaseK                      float64 `toml:"base_k"`
	OrderSize                  float64 `toml:"order_size"`
	MaxActiveOrders            int     `toml:"max_active_orders"`
	StrongImbalanceThreshold   float64 `toml:"strong_imbalance_threshold"`
	ModerateImbalanceThreshold float64 `toml:"moderate_imbalance_threshold"`
	VolDampening               float64 `toml:"vol_dampening"`
	LearningRate               float64 `toml:"learning_rate"`
	MinDistancePct             float64 `toml:"min_distance_pct"`
}

// SessionConfig bounds the trading session and sizes the event queues.
type SessionConfig struct {
	// DurationSec limits the session wall clock; 0 means run until
	// interrupted.
	DurationSec      int `toml:"duration_sec"`
	StatsIntervalSec int `toml:"stats_interval_sec"`
	DepthBuffer      int `toml:"depth_buffer"`
	TradeBuffer      int `toml:"trade_buffer"`
}

// RedisConfig holds connection parameters for the optional stats mirror.
// Leaving Addr empty disables it.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	PoolSize int    `toml:"pool_size"`
}

// PostgresConfig holds connection parameters for the optional order journal.
// Leaving both DSN and Host empty disables it.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// PostgresEnabled reports whether the order journal should be wired.
func (c *Config) PostgresEnabled() bool {
	return strings.TrimSpace(c.Postgres.DSN) != "" || strings.TrimSpace(c.Postgres.Host) != ""
}

// RedisEnabled reports whether the stats mirror should be wired.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}

// Validate checks the configuration for inconsistencies. It returns the
// first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Binance.Symbol) == "" {
		return fmt.Errorf("config: binance.symbol is required")
	}
	if strings.TrimSpace(c.Binance.RestURL) == "" {
		return fmt.Errorf("config: binance.rest_url is required")
	}
	if strings.TrimSpace(c.Binance.WsURL) == "" {
		return fmt.Errorf("config: binance.ws_url is required")
	}
	if c.Binance.DepthLimit < 0 {
		return fmt.Errorf("config: binance.depth_limit must be >= 0")
	}
	if c.Window.Size < 2 {
		return fmt.Errorf("config: window.size must be >= 2")
	}
	if c.Window.EWMALambda <= 0 || c.Window.EWMALambda >= 1 {
		return fmt.Errorf("config: window.ewma_lambda must be in (0, 1)")
	}
	if c.Maker.BaseK <= 0 {
		return fmt.Errorf("config: maker.base_k must be > 0")
	}
	if c.Maker.OrderSize <= 0 {
		return fmt.Errorf("config: maker.order_size must be > 0")
	}
	if c.Maker.MaxActiveOrders < 1 {
		return fmt.Errorf("config: maker.max_active_orders must be >= 1")
	}
	if c.Maker.StrongImbalanceThreshold >= c.Maker.ModerateImbalanceThreshold {
		return fmt.Errorf("config: maker.strong_imbalance_threshold must be below moderate_imbalance_threshold")
	}
	if c.Maker.VolDampening <= 0 || c.Maker.VolDampening > 1 {
		return fmt.Errorf("config: maker.vol_dampening must be in (0, 1]")
	}
	if c.Maker.LearningRate <= 0 || c.Maker.LearningRate >= 1 {
		return fmt.Errorf("config: maker.learning_rate must be in (0, 1)")
	}
	if c.Maker.MinDistancePct <= 0 || c.Maker.MinDistancePct >= 1 {
		return fmt.Errorf("config: maker.min_distance_pct must be in (0, 1)")
	}
	if c.Session.DurationSec < 0 {
		return fmt.Errorf("config: session.duration_sec must be >= 0")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}
