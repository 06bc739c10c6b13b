package config

// Defaults returns the built-in configuration. Values in the TOML file and
// the environment override these.
func Defaults() Config {
	return Config{
		Binance: BinanceConfig{
			RestURL:      "https://api.binance.com",
			WsURL:        "wss://stream.binance.com:9443",
			Symbol:       "BTCUSDT",
			DepthLimit:   5000,
			UseAggTrades: true,
		},
		Window: WindowConfig{
			Size:       50,
			EWMALambda: 0.94,
		},
		Maker: MakerConfig{
			BaseK:                      0.5,
			OrderSize:                  0.01,
			MaxActiveOrders:            3,
			StrongImbalanceThreshold:   -0.7,
			ModerateImbalanceThreshold: -0.3,
			VolDampening:               0.8,
			LearningRate:               0.05,
			MinDistancePct:             0.05,
		},
		Session: SessionConfig{
			DurationSec:      0,
			StatsIntervalSec: 30,
			DepthBuffer:      200,
			TradeBuffer:      200,
		},
		Redis: RedisConfig{
			PoolSize: 10,
		},
		Postgres: PostgresConfig{
			SSLMode:      "disable",
			PoolMaxConns: 4,
			PoolMinConns: 1,
		},
		LogLevel: "info",
	}
}
