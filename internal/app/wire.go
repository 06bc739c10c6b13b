package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dtrask/stinkbot/internal/binance"
	"github.com/dtrask/stinkbot/internal/book"
	"github.com/dtrask/stinkbot/internal/cache/redis"
	"github.com/dtrask/stinkbot/internal/config"
	"github.com/dtrask/stinkbot/internal/domain"
	"github.com/dtrask/stinkbot/internal/feed"
	"github.com/dtrask/stinkbot/internal/maker"
	"github.com/dtrask/stinkbot/internal/store/postgres"
	"github.com/dtrask/stinkbot/internal/trades"
)

// journalBuffer bounds the terminal-order queue between the decision loop
// and the database writer. The maker must never block on the journal, so
// an order arriving at a full queue is dropped and logged.
const journalBuffer = 256

// Dependencies bundles everything the running application needs. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Maker *maker.MarketMaker
	Loop  *feed.Loop
	Feed  *feed.BinanceFeed

	// journalCh carries terminal orders to the database writer; nil when
	// the order journal is disabled.
	journalCh chan domain.Order
	orders    *postgres.OrderStore
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis stats mirror (optional) ---
	var sink feed.StatsSink
	if cfg.RedisEnabled() {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		sink = redis.NewStatsCache(redisClient, cfg.Binance.Symbol)
	}

	// --- PostgreSQL order journal (optional) ---
	var makerOpts []maker.Option
	if cfg.PostgresEnabled() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.orders = postgres.NewOrderStore(pgClient, cfg.Binance.Symbol)
		deps.journalCh = make(chan domain.Order, journalBuffer)
		journalCh := deps.journalCh
		makerOpts = append(makerOpts, maker.WithJournal(func(o domain.Order) {
			select {
			case journalCh <- o:
			default:
				logger.Warn("order journal queue full, dropping order",
					slog.String("order_id", o.ID))
			}
		}))
	}

	// --- Core strategy objects ---
	ob := book.New(logger)
	window := trades.NewWindow(cfg.Window.Size)
	deps.Maker = maker.New(maker.Config{
		BaseK:                      cfg.Maker.BaseK,
		OrderSize:                  cfg.Maker.OrderSize,
		MaxActiveOrders:            cfg.Maker.MaxActiveOrders,
		StrongImbalanceThreshold:   cfg.Maker.StrongImbalanceThreshold,
		ModerateImbalanceThreshold: cfg.Maker.ModerateImbalanceThreshold,
		VolDampening:               cfg.Maker.VolDampening,
		LearningRate:               cfg.Maker.LearningRate,
		MinDistancePct:             cfg.Maker.MinDistancePct,
		EWMALambda:                 cfg.Window.EWMALambda,
	}, ob, window, logger, makerOpts...)

	// --- Feed plumbing ---
	restClient := binance.NewClient(cfg.Binance.RestURL)
	snapshot := func(ctx context.Context) (domain.DepthSnapshot, error) {
		return restClient.DepthSnapshot(ctx, cfg.Binance.Symbol, cfg.Binance.DepthLimit)
	}

	deps.Loop = feed.NewLoop(deps.Maker, snapshot, feed.LoopConfig{
		DepthBuffer:   cfg.Session.DepthBuffer,
		TradeBuffer:   cfg.Session.TradeBuffer,
		StatsInterval: time.Duration(cfg.Session.StatsIntervalSec) * time.Second,
	}, sink, logger)

	deps.Feed = feed.NewBinanceFeed(
		cfg.Binance.WsURL,
		cfg.Binance.Symbol,
		cfg.Binance.UseAggTrades,
		deps.Loop.Depth(),
		deps.Loop.Trades(),
		logger,
	)

	return deps, cleanup, nil
}
