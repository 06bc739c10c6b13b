package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dtrask/stinkbot/internal/maker"
)

// statsTTL bounds how long stale statistics survive a dead bot.
const statsTTL = 5 * time.Minute

// StatsCache publishes the market maker's statistics snapshot to a Redis
// hash so dashboards can read live strategy state.
//
// Key schema:
//
//	mm:{symbol}:stats - hash of counters and gauges, refreshed each publish
type StatsCache struct {
	rdb    *redis.Client
	symbol string
}

// NewStatsCache creates a StatsCache for the given traded symbol.
func NewStatsCache(c *Client, symbol string) *StatsCache {
	return &StatsCache{rdb: c.Underlying(), symbol: symbol}
}

func (sc *StatsCache) key() string { return "mm:" + sc.symbol + ":stats" }

// PublishStats writes the snapshot. It implements feed.StatsSink.
func (sc *StatsCache) PublishStats(ctx context.Context, stats maker.Stats) error {
	key := sc.key()
	pipe := sc.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"fills":            stats.FillCount,
		"attempts":         stats.AttemptCount,
		"current_k":        strconv.FormatFloat(stats.CurrentK, 'f', -1, 64),
		"active_orders":    stats.ActiveOrders,
		"filled_orders":    stats.FilledOrders,
		"cancelled_orders": stats.CancelledOrders,
		"last_imbalance":   strconv.FormatFloat(stats.LastImbalance, 'f', -1, 64),
		"last_volatility":  strconv.FormatFloat(stats.LastVolatility, 'f', -1, 64),
		"ewma_volatility":  strconv.FormatFloat(stats.EWMAVolatility, 'f', -1, 64),
		"best_bid":         strconv.FormatFloat(stats.BestBid, 'f', -1, 64),
		"best_ask":         strconv.FormatFloat(stats.BestAsk, 'f', -1, 64),
		"mid_price":        strconv.FormatFloat(stats.MidPrice, 'f', -1, 64),
		"updated_at":       strconv.FormatInt(time.Now().UnixMilli(), 10),
	})
	pipe.Expire(ctx, key, statsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish stats %s: %w", sc.symbol, err)
	}
	return nil
}
