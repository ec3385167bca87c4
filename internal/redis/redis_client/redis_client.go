package redis_client

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects and turns on keyevent notifications for
// expirations ("Ex"), which the auction timer watcher depends on.
// Without it armed timers expire silently and no auction ever closes.
func NewRedisClient(ctx context.Context, host string, port int) (*redis.Client, error) {
	maxPool := runtime.NumCPU() * 8
	if maxPool > 512 {
		maxPool = 512
	}

	rc := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		PoolSize: maxPool,
	})

	connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rc.Ping(connCtx).Err(); err != nil {
		zap.L().Error("redis_connect", zap.Error(err))
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	if err := rc.ConfigSet(connCtx, "notify-keyspace-events", "Ex").Err(); err != nil {
		// managed redis often locks CONFIG; the deployment then has to
		// enable Ex notifications itself
		zap.L().Warn("redis_notify_config", zap.Error(err))
	}
	return rc, nil
}
