// Package timerwatcher is the external expiry scheduler: it listens
// for redis key-expiry events on auction timer keys and triggers the
// Close use case. The engine itself never self-expires auctions.
package timerwatcher

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"fantasta/internal/domerr"
	"fantasta/internal/redis/timerkeys"
	"fantasta/internal/services/auction"
)

// Run blocks until ctx is cancelled. Start once at service boot.
func Run(ctx context.Context, rdb *redis.Client, svc auction.IAuctionService) {
	// relies on notify-keyspace-events containing "Ex"; the redis
	// client enables that at boot
	ps := rdb.PSubscribe(ctx, "__keyevent@*__:expired")
	defer ps.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ps.Channel():
			if !ok {
				return
			}
			id, isTimer := timerkeys.AuctionID(m.Payload)
			if !isTimer {
				continue
			}

			closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			_, err := svc.Close(closeCtx, id)
			cancel()
			switch {
			case err == nil:
				zap.L().Info("timer_close", zap.String("auction", id.String()))
			case errors.Is(err, domerr.ErrAuctionNotActive), errors.Is(err, domerr.ErrAuctionNotFound):
				// already closed or cancelled; the expiry was stale
			default:
				zap.L().Error("timer_close_failed", zap.String("auction", id.String()), zap.Error(err))
			}
		}
	}
}
