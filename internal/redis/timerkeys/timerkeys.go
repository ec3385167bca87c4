// Package timerkeys mirrors each auction's countdown into a redis TTL
// key. The key carries no data; its expiry event is what the external
// watcher reacts to by invoking the Close use case. Arming is
// fire-and-forget: the durable timer lives in the auction row, the
// key is only the wake-up call.
package timerkeys

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "auc_t:"

type Scheduler interface {
	Arm(ctx context.Context, auctionID uuid.UUID, d time.Duration)
	Disarm(ctx context.Context, auctionID uuid.UUID)
}

// Key returns the timer key for an auction.
func Key(auctionID uuid.UUID) string { return keyPrefix + auctionID.String() }

// AuctionID extracts the auction id from an expired-key payload, or
// false when the key is not a timer key.
func AuctionID(key string) (uuid.UUID, bool) {
	if !strings.HasPrefix(key, keyPrefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(key, keyPrefix))
	return id, err == nil
}

type RedisScheduler struct {
	rdc *redis.Client
}

var _ Scheduler = (*RedisScheduler)(nil)

func New(rdc *redis.Client) *RedisScheduler { return &RedisScheduler{rdc: rdc} }

func (s *RedisScheduler) Arm(ctx context.Context, auctionID uuid.UUID, d time.Duration) {
	if err := s.rdc.Set(ctx, Key(auctionID), 1, d).Err(); err != nil {
		zap.L().Warn("timer_arm", zap.String("auction", auctionID.String()), zap.Error(err))
	}
}

func (s *RedisScheduler) Disarm(ctx context.Context, auctionID uuid.UUID) {
	if err := s.rdc.Del(ctx, Key(auctionID)).Err(); err != nil {
		zap.L().Warn("timer_disarm", zap.String("auction", auctionID.String()), zap.Error(err))
	}
}

// NopScheduler is used in tests.
type NopScheduler struct{}

func (NopScheduler) Arm(context.Context, uuid.UUID, time.Duration) {}
func (NopScheduler) Disarm(context.Context, uuid.UUID)             {}
