// Package events publishes domain events for downstream real-time
// broadcast. Publishing is fire-and-forget: the write path never
// depends on it, failures are logged and dropped, and events are only
// emitted after the causing state is durable.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	AuctionCreated   = "auction.created"
	BidPlaced        = "auction.bid_placed"
	AuctionClosed    = "auction.closed"
	AuctionCancelled = "auction.cancelled"
	AppealCreated    = "appeal.created"
	AppealResolved   = "appeal.resolved"
	OfferCreated     = "steal.offer_created"
	OfferWithdrawn   = "steal.offer_withdrawn"
)

// Event is the envelope written to the session channel.
type Event struct {
	Type      string `json:"type"`
	SessionID int64  `json:"session_id"`
	Payload   any    `json:"payload"`
}

type Bus interface {
	Publish(ctx context.Context, e Event)
}

// SessionChannel is the pub/sub channel events for a session go to;
// the ws fan-out subscribes to the matching pattern.
func SessionChannel(sessionID int64) string {
	return fmt.Sprintf("session:%d:events", sessionID)
}

// RedisBus publishes events on redis pub/sub, one channel per session.
type RedisBus struct {
	rdc *redis.Client
}

var _ Bus = (*RedisBus)(nil)

func NewRedisBus(rdc *redis.Client) *RedisBus { return &RedisBus{rdc: rdc} }

func (b *RedisBus) Publish(ctx context.Context, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		zap.L().Error("event_marshal", zap.String("type", e.Type), zap.Error(err))
		return
	}
	if err := b.rdc.Publish(ctx, SessionChannel(e.SessionID), data).Err(); err != nil {
		zap.L().Warn("event_publish", zap.String("type", e.Type), zap.Error(err))
	}
}

// NopBus drops every event; used in tests that don't assert on events.
type NopBus struct{}

func (NopBus) Publish(context.Context, Event) {}
