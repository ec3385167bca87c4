package ws

import (
	"context"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"fantasta/internal/events"
)

// subscriptionManager guarantees exactly one Redis subscription per
// session event channel no matter how many websocket clients join the
// same session room.
type subscriptionManager struct {
	rdb  *redis.Client
	hub  *Hub
	mu   sync.Mutex
	subs map[int64]*subEntry // sessionID -> subscription data
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

func newSubscriptionManager(rdb *redis.Client, hub *Hub) *subscriptionManager {
	return &subscriptionManager{
		rdb:  rdb,
		hub:  hub,
		subs: make(map[int64]*subEntry),
	}
}

// Subscribe ensures the process is subscribed to the session channel;
// subsequent calls for the same session only increment the ref count.
func (sm *subscriptionManager) Subscribe(sessionID int64) {
	sm.mu.Lock()
	if e, ok := sm.subs[sessionID]; ok {
		e.refCnt++
		sm.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	ps := sm.rdb.Subscribe(ctx, events.SessionChannel(sessionID))

	sm.subs[sessionID] = &subEntry{refCnt: 1, cancel: cancel}
	sm.mu.Unlock()

	room := strconv.FormatInt(sessionID, 10)
	go func() {
		defer ps.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ps.Channel():
				if !ok {
					return
				}
				// event bus payloads are already {"type":...,"payload":...}
				sm.hub.Broadcast(room, []byte(m.Payload))
			}
		}
	}()
}

// Unsubscribe decrements the ref count and tears the subscription
// down when the last client leaves the room.
func (sm *subscriptionManager) Unsubscribe(sessionID int64) {
	sm.mu.Lock()
	e, ok := sm.subs[sessionID]
	if !ok {
		sm.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		sm.mu.Unlock()
		return
	}
	delete(sm.subs, sessionID)
	sm.mu.Unlock()

	e.cancel()
}
