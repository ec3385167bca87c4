package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// room is the set of connections watching one session.
type room struct {
	mu    sync.RWMutex
	conns map[*clientConn]struct{}
}

func newRoom() *room { return &room{conns: make(map[*clientConn]struct{})} }

func (r *room) add(c *clientConn) {
	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.mu.Unlock()
}

func (r *room) remove(c *clientConn) {
	r.mu.Lock()
	delete(r.conns, c)
	r.mu.Unlock()
	c.rawConn.Close()
}

// broadcast fans payload out to every member, doing the I/O outside
// the lock; peers whose write fails are evicted so one stalled client
// cannot wedge the room.
func (r *room) broadcast(payload []byte) {
	r.mu.RLock()
	targets := make([]*clientConn, 0, len(r.conns))
	for c := range r.conns {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	var dead []*clientConn
	for _, c := range targets {
		if err := c.write(websocket.TextMessage, payload); err != nil {
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		r.remove(c)
	}
}
