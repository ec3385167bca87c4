package ws

import (
	"sync"
)

// Hub keeps client sets per session room.
type Hub struct {
	rooms sync.Map // sessionID -> *room
}

func NewHub() *Hub { return &Hub{} }

// Broadcast is called by the Redis subscriber.
func (h *Hub) Broadcast(sessionID string, msg []byte) {
	if v, ok := h.rooms.Load(sessionID); ok {
		v.(*room).broadcast(msg)
	}
}

func (h *Hub) Join(sessionID string, c *clientConn) {
	r, _ := h.rooms.LoadOrStore(sessionID, newRoom())
	r.(*room).add(c)
}

func (h *Hub) Leave(sessionID string, c *clientConn) {
	if v, ok := h.rooms.Load(sessionID); ok {
		v.(*room).remove(c)
	}
}
