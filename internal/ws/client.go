package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// clientConn serializes writes to one websocket peer. gorilla permits
// a single concurrent writer and both the room fan-out and the ping
// loop write to the same conn.
type clientConn struct {
	rawConn *websocket.Conn
	wmu     sync.Mutex
}

func (c *clientConn) write(mt int, payload []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteMessage(mt, payload)
}

func (c *clientConn) writeJSON(v any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteJSON(v)
}
