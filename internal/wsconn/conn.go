package wsconn

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Conn wraps a gorilla websocket connection with a process-unique id and
// serialized writes, so broadcasts originating from different rooms' critical
// sections never interleave a single frame.
type Conn struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex
}

func New(id string, ws *websocket.Conn) *Conn {
	return &Conn{
		id: id,
		ws: ws,
	}
}

func (c *Conn) Id() string {
	return c.id
}

func (c *Conn) Send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(msg)
}

// Ping sends a websocket ping control frame. Control frames may be written
// concurrently with Send.
func (c *Conn) Ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *Conn) Close() error {
	return c.ws.Close()
}
