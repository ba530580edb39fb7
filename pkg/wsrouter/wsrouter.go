package wsrouter

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

type Middleware func(next HandlerFunc) HandlerFunc

// ErrorFunc is called when a handler returns a non-nil error. The connection
// keeps serving messages afterwards.
type ErrorFunc func(ctx context.Context, err error)

type WSRouter struct {
	routes      map[string]HandlerFunc
	middlewares []Middleware
	onError     ErrorFunc
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

// Use appends a middleware to the chain. Must be called before Handle.
func (r *WSRouter) Use(mw ...Middleware) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}
	r.routes[messageType] = handler
}

func (r *WSRouter) OnError(f ErrorFunc) {
	r.onError = f
}

// ServeConn reads messages from conn until the read fails, dispatching each
// one to the handler registered for its type. Messages with an unregistered
// type are dropped. Returns the read error that ended the loop.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		handler, exists := r.routes[msg.Type]
		if !exists {
			continue
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		if err := handler(msgCtx, conn, msg.Payload); err != nil {
			if r.onError != nil {
				r.onError(msgCtx, err)
			}
		}
	}
}
