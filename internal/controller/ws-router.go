package controller

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/watchroom/server/pkg/ctxlogger"
	"github.com/watchroom/server/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Use(c.requestIdWSMw(), c.loggerWSMw())
	mux.OnError(func(ctx context.Context, err error) {
		c.logger.ErrorContext(ctx, "websocket handler error", "error", err)
	})

	// membership
	mux.Handle("join", c.handleJoin)

	// host authority
	mux.Handle("become-host", c.handleBecomeHost)

	// transport commands
	mux.Handle("set-video", c.handleSetVideo)
	mux.Handle("play", c.handlePlay)
	mux.Handle("pause", c.handlePause)
	mux.Handle("seek", c.handleSeek)

	// chat
	mux.Handle("chat-message", c.handleChatMessage)

	return mux
}

func (c *controller) requestIdWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
		return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("ws_request_id", uuid.NewString()))
			return next(ctx, conn, payload)
		}
	}
}

func (c *controller) loggerWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
		return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))
			c.logger.DebugContext(ctx, "websocket message received")

			start := time.Now()
			err := next(ctx, conn, payload)

			c.logger.DebugContext(ctx, "websocket message handled",
				"processing_time_us", time.Since(start).Microseconds(),
			)

			return err
		}
	}
}
