package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/internal/wsconn"
	"github.com/watchroom/server/pkg/ctxlogger"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// websocket upgrades the request and serves the connection's event loop
// until the channel closes, which triggers the disconnect handling (host
// failover included).
func (c controller) websocket(w http.ResponseWriter, r *http.Request) {
	ws, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to upgrade connection", "error", err)
		return
	}

	connId := uuid.NewString()
	conn := wsconn.New(connId, ws)

	ctx := context.WithValue(r.Context(), connIdCtxKey, connId)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("conn_id", connId))

	if err := c.roomService.Connect(ctx, &room.ConnectParams{Conn: conn}); err != nil {
		c.logger.ErrorContext(ctx, "failed to register connection", "error", err)
		ws.Close()
		return
	}

	c.logger.InfoContext(ctx, "connection opened", "remote_addr", r.RemoteAddr)

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	go c.pingLoop(conn, done)

	serveErr := c.wsMux.ServeConn(ctx, ws)
	close(done)

	if err := c.roomService.Disconnect(ctx, &room.DisconnectParams{ConnId: connId}); err != nil {
		c.logger.ErrorContext(ctx, "failed to handle disconnect", "error", err)
	}
	conn.Close()

	if websocket.IsUnexpectedCloseError(serveErr, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		c.logger.InfoContext(ctx, "connection closed unexpectedly", "error", serveErr)
	} else {
		c.logger.InfoContext(ctx, "connection closed")
	}
}

func (c controller) pingLoop(conn *wsconn.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// silenceGuard turns guard failures into silent no-ops: no state change, no
// broadcast, no error back to the client.
func (c controller) silenceGuard(ctx context.Context, err error) error {
	if errors.Is(err, room.ErrNotHost) || errors.Is(err, room.ErrNoRoom) {
		c.logger.DebugContext(ctx, "guarded command dropped", "reason", err)
		return nil
	}

	return err
}

func (c controller) handleJoin(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var roomName string
	if err := json.Unmarshal(payload, &roomName); err != nil {
		return fmt.Errorf("failed to unmarshal join payload: %w", err)
	}

	if !c.validate.Var(roomName, "required,min=1,max=64") {
		c.logger.DebugContext(ctx, "join dropped: invalid room name")
		return nil
	}

	if _, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		ConnId:   c.getConnIdFromCtx(ctx),
		RoomName: roomName,
	}); err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	return nil
}

func (c controller) handleBecomeHost(ctx context.Context, _ *websocket.Conn, _ json.RawMessage) error {
	_, err := c.roomService.BecomeHost(ctx, &room.BecomeHostParams{
		SenderId: c.getConnIdFromCtx(ctx),
	})
	if err := c.silenceGuard(ctx, err); err != nil {
		return fmt.Errorf("failed to become host: %w", err)
	}

	return nil
}

func (c controller) handleSetVideo(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var videoRef string
	if err := json.Unmarshal(payload, &videoRef); err != nil {
		return fmt.Errorf("failed to unmarshal set-video payload: %w", err)
	}

	if !c.validate.Var(videoRef, "required") {
		c.logger.DebugContext(ctx, "set-video dropped: empty video reference")
		return nil
	}

	_, err := c.roomService.SetVideo(ctx, &room.SetVideoParams{
		SenderId: c.getConnIdFromCtx(ctx),
		VideoRef: videoRef,
	})
	if err := c.silenceGuard(ctx, err); err != nil {
		return fmt.Errorf("failed to set video: %w", err)
	}

	return nil
}

func (c controller) handlePlay(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	positionSeconds, ok, err := c.readPosition(ctx, payload)
	if err != nil || !ok {
		return err
	}

	_, err = c.roomService.Play(ctx, &room.PlayParams{
		SenderId:        c.getConnIdFromCtx(ctx),
		PositionSeconds: positionSeconds,
	})
	if err := c.silenceGuard(ctx, err); err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}

	return nil
}

func (c controller) handlePause(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	positionSeconds, ok, err := c.readPosition(ctx, payload)
	if err != nil || !ok {
		return err
	}

	_, err = c.roomService.Pause(ctx, &room.PauseParams{
		SenderId:        c.getConnIdFromCtx(ctx),
		PositionSeconds: positionSeconds,
	})
	if err := c.silenceGuard(ctx, err); err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}

	return nil
}

func (c controller) handleSeek(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	positionSeconds, ok, err := c.readPosition(ctx, payload)
	if err != nil || !ok {
		return err
	}

	_, err = c.roomService.Seek(ctx, &room.SeekParams{
		SenderId:        c.getConnIdFromCtx(ctx),
		PositionSeconds: positionSeconds,
	})
	if err := c.silenceGuard(ctx, err); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	return nil
}

func (c controller) handleChatMessage(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var text string
	if err := json.Unmarshal(payload, &text); err != nil {
		return fmt.Errorf("failed to unmarshal chat-message payload: %w", err)
	}

	if !c.validate.Var(text, "required,max=500") {
		c.logger.DebugContext(ctx, "chat-message dropped: invalid text")
		return nil
	}

	_, err := c.roomService.SendChatMessage(ctx, &room.SendChatMessageParams{
		SenderId: c.getConnIdFromCtx(ctx),
		Text:     text,
	})
	if err := c.silenceGuard(ctx, err); err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}

	return nil
}

func (c controller) readPosition(ctx context.Context, payload json.RawMessage) (float64, bool, error) {
	var positionSeconds float64
	if err := json.Unmarshal(payload, &positionSeconds); err != nil {
		return 0, false, fmt.Errorf("failed to unmarshal position payload: %w", err)
	}

	if !c.validate.Var(positionSeconds, "gte=0") {
		c.logger.DebugContext(ctx, "command dropped: negative position")
		return 0, false, nil
	}

	return positionSeconds, true, nil
}
