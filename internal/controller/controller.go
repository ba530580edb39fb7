package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/filestore"
	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/validator"
	"github.com/watchroom/server/pkg/wsrouter"
)

type iRoomService interface {
	Connect(context.Context, *room.ConnectParams) error
	Disconnect(context.Context, *room.DisconnectParams) error
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	BecomeHost(context.Context, *room.BecomeHostParams) (room.BecomeHostResponse, error)
	SetVideo(context.Context, *room.SetVideoParams) (room.SetVideoResponse, error)
	Play(context.Context, *room.PlayParams) (room.PlayResponse, error)
	Pause(context.Context, *room.PauseParams) (room.PauseResponse, error)
	Seek(context.Context, *room.SeekParams) (room.SeekResponse, error)
	SendChatMessage(context.Context, *room.SendChatMessageParams) (room.SendChatMessageResponse, error)
	Stats(context.Context) (room.StatsResponse, error)
}

type Config struct {
	UploadLimitBytes int64
}

type controller struct {
	roomService iRoomService
	files       *filestore.Store
	validate    *validator.Validator
	upgrader    websocket.Upgrader
	wsMux       *wsrouter.WSRouter
	logger      *slog.Logger
	uploadLimit int64
}

func NewController(roomService iRoomService, files *filestore.Store, cfg *Config, logger *slog.Logger) *controller {
	c := &controller{
		roomService: roomService,
		files:       files,
		validate:    validator.NewValidator(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:      logger,
		uploadLimit: cfg.UploadLimitBytes,
	}
	c.wsMux = c.getWSRouter()

	return c
}
