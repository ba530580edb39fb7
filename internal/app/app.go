package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/watchroom/server/internal/controller"
	"github.com/watchroom/server/internal/filestore"
	connInmemory "github.com/watchroom/server/internal/repository/connection/inmemory"
	roomMemory "github.com/watchroom/server/internal/repository/room/memory"
	roomRedis "github.com/watchroom/server/internal/repository/room/redis"
	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/ctxlogger"
	"github.com/watchroom/server/pkg/redisclient"
)

const (
	RegistryBackendMemory = "memory"
	RegistryBackendRedis  = "redis"
)

type AppConfig struct {
	Host            string `json:"host"`
	Port            int    `json:"port"`
	LogLevel        string `json:"log_level"`
	MediaDir        string `json:"media_dir"`
	UploadLimitMB   int    `json:"upload_limit_mb"`
	RegistryBackend string `json:"registry_backend"`
	RedisHost       string `json:"redis_host"`
	RedisPort       int    `json:"redis_port"`
	RedisPassword   string `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be in range 1-65535")
	}
	if cfg.UploadLimitMB < 1 {
		return fmt.Errorf("upload limit must be greater than 0")
	}
	if cfg.RegistryBackend != RegistryBackendMemory && cfg.RegistryBackend != RegistryBackendRedis {
		return fmt.Errorf("registry backend must be %q or %q", RegistryBackendMemory, RegistryBackendRedis)
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		}),
	}
	logger := slog.New(h)

	var roomRepo room.RoomRepo
	switch cfg.RegistryBackend {
	case RegistryBackendRedis:
		rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()

		roomRepo = roomRedis.NewRepo(rc, logger)
	default:
		roomRepo = roomMemory.NewRepo(logger)
	}

	connRepo := connInmemory.NewRepo()
	roomService := room.NewService(roomRepo, connRepo, logger)

	files, err := filestore.New(cfg.MediaDir)
	if err != nil {
		return fmt.Errorf("failed to create file store: %w", err)
	}

	ctrl := controller.NewController(roomService, files, &controller.Config{
		UploadLimitBytes: int64(cfg.UploadLimitMB) << 20,
	}, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: ctrl.GetMux(),
	}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr, "registry_backend", cfg.RegistryBackend)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
