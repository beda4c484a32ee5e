package application

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/rocketscienceinc/tictactoe-live/internal/config"
	"github.com/rocketscienceinc/tictactoe-live/internal/repository"
	"github.com/rocketscienceinc/tictactoe-live/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-live/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-live/transport/rest"
	"github.com/rocketscienceinc/tictactoe-live/transport/websocket"
)

// RunApp - runs the application until SIGINT/SIGTERM or a server failure.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings := usecase.RoomSettings{
		ResetDelay:   conf.Game.ResetDelay,
		OutboxSize:   conf.Game.OutboxSize,
		WriteTimeout: conf.Game.WriteTimeout,
	}

	var snapshots *repository.SnapshotRepository
	if conf.Redis.Enabled {
		redisStorage, err := storage.NewRedisStorage(ctx, conf.Redis.GetRedisAddr())
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		snapshots = repository.NewSnapshotRepository(redisStorage.Connection)
		log.Info("mirroring snapshots to redis", "addr", conf.Redis.GetRedisAddr())
	}

	manager := newGameManager(logger, settings, snapshots)
	defer manager.Close()

	room, err := manager.OpenRoom(conf.Game.RoomID)
	if err != nil {
		return fmt.Errorf("could not open room: %w", err)
	}

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(ctx, conf.HTTPPort, rest.NewRouter(logger, manager)); httpErr != nil {
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort, "room", room.ID)
		wsServer := websocket.New(logger, room.Controller, websocket.Options{
			WriteTimeout: conf.Game.WriteTimeout,
			PongWait:     conf.Game.PongWait,
		})
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// newGameManager - a nil repository pointer must not reach the manager as a non-nil interface.
func newGameManager(logger *slog.Logger, settings usecase.RoomSettings, snapshots *repository.SnapshotRepository) *usecase.GameManager {
	if snapshots == nil {
		return usecase.NewGameManager(logger, clockwork.NewRealClock(), settings, nil)
	}

	return usecase.NewGameManager(logger, clockwork.NewRealClock(), settings, snapshots)
}
