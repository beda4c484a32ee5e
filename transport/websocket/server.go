package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-live/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-live/internal/entity"
	"github.com/rocketscienceinc/tictactoe-live/internal/tictactoe"
)

const (
	PlayPath = "/play"

	DefaultPongWait = 60 * time.Second

	roomFullReason  = "Maximum of 2 players allowed"
	shuttingDown    = "server is shutting down"
	shutdownTimeout = 5 * time.Second
)

// Options - per connection timeouts. Zero values fall back to the defaults.
type Options struct {
	WriteTimeout time.Duration
	PongWait     time.Duration
}

func (that Options) withDefaults() Options {
	if that.WriteTimeout <= 0 {
		that.WriteTimeout = tictactoe.DefaultWriteTimeout
	}

	if that.PongWait <= 0 {
		that.PongWait = DefaultPongWait
	}

	return that
}

// pingPeriod - pings go out a bit more often than a pong is awaited.
func (that Options) pingPeriod() time.Duration {
	return that.PongWait * 9 / 10
}

type gameRoom interface {
	Connect(conn tictactoe.Conn) (entity.Mark, error)
	Disconnect(mark entity.Mark)
	ApplyTurn(mark entity.Mark, x, y int) error
}

type Server struct {
	logger *slog.Logger
	room   gameRoom

	upgrader websocket.Upgrader
	options  Options
}

func New(logger *slog.Logger, room gameRoom, options Options) *Server {
	return &Server{
		logger: logger.With("component", "websocket"),
		room:   room,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		options: options.withDefaults(),
	}
}

// Handler - routes of the WebSocket server.
func (that *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc(PlayPath, that.handlePlay).Methods(http.MethodGet)

	return router
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// handlePlay - upgrades the request and runs the player session until the peer leaves.
func (that *Server) handlePlay(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "handlePlay", "remote", req.RemoteAddr)

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	player := newConn(ws, that.options)
	log = log.With("connection", player.ID())

	mark, err := that.room.Connect(player)
	if err != nil {
		code, reason := websocket.CloseUnsupportedData, roomFullReason

		switch {
		case errors.Is(err, apperror.ErrSlotsFull):
			log.Info("room is full, connection rejected")
		case errors.Is(err, apperror.ErrRoomClosed):
			code, reason = websocket.CloseGoingAway, shuttingDown
			log.Info("room is closed, connection rejected")
		default:
			code, reason = websocket.CloseInternalServerErr, "internal error"
			log.Error("failed to join room", "error", err)
		}

		if err = player.Close(code, reason); err != nil {
			log.Debug("failed to close rejected connection", "error", err)
		}

		return
	}

	log = log.With("mark", mark)
	done := make(chan struct{})

	defer func() {
		close(done)
		that.room.Disconnect(mark)

		if err := ws.Close(); err != nil {
			log.Debug("failed to close connection", "error", err)
		}
	}()

	if err = player.keepAlive(); err != nil {
		log.Error("failed to set up keepalive", "error", err)
		return
	}

	go that.pingLoop(log, player, done)

	that.readTurns(log, ws, mark)
}

// pingLoop - pings the player until the session ends or a ping can not be written.
func (that *Server) pingLoop(log *slog.Logger, player *conn, done <-chan struct{}) {
	ticker := time.NewTicker(that.options.pingPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := player.ping(); err != nil {
				log.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

// readTurns - read loop of one player. Invalid input never ends the session.
func (that *Server) readTurns(log *slog.Logger, ws *websocket.Conn, mark entity.Mark) {
	malformed := 0

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("connection closed unexpectedly", "error", err)
			}

			log.Debug("read loop finished", "malformed", malformed)

			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		turn, err := ParseTurn(data)
		if err != nil {
			malformed++
			log.Warn("malformed message", "error", err, "malformed", malformed)
		}

		if err = that.room.ApplyTurn(mark, turn.X, turn.Y); err != nil {
			log.Debug("turn rejected", "x", turn.X, "y", turn.Y, "outcome", tictactoe.OutcomeOf(err).String(), "error", err)
		}
	}
}
