package websocket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// maxMessageSize - longest frame a player may send, a turn message is far below it.
const maxMessageSize = 512

// conn - a player connection. Writes come from the broadcaster, the ping loop and Close,
// gorilla allows one writer at a time so they share writeMu.
type conn struct {
	id           string
	ws           *websocket.Conn
	writeTimeout time.Duration
	pongWait     time.Duration

	writeMu sync.Mutex
}

func newConn(ws *websocket.Conn, options Options) *conn {
	return &conn{
		id:           uuid.NewString(),
		ws:           ws,
		writeTimeout: options.WriteTimeout,
		pongWait:     options.PongWait,
	}
}

func (that *conn) ID() string {
	return that.id
}

// Send - writes one text frame, bounded by the context deadline or the write timeout.
func (that *conn) Send(ctx context.Context, payload []byte) error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err := that.ws.SetWriteDeadline(that.deadline(ctx)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := that.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		// a failed write leaves the connection unusable, end the read loop too
		_ = that.ws.Close()

		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// keepAlive - limits incoming frames and expects a pong within pongWait, otherwise the read fails.
func (that *conn) keepAlive() error {
	that.ws.SetReadLimit(maxMessageSize)

	if err := that.ws.SetReadDeadline(time.Now().Add(that.pongWait)); err != nil {
		return fmt.Errorf("failed to set read deadline: %w", err)
	}

	that.ws.SetPongHandler(func(string) error {
		return that.ws.SetReadDeadline(time.Now().Add(that.pongWait))
	})

	return nil
}

// ping - sends a ping frame; on failure the connection is closed.
func (that *conn) ping() error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err := that.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(that.writeTimeout)); err != nil {
		_ = that.ws.Close()

		return fmt.Errorf("failed to send ping: %w", err)
	}

	return nil
}

// Close - sends a close frame with code and reason, then drops the connection.
func (that *conn) Close(code int, reason string) error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	message := websocket.FormatCloseMessage(code, reason)
	writeErr := that.ws.WriteControl(websocket.CloseMessage, message, time.Now().Add(that.writeTimeout))

	if err := that.ws.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	if writeErr != nil {
		return fmt.Errorf("failed to send close frame: %w", writeErr)
	}

	return nil
}

func (that *conn) deadline(ctx context.Context) time.Time {
	if deadline, ok := ctx.Deadline(); ok {
		return deadline
	}

	return time.Now().Add(that.writeTimeout)
}
