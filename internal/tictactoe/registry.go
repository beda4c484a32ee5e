package tictactoe

import (
	"context"

	"github.com/rocketscienceinc/tictactoe-live/internal/entity"
)

// Recipient receives encoded snapshots from the Broadcaster.
type Recipient interface {
	ID() string
	Send(ctx context.Context, payload []byte) error
}

// Conn is a live player connection provided by the transport.
type Conn interface {
	Recipient
	Close(code int, reason string) error
}

// ConnectionRegistry maps each claimed slot to its connection.
// It has no lock of its own: the GameController only touches it while holding its mutex.
type ConnectionRegistry struct {
	conns map[entity.Mark]Conn
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		conns: make(map[entity.Mark]Conn, len(entity.Marks)),
	}
}

func (that *ConnectionRegistry) add(mark entity.Mark, conn Conn) {
	that.conns[mark] = conn
}

func (that *ConnectionRegistry) remove(mark entity.Mark) (Conn, bool) {
	conn, ok := that.conns[mark]
	if ok {
		delete(that.conns, mark)
	}

	return conn, ok
}

func (that *ConnectionRegistry) get(mark entity.Mark) (Conn, bool) {
	conn, ok := that.conns[mark]
	return conn, ok
}

// recipients - connections in slot priority order.
func (that *ConnectionRegistry) recipients() []Recipient {
	recipients := make([]Recipient, 0, len(that.conns))
	for _, mark := range entity.Marks {
		if conn, ok := that.conns[mark]; ok {
			recipients = append(recipients, conn)
		}
	}

	return recipients
}
