package tictactoe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-live/internal/entity"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var errBrokenPipe = errors.New("broken pipe")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// fakeConn records every snapshot it receives.
type fakeConn struct {
	id string

	mu     sync.Mutex
	states []entity.GameState
	closed bool
	err    error

	block   chan struct{}
	entered chan struct{}
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (that *fakeConn) ID() string {
	return that.id
}

func (that *fakeConn) Send(ctx context.Context, payload []byte) error {
	if that.block != nil {
		select {
		case that.entered <- struct{}{}:
		default:
		}

		select {
		case <-that.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.err != nil {
		return that.err
	}

	var state entity.GameState
	if err := json.Unmarshal(payload, &state); err != nil {
		return err
	}

	that.states = append(that.states, state)

	return nil
}

func (that *fakeConn) Close(int, string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.closed = true

	return nil
}

func (that *fakeConn) received() []entity.GameState {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]entity.GameState(nil), that.states...)
}

func (that *fakeConn) lastVersion() uint64 {
	states := that.received()
	if len(states) == 0 {
		return 0
	}

	return states[len(states)-1].Version
}

func (that *Broadcaster) outboxCount() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.outboxes)
}

type fixture struct {
	clock       clockwork.FakeClock
	scheduler   *RoundScheduler
	broadcaster *Broadcaster
	controller  *GameController
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := clockwork.NewFakeClock()
	scheduler := NewRoundScheduler(clock, DefaultResetDelay)
	broadcaster := NewBroadcaster(discardLogger(), DefaultOutboxSize, time.Second)
	controller := NewGameController(discardLogger(), scheduler, broadcaster)

	t.Cleanup(func() {
		controller.Close()
		broadcaster.Close()
	})

	return &fixture{
		clock:       clock,
		scheduler:   scheduler,
		broadcaster: broadcaster,
		controller:  controller,
	}
}

// play - applies moves alternating from X and fails the test on any rejection.
func (that *fixture) play(t *testing.T, moves ...[2]int) {
	t.Helper()

	for _, move := range moves {
		mark := that.controller.Snapshot().Turn
		require.NoError(t, that.controller.ApplyTurn(mark, move[0], move[1]))
	}
}

func (that *fixture) connectBoth(t *testing.T) (*fakeConn, *fakeConn) {
	t.Helper()

	first, second := newFakeConn("first"), newFakeConn("second")

	mark, err := that.controller.Connect(first)
	require.NoError(t, err)
	require.Equal(t, entity.PlayerX, mark)

	mark, err = that.controller.Connect(second)
	require.NoError(t, err)
	require.Equal(t, entity.PlayerO, mark)

	return first, second
}
