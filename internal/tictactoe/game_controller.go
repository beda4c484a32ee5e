package tictactoe

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rocketscienceinc/tictactoe-live/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-live/internal/entity"
)

var (
	errRoundSuperseded = errors.New("round reset superseded")
	errNotConnected    = errors.New("mark is not connected")
	errNoState         = errors.New("transition returned no state")
)

// TurnOutcome - observable result of ApplyTurn.
type TurnOutcome int

const (
	Accepted TurnOutcome = iota
	RejectedNotYourTurn
	RejectedOccupied
	RejectedGameOver
	RejectedOutOfRange
	Failed
)

func (that TurnOutcome) String() string {
	switch that {
	case Accepted:
		return "accepted"
	case RejectedNotYourTurn:
		return "rejected_not_your_turn"
	case RejectedOccupied:
		return "rejected_occupied"
	case RejectedGameOver:
		return "rejected_game_over"
	case RejectedOutOfRange:
		return "rejected_out_of_range"
	default:
		return "failed"
	}
}

// OutcomeOf - maps an ApplyTurn error to its outcome.
func OutcomeOf(err error) TurnOutcome {
	switch {
	case err == nil:
		return Accepted
	case errors.Is(err, apperror.ErrNotYourTurn):
		return RejectedNotYourTurn
	case errors.Is(err, apperror.ErrCellOccupied):
		return RejectedOccupied
	case errors.Is(err, apperror.ErrGameFinished):
		return RejectedGameOver
	case errors.Is(err, apperror.ErrOutOfRange):
		return RejectedOutOfRange
	default:
		return Failed
	}
}

// GameController owns one room: its snapshot, its slots and its round timer.
// Every mutation runs under mu, publishes a new snapshot through an atomic pointer and
// queues it for the broadcaster in the same critical section, so recipients see every
// transition in order. Queueing never blocks; the writes happen on the broadcaster's goroutines.
type GameController struct {
	logger *slog.Logger

	mu        sync.Mutex
	state     atomic.Pointer[entity.GameState]
	registry  *ConnectionRegistry
	scheduler *RoundScheduler
	closed    bool

	broadcaster *Broadcaster
}

func NewGameController(logger *slog.Logger, scheduler *RoundScheduler, broadcaster *Broadcaster) *GameController {
	controller := &GameController{
		logger:      logger.With("component", "game_controller"),
		registry:    NewConnectionRegistry(),
		scheduler:   scheduler,
		broadcaster: broadcaster,
	}

	controller.state.Store(entity.NewGameState())

	return controller
}

// Snapshot - current state. Never blocks; the returned value must not be modified.
func (that *GameController) Snapshot() *entity.GameState {
	return that.state.Load()
}

// Connect - claims the first free slot for conn.
func (that *GameController) Connect(conn Conn) (entity.Mark, error) {
	if conn == nil {
		return entity.EmptyCell, apperror.ErrNilConnection
	}

	var mark entity.Mark

	err := that.mutate(func(current *entity.GameState) (*entity.GameState, error) {
		free, ok := current.FreeSlot()
		if !ok {
			return nil, apperror.ErrSlotsFull
		}

		next := current.WithSlot(free)
		that.registry.add(free, conn)
		mark = free

		return next, nil
	})
	if err != nil {
		return entity.EmptyCell, err
	}

	that.logger.Info("player connected", "mark", mark, "connection", conn.ID())

	return mark, nil
}

// Disconnect - releases the slot. Board, turn, winner and a pending reset are left alone.
func (that *GameController) Disconnect(mark entity.Mark) {
	log := that.logger.With("method", "Disconnect", "mark", mark)

	err := that.mutate(func(current *entity.GameState) (*entity.GameState, error) {
		if !current.HasSlot(mark) {
			return nil, errNotConnected
		}

		if conn, ok := that.registry.remove(mark); ok {
			that.broadcaster.Forget(conn.ID())
		}

		return current.WithoutSlot(mark), nil
	})
	if err != nil {
		log.Debug("nothing to disconnect", "error", err)
		return
	}

	log.Info("player disconnected")
}

// ApplyTurn - validates and applies a move. Rejections return an apperror sentinel and
// leave the snapshot untouched.
func (that *GameController) ApplyTurn(mark entity.Mark, x, y int) error {
	return that.mutate(func(current *entity.GameState) (*entity.GameState, error) {
		next, err := current.MakeTurn(mark, x, y)
		if err != nil {
			return nil, err
		}

		if next.IsFinished() {
			that.scheduler.Arm(that.resetRound)
		}

		return next, nil
	})
}

// Close - cancels a pending round reset. Every later operation fails with ErrRoomClosed.
func (that *GameController) Close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.closed = true
	that.scheduler.Cancel()
}

// Conn - connection holding mark, if any.
func (that *GameController) Conn(mark entity.Mark) (Conn, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.registry.get(mark)
}

// resetRound - timer callback; a superseded generation is a no-op.
func (that *GameController) resetRound(generation uint64) {
	log := that.logger.With("method", "resetRound", "generation", generation)

	err := that.mutate(func(current *entity.GameState) (*entity.GameState, error) {
		if !that.scheduler.Claim(generation) {
			return nil, errRoundSuperseded
		}

		return current.NextRound(), nil
	})
	if err != nil {
		log.Debug("round reset skipped", "error", err)
		return
	}

	log.Info("new round started")
}

// mutate - runs apply against the current snapshot under the lock, publishes its result
// and queues it for the connections registered at that moment.
func (that *GameController) mutate(apply func(current *entity.GameState) (*entity.GameState, error)) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return apperror.ErrRoomClosed
	}

	next, err := apply(that.state.Load())
	if err != nil {
		return err
	}

	if next == nil {
		return errNoState
	}

	that.state.Store(next)
	that.broadcaster.Publish(next, that.registry.recipients())

	return nil
}
