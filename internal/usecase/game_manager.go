package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rocketscienceinc/tictactoe-live/internal/tictactoe"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrManagerClosed = errors.New("game manager is closed")
)

type snapshotRepo interface {
	Save(ctx context.Context, roomID string, snapshot []byte) error
}

// RoomSettings - tuning shared by every room of a manager.
type RoomSettings struct {
	ResetDelay   time.Duration
	OutboxSize   int
	WriteTimeout time.Duration
}

// Room - one game session and its broadcaster.
type Room struct {
	ID         string
	Controller *tictactoe.GameController

	broadcaster *tictactoe.Broadcaster
}

func (that *Room) close() {
	that.Controller.Close()
	that.broadcaster.Close()
}

// GameManager owns rooms by id. The server plays in its default room only.
type GameManager struct {
	logger   *slog.Logger
	clock    clockwork.Clock
	settings RoomSettings

	snapshotRepo snapshotRepo

	mu            sync.RWMutex
	rooms         map[string]*Room
	defaultRoomID string
	closed        bool
}

// NewGameManager - snapshotRepo may be nil, then snapshots are not mirrored.
func NewGameManager(logger *slog.Logger, clock clockwork.Clock, settings RoomSettings, snapshotRepo snapshotRepo) *GameManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &GameManager{
		logger:       logger.With("component", "game_manager"),
		clock:        clock,
		settings:     settings,
		snapshotRepo: snapshotRepo,
		rooms:        make(map[string]*Room),
	}
}

// OpenRoom - returns the room with id, creating it on first use.
func (that *GameManager) OpenRoom(id string) (*Room, error) {
	log := that.logger.With("method", "OpenRoom", "room", id)

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return nil, ErrManagerClosed
	}

	if room, ok := that.rooms[id]; ok {
		return room, nil
	}

	room := that.newRoom(id)
	that.rooms[id] = room

	if that.defaultRoomID == "" {
		that.defaultRoomID = id
	}

	log.Info("room opened")

	return room, nil
}

// Room - looks up an open room.
func (that *GameManager) Room(id string) (*Room, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	room, ok := that.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}

	return room, nil
}

// DefaultRoom - the first room opened.
func (that *GameManager) DefaultRoom() (*Room, error) {
	that.mu.RLock()
	id := that.defaultRoomID
	that.mu.RUnlock()

	if id == "" {
		return nil, ErrRoomNotFound
	}

	return that.Room(id)
}

// Close - cancels pending resets and stops every broadcaster.
func (that *GameManager) Close() {
	that.mu.Lock()
	that.closed = true
	rooms := that.rooms
	that.rooms = make(map[string]*Room)
	that.mu.Unlock()

	for _, room := range rooms {
		room.close()
	}

	that.logger.Info("rooms closed", "count", len(rooms))
}

func (that *GameManager) newRoom(id string) *Room {
	logger := that.logger.With("room", id)

	scheduler := tictactoe.NewRoundScheduler(that.clock, that.settings.ResetDelay)
	broadcaster := tictactoe.NewBroadcaster(logger, that.settings.OutboxSize, that.settings.WriteTimeout)

	if that.snapshotRepo != nil {
		broadcaster.Watch(&roomMirror{roomID: id, repo: that.snapshotRepo})
	}

	return &Room{
		ID:          id,
		Controller:  tictactoe.NewGameController(logger, scheduler, broadcaster),
		broadcaster: broadcaster,
	}
}

// roomMirror - broadcast watcher forwarding snapshots of one room to the repository.
type roomMirror struct {
	roomID string
	repo   snapshotRepo
}

func (that *roomMirror) ID() string {
	return "mirror:" + that.roomID
}

func (that *roomMirror) Send(ctx context.Context, payload []byte) error {
	if err := that.repo.Save(ctx, that.roomID, payload); err != nil {
		return fmt.Errorf("failed to mirror snapshot: %w", err)
	}

	return nil
}
