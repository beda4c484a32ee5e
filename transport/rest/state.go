package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rocketscienceinc/tictactoe-live/internal/usecase"
)

type rooms interface {
	DefaultRoom() (*usecase.Room, error)
	Room(id string) (*usecase.Room, error)
}

type stateHandler struct {
	logger *slog.Logger
	rooms  rooms
}

// defaultRoomState - GET /state.
func (that *stateHandler) defaultRoomState(w http.ResponseWriter, _ *http.Request) {
	room, err := that.rooms.DefaultRoom()
	that.writeState(w, room, err)
}

// roomState - GET /rooms/{id}/state.
func (that *stateHandler) roomState(w http.ResponseWriter, r *http.Request) {
	room, err := that.rooms.Room(mux.Vars(r)["id"])
	that.writeState(w, room, err)
}

func (that *stateHandler) writeState(w http.ResponseWriter, room *usecase.Room, err error) {
	log := that.logger.With("method", "writeState")

	if errors.Is(err, usecase.ErrRoomNotFound) {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}

	if err != nil {
		log.Error("failed to find room", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(room.Controller.Snapshot()); err != nil {
		log.Error("failed to write state", "room", room.ID, "error", err)
	}
}
