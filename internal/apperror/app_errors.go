package apperror

import "errors"

var (
	ErrGameFinished  = errors.New("game is already finished")
	ErrNotYourTurn   = errors.New("it's not your turn")
	ErrCellOccupied  = errors.New("cell is already occupied")
	ErrOutOfRange    = errors.New("cell is out of range")
	ErrSlotsFull     = errors.New("maximum of 2 players allowed")
	ErrNilConnection = errors.New("connection is nil")
	ErrUnknownMark   = errors.New("unknown mark")
	ErrRoomClosed    = errors.New("room is closed")
)
