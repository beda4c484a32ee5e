package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-live/internal/apperror"
)

// Scores - rounds won per mark within the session.
type Scores struct {
	X int `json:"X"`
	O int `json:"O"`
}

// Add - returns scores with one more win for mark. Any other mark leaves them as they are.
func (that Scores) Add(mark Mark) Scores {
	switch mark {
	case PlayerX:
		that.X++
	case PlayerO:
		that.O++
	}

	return that
}

// GameState is one immutable snapshot of a room. Transitions return a new value and never
// modify the receiver, so a published *GameState can be read without locking.
type GameState struct {
	Turn           Mark   `json:"turn"`
	Board          Board  `json:"board"`
	Winner         Mark   `json:"winner"`
	BoardFull      bool   `json:"boardFull"`
	ConnectedSlots []Mark `json:"connectedSlots"`
	Scores         Scores `json:"scores"`
	Version        uint64 `json:"version"`
}

func NewGameState() *GameState {
	return &GameState{
		Turn:           StartingMark,
		ConnectedSlots: []Mark{},
	}
}

// IsFinished - the round is decided by a winner or a draw.
func (that *GameState) IsFinished() bool {
	return that.Winner != EmptyCell || that.BoardFull
}

func (that *GameState) HasSlot(mark Mark) bool {
	for _, slot := range that.ConnectedSlots {
		if slot == mark {
			return true
		}
	}

	return false
}

// FreeSlot - first unclaimed mark by priority, false when both are taken.
func (that *GameState) FreeSlot() (Mark, bool) {
	for _, mark := range Marks {
		if !that.HasSlot(mark) {
			return mark, true
		}
	}

	return EmptyCell, false
}

// WithSlot - copy with mark claimed.
func (that *GameState) WithSlot(mark Mark) *GameState {
	next := that.next()
	next.ConnectedSlots = slotsWhere(func(m Mark) bool { return m == mark || that.HasSlot(m) })

	return next
}

// WithoutSlot - copy with mark released.
func (that *GameState) WithoutSlot(mark Mark) *GameState {
	next := that.next()
	next.ConnectedSlots = slotsWhere(func(m Mark) bool { return m != mark && that.HasSlot(m) })

	return next
}

// ValidateTurn - checks a move against this snapshot without changing it.
func (that *GameState) ValidateTurn(mark Mark, x, y int) error {
	if !InRange(x, y) {
		return fmt.Errorf("%w: x=%d y=%d", apperror.ErrOutOfRange, x, y)
	}

	if that.Board.At(x, y) != EmptyCell {
		return apperror.ErrCellOccupied
	}

	if that.Winner != EmptyCell {
		return apperror.ErrGameFinished
	}

	if that.Turn != mark {
		return apperror.ErrNotYourTurn
	}

	return nil
}

// MakeTurn - returns the snapshot that follows a valid move by mark at (x, y).
// A decided round keeps its turn and credits the winner; otherwise the turn passes.
func (that *GameState) MakeTurn(mark Mark, x, y int) (*GameState, error) {
	if err := that.ValidateTurn(mark, x, y); err != nil {
		return nil, err
	}

	next := that.next()
	next.Board = that.Board.Place(x, y, mark)
	next.Winner = Winner(next.Board)
	next.BoardFull = IsFull(next.Board)

	if next.IsFinished() {
		next.Scores = that.Scores.Add(next.Winner)
		return next, nil
	}

	next.Turn = mark.Opponent()

	return next, nil
}

// NextRound - empty board for a new round; slots and scores carry over.
func (that *GameState) NextRound() *GameState {
	next := that.next()
	next.Turn = StartingMark
	next.Board = Board{}
	next.Winner = EmptyCell
	next.BoardFull = false

	return next
}

// next - a copy of the snapshot with the version bumped.
func (that *GameState) next() *GameState {
	next := *that
	next.ConnectedSlots = append([]Mark{}, that.ConnectedSlots...)
	next.Version++

	return &next
}

func slotsWhere(keep func(Mark) bool) []Mark {
	slots := make([]Mark, 0, len(Marks))
	for _, mark := range Marks {
		if keep(mark) {
			slots = append(slots, mark)
		}
	}

	return slots
}
