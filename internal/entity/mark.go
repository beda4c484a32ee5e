package entity

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-live/internal/apperror"
)

// Mark - player symbol, one per slot.
type Mark string

const (
	PlayerX Mark = "X"
	PlayerO Mark = "O"

	EmptyCell Mark = ""
)

// Marks lists the two slots in assignment priority order.
var Marks = [2]Mark{PlayerX, PlayerO}

// StartingMark moves first in every round.
const StartingMark = PlayerX

func (that Mark) IsValid() bool {
	return that == PlayerX || that == PlayerO
}

// Opponent - returns the other player's mark.
func (that Mark) Opponent() Mark {
	if that == PlayerX {
		return PlayerO
	}
	return PlayerX
}

// MarshalJSON encodes the empty mark as null.
func (that Mark) MarshalJSON() ([]byte, error) {
	if that == EmptyCell {
		return []byte("null"), nil
	}

	return json.Marshal(string(that))
}

func (that *Mark) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*that = EmptyCell
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal mark: %w", err)
	}

	mark := Mark(raw)
	if mark != EmptyCell && !mark.IsValid() {
		return fmt.Errorf("%w: %q", apperror.ErrUnknownMark, raw)
	}

	*that = mark

	return nil
}
