package websocket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const makeTurnTag = "make_turn#"

var ErrMalformedMessage = errors.New("malformed message")

// Turn - coordinates of a move. A malformed message decodes to InvalidTurn.
type Turn struct {
	X int
	Y int
}

var InvalidTurn = Turn{X: -1, Y: -1}

type turnBody struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

// ParseTurn - decodes `make_turn#{"x":<int>,"y":<int>}`.
// Any other input returns InvalidTurn together with ErrMalformedMessage, the move
// is still submitted so the game rejects it as out of range.
func ParseTurn(raw []byte) (Turn, error) {
	body, ok := bytes.CutPrefix(raw, []byte(makeTurnTag))
	if !ok {
		return InvalidTurn, fmt.Errorf("%w: unknown tag", ErrMalformedMessage)
	}

	var decoded turnBody
	if err := json.Unmarshal(body, &decoded); err != nil {
		return InvalidTurn, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	if decoded.X == nil || decoded.Y == nil {
		return InvalidTurn, fmt.Errorf("%w: missing coordinate", ErrMalformedMessage)
	}

	return Turn{X: *decoded.X, Y: *decoded.Y}, nil
}
