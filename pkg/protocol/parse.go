package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/freeeve/factory-arena/pkg/game"
)

// ErrProtocol marks a reply that cannot be understood: an unknown command
// keyword, missing or non-numeric arguments, or an empty reply.
var ErrProtocol = errors.New("protocol error")

// Reply keywords.
const (
	KeywordWait    = "WAIT"
	KeywordMove    = "MOVE"
	KeywordBomb    = "BOMB"
	KeywordInc     = "INC"
	KeywordMessage = "MSG"
)

// ParseTurn parses an agent's raw reply into validated actions for side.
// A reply starting with WAIT is a no-op for the whole turn. MSG commands are
// ignored along with their text, and empty commands between separators are
// skipped. Any invalid action fails the whole turn with an error wrapping
// game.ErrAction; anything unparseable wraps ErrProtocol.
func ParseTurn(text string, s *game.State, side game.Side) ([]game.Action, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrProtocol)
	}
	if first := strings.Fields(text); first[0] == KeywordWait {
		return nil, nil
	}

	var actions []game.Action
	for _, cmd := range strings.Split(text, ";") {
		fields := strings.Fields(cmd)
		if len(fields) == 0 {
			continue
		}

		var a game.Action
		switch fields[0] {
		case KeywordWait, KeywordMessage:
			continue
		case KeywordMove:
			a.Type = game.ActionMove
			if err := scanInts(fields, &a.From, &a.To, &a.Amount); err != nil {
				return nil, err
			}
		case KeywordBomb:
			a.Type = game.ActionBomb
			if err := scanInts(fields, &a.From, &a.To); err != nil {
				return nil, err
			}
		case KeywordInc:
			a.Type = game.ActionIncrease
			if err := scanInts(fields, &a.From); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: unrecognised command %q", ErrProtocol, fields[0])
		}

		if err := s.Validate(side, a); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// scanInts reads the arguments following the keyword in fields. Surplus
// arguments are ignored.
func scanInts(fields []string, dst ...*int) error {
	if len(fields)-1 < len(dst) {
		return fmt.Errorf("%w: %s takes %d arguments, got %d", ErrProtocol, fields[0], len(dst), len(fields)-1)
	}
	for i, p := range dst {
		v, err := strconv.Atoi(fields[i+1])
		if err != nil {
			return fmt.Errorf("%w: %s argument %q is not an integer", ErrProtocol, fields[0], fields[i+1])
		}
		*p = v
	}
	return nil
}
