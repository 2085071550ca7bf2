package game

import (
	"errors"
	"fmt"
)

// ErrAction marks an action that references an invalid factory, targets its
// own source, is issued from a factory the side does not own, or carries a
// negative amount.
var ErrAction = errors.New("invalid action")

// ActionType enumerates what an agent can order in a turn.
type ActionType int

const (
	ActionMove ActionType = iota
	ActionBomb
	ActionIncrease
)

var actionKeywords = [...]string{"MOVE", "BOMB", "INC"}

func (t ActionType) String() string {
	if int(t) < len(actionKeywords) {
		return actionKeywords[t]
	}
	return fmt.Sprintf("ActionType(%d)", int(t))
}

// Action is one validated order. To and Amount are unused for ActionIncrease
// and Amount is unused for ActionBomb.
type Action struct {
	Type   ActionType
	From   int
	To     int
	Amount int
}

func (a Action) String() string {
	switch a.Type {
	case ActionMove:
		return fmt.Sprintf("MOVE %d %d %d", a.From, a.To, a.Amount)
	case ActionBomb:
		return fmt.Sprintf("BOMB %d %d", a.From, a.To)
	default:
		return fmt.Sprintf("INC %d", a.From)
	}
}

// Validate checks a against the current state for side. Ownership cannot
// change while actions are applied, so validating before application is
// equivalent to validating during it.
func (s *State) Validate(side Side, a Action) error {
	if !s.ValidFactory(a.From) {
		return fmt.Errorf("%w: %s: source %d out of range", ErrAction, a, a.From)
	}
	if s.Factories[a.From].Owner != side {
		return fmt.Errorf("%w: %s: source %d not owned", ErrAction, a, a.From)
	}
	switch a.Type {
	case ActionMove, ActionBomb:
		if !s.ValidFactory(a.To) {
			return fmt.Errorf("%w: %s: destination %d out of range", ErrAction, a, a.To)
		}
		if a.From == a.To {
			return fmt.Errorf("%w: %s: source equals destination", ErrAction, a)
		}
		if a.Type == ActionMove && a.Amount < 0 {
			return fmt.Errorf("%w: %s: negative amount", ErrAction, a)
		}
	case ActionIncrease:
	default:
		return fmt.Errorf("%w: unknown action type %d", ErrAction, int(a.Type))
	}
	return nil
}

type route struct{ from, to int }

// Apply executes side's actions in order. Move amounts are clamped to the
// units available at the source at the moment the move is applied, and all
// moves sharing a route are coalesced into a single convoy. Bombs beyond the
// side's budget and unaffordable production increases are dropped silently.
//
// If any action is invalid nothing is applied and the error wraps ErrAction.
func (s *State) Apply(side Side, actions []Action) error {
	for _, a := range actions {
		if err := s.Validate(side, a); err != nil {
			return err
		}
	}

	sent := make(map[route]int)
	for _, a := range actions {
		f := &s.Factories[a.From]
		switch a.Type {
		case ActionMove:
			if n := min(a.Amount, f.Units); n > 0 {
				f.Units -= n
				sent[route{a.From, a.To}] += n
			}
		case ActionBomb:
			if s.BombBudget[side.Index()] > 0 {
				s.BombBudget[side.Index()]--
				s.Bombs = append(s.Bombs, Bomb{
					ID:     s.nextBombID,
					Owner:  side,
					Source: a.From,
					Target: a.To,
					// Countdowns run after actions in the same tick.
					Ticks: f.Travel[a.To] + 1,
				})
				s.nextBombID++
			}
		case ActionIncrease:
			if f.Units >= IncreaseCost && f.Production < MaxProduction {
				f.Units -= IncreaseCost
				f.Production++
			}
		}
	}

	// Route order keeps convoy creation deterministic.
	for i := range s.Factories {
		for j := range s.Factories {
			if n := sent[route{i, j}]; n > 0 {
				s.Convoys = append(s.Convoys, Convoy{
					Owner:  side,
					Source: i,
					Target: j,
					Units:  n,
					Ticks:  s.Factories[i].Travel[j] + 1,
				})
			}
		}
	}
	return nil
}
