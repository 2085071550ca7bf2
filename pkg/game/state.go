// Package game implements the territory-conquest simulation played in the
// arena: factories that produce units, convoys that carry units between
// factories, and bombs that disable a factory's production.
//
// Sides are signed so that arrivals and battles can be resolved with plain
// integer arithmetic: SideA is +1, SideB is -1 and Neutral is 0.
package game

import "fmt"

// Side identifies the owner of a factory, convoy or bomb.
type Side int

const (
	SideB   Side = -1
	Neutral Side = 0
	SideA   Side = 1
)

// Sides lists the two playing sides in application order.
var Sides = [2]Side{SideA, SideB}

// SideForAgent maps an agent slot (0 or 1) to the side it plays.
func SideForAgent(idx int) Side {
	if idx == 0 {
		return SideA
	}
	return SideB
}

// Index returns the agent slot (0 or 1) playing this side.
func (s Side) Index() int {
	if s == SideB {
		return 1
	}
	return 0
}

// Opponent returns the other playing side. Neutral has no opponent.
func (s Side) Opponent() Side {
	return -s
}

func (s Side) String() string {
	switch s {
	case SideA:
		return "A"
	case SideB:
		return "B"
	case Neutral:
		return "neutral"
	}
	return fmt.Sprintf("Side(%d)", int(s))
}

const (
	// MaxProduction is the highest production level a factory can reach.
	MaxProduction = 3
	// IncreaseCost is the number of stationed units consumed by INC.
	IncreaseCost = 10
	// BombsPerSide is the initial bomb budget of each side.
	BombsPerSide = 2
	// BombOutage is the production cooldown forced on a bombed factory.
	BombOutage = 5
)

// Factory is a production site. Index is stable for the whole match.
type Factory struct {
	Index      int
	Owner      Side
	Units      int
	Production int
	Cooldown   int
	X, Y       int

	// Travel[j] is the number of ticks needed to reach factory j.
	Travel []int
}

// Convoy is a group of units in flight between two factories.
type Convoy struct {
	Owner  Side
	Source int
	Target int
	Units  int
	Ticks  int
}

// Bomb is an in-flight bomb. IDs increase monotonically and are never reused
// within a match.
type Bomb struct {
	ID     int
	Owner  Side
	Source int
	Target int
	Ticks  int
}

// State is the authoritative state of one match.
type State struct {
	Factories []Factory
	Convoys   []Convoy
	// Bombs is kept in ID order.
	Bombs      []Bomb
	BombBudget [2]int

	nextBombID int
}

// NewState wraps a set of factories in a fresh match state with full bomb
// budgets and no units in flight.
func NewState(factories []Factory) *State {
	return &State{
		Factories:  factories,
		BombBudget: [2]int{BombsPerSide, BombsPerSide},
	}
}

// ValidFactory reports whether idx addresses a factory of this match.
func (s *State) ValidFactory(idx int) bool {
	return idx >= 0 && idx < len(s.Factories)
}

// TravelTime returns the cached travel time between two factories.
func (s *State) TravelTime(from, to int) int {
	return s.Factories[from].Travel[to]
}

// PairCount returns the number of unordered factory pairs.
func (s *State) PairCount() int {
	n := len(s.Factories)
	return n * (n - 1) / 2
}

// PlayerAlive reports whether side still has anything to play with: a factory
// holding units or producing, or a convoy in flight.
func (s *State) PlayerAlive(side Side) bool {
	for _, f := range s.Factories {
		if f.Owner == side && (f.Units != 0 || f.Production != 0) {
			return true
		}
	}
	for _, c := range s.Convoys {
		if c.Owner == side {
			return true
		}
	}
	return false
}

// Totals returns the number of units (stationed plus in flight) per agent
// slot: index 0 for SideA and index 1 for SideB.
func (s *State) Totals() [2]int {
	var units [2]int
	for _, f := range s.Factories {
		if f.Owner != Neutral {
			units[f.Owner.Index()] += f.Units
		}
	}
	for _, c := range s.Convoys {
		if c.Owner != Neutral {
			units[c.Owner.Index()] += c.Units
		}
	}
	return units
}

// FactoriesOwned counts the factories controlled by side.
func (s *State) FactoriesOwned(side Side) int {
	n := 0
	for _, f := range s.Factories {
		if f.Owner == side {
			n++
		}
	}
	return n
}

// InFlight counts the convoys and bombs owned by side.
func (s *State) InFlight(side Side) int {
	n := 0
	for _, c := range s.Convoys {
		if c.Owner == side {
			n++
		}
	}
	for _, b := range s.Bombs {
		if b.Owner == side {
			n++
		}
	}
	return n
}

// Extinguished reports whether side controls no factory and has nothing in
// flight.
func (s *State) Extinguished(side Side) bool {
	return s.FactoriesOwned(side) == 0 && s.InFlight(side) == 0
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := &State{
		Factories:  make([]Factory, len(s.Factories)),
		Convoys:    append([]Convoy(nil), s.Convoys...),
		Bombs:      append([]Bomb(nil), s.Bombs...),
		BombBudget: s.BombBudget,
		nextBombID: s.nextBombID,
	}
	for i, f := range s.Factories {
		f.Travel = append([]int(nil), f.Travel...)
		c.Factories[i] = f
	}
	return c
}
