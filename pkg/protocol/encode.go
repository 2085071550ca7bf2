// Package protocol implements the line-oriented text protocol spoken with
// arena agents: the one-off setup message, the per-turn state view, and the
// parsing of an agent's reply into game actions.
package protocol

import (
	"fmt"
	"strings"

	"github.com/freeeve/factory-arena/pkg/game"
)

// Masked replaces fields of an opponent's bomb the observer may not see.
const Masked = -1

// Entity kinds as they appear in the state view.
const (
	KindFactory = "FACTORY"
	KindTroop   = "TROOP"
	KindBomb    = "BOMB"
)

// EncodeSetup renders the setup message sent once after an agent starts:
// a "factories pairs" header line, then one "i j travel" line per unordered
// pair.
func EncodeSetup(s *game.State) string {
	var b strings.Builder
	n := len(s.Factories)
	fmt.Fprintf(&b, "%d %d\n", n, s.PairCount())
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			fmt.Fprintf(&b, "%d %d %d\n", i, j, s.TravelTime(i, j))
		}
	}
	return b.String()
}

// EncodeView renders the state as seen by observer. Owners are multiplied by
// the observer's sign so every agent sees its own entities as 1 and the
// opponent's as -1. Destination and fuse of the opponent's bombs are masked.
func EncodeView(s *game.State, observer game.Side) string {
	var b strings.Builder
	sign := int(observer)
	fmt.Fprintf(&b, "%d\n", len(s.Factories)+len(s.Convoys)+len(s.Bombs))
	for i, f := range s.Factories {
		fmt.Fprintf(&b, "%d %s %d %d %d %d 0\n", i, KindFactory, sign*int(f.Owner), f.Units, f.Production, f.Cooldown)
	}
	for i, c := range s.Convoys {
		fmt.Fprintf(&b, "%d %s %d %d %d %d %d\n", i, KindTroop, sign*int(c.Owner), c.Source, c.Target, c.Units, c.Ticks)
	}
	for _, bomb := range s.Bombs {
		target, ticks := Masked, Masked
		if bomb.Owner == observer {
			target, ticks = bomb.Target, bomb.Ticks
		}
		fmt.Fprintf(&b, "%d %s %d %d %d %d 0\n", bomb.ID, KindBomb, sign*int(bomb.Owner), bomb.Source, target, ticks)
	}
	return b.String()
}
