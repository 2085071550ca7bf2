package game

// Draw is the winner value of a match nobody won.
const Draw = -1

// Leader compares unit totals and returns the agent slot with strictly more
// units, or Draw when the totals are equal. It decides matches that reach the
// turn cap.
func (s *State) Leader() int {
	t := s.Totals()
	switch {
	case t[0] > t[1]:
		return 0
	case t[1] > t[0]:
		return 1
	}
	return Draw
}

// EliminationWinner returns the slot whose opponent is extinguished while it
// is not, Draw when both sides are extinguished, and ok=false while both are
// still in the game.
func (s *State) EliminationWinner() (winner int, ok bool) {
	a, b := s.Extinguished(SideA), s.Extinguished(SideB)
	switch {
	case a && b:
		return Draw, true
	case b:
		return 0, true
	case a:
		return 1, true
	}
	return 0, false
}
