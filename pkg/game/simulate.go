package game

// Step runs one full tick: side A's actions, side B's actions, then Advance.
// orders is indexed by agent slot. A side whose actions fail validation
// contributes nothing this tick and its error is returned in the same slot.
func (s *State) Step(orders [2][]Action) [2]error {
	var errs [2]error
	for _, side := range Sides {
		errs[side.Index()] = s.Apply(side, orders[side.Index()])
	}
	s.Advance()
	return errs
}

// Advance moves the world forward by one tick after both sides' actions have
// been applied. The order of the phases is fixed: convoy movement, production,
// battles, bombs.
func (s *State) Advance() {
	arrivals := s.moveConvoys()
	s.produce()
	s.resolveArrivals(arrivals)
	s.detonateBombs()
}

// moveConvoys counts every convoy down and returns the signed unit total that
// arrived at each factory this tick.
func (s *State) moveConvoys() []int {
	arrivals := make([]int, len(s.Factories))
	kept := s.Convoys[:0]
	for _, c := range s.Convoys {
		c.Ticks--
		if c.Ticks == 0 {
			arrivals[c.Target] += c.Units * int(c.Owner)
			continue
		}
		kept = append(kept, c)
	}
	s.Convoys = kept
	return arrivals
}

func (s *State) produce() {
	for i := range s.Factories {
		f := &s.Factories[i]
		if f.Owner == Neutral {
			continue
		}
		f.Cooldown = max(0, f.Cooldown-1)
		if f.Cooldown == 0 {
			f.Units += f.Production
		}
	}
}

// resolveArrivals fights or reinforces with the arrived units. Neutral
// factories are contested by any nonzero arrival.
func (s *State) resolveArrivals(arrivals []int) {
	for i, arrived := range arrivals {
		f := &s.Factories[i]
		if arrived == 0 {
			continue
		}
		force := abs(arrived)
		if arrived*int(f.Owner) <= 0 {
			if force > f.Units {
				f.Owner = sign(arrived)
				f.Units = force - f.Units
			} else {
				f.Units -= force
			}
			continue
		}
		f.Units += force
	}
}

func (s *State) detonateBombs() {
	kept := s.Bombs[:0]
	for _, b := range s.Bombs {
		b.Ticks--
		if b.Ticks == 0 {
			f := &s.Factories[b.Target]
			f.Units -= BombDamage(f.Units)
			f.Cooldown = BombOutage
			continue
		}
		kept = append(kept, b)
	}
	s.Bombs = kept
}

// BombDamage returns the units destroyed by a bomb hitting a factory holding
// units: everything up to 10, otherwise the larger of 10 and half.
func BombDamage(units int) int {
	return max(min(10, units), units/2)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) Side {
	if x > 0 {
		return SideA
	}
	return SideB
}
