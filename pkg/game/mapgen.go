package game

import (
	"math"
	"math/rand"
)

// Arena geometry and map generation parameters.
const (
	Width  = 16000
	Height = 6500

	MinFactories = 7
	MaxFactories = 15

	// ExtraSpace is the gap kept between factory edges and between factories
	// and the arena border.
	ExtraSpace = 300
	// TravelUnit is the distance covered in one tick.
	TravelUnit = 800

	MinBaseUnits    = 15
	MaxBaseUnits    = 30
	MinProduction   = 4
	maxPlaceAttempt = 10000
)

// FactoryRadius returns the radius used for every factory on a map with n
// factories.
func FactoryRadius(n int) int {
	if n > 10 {
		return 600
	}
	return 700
}

// GenerateMap builds a random point-symmetric map. Factory 0 sits at the
// center; factories 1 and 2 are the starting bases of SideA and SideB; the
// remaining factories are neutral mirrored pairs (2k+1, 2k+2).
func GenerateMap(rng *rand.Rand) *State {
	for {
		if st, ok := tryGenerateMap(rng); ok {
			return st
		}
	}
}

func tryGenerateMap(rng *rand.Rand) (*State, bool) {
	n := MinFactories + rng.Intn(MaxFactories-MinFactories+1)
	if n%2 == 0 {
		n++
	}
	radius := FactoryRadius(n)
	minSpacing := float64(2 * (radius + ExtraSpace))

	fs := make([]Factory, n)
	fs[0] = Factory{X: Width / 2, Y: Height / 2}

	for i := 1; i < n; i += 2 {
		var x, y int
		placed := false
		for attempt := 0; attempt < maxPlaceAttempt; attempt++ {
			x = rng.Intn(Width/2-2*radius+1) + radius + ExtraSpace
			y = rng.Intn(Height-2*radius+1) + radius + ExtraSpace
			if spaced(fs[:i], x, y, minSpacing) {
				placed = true
				break
			}
		}
		if !placed {
			return nil, false
		}

		prod := rng.Intn(MaxProduction + 1)
		var units int
		owner := Neutral
		if i == 1 {
			units = MinBaseUnits + rng.Intn(MaxBaseUnits-MinBaseUnits+1)
			owner = SideA
		} else {
			units = rng.Intn(5*prod + 1)
		}
		fs[i] = Factory{Owner: owner, Units: units, Production: prod, X: x, Y: y}
		fs[i+1] = Factory{Owner: -owner, Units: units, Production: prod, X: Width - x, Y: Height - y}
	}

	for i := range fs {
		fs[i].Index = i
		fs[i].Travel = make([]int, n)
	}
	for i := range fs {
		for j := i + 1; j < n; j++ {
			d := travelTime(fs[i], fs[j], radius)
			fs[i].Travel[j] = d
			fs[j].Travel[i] = d
		}
	}

	raiseProduction(fs)
	return NewState(fs), true
}

func spaced(placed []Factory, x, y int, minSpacing float64) bool {
	for _, f := range placed {
		if math.Hypot(float64(x-f.X), float64(y-f.Y)) < minSpacing {
			return false
		}
	}
	return true
}

func travelTime(a, b Factory, radius int) int {
	d := math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
	return int(math.Round((d - float64(2*radius)) / TravelUnit))
}

// raiseProduction lifts neutral pairs one level at a time until the map's
// total production reaches MinProduction. Both factories of a pair are raised
// together so the map stays symmetric; the center and the bases are skipped.
func raiseProduction(fs []Factory) {
	total := 0
	for _, f := range fs {
		total += f.Production
	}
	for total < MinProduction {
		raised := false
		for i := 3; i+1 < len(fs) && total < MinProduction; i += 2 {
			if fs[i].Production < MaxProduction {
				fs[i].Production++
				fs[i+1].Production++
				total += 2
				raised = true
			}
		}
		if !raised {
			return
		}
	}
}
