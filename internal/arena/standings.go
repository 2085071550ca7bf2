package arena

import (
	"math"
	"sync"

	"github.com/freeeve/factory-arena/pkg/game"
)

// Snapshot is a consistent view of the tournament so far. Points, wins and
// names are indexed by program: 0 is the program under test, 1 its opponent.
type Snapshot struct {
	Names  [2]string  `json:"names"`
	Games  int        `json:"games"`
	Draws  int        `json:"draws"`
	Wins   [2]int     `json:"wins"`
	Points [2]float64 `json:"points"`
	Score  float64    `json:"score"`
	Sigma  float64    `json:"sigma"`
	Better float64    `json:"better"`
}

// Standings accumulates match outcomes. It is safe for concurrent use.
type Standings struct {
	mu     sync.Mutex
	names  [2]string
	games  int
	draws  int
	wins   [2]int
	points [2]float64
}

// NewStandings creates empty standings for the two named programs.
func NewStandings(names [2]string) *Standings {
	return &Standings{names: names}
}

// Add records one match outcome and returns the standings including it.
// A draw gives each program half a point.
func (s *Standings) Add(winner int) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.games++
	if winner == game.Draw {
		s.draws++
		s.points[0] += 0.5
		s.points[1] += 0.5
	} else {
		s.wins[winner]++
		s.points[winner]++
	}
	return s.snapshotLocked()
}

// Snapshot returns the current standings.
func (s *Standings) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Standings) snapshotLocked() Snapshot {
	snap := Snapshot{
		Names:  s.names,
		Games:  s.games,
		Draws:  s.draws,
		Wins:   s.wins,
		Points: s.points,
	}
	snap.Score, snap.Sigma, snap.Better = Confidence(s.points[0], s.games)
	return snap
}

// Confidence returns the win fraction p of the first program, its standard
// error, and the probability that the first program is the stronger one
// under a normal approximation.
//
// With no games every value is zero except better, which is 0.5. When sigma is
// zero (every game went the same way) better is 1, 0 or 0.5 depending on
// which side of one half p falls.
func Confidence(points float64, games int) (p, sigma, better float64) {
	if games <= 0 {
		return 0, 0, 0.5
	}
	p = points / float64(games)
	sigma = math.Sqrt(p * (1 - p) / float64(games))
	if sigma == 0 {
		switch {
		case p > 0.5:
			return p, 0, 1
		case p < 0.5:
			return p, 0, 0
		default:
			return p, 0, 0.5
		}
	}
	better = 0.5 + 0.5*math.Erf((p-0.5)/(math.Sqrt2*sigma))
	return p, sigma, better
}
