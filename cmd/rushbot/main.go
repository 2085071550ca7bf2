// Command rushbot is a reference agent for the arena. Each turn it sends the
// garrison of every owned factory to the nearest factory it does not own and
// upgrades production at factories that are safely out of reach.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/factory-arena/pkg/game"
	"github.com/freeeve/factory-arena/pkg/protocol"
)

func main() {
	debug := flag.Bool("debug", false, "write per-turn decisions to stderr")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}})
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 64*1024), 1024*1024)

	dist, err := readSetup(in)
	if err != nil {
		log.Fatal().Err(err).Msg("Bad setup")
	}
	for turn := 1; ; turn++ {
		v, err := readView(in, len(dist))
		if err != nil {
			log.Debug().Err(err).Msg("Input closed")
			return
		}
		reply := decide(v, dist)
		log.Debug().Int("turn", turn).Str("reply", reply).Msg("Decided")
		fmt.Println(reply)
	}
}

// factory is one FACTORY line of the state view, owner relative to us.
type factory struct {
	owner      int
	units      int
	production int
}

// view is what rushbot keeps of a turn: factories plus the units each
// factory has inbound from the enemy.
type view struct {
	factories []factory
	threat    []int
}

func readSetup(in *bufio.Scanner) ([][]int, error) {
	header, err := readInts(in)
	if err != nil || len(header) < 2 {
		return nil, fmt.Errorf("setup header: %v", err)
	}
	n := header[0]
	dist := make([][]int, n)
	for i := range dist {
		dist[i] = make([]int, n)
	}
	for range header[1] {
		l, err := readInts(in)
		if err != nil || len(l) < 3 {
			return nil, fmt.Errorf("setup link: %v", err)
		}
		dist[l[0]][l[1]] = l[2]
		dist[l[1]][l[0]] = l[2]
	}
	return dist, nil
}

func readView(in *bufio.Scanner, factories int) (*view, error) {
	count, err := readInts(in)
	if err != nil || len(count) == 0 {
		return nil, fmt.Errorf("entity count: %v", err)
	}
	v := &view{factories: make([]factory, factories), threat: make([]int, factories)}
	for range count[0] {
		if !in.Scan() {
			return nil, fmt.Errorf("truncated view")
		}
		f := strings.Fields(in.Text())
		if len(f) < 7 {
			return nil, fmt.Errorf("short entity line %q", in.Text())
		}
		id, _ := strconv.Atoi(f[0])
		var args [5]int
		for i := range args {
			args[i], _ = strconv.Atoi(f[i+2])
		}
		switch f[1] {
		case protocol.KindFactory:
			if id >= 0 && id < factories {
				v.factories[id] = factory{owner: args[0], units: args[1], production: args[2]}
			}
		case protocol.KindTroop:
			if args[0] == -1 && args[2] >= 0 && args[2] < factories {
				v.threat[args[2]] += args[3]
			}
		}
	}
	return v, nil
}

func readInts(in *bufio.Scanner) ([]int, error) {
	if !in.Scan() {
		if err := in.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("end of input")
	}
	var out []int
	for _, f := range strings.Fields(in.Text()) {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// decide builds the reply for one turn.
func decide(v *view, dist [][]int) string {
	var actions []game.Action
	for i, f := range v.factories {
		if f.owner != 1 || f.units == 0 {
			continue
		}
		if f.production < game.MaxProduction && v.threat[i] == 0 && f.units >= game.IncreaseCost+safetyMargin(v, dist, i) {
			actions = append(actions, game.Action{Type: game.ActionIncrease, From: i})
			continue
		}
		target := nearestTarget(v, dist, i)
		if target < 0 {
			continue
		}
		keep := min(v.threat[i], f.units)
		if send := f.units - keep; send > 0 {
			actions = append(actions, game.Action{Type: game.ActionMove, From: i, To: target, Amount: send})
		}
	}
	if len(actions) == 0 {
		return protocol.KeywordWait
	}
	cmds := make([]string, len(actions))
	for i, a := range actions {
		cmds[i] = a.String()
	}
	return strings.Join(cmds, ";")
}

// nearestTarget returns the closest factory we do not own, preferring enemy
// factories on ties. It returns -1 when we own everything.
func nearestTarget(v *view, dist [][]int, from int) int {
	best := -1
	for j, g := range v.factories {
		if j == from || g.owner == 1 {
			continue
		}
		if best < 0 || dist[from][j] < dist[from][best] ||
			(dist[from][j] == dist[from][best] && g.owner == -1 && v.factories[best].owner != -1) {
			best = j
		}
	}
	return best
}

// safetyMargin is the enemy garrison that could reach factory i within two
// turns.
func safetyMargin(v *view, dist [][]int, i int) int {
	margin := 0
	for j, g := range v.factories {
		if g.owner == -1 && dist[i][j] <= 2 {
			margin += g.units
		}
	}
	return margin
}
