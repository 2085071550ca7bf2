// Package arena plays an open-ended series of matches between two agent
// programs on a pool of workers and keeps running standings.
package arena

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/factory-arena/internal/match"
)

// swapSalt decorrelates the side-swap draw from the map drawn from the same
// seed.
const swapSalt = 0x5deece66d

// Config describes a tournament.
type Config struct {
	// Paths of the two agent executables. Paths[0] is the program under test.
	Paths   [2]string
	Workers int
	// Games stops the tournament after that many matches; 0 runs until the
	// context is cancelled.
	Games int
	// Seed makes every match reproducible from the seed and its sequence
	// number; 0 draws seeds at random.
	Seed int64
}

// Arena runs matches between two programs and reports standings.
type Arena struct {
	cfg       Config
	runner    *match.Runner
	standings *Standings
	recorders []Recorder
	reporters []Reporter

	mu     sync.Mutex
	next   int
	rng    *rand.Rand
	report sync.Mutex
}

// New creates an Arena. Workers are clamped to [1, MaxWorkers()].
func New(cfg Config, runner *match.Runner, recorders []Recorder, reporters []Reporter) *Arena {
	cfg.Workers = ClampWorkers(cfg.Workers)
	return &Arena{
		cfg:       cfg,
		runner:    runner,
		standings: NewStandings(Names(cfg.Paths)),
		recorders: recorders,
		reporters: reporters,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// MaxWorkers is the largest useful worker count: every match runs two agent
// processes.
func MaxWorkers() int {
	return 2 * runtime.NumCPU()
}

// ClampWorkers bounds n to [1, MaxWorkers()].
func ClampWorkers(n int) int {
	return max(1, min(n, MaxWorkers()))
}

// Names returns the display names of the two programs.
func Names(paths [2]string) [2]string {
	return [2]string{filepath.Base(paths[0]), filepath.Base(paths[1])}
}

// PairingID names the pairing of two programs, e.g. "alpha_vs_beta".
func PairingID(names [2]string) string {
	return names[0] + "_vs_" + names[1]
}

// Standings returns the live standings.
func (a *Arena) Standings() *Standings {
	return a.standings
}

// Workers returns the effective worker count.
func (a *Arena) Workers() int {
	return a.cfg.Workers
}

// Run plays matches until the game limit is reached or ctx is cancelled.
// Matches in progress when ctx is cancelled are abandoned and not counted.
// An agent that cannot be launched stops every worker and is returned as an
// error.
func (a *Arena) Run(ctx context.Context) error {
	log.Info().
		Str("a", a.cfg.Paths[0]).
		Str("b", a.cfg.Paths[1]).
		Int("workers", a.cfg.Workers).
		Int("games", a.cfg.Games).
		Int64("seed", a.cfg.Seed).
		Msg("Arena starting")

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < a.cfg.Workers; w++ {
		g.Go(func() error {
			return a.work(gctx)
		})
	}
	err := g.Wait()

	snap := a.standings.Snapshot()
	log.Info().Int("games", snap.Games).Int("draws", snap.Draws).Float64("score", snap.Score).Msg("Arena stopped")
	return err
}

func (a *Arena) work(ctx context.Context) error {
	for ctx.Err() == nil {
		seq, ok := a.claim()
		if !ok {
			return nil
		}
		seed, swap := a.matchParams(seq)

		res, err := a.runner.PlayRound(ctx, a.cfg.Paths, seed, swap)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("match %d: %w", seq, err)
		}
		a.complete(ctx, seq, res)
	}
	return nil
}

// claim hands out the next match sequence number, or false once the game
// limit has been reached.
func (a *Arena) claim() (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cfg.Games > 0 && a.next >= a.cfg.Games {
		return 0, false
	}
	seq := a.next
	a.next++
	return seq, true
}

func (a *Arena) matchParams(seq int) (seed int64, swap bool) {
	if a.cfg.Seed != 0 {
		seed = a.cfg.Seed + int64(seq)
		swap = rand.New(rand.NewSource(seed^swapSalt)).Intn(2) == 1
		return seed, swap
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Int63(), a.rng.Intn(2) == 1
}

func (a *Arena) complete(ctx context.Context, seq int, res *match.Result) {
	o := Outcome{
		MatchID:    res.ID,
		Sequence:   seq,
		Names:      a.standings.names,
		Seed:       res.Seed,
		Swapped:    res.Swapped,
		Winner:     res.Winner,
		Reason:     res.Reason,
		Turns:      res.Turns,
		Totals:     res.Totals,
		FinishedAt: time.Now().UTC(),
	}
	log.Info().
		Str("match", res.ID).
		Int("seq", seq).
		Int("winner", res.Winner).
		Str("reason", res.Reason).
		Int("turns", res.Turns).
		Bool("swapped", res.Swapped).
		Msg("Match completed")

	// A finished match is stored even when shutdown has begun.
	rctx := context.WithoutCancel(ctx)
	for _, r := range a.recorders {
		if err := r.Record(rctx, o); err != nil {
			log.Error().Err(err).Str("match", res.ID).Msg("Failed to record match")
		}
	}

	a.report.Lock()
	defer a.report.Unlock()
	snap := a.standings.Add(res.Winner)
	for _, r := range a.reporters {
		r.Report(snap)
	}
}
