// Package match runs a single game between two agent executables: it builds
// a random map, drives the tick loop, eliminates agents that misbehave, and
// tears both processes down however the game ends.
package match

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/factory-arena/pkg/agent"
	"github.com/freeeve/factory-arena/pkg/game"
	"github.com/freeeve/factory-arena/pkg/protocol"
)

// Reasons a match ended.
const (
	ReasonForfeit     = "forfeit"
	ReasonElimination = "elimination"
	ReasonTurnLimit   = "turn_limit"
	ReasonAllStopped  = "all_stopped"
)

// Config holds the per-match rules that are not part of the game itself.
type Config struct {
	TurnLimit        int
	FirstTurnTimeout time.Duration
	TurnTimeout      time.Duration
	StopGrace        time.Duration
}

// DefaultConfig returns the standard match settings.
func DefaultConfig() Config {
	return Config{
		TurnLimit:        200,
		FirstTurnTimeout: time.Second,
		TurnTimeout:      50 * time.Millisecond,
		StopGrace:        100 * time.Millisecond,
	}
}

// DiagnosticsSink receives the stderr text an agent produced during a turn.
// program is the agent's index in the paths passed to PlayRound, whichever
// side it played.
type DiagnosticsSink interface {
	AgentDiagnostics(matchID string, program, turn int, text string)
}

// Result describes the outcome of a completed match. Winner is 0, 1 or
// game.Draw and always refers to the agent order passed to PlayRound.
type Result struct {
	ID      string
	Seed    int64
	Swapped bool
	Winner  int
	Reason  string
	Turns   int
	Totals  [2]int
}

// Runner plays matches with a fixed configuration. A Runner holds no match
// state and may be shared by concurrent workers.
type Runner struct {
	cfg  Config
	diag DiagnosticsSink
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithDiagnostics routes agent stderr text to sink.
func WithDiagnostics(sink DiagnosticsSink) RunnerOption {
	return func(r *Runner) {
		r.diag = sink
	}
}

// NewRunner creates a Runner.
func NewRunner(cfg Config, opts ...RunnerOption) *Runner {
	r := &Runner{cfg: cfg}
	for _, o := range opts {
		o(r)
	}
	return r
}

// PlayRound plays one match between paths[0] and paths[1]. When swap is set
// paths[1] plays side A; the reported winner and totals are mapped back to
// the order of paths either way.
func (r *Runner) PlayRound(ctx context.Context, paths [2]string, seed int64, swap bool) (*Result, error) {
	order := paths
	if swap {
		order[0], order[1] = paths[1], paths[0]
	}
	res, err := r.play(ctx, order, seed, swap)
	if err != nil {
		return nil, err
	}
	if swap {
		res.Swapped = true
		if res.Winner != game.Draw {
			res.Winner = 1 - res.Winner
		}
		res.Totals[0], res.Totals[1] = res.Totals[1], res.Totals[0]
	}
	return res, nil
}

// Run plays one match with paths[0] on side A and paths[1] on side B. It
// returns an error wrapping agent.ErrSpawn when an agent cannot be launched
// and ctx.Err() when the match is cancelled; every other failure only
// eliminates the agent concerned.
func (r *Runner) Run(ctx context.Context, paths [2]string, seed int64) (*Result, error) {
	return r.play(ctx, paths, seed, false)
}

// play runs a match; swapped records that paths is in reverse program order.
func (r *Runner) play(ctx context.Context, paths [2]string, seed int64, swapped bool) (*Result, error) {
	m := &match{
		cfg:     r.cfg,
		diag:    r.diag,
		id:      uuid.NewString(),
		seed:    seed,
		swapped: swapped,
		state:   game.GenerateMap(rand.New(rand.NewSource(seed))),
	}
	m.log = log.With().Str("match", m.id).Int64("seed", seed).Bool("swapped", swapped).Logger()
	defer m.teardown()

	if err := m.launch(paths); err != nil {
		return nil, err
	}
	return m.loop(ctx)
}

type match struct {
	cfg     Config
	diag    DiagnosticsSink
	id      string
	seed    int64
	swapped bool
	state   *game.State
	agents  [2]*agent.Handle
	log     zerolog.Logger
}

func (m *match) launch(paths [2]string) error {
	setup := protocol.EncodeSetup(m.state)
	for i, p := range paths {
		h, err := agent.Start(p, agent.WithStopGrace(m.cfg.StopGrace))
		if err != nil {
			return fmt.Errorf("agent %d: %w", i, err)
		}
		m.agents[i] = h
		if err := h.Send(setup); err != nil {
			m.eliminate(i, 0, err)
		}
	}
	m.log.Debug().Int("factories", len(m.state.Factories)).Msg("Match started")
	return nil
}

// teardown releases both agents on every exit path.
func (m *match) teardown() {
	for _, h := range m.agents {
		if h != nil {
			h.Close()
		}
	}
}

func (m *match) loop(ctx context.Context) (*Result, error) {
	for turn := 1; ; turn++ {
		if err := ctx.Err(); err != nil {
			m.log.Info().Int("turn", turn).Msg("Match cancelled")
			return nil, err
		}

		// Liveness is fixed for the whole turn: an agent failing this turn
		// does not decide the match before its opponent has played.
		alive := [2]bool{m.agents[0].IsAlive(), m.agents[1].IsAlive()}

		var replies [2]string
		for i := range m.agents {
			if !alive[i] {
				continue
			}
			if !alive[1-i] {
				return m.finish(i, ReasonForfeit, turn), nil
			}
			reply, err := m.exchange(i, turn)
			if err != nil {
				m.eliminate(i, turn, err)
				continue
			}
			replies[i] = reply
		}

		var orders [2][]game.Action
		for i, h := range m.agents {
			if replies[i] != "" && h.IsAlive() {
				actions, err := protocol.ParseTurn(replies[i], m.state, game.SideForAgent(i))
				if err != nil {
					m.eliminate(i, turn, err)
				} else {
					orders[i] = actions
				}
			}
			m.drainDiagnostics(i, turn)
		}

		for i, err := range m.state.Step(orders) {
			if err != nil {
				m.eliminate(i, turn, err)
			}
		}

		for i, h := range m.agents {
			if h.IsAlive() && !m.state.PlayerAlive(game.SideForAgent(i)) {
				m.log.Debug().Int("agent", i).Int("turn", turn).Msg("Agent has nothing left to play")
				h.Stop()
			}
		}

		if w, ok := m.state.EliminationWinner(); ok {
			return m.finish(w, ReasonElimination, turn), nil
		}
		if turn >= m.cfg.TurnLimit {
			return m.finish(m.state.Leader(), ReasonTurnLimit, turn), nil
		}
		if !m.agents[0].IsAlive() && !m.agents[1].IsAlive() {
			return m.finish(game.Draw, ReasonAllStopped, turn), nil
		}
	}
}

// exchange delivers the current view to agent idx and waits for its reply.
func (m *match) exchange(idx, turn int) (string, error) {
	h := m.agents[idx]
	if err := h.Send(protocol.EncodeView(m.state, game.SideForAgent(idx))); err != nil {
		return "", err
	}
	budget := m.cfg.TurnTimeout
	if turn == 1 {
		budget = m.cfg.FirstTurnTimeout
	}
	return h.Await(budget)
}

func (m *match) eliminate(idx, turn int, err error) {
	m.log.Warn().
		Err(err).
		Int("agent", idx).
		Str("path", m.agents[idx].Path()).
		Int("turn", turn).
		Str("kind", ErrorKind(err)).
		Msg("Agent eliminated")
	m.agents[idx].Stop()
}

func (m *match) drainDiagnostics(idx, turn int) {
	text := m.agents[idx].Diagnostics()
	if text == "" {
		return
	}
	m.log.Debug().Int("agent", idx).Int("turn", turn).Str("stderr", text).Msg("Agent diagnostics")
	if m.diag != nil {
		program := idx
		if m.swapped {
			program = 1 - idx
		}
		m.diag.AgentDiagnostics(m.id, program, turn, text)
	}
}

func (m *match) finish(winner int, reason string, turn int) *Result {
	res := &Result{
		ID:     m.id,
		Seed:   m.seed,
		Winner: winner,
		Reason: reason,
		Turns:  turn,
		Totals: m.state.Totals(),
	}
	m.log.Debug().Int("winner", winner).Str("reason", reason).Int("turns", turn).Msg("Match finished")
	return res
}

// ErrorKind names the class of a per-turn agent failure for logs and
// metrics.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, agent.ErrTimeout):
		return "timeout"
	case errors.Is(err, agent.ErrWrite):
		return "write"
	case errors.Is(err, agent.ErrRead):
		return "read"
	case errors.Is(err, protocol.ErrProtocol):
		return "protocol"
	case errors.Is(err, game.ErrAction):
		return "action"
	case errors.Is(err, agent.ErrSpawn):
		return "spawn"
	}
	return "unknown"
}
