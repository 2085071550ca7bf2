package arena

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Outcome is one completed match as seen by recorders. Winner, Names and
// Totals use program order, not side order.
type Outcome struct {
	MatchID    string    `json:"match_id"`
	Sequence   int       `json:"sequence"`
	Names      [2]string `json:"names"`
	Seed       int64     `json:"seed"`
	Swapped    bool      `json:"swapped"`
	Winner     int       `json:"winner"`
	Reason     string    `json:"reason"`
	Turns      int       `json:"turns"`
	Totals     [2]int    `json:"totals"`
	FinishedAt time.Time `json:"finished_at"`
}

// Recorder persists match outcomes. Record may be called from several
// workers at once.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// Reporter receives the standings after every completed match. Calls are
// serialized by the Arena.
type Reporter interface {
	Report(snap Snapshot)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Snapshot)

func (f ReporterFunc) Report(snap Snapshot) { f(snap) }

// ConsoleReporter prints one progress line per completed match.
type ConsoleReporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleReporter writes progress lines to w.
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w}
}

func (c *ConsoleReporter) Report(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, FormatProgress(snap))
}

// FormatProgress renders the standings as a single progress line.
func FormatProgress(snap Snapshot) string {
	return fmt.Sprintf("Wins: %.4g +- %.4g%% Rounds: %d Draws: %d %.4g%% chance that %s is better",
		100*snap.Score, 100*snap.Sigma, snap.Games, snap.Draws, 100*snap.Better, snap.Names[0])
}
