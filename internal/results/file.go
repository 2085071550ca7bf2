// Package results persists completed matches: a plain text file per pairing,
// and optionally SQLite, PostgreSQL and a Redis standings mirror.
package results

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/freeeve/factory-arena/internal/arena"
)

// Summary aggregates the recorded matches of one pairing.
type Summary struct {
	Games int
	Wins  [2]int
	Draws int
}

// StatsFileName returns the name of the per-pairing result file.
func StatsFileName(names [2]string) string {
	return arena.PairingID(names) + "_Stats.txt"
}

// FileRecorder appends one winner line per match (0, 1 or -1 for a draw) to
// <A>_vs_<B>_Stats.txt in its directory.
type FileRecorder struct {
	dir string
	mu  sync.Mutex
}

// NewFileRecorder creates dir if needed and records into it.
func NewFileRecorder(dir string) (*FileRecorder, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("results dir: %w", err)
	}
	return &FileRecorder{dir: dir}, nil
}

// Path returns the result file used for the given pairing.
func (f *FileRecorder) Path(names [2]string) string {
	return filepath.Join(f.dir, StatsFileName(names))
}

func (f *FileRecorder) Record(_ context.Context, o arena.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.Path(o.Names), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open stats file: %w", err)
	}
	if _, err := file.WriteString(strconv.Itoa(o.Winner) + "\n"); err != nil {
		file.Close()
		return fmt.Errorf("write stats file: %w", err)
	}
	return file.Close()
}
