package results

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/freeeve/factory-arena/internal/arena"
	"github.com/freeeve/factory-arena/pkg/game"
)

var names = [2]string{"alpha", "beta"}

func outcome(seq, winner int) arena.Outcome {
	return arena.Outcome{
		MatchID:    uuid.NewString(),
		Sequence:   seq,
		Names:      names,
		Seed:       int64(100 + seq),
		Winner:     winner,
		Reason:     "turn_limit",
		Turns:      200,
		Totals:     [2]int{40, 40},
		FinishedAt: time.Now(),
	}
}

func TestStatsFileName(t *testing.T) {
	if got := StatsFileName(names); got != "alpha_vs_beta_Stats.txt" {
		t.Errorf("StatsFileName = %q", got)
	}
}

func TestFileRecorder_AppendsWinners(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	rec, err := NewFileRecorder(dir)
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}

	ctx := context.Background()
	for i, w := range []int{0, 1, game.Draw} {
		if err := rec.Record(ctx, outcome(i, w)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "alpha_vs_beta_Stats.txt"))
	if err != nil {
		t.Fatalf("read stats file: %v", err)
	}
	if got, want := string(data), "0\n1\n-1\n"; got != want {
		t.Errorf("stats file = %q, want %q", got, want)
	}
}

func TestFileRecorder_ConcurrentLinesStayWhole(t *testing.T) {
	rec, err := NewFileRecorder(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec.Record(context.Background(), outcome(i, i%2))
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(rec.Path(names))
	if err != nil {
		t.Fatalf("read stats file: %v", err)
	}
	if len(data) != 80 {
		t.Errorf("stats file has %d bytes, want 80", len(data))
	}
	for i := 1; i < len(data); i += 2 {
		if data[i] != '\n' {
			t.Fatalf("byte %d = %q, want newline", i, data[i])
		}
	}
}

func TestSQLiteRecorder(t *testing.T) {
	rec, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "arena.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer rec.Close()

	ctx := context.Background()
	for i, w := range []int{0, 0, 1, game.Draw} {
		if err := rec.Record(ctx, outcome(i, w)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	sum, err := rec.Summary(ctx, names)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	want := Summary{Games: 4, Wins: [2]int{2, 1}, Draws: 1}
	if sum != want {
		t.Errorf("Summary = %+v, want %+v", sum, want)
	}

	other, err := rec.Summary(ctx, [2]string{"beta", "alpha"})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if other != (Summary{}) {
		t.Errorf("reverse pairing Summary = %+v, want empty", other)
	}
}

func TestSQLiteRecorder_DuplicateMatchRejected(t *testing.T) {
	rec, err := OpenSQLite(filepath.Join(t.TempDir(), "arena.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer rec.Close()

	o := outcome(0, 0)
	if err := rec.Record(context.Background(), o); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := rec.Record(context.Background(), o); err == nil {
		t.Error("second Record of the same match succeeded")
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Error("OpenSQLite(\"\") succeeded")
	}
}

func TestKeys(t *testing.T) {
	if got := standingsKey(names); got != "arena:alpha_vs_beta:standings" {
		t.Errorf("standingsKey = %q", got)
	}
	if got := resultsChannel(names); got != "arena:alpha_vs_beta:results" {
		t.Errorf("resultsChannel = %q", got)
	}
}
