//go:build integration

package results

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/freeeve/factory-arena/internal/arena"
	"github.com/freeeve/factory-arena/internal/testutil"
	"github.com/freeeve/factory-arena/pkg/game"
)

func TestPostgresRecorder(t *testing.T) {
	db := testutil.SetupDB(t)
	ctx := context.Background()

	rec, err := NewPostgresRecorder(ctx, db)
	if err != nil {
		t.Fatalf("NewPostgresRecorder: %v", err)
	}
	for i, w := range []int{1, 1, game.Draw} {
		if err := rec.Record(ctx, outcome(i, w)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	sum, err := rec.Summary(ctx, names)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	want := Summary{Games: 3, Wins: [2]int{0, 2}, Draws: 1}
	if sum != want {
		t.Errorf("Summary = %+v, want %+v", sum, want)
	}

	// Schema creation is idempotent.
	if _, err := NewPostgresRecorder(ctx, db); err != nil {
		t.Fatalf("second NewPostgresRecorder: %v", err)
	}
}

func TestRedisRecorder(t *testing.T) {
	rdb := testutil.SetupRedis(t)
	ctx := context.Background()
	rec := NewRedisRecorderFromClient(rdb)

	sub := rdb.Subscribe(ctx, resultsChannel(names))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	o := outcome(0, 0)
	if err := rec.Record(ctx, o); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := rec.Record(ctx, outcome(1, game.Draw)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	sum, err := rec.Summary(ctx, names)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	want := Summary{Games: 2, Wins: [2]int{1, 0}, Draws: 1}
	if sum != want {
		t.Errorf("Summary = %+v, want %+v", sum, want)
	}

	select {
	case msg := <-sub.Channel():
		var got arena.Outcome
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("unmarshal published outcome: %v", err)
		}
		if got.MatchID != o.MatchID {
			t.Errorf("published match %q, want %q", got.MatchID, o.MatchID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no outcome published")
	}
}
