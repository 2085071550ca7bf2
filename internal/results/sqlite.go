package results

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/freeeve/factory-arena/internal/arena"
)

// SQLiteRecorder stores every match in an embedded SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteRecorder, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// Workers record concurrently; one connection serializes the writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS matches (
		match_id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		program_a TEXT NOT NULL,
		program_b TEXT NOT NULL,
		seed INTEGER NOT NULL,
		swapped INTEGER NOT NULL,
		winner INTEGER NOT NULL,
		reason TEXT NOT NULL,
		turns INTEGER NOT NULL,
		total_a INTEGER NOT NULL,
		total_b INTEGER NOT NULL,
		finished_at TEXT NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_matches_pair ON matches(program_a, program_b);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

func (s *SQLiteRecorder) Record(ctx context.Context, o arena.Outcome) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO matches (match_id, seq, program_a, program_b, seed, swapped, winner, reason, turns, total_a, total_b, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.MatchID, o.Sequence, o.Names[0], o.Names[1], o.Seed, o.Swapped, o.Winner, o.Reason, o.Turns,
		o.Totals[0], o.Totals[1], o.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

// Summary aggregates every recorded match of the pairing.
func (s *SQLiteRecorder) Summary(ctx context.Context, names [2]string) (Summary, error) {
	var sum Summary
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN winner = 0 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN winner = 1 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN winner = -1 THEN 1 ELSE 0 END), 0)
		 FROM matches WHERE program_a = ? AND program_b = ?`,
		names[0], names[1],
	).Scan(&sum.Games, &sum.Wins[0], &sum.Wins[1], &sum.Draws)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize matches: %w", err)
	}
	return sum, nil
}

// Close closes the database.
func (s *SQLiteRecorder) Close() error {
	return s.db.Close()
}
