package results

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/freeeve/factory-arena/internal/arena"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS arena_matches (
	match_id UUID PRIMARY KEY,
	seq INTEGER NOT NULL,
	program_a TEXT NOT NULL,
	program_b TEXT NOT NULL,
	seed BIGINT NOT NULL,
	swapped BOOLEAN NOT NULL,
	winner SMALLINT NOT NULL,
	reason TEXT NOT NULL,
	turns INTEGER NOT NULL,
	total_a INTEGER NOT NULL,
	total_b INTEGER NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_arena_matches_pair ON arena_matches (program_a, program_b);`

// Connect opens a connection pool to the PostgreSQL database.
func Connect(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}

// PostgresRecorder stores every match in the arena_matches table.
type PostgresRecorder struct {
	db *sql.DB
}

// NewPostgresRecorder creates the schema if needed and records into db.
func NewPostgresRecorder(ctx context.Context, db *sql.DB) (*PostgresRecorder, error) {
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &PostgresRecorder{db: db}, nil
}

func (r *PostgresRecorder) Record(ctx context.Context, o arena.Outcome) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO arena_matches (match_id, seq, program_a, program_b, seed, swapped, winner, reason, turns, total_a, total_b, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (match_id) DO NOTHING`,
		o.MatchID, o.Sequence, o.Names[0], o.Names[1], o.Seed, o.Swapped, o.Winner, o.Reason, o.Turns,
		o.Totals[0], o.Totals[1], o.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

// Summary aggregates every recorded match of the pairing.
func (r *PostgresRecorder) Summary(ctx context.Context, names [2]string) (Summary, error) {
	var sum Summary
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE winner = 0),
		        COUNT(*) FILTER (WHERE winner = 1),
		        COUNT(*) FILTER (WHERE winner = -1)
		 FROM arena_matches WHERE program_a = $1 AND program_b = $2`,
		names[0], names[1],
	).Scan(&sum.Games, &sum.Wins[0], &sum.Wins[1], &sum.Draws)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize matches: %w", err)
	}
	return sum, nil
}
