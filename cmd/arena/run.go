package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/freeeve/factory-arena/internal/arena"
	"github.com/freeeve/factory-arena/internal/auth"
	"github.com/freeeve/factory-arena/internal/config"
	"github.com/freeeve/factory-arena/internal/diag"
	"github.com/freeeve/factory-arena/internal/handler"
	"github.com/freeeve/factory-arena/internal/match"
	"github.com/freeeve/factory-arena/internal/results"
)

// summarizer is a recorder that can report what it stored in earlier runs.
type summarizer interface {
	Summary(ctx context.Context, names [2]string) (results.Summary, error)
}

func runArena(cmd *cobra.Command, args []string, opts *rootOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, args, opts, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	paths := [2]string{args[0], args[1]}
	for _, p := range paths {
		if err := checkExecutable(p); err != nil {
			return err
		}
	}
	names := arena.Names(paths)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Testing AI %s vs %s\n", names[0], names[1])

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			log.Info().Msg("Interrupted, finishing matches in flight")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(quit)
	}()

	recorders, closers, err := openRecorders(ctx, cfg)
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Msg("Close failed")
			}
		}
	}()
	if err != nil {
		return err
	}
	logHistory(ctx, recorders, names)

	reporters := []arena.Reporter{arena.NewConsoleReporter(out)}

	var runnerOpts []match.RunnerOption
	if cfg.DiagDir != "" {
		w := diag.NewWriter(cfg.DiagDir, arena.PairingID(names))
		closers = append(closers, w)
		runnerOpts = append(runnerOpts, match.WithDiagnostics(w))
		log.Info().Str("dir", cfg.DiagDir).Msg("Recording agent diagnostics")
	}

	var hub *handler.Hub
	if cfg.Listen != "" {
		hub = handler.NewHub()
		feed := handler.NewFeed(hub, names)
		recorders = append(recorders, feed)
		reporters = append(reporters, feed)
	}

	a := arena.New(arena.Config{
		Paths:   paths,
		Workers: cfg.Workers,
		Games:   cfg.Games,
		Seed:    cfg.Seed,
	}, match.NewRunner(cfg.Match(), runnerOpts...), recorders, reporters)

	var srv *http.Server
	if hub != nil {
		jwtMgr := auth.NewJWTManager(cfg.JWTSecret)
		srv = &http.Server{
			Addr: cfg.Listen,
			Handler: handler.NewRouter(jwtMgr,
				handler.NewStandingsHandler(a.Standings()),
				handler.NewWSHandler(hub, jwtMgr, a.Standings(), arena.PairingID(names))),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.Listen).Msg("Status server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Status server error")
			}
		}()
	}

	log.Info().
		Strs("agents", paths[:]).
		Int("workers", a.Workers()).
		Int("games", cfg.Games).
		Int64("seed", cfg.Seed).
		Int("turnLimit", cfg.TurnLimit).
		Msg("Arena started")

	runErr := a.Run(ctx)

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Status server shutdown error")
		}
	}

	printSummary(out, a.Standings().Snapshot())
	return runErr
}

// applyFlags overlays explicitly set flags and the optional WORKERS argument
// on the loaded configuration.
func applyFlags(cmd *cobra.Command, args []string, opts *rootOptions, cfg *config.Config) error {
	if len(args) == 3 {
		n, err := strconv.Atoi(args[2])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid worker count %q", args[2])
		}
		cfg.Workers = n
	}

	f := cmd.Flags()
	if f.Changed("games") {
		cfg.Games = opts.games
	}
	if f.Changed("seed") {
		cfg.Seed = opts.seed
	}
	if f.Changed("turn-limit") {
		cfg.TurnLimit = opts.turnLimit
	}
	if f.Changed("listen") {
		cfg.Listen = opts.listen
	}
	if f.Changed("results-dir") {
		cfg.ResultsDir = opts.resultsDir
	}
	if f.Changed("sqlite") {
		cfg.SQLitePath = opts.sqlitePath
	}
	if f.Changed("postgres") {
		cfg.DatabaseURL = opts.postgres
	}
	if f.Changed("redis") {
		cfg.RedisURL = opts.redis
	}
	if f.Changed("diag-dir") {
		cfg.DiagDir = opts.diagDir
	}
	return nil
}

// checkExecutable rejects paths that do not name an executable regular file.
func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s couldn't be found", path)
		}
		return err
	}
	if !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s is not an executable file", path)
	}
	return nil
}

// openRecorders opens every configured result store. Closers are returned
// even on error so the caller can release what was opened.
func openRecorders(ctx context.Context, cfg *config.Config) ([]arena.Recorder, []io.Closer, error) {
	var (
		recorders []arena.Recorder
		closers   []io.Closer
	)

	file, err := results.NewFileRecorder(cfg.ResultsDir)
	if err != nil {
		return nil, closers, err
	}
	recorders = append(recorders, file)

	if cfg.SQLitePath != "" {
		s, err := results.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, s)
		recorders = append(recorders, s)
		log.Info().Str("path", cfg.SQLitePath).Msg("Recording to SQLite")
	}

	if cfg.DatabaseURL != "" {
		db, err := results.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, closers, fmt.Errorf("database: %w", err)
		}
		closers = append(closers, db)
		pg, err := results.NewPostgresRecorder(ctx, db)
		if err != nil {
			return nil, closers, err
		}
		recorders = append(recorders, pg)
		log.Info().Msg("Recording to PostgreSQL")
	}

	if cfg.RedisURL != "" {
		r, err := results.NewRedisRecorder(cfg.RedisURL)
		if err != nil {
			return nil, closers, fmt.Errorf("redis: %w", err)
		}
		closers = append(closers, r)
		recorders = append(recorders, r)
		log.Info().Msg("Mirroring standings to Redis")
	}

	return recorders, closers, nil
}

// logHistory logs the totals each store already holds for this pairing.
func logHistory(ctx context.Context, recorders []arena.Recorder, names [2]string) {
	for _, rec := range recorders {
		s, ok := rec.(summarizer)
		if !ok {
			continue
		}
		sum, err := s.Summary(ctx, names)
		if err != nil {
			log.Warn().Err(err).Type("store", rec).Msg("Failed to read previous results")
			continue
		}
		if sum.Games == 0 {
			continue
		}
		log.Info().
			Type("store", rec).
			Int("games", sum.Games).
			Ints("wins", sum.Wins[:]).
			Int("draws", sum.Draws).
			Msg("Previous results")
	}
}

func printSummary(w io.Writer, snap arena.Snapshot) {
	if snap.Games == 0 {
		fmt.Fprintln(w, "No matches completed")
		return
	}
	fmt.Fprintf(w, "Final: %s %d, %s %d, draws %d over %d matches\n",
		snap.Names[0], snap.Wins[0], snap.Names[1], snap.Wins[1], snap.Draws, snap.Games)
	fmt.Fprintln(w, arena.FormatProgress(snap))
}
