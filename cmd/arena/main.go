package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/freeeve/factory-arena/internal/logger"
)

func main() {
	logger.Init()

	root := rootCmd(&rootOptions{})
	root.AddCommand(tokenCmd(), diagCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds flag values; only flags the user set override the
// loaded configuration.
type rootOptions struct {
	configPath string
	games      int
	seed       int64
	turnLimit  int
	listen     string
	resultsDir string
	sqlitePath string
	postgres   string
	redis      string
	diagDir    string
}

func rootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arena AGENT_A AGENT_B [WORKERS]",
		Short: "Play two agent programs against each other until interrupted",
		Long: `Plays an open-ended series of matches between two agent executables and
prints running standings with the probability that AGENT_A is the stronger
program. Winners are appended to <A>_vs_<B>_Stats.txt.`,
		Args:         cobra.RangeArgs(2, 3),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArena(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	f.IntVar(&opts.games, "games", 0, "stop after this many matches (0 = until interrupted)")
	f.Int64Var(&opts.seed, "seed", 0, "base seed for reproducible runs (0 = random)")
	f.IntVar(&opts.turnLimit, "turn-limit", 0, "turns before a match is decided on unit totals")
	f.StringVar(&opts.listen, "listen", "", "address for the status server (e.g. :8080)")
	f.StringVar(&opts.resultsDir, "results-dir", "", "directory for the _Stats.txt result files")
	f.StringVar(&opts.sqlitePath, "sqlite", "", "record matches in this SQLite database")
	f.StringVar(&opts.postgres, "postgres", "", "record matches in this PostgreSQL database URL")
	f.StringVar(&opts.redis, "redis", "", "mirror standings to this Redis URL")
	f.StringVar(&opts.diagDir, "diag-dir", "", "write agent stderr to compressed logs in this directory")
	return cmd
}
