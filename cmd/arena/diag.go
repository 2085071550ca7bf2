package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/freeeve/factory-arena/internal/diag"
)

func diagCmd() *cobra.Command {
	var matchID string
	cmd := &cobra.Command{
		Use:   "diag FILE...",
		Short: "Print agent diagnostics from compressed log files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, path := range args {
				entries, err := diag.ReadFile(path)
				if err != nil {
					return err
				}
				for _, e := range entries {
					if matchID != "" && e.MatchID != matchID {
						continue
					}
					text := strings.TrimRight(e.Text, "\n")
					fmt.Fprintf(out, "%s %s turn=%d agent=%d\n%s\n",
						e.Time.Format("15:04:05.000"), e.MatchID, e.Turn, e.Agent, text)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&matchID, "match", "", "only show entries of this match id")
	return cmd
}
