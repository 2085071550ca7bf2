package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/freeeve/factory-arena/internal/auth"
	"github.com/freeeve/factory-arena/internal/config"
)

func tokenCmd() *cobra.Command {
	var (
		configPath string
		ttl        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token SPECTATOR",
		Short: "Mint a spectator token for the status server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			tok, err := auth.NewJWTManager(cfg.JWTSecret).GenerateToken(args[0], ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML configuration file")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")
	return cmd
}
