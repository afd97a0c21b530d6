package main

import (
	"minisocial/internal/config"
	"minisocial/internal/middleware"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "socialctl",
	Short: "Operate a minisocial deployment",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true
		return nil
	},
}

// loadConfig reads configuration and points the logger at its level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	middleware.ConfigureLogger(cfg.Env, cfg.LogLevel)
	return cfg, nil
}
