package main

import (
	"fmt"

	"minisocial/internal/database"
	"minisocial/internal/middleware"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return database.MigrateUp(cfg)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		all, _ := cmd.Flags().GetBool("all")
		if !all && steps <= 0 {
			return fmt.Errorf("pass --steps N or --all")
		}
		if all {
			steps = 0
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := database.MigrateDown(cfg, steps); err != nil {
			return err
		}
		middleware.Logger.Info("Migrations rolled back", "steps", steps)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)

	migrateDownCmd.Flags().Int("steps", 1, "number of migrations to roll back")
	migrateDownCmd.Flags().Bool("all", false, "roll back every migration")
}
