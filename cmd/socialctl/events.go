package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"minisocial/internal/cache"
	"minisocial/internal/events"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the domain event stream",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print events from the configured broker until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		backend, name, err := events.NewBackend(ctx, cfg, cache.InitRedis(cfg.RedisURL))
		if err != nil {
			return err
		}
		defer func() { _ = backend.Close() }()
		if name == "none" {
			return fmt.Errorf("no events backend configured (EVENTS_BACKEND=%q)", cfg.EventsBackend)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "tailing %s on %s\n", cfg.EventsTopic, name)
		err = backend.Subscribe(ctx, cfg.EventsTopic, func(_ context.Context, msg events.Message) error {
			_, werr := fmt.Fprintln(out, string(msg.Data))
			return werr
		})
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
