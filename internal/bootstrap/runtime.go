// Package bootstrap turns a loaded Config into a running process.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"minisocial/internal/config"
	"minisocial/internal/middleware"
	"minisocial/internal/observability"
	"minisocial/internal/server"
)

const shutdownGrace = 10 * time.Second

// Tracing maps the tracing settings in cfg onto observability's config.
func Tracing(cfg *config.Config) observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName:    "minisocial-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	}
}

// Serve configures logging and tracing, connects every backing service and
// serves HTTP until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config) error {
	middleware.ConfigureLogger(cfg.Env, cfg.LogLevel)

	shutdownTracing, err := observability.InitTracing(Tracing(cfg))
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			middleware.Logger.Error("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	middleware.Logger.Info("Server starting",
		slog.String("port", cfg.Port),
		slog.String("env", cfg.Env),
	)
	return srv.Run(ctx, ":"+cfg.Port, shutdownGrace)
}
