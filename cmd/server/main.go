// Command server runs the minisocial HTTP API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"minisocial/internal/bootstrap"
	"minisocial/internal/config"
)

// @title minisocial API
// @version 1.0
// @description Users, follows, posts with likes and comments, and a chronological feed.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.Serve(ctx, cfg); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
