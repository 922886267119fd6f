// Command server runs the HTTP API and the scrape scheduler.
//
// Configuration is read from CONFIG_PATH (or ./config.yaml) with
// environment variable overrides. The process stops cleanly on SIGINT
// or SIGTERM.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/bloxpulse/backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
