// helpr-matching
//
// Job lifecycle and provider matching for the Helpr marketplace.
// Serves the REST API under /jobs plus the estimate, places and
// service-area tools, and the same job operations over gRPC.
//
// Publishes job status and bid events to Redis when REDIS_URL is set.
package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/app"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/config"
	"github.com/henrysimon4260/helpr-platform-sub000/pkg/logging"
	"github.com/henrysimon4260/helpr-platform-sub000/pkg/shutdown"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[helpr-matching] config error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel).Named("helpr-matching")
	defer func() { _ = log.Sync() }()

	ctx, stop := shutdown.Wait(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := app.InitializeApp(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	log.Info("starting", "version", version, "store", cfg.StoreBackend)
	if err := a.Run(ctx); err != nil {
		log.Error("server error", "err", err)
		cleanup()
		os.Exit(1)
	}
	log.Info("stopped")
}
