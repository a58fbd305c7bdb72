// helpr-watch polls the matching API as one customer or provider and reports
// when a job needs a provider picked or a job completes.
//
//	helpr-watch -api http://localhost:8083 -user <uuid> -role customer
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/client"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/config"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/db"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/events"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/poller"
	"github.com/henrysimon4260/helpr-platform-sub000/pkg/logging"
	"github.com/henrysimon4260/helpr-platform-sub000/pkg/shutdown"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	defaultInterval, err := config.PollInterval()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var (
		api      = flag.String("api", envOr("HELPR_API_URL", "http://localhost:8083"), "matching API base URL")
		user     = flag.String("user", os.Getenv("HELPR_USER_ID"), "user id sent as x-user-id")
		role     = flag.String("role", envOr("HELPR_ROLE", "customer"), "customer or provider")
		interval = flag.Duration("interval", defaultInterval, "poll interval (POLL_INTERVAL_SECONDS)")
		redisURL = flag.String("redis", os.Getenv("REDIS_URL"), "publish notices to Redis when set")
		level    = flag.String("log-level", envOr("LOG_LEVEL", "info"), "log level")
	)
	flag.Parse()

	log := logging.New(*level).Named("helpr-watch")
	defer func() { _ = log.Sync() }()

	r, err := client.ParseRole(*role)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *interval < time.Second {
		fmt.Fprintln(os.Stderr, "interval must be at least 1s")
		os.Exit(2)
	}

	ctx, stop := shutdown.Wait(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := client.New(client.Config{BaseURL: *api, UserID: *user, Role: r})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	rdb, err := db.NewRedisClient(ctx, *redisURL)
	if err != nil {
		log.Error("redis unavailable", "err", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	w := poller.New(src, poller.NewTracker(poller.NewSession()),
		poller.Notifiers{
			poller.NewLogNotifier(log),
			poller.NewEventNotifier(events.New(rdb, log)),
		},
		poller.WithInterval(*interval),
		poller.WithLogger(log),
	)
	if err := w.Start(ctx); err != nil {
		log.Error("watch failed", "err", err)
		os.Exit(1)
	}
	log.Info("watching", "api", *api, "role", r, "interval", interval.String())

	<-ctx.Done()
	w.Stop()
	log.Info("stopped")
}
