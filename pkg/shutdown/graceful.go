// Package shutdown blocks on OS signals and stops a server within a deadline.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/henrysimon4260/helpr-platform-sub000/pkg/logging"
)

// Stoppable is anything with an http.Server-style Shutdown.
type Stoppable interface {
	Shutdown(ctx context.Context) error
}

// Wait returns a context cancelled on the first of signals.
func Wait(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// Graceful stops every Stoppable in order once ctx is done, giving the whole
// sequence timeout to finish.
func Graceful(ctx context.Context, timeout time.Duration, log *logging.Logger, targets ...Stoppable) {
	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, s := range targets {
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Warn("graceful shutdown completed with error", "err", err)
		}
	}
	log.Info("graceful shutdown completed")
}
