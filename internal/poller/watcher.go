package poller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/marketplace"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/metrics"
	"github.com/henrysimon4260/helpr-platform-sub000/pkg/logging"
)

// DefaultInterval is the poll period.
const DefaultInterval = 5 * time.Second

// Source returns the job set scoped to the current actor: a customer's own
// jobs, or every open job plus assignments for a provider.
type Source interface {
	Snapshot(ctx context.Context) ([]marketplace.JobView, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]marketplace.JobView, error)

func (f SourceFunc) Snapshot(ctx context.Context) ([]marketplace.JobView, error) { return f(ctx) }

// Watcher wraps robfig/cron and runs the refresh loop.
type Watcher struct {
	cron     *cron.Cron
	spec     string
	source   Source
	tracker  *Tracker
	notifier Notifier
	metrics  *metrics.Metrics
	log      *logging.Logger

	issued atomic.Uint64

	mu      sync.Mutex
	applied uint64
	latest  []marketplace.JobView
	running bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval overrides DefaultInterval. cron's @every has one second
// resolution.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) { w.spec = fmt.Sprintf("@every %s", d) }
}

// WithMetrics sets the poll-cycle counter.
func WithMetrics(m *metrics.Metrics) Option { return func(w *Watcher) { w.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option { return func(w *Watcher) { w.log = l } }

// New creates a Watcher that polls source and hands notices to notifier.
func New(source Source, tracker *Tracker, notifier Notifier, opts ...Option) *Watcher {
	w := &Watcher{
		spec:     fmt.Sprintf("@every %s", DefaultInterval),
		source:   source,
		tracker:  tracker,
		notifier: notifier,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.tracker == nil {
		w.tracker = NewTracker(nil)
	}
	if w.log == nil {
		w.log = logging.Nop()
	}
	if w.metrics == nil {
		w.metrics = metrics.Noop()
	}
	if w.notifier == nil {
		w.notifier = NewLogNotifier(w.log)
	}
	w.cron = cron.New(cron.WithLogger(cron.PrintfLogger(w.log)))
	return w
}

// Start registers the poll and starts the scheduler. It also refreshes once
// immediately so the first snapshot does not wait for a tick. Starting a
// running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if len(w.cron.Entries()) == 0 {
		if _, err := w.cron.AddFunc(w.spec, func() { _ = w.Refresh(ctx) }); err != nil {
			return fmt.Errorf("cron.AddFunc: %w", err)
		}
	}
	w.cron.Start()
	w.running = true
	w.log.Info("watcher started", "spec", w.spec)

	go func() { _ = w.Refresh(ctx) }()
	return nil
}

// Stop halts the schedule. Refreshes already in flight are not cancelled;
// their results are still applied unless a newer one landed first.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.cron.Stop()
	w.running = false
	w.log.Info("watcher stopped")
}

// Latest returns the most recently applied snapshot.
func (w *Watcher) Latest() []marketplace.JobView {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]marketplace.JobView, len(w.latest))
	copy(out, w.latest)
	return out
}

// Tracker returns the watcher's tracker.
func (w *Watcher) Tracker() *Tracker { return w.tracker }
