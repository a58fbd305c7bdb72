package poller

import (
	"context"
	"fmt"
)

// Refresh runs one poll cycle: fetch the snapshot, apply it unless a newer
// cycle already did, and deliver the resulting notices. Cycles may overlap;
// each takes a sequence number when it starts and a response older than the
// last applied one is dropped.
func (w *Watcher) Refresh(ctx context.Context) error {
	seq := w.issued.Add(1)

	views, err := w.source.Snapshot(ctx)
	if err != nil {
		w.metrics.PollCycles.WithLabelValues("error").Inc()
		w.log.Warn("poll failed", "seq", seq, "err", err)
		return fmt.Errorf("snapshot: %w", err)
	}

	w.mu.Lock()
	if applied := w.applied; seq < applied {
		w.mu.Unlock()
		w.metrics.PollCycles.WithLabelValues("stale").Inc()
		w.log.Debug("dropping stale poll response", "seq", seq, "applied", applied)
		return nil
	}
	w.applied = seq
	w.latest = views
	notices := w.tracker.Observe(views)
	w.mu.Unlock()

	w.metrics.PollCycles.WithLabelValues("ok").Inc()
	for _, n := range notices {
		w.notifier.Notify(ctx, n)
	}
	return nil
}
