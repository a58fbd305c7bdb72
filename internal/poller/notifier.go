package poller

import (
	"context"
	"sync"
	"time"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/events"
	"github.com/henrysimon4260/helpr-platform-sub000/pkg/logging"
)

// Notifier delivers notices. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// LogNotifier writes notices to the log.
type LogNotifier struct {
	log *logging.Logger
}

// NewLogNotifier returns a notifier that only logs.
func NewLogNotifier(log *logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(_ context.Context, n Notice) {
	switch n.Kind {
	case NoticeSelectPro:
		l.log.Info("a pro has offered to take your job, select one", "serviceId", n.Job.ServiceID, "bids", n.Job.BidCount)
	case NoticeJobCompleted:
		l.log.Info("job completed", "serviceId", n.Job.ServiceID)
	}
}

// EventNotifier forwards notices to an events.Publisher so the gateway can
// push them to the device.
type EventNotifier struct {
	pub events.Publisher
}

// NewEventNotifier wraps pub.
func NewEventNotifier(pub events.Publisher) *EventNotifier {
	return &EventNotifier{pub: pub}
}

func (e *EventNotifier) Notify(ctx context.Context, n Notice) {
	typ := events.TypeSelectPro
	if n.Kind == NoticeJobCompleted {
		typ = events.TypeJobCompleted
	}
	var provider string
	if n.Job.ServiceProviderID != nil {
		provider = *n.Job.ServiceProviderID
	}
	e.pub.Publish(ctx, events.Event{
		Type:       typ,
		ServiceID:  n.Job.ServiceID,
		CustomerID: n.Job.CustomerID,
		ProviderID: provider,
		To:         string(n.Job.Status),
		At:         time.Now().UTC(),
	})
}

// Notifiers fans a notice out to every notifier in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, n Notice) {
	for _, x := range ns {
		x.Notify(ctx, n)
	}
}

// Collector keeps notices in memory. Safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	notices []Notice
}

func (c *Collector) Notify(_ context.Context, n Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
}

// Notices returns a copy of everything collected so far.
func (c *Collector) Notices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}
