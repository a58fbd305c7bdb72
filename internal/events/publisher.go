// Package events publishes job status changes for the gateway's live views.
// Publishing is best-effort: failures are logged and never returned.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/henrysimon4260/helpr-platform-sub000/pkg/logging"
)

// Event types, also used as Redis channel names.
const (
	TypeJobStatus    = "EVENT_JOB_STATUS"
	TypeBidPlaced    = "EVENT_BID_PLACED"
	TypeBidCancelled = "EVENT_BID_CANCELLED"
	TypeSelectPro    = "EVENT_SELECT_PRO"
	TypeJobCompleted = "EVENT_JOB_COMPLETED"
)

// Event is the JSON payload on every channel.
type Event struct {
	Type       string    `json:"type"`
	ServiceID  string    `json:"serviceId"`
	CustomerID string    `json:"customerId,omitempty"`
	ProviderID string    `json:"providerId,omitempty"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// RedisPublisher publishes to a Redis channel named after the event type.
type RedisPublisher struct {
	rdb *redis.Client
	log *logging.Logger
}

// NewRedisPublisher returns a publisher on rdb.
func NewRedisPublisher(rdb *redis.Client, log *logging.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, log: log}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		p.log.Warn("marshal event failed", "type", e.Type, "err", err)
		return
	}
	if err := p.rdb.Publish(ctx, e.Type, payload).Err(); err != nil {
		p.log.Warn("publish event failed", "type", e.Type, "serviceId", e.ServiceID, "err", err)
	}
}

// LogPublisher writes events to the log. Used when REDIS_URL is unset.
type LogPublisher struct {
	log *logging.Logger
}

// NewLogPublisher returns a publisher that only logs.
func NewLogPublisher(log *logging.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) {
	p.log.Info("event", "type", e.Type, "serviceId", e.ServiceID,
		"customerId", e.CustomerID, "providerId", e.ProviderID, "from", e.From, "to", e.To)
}

// New picks the Redis publisher when a client is available.
func New(rdb *redis.Client, log *logging.Logger) Publisher {
	if rdb == nil {
		return NewLogPublisher(log)
	}
	return NewRedisPublisher(rdb, log)
}

// Recorder keeps published events in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	evs := r.Events()
	out := make([]string, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.Type)
	}
	return out
}
