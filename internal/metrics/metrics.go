// Package metrics defines the Prometheus collectors for the matching workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service's collectors. Use New with a registry so tests
// can build isolated instances.
type Metrics struct {
	BidsPlaced     prometheus.Counter
	BidsCancelled  prometheus.Counter
	AutoFillClaims *prometheus.CounterVec
	Confirmations  prometheus.Counter
	PollCycles     *prometheus.CounterVec
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BidsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "helpr",
			Name:      "fill_requests_placed_total",
			Help:      "Bids inserted on custom jobs.",
		}),
		BidsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "helpr",
			Name:      "fill_requests_cancelled_total",
			Help:      "Bids withdrawn by providers.",
		}),
		AutoFillClaims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpr",
			Name:      "autofill_claims_total",
			Help:      "AutoFill claim attempts by result (won, lost).",
		}, []string{"result"}),
		Confirmations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "helpr",
			Name:      "confirmations_total",
			Help:      "Jobs confirmed by customer selection.",
		}),
		PollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpr",
			Name:      "poll_cycles_total",
			Help:      "Status poll cycles by result (ok, error, stale).",
		}, []string{"result"}),
	}
	reg.MustRegister(m.BidsPlaced, m.BidsCancelled, m.AutoFillClaims, m.Confirmations, m.PollCycles)
	return m
}

// Noop returns collectors registered on a throwaway registry.
func Noop() *Metrics {
	return New(prometheus.NewRegistry())
}
