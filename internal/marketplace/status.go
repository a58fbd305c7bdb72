// Package marketplace holds the job/bid matching workflow.
//
// Job status graph:
//
//	finding_pros ──► select_service_provider ──► confirmed ──► helpr_otw ──► in_progress ──► completed
//	     │                     ▲  │                 ▲  │  │                                    ▲
//	     │                     └──┘ (revert)        │  │  └────────────────────────────────────┘
//	     └──────────── AutoFill claim ──────────────┘  └──► finding_pros (provider cancels)
//
// completed is terminal.
package marketplace

import (
	"fmt"
	"strings"
)

// Status mirrors the service.status column. Stored casing is inconsistent in
// practice, so every comparison goes through ParseStatus.
type Status string

const (
	StatusFindingPros           Status = "finding_pros"
	StatusSelectServiceProvider Status = "select_service_provider"
	StatusConfirmed             Status = "confirmed"
	StatusHelprOTW              Status = "helpr_otw"
	StatusInProgress            Status = "in_progress"
	StatusCompleted             Status = "completed"
)

// AllStatuses lists every status in workflow order.
var AllStatuses = []Status{
	StatusFindingPros,
	StatusSelectServiceProvider,
	StatusConfirmed,
	StatusHelprOTW,
	StatusInProgress,
	StatusCompleted,
}

var validTransitions = map[Status][]Status{
	StatusFindingPros:           {StatusSelectServiceProvider, StatusConfirmed},
	StatusSelectServiceProvider: {StatusConfirmed, StatusFindingPros},
	StatusConfirmed:             {StatusHelprOTW, StatusCompleted, StatusFindingPros},
	StatusHelprOTW:              {StatusInProgress},
	StatusInProgress:            {StatusCompleted},
	// completed is terminal
}

// ParseStatus normalizes case and surrounding whitespace and rejects unknown
// values.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusFindingPros, StatusSelectServiceProvider, StatusConfirmed,
		StatusHelprOTW, StatusInProgress, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown service status %q", s)
}

// Equal compares two raw status strings case-insensitively.
func Equal(a, b string) bool {
	pa, errA := ParseStatus(a)
	pb, errB := ParseStatus(b)
	return errA == nil && errB == nil && pa == pb
}

// IsTransitionAllowed returns true when moving from → to is an edge of the graph.
func IsTransitionAllowed(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RequiresProvider reports whether a job in this status must have an assigned
// provider. The converse also holds: open statuses must not have one.
func (s Status) RequiresProvider() bool {
	switch s {
	case StatusConfirmed, StatusHelprOTW, StatusInProgress, StatusCompleted:
		return true
	case StatusFindingPros, StatusSelectServiceProvider:
		return false
	}
	panic(fmt.Sprintf("marketplace: unhandled status %q", string(s)))
}

// IsOpen reports whether the job still accepts bids.
func (s Status) IsOpen() bool {
	switch s {
	case StatusFindingPros, StatusSelectServiceProvider:
		return true
	case StatusConfirmed, StatusHelprOTW, StatusInProgress, StatusCompleted:
		return false
	}
	panic(fmt.Sprintf("marketplace: unhandled status %q", string(s)))
}

// IsTerminal reports whether no further transitions exist.
func (s Status) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// BadgeText is the label shown on job cards.
func (s Status) BadgeText() string {
	switch s {
	case StatusFindingPros:
		return "Finding Pros"
	case StatusSelectServiceProvider:
		return "Select a Pro"
	case StatusConfirmed:
		return "Confirmed"
	case StatusHelprOTW:
		return "Pro On The Way"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	}
	panic(fmt.Sprintf("marketplace: unhandled status %q", string(s)))
}

// Action is a user-visible operation on a job.
type Action string

const (
	ActionViewBids       Action = "view_bids"
	ActionSelectPro      Action = "select_pro"
	ActionCancelJob      Action = "cancel_job"
	ActionRate           Action = "rate"
	ActionSubmitBid      Action = "submit_bid"
	ActionCancelBid      Action = "cancel_bid"
	ActionReleaseJob     Action = "release_job"
	ActionStartTravel    Action = "start_travel"
	ActionStartWork      Action = "start_work"
	ActionMarkComplete   Action = "mark_complete"
	ActionTrackProvider  Action = "track_provider"
	ActionContactSupport Action = "contact_support"
)

// CustomerActions lists what the job's owner may do in this status.
func (s Status) CustomerActions() []Action {
	switch s {
	case StatusFindingPros:
		return []Action{ActionViewBids, ActionCancelJob}
	case StatusSelectServiceProvider:
		return []Action{ActionViewBids, ActionSelectPro, ActionCancelJob}
	case StatusConfirmed:
		return []Action{ActionContactSupport}
	case StatusHelprOTW, StatusInProgress:
		return []Action{ActionTrackProvider, ActionContactSupport}
	case StatusCompleted:
		return []Action{ActionRate}
	}
	panic(fmt.Sprintf("marketplace: unhandled status %q", string(s)))
}

// ProviderActions lists what a provider may do. assigned is true when the
// provider is the job's service_provider_id.
func (s Status) ProviderActions(assigned bool) []Action {
	switch s {
	case StatusFindingPros, StatusSelectServiceProvider:
		return []Action{ActionSubmitBid, ActionCancelBid}
	case StatusConfirmed:
		if !assigned {
			return nil
		}
		return []Action{ActionStartTravel, ActionMarkComplete, ActionReleaseJob}
	case StatusHelprOTW:
		if !assigned {
			return nil
		}
		return []Action{ActionStartWork}
	case StatusInProgress:
		if !assigned {
			return nil
		}
		return []Action{ActionMarkComplete}
	case StatusCompleted:
		return nil
	}
	panic(fmt.Sprintf("marketplace: unhandled status %q", string(s)))
}

// ReadyToSelect reports whether the customer should be shown the "select a
// pro" state. A finding_pros job that already has bids counts: the status
// flip may lag behind the bid insert.
func ReadyToSelect(s Status, bidCount int) bool {
	switch s {
	case StatusSelectServiceProvider:
		return true
	case StatusFindingPros:
		return bidCount > 0
	}
	return false
}
