package poller

import (
	"sync"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/marketplace"
)

// NoticeKind identifies a one-shot notice.
type NoticeKind string

const (
	// NoticeSelectPro fires when a job first gets a bid.
	NoticeSelectPro NoticeKind = "select_pro"
	// NoticeJobCompleted fires once when a job reaches completed.
	NoticeJobCompleted NoticeKind = "job_completed"
)

// Notice is emitted by Tracker.Observe.
type Notice struct {
	Kind NoticeKind
	Job  marketplace.JobView
}

// Tracker remembers the last observed status of every job in the snapshot
// and detects edges between consecutive observations.
type Tracker struct {
	session *Session

	mu   sync.Mutex
	last map[string]marketplace.Status
}

// NewTracker returns a tracker that records shown notices in session.
func NewTracker(session *Session) *Tracker {
	if session == nil {
		session = NewSession()
	}
	return &Tracker{session: session, last: make(map[string]marketplace.Status)}
}

// Session returns the tracker's session.
func (t *Tracker) Session() *Session { return t.session }

// Observe applies a fresh snapshot and returns the notices it triggers.
// Statuses are compared case-insensitively; unknown statuses are skipped.
// Jobs missing from the snapshot are forgotten.
func (t *Tracker) Observe(views []marketplace.JobView) []Notice {
	t.mu.Lock()
	defer t.mu.Unlock()

	var notices []Notice
	next := make(map[string]marketplace.Status, len(views))
	for _, v := range views {
		cur, err := marketplace.ParseStatus(string(v.Status))
		if err != nil {
			continue
		}
		v.Status = cur
		next[v.ServiceID] = cur
		prev, seen := t.last[v.ServiceID]

		if seen && prev == marketplace.StatusFindingPros && cur == marketplace.StatusSelectServiceProvider &&
			t.session.Prompt(v.ServiceID) {
			notices = append(notices, Notice{Kind: NoticeSelectPro, Job: v})
		}
		if cur == marketplace.StatusCompleted && t.session.ViewCompleted(v.ServiceID) {
			notices = append(notices, Notice{Kind: NoticeJobCompleted, Job: v})
		}
	}
	t.last = next
	return notices
}

// Reset clears the observed statuses and the session.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.last = make(map[string]marketplace.Status)
	t.mu.Unlock()
	t.session.Reset()
}
