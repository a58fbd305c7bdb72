// Package poller watches a job snapshot on an interval and turns status
// edges into one-shot notices ("select a pro", "job completed").
package poller

import "sync"

// Session holds the per-signed-in-user memory of which notices were already
// shown. Reset it on sign-out.
type Session struct {
	mu        sync.Mutex
	prompted  map[string]struct{}
	completed map[string]struct{}
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{
		prompted:  make(map[string]struct{}),
		completed: make(map[string]struct{}),
	}
}

// Prompt records that jobID triggered the select-a-pro prompt. It returns
// false when the job already did so this session.
func (s *Session) Prompt(jobID string) bool {
	return s.mark(s.prompted, jobID)
}

// ViewCompleted records that the completion of jobID was shown. It returns
// false when it already was.
func (s *Session) ViewCompleted(jobID string) bool {
	return s.mark(s.completed, jobID)
}

// Prompted reports whether jobID already triggered the prompt.
func (s *Session) Prompted(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.prompted[jobID]
	return ok
}

func (s *Session) mark(set map[string]struct{}, jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := set[jobID]; ok {
		return false
	}
	set[jobID] = struct{}{}
	return true
}

// Reset forgets everything. Called on sign-out.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompted = make(map[string]struct{})
	s.completed = make(map[string]struct{})
}
