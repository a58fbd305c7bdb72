package marketplace

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-process Store with the same conditional-update semantics
// as PgStore. Every operation holds a single mutex, so ClaimJob and PlaceBid
// are atomic.
type MemStore struct {
	mu        sync.Mutex
	jobs      map[string]*Job
	bids      map[string]map[string]Bid
	providers map[string]time.Time
	now       Clock
}

// NewMemStore returns an empty store. A nil clock defaults to time.Now.
func NewMemStore(now Clock) *MemStore {
	if now == nil {
		now = time.Now
	}
	return &MemStore{
		jobs:      make(map[string]*Job),
		bids:      make(map[string]map[string]Bid),
		providers: make(map[string]time.Time),
		now:       now,
	}
}

var _ Store = (*MemStore)(nil)

func cloneJob(j *Job) *Job {
	c := *j
	if j.Price != nil {
		p := *j.Price
		c.Price = &p
	}
	if j.ServiceProviderID != nil {
		id := *j.ServiceProviderID
		c.ServiceProviderID = &id
	}
	if j.ScheduledDateTime != nil {
		t := *j.ScheduledDateTime
		c.ScheduledDateTime = &t
	}
	return &c
}

func (m *MemStore) InsertJob(_ context.Context, j Job) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[j.ServiceID]; ok {
		return nil, fmt.Errorf("insert service: duplicate service_id %q", j.ServiceID)
	}
	if j.DateOfCreation.IsZero() {
		j.DateOfCreation = m.now().UTC()
	}
	m.jobs[j.ServiceID] = cloneJob(&j)
	return cloneJob(&j), nil
}

func (m *MemStore) GetJob(_ context.Context, jobID string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(j), nil
}

func (m *MemStore) ListCustomerJobs(_ context.Context, customerID string) ([]Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.collect(func(j *Job) bool { return j.CustomerID == customerID }), nil
}

func (m *MemStore) ListProviderJobs(_ context.Context, providerID string) ([]Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.collect(func(j *Job) bool {
		return j.Status.IsOpen() || j.IsAssignedTo(providerID)
	}), nil
}

// collect returns matching jobs newest first. Caller holds mu.
func (m *MemStore) collect(keep func(*Job) bool) []Job {
	out := make([]Job, 0)
	for _, j := range m.jobs {
		if keep(j) {
			out = append(out, *cloneJob(j))
		}
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].DateOfCreation.After(out[b].DateOfCreation)
	})
	return out
}

func (m *MemStore) ListBids(_ context.Context, jobID string) ([]Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Bid, 0, len(m.bids[jobID]))
	for _, b := range m.bids[jobID] {
		out = append(out, b)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

func (m *MemStore) CountBids(_ context.Context, jobIDs []string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[string]int, len(jobIDs))
	for _, id := range jobIDs {
		counts[id] = len(m.bids[id])
	}
	return counts, nil
}

func (m *MemStore) EnsureProvider(_ context.Context, providerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.providers[providerID]; !ok {
		m.providers[providerID] = m.now().UTC()
	}
	return nil
}

// HasProvider reports whether EnsureProvider created a profile for id.
func (m *MemStore) HasProvider(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.providers[id]
	return ok
}

func (m *MemStore) PlaceBid(_ context.Context, b Bid) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[b.ServiceID]
	if !ok {
		return false, ErrNotFound
	}
	if !j.Status.IsOpen() {
		return false, ErrNotOpen
	}
	m.putBid(b)
	if j.Status == StatusFindingPros {
		j.Status = StatusSelectServiceProvider
		return true, nil
	}
	return false, nil
}

func (m *MemStore) InsertBid(_ context.Context, b Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[b.ServiceID]; !ok {
		return ErrNotFound
	}
	m.putBid(b)
	return nil
}

// putBid replaces the provider's bid on the job. Caller holds mu.
func (m *MemStore) putBid(b Bid) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = m.now().UTC()
	}
	byProvider, ok := m.bids[b.ServiceID]
	if !ok {
		byProvider = make(map[string]Bid)
		m.bids[b.ServiceID] = byProvider
	}
	byProvider[b.ServiceProviderID] = b
}

func (m *MemStore) DeleteBid(_ context.Context, jobID, providerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byProvider := m.bids[jobID]
	if _, ok := byProvider[providerID]; !ok {
		return false, nil
	}
	delete(byProvider, providerID)
	return true, nil
}

func (m *MemStore) DeleteBids(_ context.Context, jobID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := int64(len(m.bids[jobID]))
	delete(m.bids, jobID)
	return n, nil
}

func (m *MemStore) ClaimJob(_ context.Context, jobID, providerID string, price float64) (*Job, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return nil, false, ErrNotFound
	}
	if !j.Status.IsOpen() || j.ServiceProviderID != nil {
		return cloneJob(j), false, nil
	}
	m.assign(j, providerID, price)
	return cloneJob(j), true, nil
}

func (m *MemStore) ConfirmJob(_ context.Context, customerID, jobID, providerID string, price float64) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok || j.CustomerID != customerID {
		return nil, ErrNotFound
	}
	if !j.Status.IsOpen() || j.ServiceProviderID != nil {
		return nil, ErrNotOpen
	}
	b, ok := m.bids[jobID][providerID]
	if !ok {
		return nil, errNoBid
	}
	if !sameCents(b.Bid, price) {
		return nil, errBidMismatch
	}
	m.assign(j, providerID, price)
	return cloneJob(j), nil
}

// sameCents compares amounts at the precision bids are stored with.
func sameCents(a, b float64) bool {
	return math.Round(a*100) == math.Round(b*100)
}

// assign moves j to confirmed. Caller holds mu.
func (m *MemStore) assign(j *Job, providerID string, price float64) {
	id, p := providerID, price
	j.ServiceProviderID = &id
	j.Price = &p
	j.Status = StatusConfirmed
}

func (m *MemStore) ReleaseJob(_ context.Context, jobID, providerID string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok || !j.IsAssignedTo(providerID) {
		return nil, ErrNotFound
	}
	if j.Status != StatusConfirmed {
		return nil, ErrNotOpen
	}
	j.ServiceProviderID = nil
	j.Status = StatusFindingPros
	return cloneJob(j), nil
}

func (m *MemStore) RevertIfNoBids(_ context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return false, ErrNotFound
	}
	if j.Status != StatusSelectServiceProvider || len(m.bids[jobID]) > 0 {
		return false, nil
	}
	j.Status = StatusFindingPros
	return true, nil
}

func (m *MemStore) AdvanceJob(_ context.Context, jobID, providerID string, from, to Status) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok || !j.IsAssignedTo(providerID) {
		return nil, ErrNotFound
	}
	if j.Status != from {
		return nil, ErrNotOpen
	}
	j.Status = to
	return cloneJob(j), nil
}
