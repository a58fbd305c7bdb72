package marketplace

import (
	"context"
	"time"
)

// Store is the shared relational store behind the service and
// service_fill_request tables. Implementations must make ClaimJob a single
// compare-and-swap and PlaceBid a single atomic step.
type Store interface {
	InsertJob(ctx context.Context, j Job) (*Job, error)
	GetJob(ctx context.Context, jobID string) (*Job, error)
	ListCustomerJobs(ctx context.Context, customerID string) ([]Job, error)
	// ListProviderJobs returns open jobs plus jobs assigned to providerID.
	ListProviderJobs(ctx context.Context, providerID string) ([]Job, error)
	ListBids(ctx context.Context, jobID string) ([]Bid, error)
	CountBids(ctx context.Context, jobIDs []string) (map[string]int, error)

	EnsureProvider(ctx context.Context, providerID string) error

	// PlaceBid replaces the provider's bid and flips the job to
	// select_service_provider when it was exactly finding_pros. Returns
	// ErrNotOpen when the job no longer accepts bids.
	PlaceBid(ctx context.Context, b Bid) (flipped bool, err error)
	// InsertBid replaces the provider's bid without touching the job.
	InsertBid(ctx context.Context, b Bid) error
	DeleteBid(ctx context.Context, jobID, providerID string) (bool, error)
	DeleteBids(ctx context.Context, jobID string) (int64, error)

	// ClaimJob assigns providerID only if the job is still open and
	// unassigned. won is false when another writer got there first.
	ClaimJob(ctx context.Context, jobID, providerID string, price float64) (job *Job, won bool, err error)
	// ConfirmJob assigns providerID at price only if that provider holds a
	// bid of that amount on the job. A missing or mismatched bid is a
	// *ValidationError.
	ConfirmJob(ctx context.Context, customerID, jobID, providerID string, price float64) (*Job, error)
	ReleaseJob(ctx context.Context, jobID, providerID string) (*Job, error)
	RevertIfNoBids(ctx context.Context, jobID string) (bool, error)
	AdvanceJob(ctx context.Context, jobID, providerID string, from, to Status) (*Job, error)
}

// Clock lets tests pin timestamps.
type Clock func() time.Time
