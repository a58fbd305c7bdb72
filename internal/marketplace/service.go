package marketplace

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/henrysimon4260/helpr-platform-sub000/internal/events"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/geofence"
	"github.com/henrysimon4260/helpr-platform-sub000/internal/metrics"
	"github.com/henrysimon4260/helpr-platform-sub000/pkg/logging"
)

// ─── Types ───────────────────────────────────────────────────────────────────

// BidCancelPolicy decides what happens to a select_service_provider job whose
// last bid is withdrawn.
type BidCancelPolicy string

const (
	// PolicyKeep leaves the job in select_service_provider with zero bids.
	PolicyKeep BidCancelPolicy = "keep"
	// PolicyRevert moves it back to finding_pros.
	PolicyRevert BidCancelPolicy = "revert"
)

// ParseBidCancelPolicy accepts "keep" or "revert" in any case.
func ParseBidCancelPolicy(s string) (BidCancelPolicy, error) {
	switch p := BidCancelPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyKeep, PolicyRevert:
		return p, nil
	}
	return "", fmt.Errorf("unknown bid cancel policy %q", s)
}

// Outcome is the result of a bid submission. Losing an AutoFill race is an
// outcome, not an error.
type Outcome string

const (
	OutcomeBidPlaced     Outcome = "bid_placed"
	OutcomeClaimed       Outcome = "claimed"
	OutcomeAlreadyFilled Outcome = "already_filled"
)

// SubmitResult describes what SubmitBid did.
type SubmitResult struct {
	Outcome       Outcome `json:"outcome"`
	StatusFlipped bool    `json:"statusFlipped,omitempty"`
	Job           *Job    `json:"job,omitempty"`
}

// ─── Service ─────────────────────────────────────────────────────────────────

// Service encapsulates the matching workflow. It has no dependency on
// net/http or gRPC.
type Service struct {
	store   Store
	events  events.Publisher
	metrics *metrics.Metrics
	geo     *geofence.Validator
	log     *logging.Logger
	policy  BidCancelPolicy
	now     Clock
	newID   func() string
}

// Option configures Service.
type Option func(*Service)

// WithEvents sets the status-change publisher.
func WithEvents(p events.Publisher) Option { return func(s *Service) { s.events = p } }

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithGeofence enables the service-area check on new jobs.
func WithGeofence(v *geofence.Validator) Option { return func(s *Service) { s.geo = v } }

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option { return func(s *Service) { s.log = l } }

// WithBidCancelPolicy sets the last-bid-withdrawn policy.
func WithBidCancelPolicy(p BidCancelPolicy) Option { return func(s *Service) { s.policy = p } }

// WithClock sets a custom clock.
func WithClock(c Clock) Option { return func(s *Service) { s.now = c } }

// WithIDGenerator overrides UUID generation for new jobs.
func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

// NewService builds a Service over store.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("marketplace.Service: store is required")
	}
	s := &Service{
		store:  store,
		policy: PolicyKeep,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	if s.events == nil {
		s.events = events.NewLogPublisher(s.log)
	}
	if s.metrics == nil {
		s.metrics = metrics.Noop()
	}
	return s, nil
}

// ─── Jobs ────────────────────────────────────────────────────────────────────

var streetNumber = regexp.MustCompile(`^\s*\d+[A-Za-z]?(-\d+)?\s+\S`)

// CreateJob validates the payload and inserts a finding_pros job with no
// provider. Store failures are returned as-is; there is no retry.
func (s *Service) CreateJob(ctx context.Context, customerID string, in JobInput) (*Job, error) {
	if customerID == "" {
		return nil, invalid("customer id is required")
	}
	if err := s.validateJob(&in); err != nil {
		return nil, err
	}

	id := in.ServiceID
	if id == "" {
		id = s.newID()
	} else if _, err := uuid.Parse(id); err != nil {
		return nil, invalid("service_id must be a UUID")
	}

	job, err := s.store.InsertJob(ctx, Job{
		ServiceID:         id,
		CustomerID:        customerID,
		ServiceType:       strings.TrimSpace(in.ServiceType),
		Status:            StatusFindingPros,
		SchedulingType:    in.SchedulingType,
		ScheduledDateTime: in.ScheduledDateTime,
		DateOfCreation:    s.now().UTC(),
		Location:          strings.TrimSpace(in.Location),
		StartLocation:     strings.TrimSpace(in.StartLocation),
		Price:             in.Price,
		PaymentMethodType: in.PaymentMethodType,
		AutofillType:      in.AutofillType,
		Description:       AppendAnswers(in.Description, in.Answers),
	})
	if err != nil {
		s.log.Error("create service failed", "customerId", customerID, "err", err)
		return nil, fmt.Errorf("createJob: %w", err)
	}

	s.publish(ctx, events.TypeJobStatus, job, "", "", StatusFindingPros)
	return job, nil
}

func (s *Service) validateJob(in *JobInput) error {
	if strings.TrimSpace(in.Description) == "" {
		return invalid("please describe the task")
	}
	if strings.TrimSpace(in.Location) == "" {
		return invalid("an address is required")
	}
	if !streetNumber.MatchString(in.Location) {
		return invalid("please include a street number in the address")
	}
	if in.Price == nil || *in.Price <= 0 {
		return invalid("a price estimate is required before booking")
	}

	switch in.SchedulingType {
	case "":
		in.SchedulingType = SchedulingASAP
	case SchedulingASAP, SchedulingScheduled:
	default:
		return invalid(fmt.Sprintf("unknown scheduling_type %q", in.SchedulingType))
	}
	if in.SchedulingType == SchedulingScheduled {
		if in.ScheduledDateTime == nil {
			return invalid("scheduled jobs need a scheduled_date_time")
		}
		if !in.ScheduledDateTime.After(s.now()) {
			return invalid("scheduled_date_time must be in the future")
		}
	}

	switch in.AutofillType {
	case "":
		in.AutofillType = AutofillCustom
	case AutofillAuto, AutofillCustom:
	default:
		return invalid(fmt.Sprintf("unknown autofill_type %q", in.AutofillType))
	}

	if in.Coordinate != nil && s.geo != nil && !s.geo.IsWithinServiceArea(*in.Coordinate) {
		return invalid("sorry, Helpr is not available at this address yet")
	}
	return nil
}

// GetJob returns a job with its current bid count.
func (s *Service) GetJob(ctx context.Context, jobID string) (*JobView, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CountBids(ctx, []string{jobID})
	if err != nil {
		return nil, fmt.Errorf("getJob: %w", err)
	}
	v := newJobView(*job, counts[jobID])
	return &v, nil
}

// ListBids returns the bids on a job, oldest first.
func (s *Service) ListBids(ctx context.Context, jobID string) ([]Bid, error) {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.store.ListBids(ctx, jobID)
}

// CustomerSnapshot is what the customer's status screen polls: their own jobs
// and bid counts.
func (s *Service) CustomerSnapshot(ctx context.Context, customerID string) ([]JobView, error) {
	jobs, err := s.store.ListCustomerJobs(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.withCounts(ctx, jobs)
}

// ProviderSnapshot is what the provider's screen polls: every open job plus
// the jobs assigned to them.
func (s *Service) ProviderSnapshot(ctx context.Context, providerID string) ([]JobView, error) {
	jobs, err := s.store.ListProviderJobs(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return s.withCounts(ctx, jobs)
}

func (s *Service) withCounts(ctx context.Context, jobs []Job) ([]JobView, error) {
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ServiceID)
	}
	counts, err := s.store.CountBids(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, newJobView(j, counts[j.ServiceID]))
	}
	return views, nil
}

// ─── Bids ────────────────────────────────────────────────────────────────────

// SubmitBid records a provider's offer. Custom jobs get a bid and, on the
// first bid, the select_service_provider flip. AutoFill jobs are claimed on
// the spot: the first provider whose conditional update lands wins, everyone
// else gets OutcomeAlreadyFilled and their bid removed.
func (s *Service) SubmitBid(ctx context.Context, providerID, jobID string, amount float64, proposed *time.Time) (*SubmitResult, error) {
	if providerID == "" {
		return nil, invalid("provider id is required")
	}
	if amount <= 0 {
		return nil, invalid("bid must be greater than zero")
	}
	if err := s.store.EnsureProvider(ctx, providerID); err != nil {
		s.log.Error("ensure provider failed", "providerId", providerID, "err", err)
		return nil, fmt.Errorf("submitBid: %w", err)
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.IsOpen() {
		if job.AutofillType == AutofillAuto && job.ServiceProviderID != nil {
			s.metrics.AutoFillClaims.WithLabelValues("lost").Inc()
			return &SubmitResult{Outcome: OutcomeAlreadyFilled}, nil
		}
		return nil, ErrNotOpen
	}
	if job.SchedulingType == SchedulingASAP && proposed == nil {
		return nil, invalid("an arrival time is required for ASAP jobs")
	}

	bid := Bid{
		ServiceID:         jobID,
		ServiceProviderID: providerID,
		Bid:               amount,
		ProposedDateTime:  proposed,
		CreatedAt:         s.now().UTC(),
	}

	if job.AutofillType == AutofillAuto {
		return s.claim(ctx, job, bid)
	}

	flipped, err := s.store.PlaceBid(ctx, bid)
	if err != nil {
		s.log.Error("place bid failed", "serviceId", jobID, "providerId", providerID, "err", err)
		return nil, err
	}
	s.metrics.BidsPlaced.Inc()
	s.publish(ctx, events.TypeBidPlaced, job, providerID, "", "")
	if flipped {
		s.publish(ctx, events.TypeJobStatus, job, providerID, StatusFindingPros, StatusSelectServiceProvider)
	}
	return &SubmitResult{Outcome: OutcomeBidPlaced, StatusFlipped: flipped}, nil
}

// claim runs insert-bid → compare-and-swap → cleanup. There is no transaction
// across the steps; a losing bid is briefly visible to other readers.
func (s *Service) claim(ctx context.Context, job *Job, bid Bid) (*SubmitResult, error) {
	if err := s.store.InsertBid(ctx, bid); err != nil {
		s.log.Error("insert autofill bid failed", "serviceId", job.ServiceID, "providerId", bid.ServiceProviderID, "err", err)
		return nil, err
	}

	claimed, won, err := s.store.ClaimJob(ctx, job.ServiceID, bid.ServiceProviderID, bid.Bid)
	if err != nil {
		s.log.Error("autofill claim failed", "serviceId", job.ServiceID, "providerId", bid.ServiceProviderID, "err", err)
		s.dropBid(ctx, job.ServiceID, bid.ServiceProviderID)
		return nil, err
	}

	if !won {
		s.metrics.AutoFillClaims.WithLabelValues("lost").Inc()
		s.dropBid(ctx, job.ServiceID, bid.ServiceProviderID)
		s.log.Info("autofill claim lost", "serviceId", job.ServiceID, "providerId", bid.ServiceProviderID)
		return &SubmitResult{Outcome: OutcomeAlreadyFilled}, nil
	}

	s.metrics.AutoFillClaims.WithLabelValues("won").Inc()
	if _, err := s.store.DeleteBids(ctx, job.ServiceID); err != nil {
		s.log.Warn("purge bids after autofill claim failed", "serviceId", job.ServiceID, "err", err)
	}
	s.publish(ctx, events.TypeJobStatus, claimed, bid.ServiceProviderID, job.Status, StatusConfirmed)
	return &SubmitResult{Outcome: OutcomeClaimed, Job: claimed}, nil
}

func (s *Service) dropBid(ctx context.Context, jobID, providerID string) {
	if _, err := s.store.DeleteBid(ctx, jobID, providerID); err != nil {
		s.log.Warn("delete losing autofill bid failed", "serviceId", jobID, "providerId", providerID, "err", err)
	}
}

// CancelBid withdraws the provider's bid. Withdrawing a bid that does not
// exist is a no-op. Under PolicyRevert a select_service_provider job left
// without bids returns to finding_pros.
func (s *Service) CancelBid(ctx context.Context, providerID, jobID string) error {
	removed, err := s.store.DeleteBid(ctx, jobID, providerID)
	if err != nil {
		s.log.Error("cancel bid failed", "serviceId", jobID, "providerId", providerID, "err", err)
		return fmt.Errorf("cancelBid: %w", err)
	}
	if !removed {
		return nil
	}
	s.metrics.BidsCancelled.Inc()

	job := &Job{ServiceID: jobID}
	s.publish(ctx, events.TypeBidCancelled, job, providerID, "", "")

	if s.policy != PolicyRevert {
		return nil
	}
	reverted, err := s.store.RevertIfNoBids(ctx, jobID)
	if err != nil {
		s.log.Warn("revert after last bid cancelled failed", "serviceId", jobID, "err", err)
		return nil
	}
	if reverted {
		s.publish(ctx, events.TypeJobStatus, job, providerID, StatusSelectServiceProvider, StatusFindingPros)
	}
	return nil
}

// ─── Confirmation ────────────────────────────────────────────────────────────

// ConfirmProvider assigns providerID at acceptedBid and confirms the job,
// then purges every bid on it. The purge is best-effort: the job is already
// confirmed when it runs.
func (s *Service) ConfirmProvider(ctx context.Context, customerID, jobID, providerID string, acceptedBid float64) (*Job, error) {
	if providerID == "" {
		return nil, invalid("service_provider_id is required")
	}
	if acceptedBid <= 0 {
		return nil, invalid("accepted bid must be greater than zero")
	}

	job, err := s.store.ConfirmJob(ctx, customerID, jobID, providerID, acceptedBid)
	if err != nil {
		s.log.Warn("confirm provider failed", "serviceId", jobID, "providerId", providerID, "err", err)
		return nil, err
	}
	s.metrics.Confirmations.Inc()

	if _, err := s.store.DeleteBids(ctx, jobID); err != nil {
		s.log.Warn("purge bids after confirmation failed", "serviceId", jobID, "err", err)
	}

	s.publish(ctx, events.TypeJobStatus, job, providerID, "", StatusConfirmed)
	return job, nil
}

// CancelConfirmedJob is the assigned provider backing out: the job returns to
// finding_pros with no provider, then any lingering bid of theirs is removed.
// A rejected release leaves the provider's bids untouched.
func (s *Service) CancelConfirmedJob(ctx context.Context, providerID, jobID string) (*Job, error) {
	job, err := s.store.ReleaseJob(ctx, jobID, providerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.DeleteBid(ctx, jobID, providerID); err != nil {
		s.log.Warn("delete lingering bid failed", "serviceId", jobID, "providerId", providerID, "err", err)
	}
	s.publish(ctx, events.TypeJobStatus, job, providerID, StatusConfirmed, StatusFindingPros)
	return job, nil
}

// AdvanceJob moves an assigned job forward (helpr_otw, in_progress,
// completed).
func (s *Service) AdvanceJob(ctx context.Context, providerID, jobID, newStatus string) (*Job, error) {
	to, err := ParseStatus(newStatus)
	if err != nil {
		return nil, invalid(err.Error())
	}

	current, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !current.IsAssignedTo(providerID) {
		return nil, ErrNotFound
	}
	if !to.RequiresProvider() || !IsTransitionAllowed(current.Status, to) {
		return nil, invalid(fmt.Sprintf("transition %s → %s is not allowed", current.Status, to))
	}

	job, err := s.store.AdvanceJob(ctx, jobID, providerID, current.Status, to)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypeJobStatus, job, providerID, current.Status, to)
	return job, nil
}

func (s *Service) publish(ctx context.Context, typ string, job *Job, providerID string, from, to Status) {
	s.events.Publish(ctx, events.Event{
		Type:       typ,
		ServiceID:  job.ServiceID,
		CustomerID: job.CustomerID,
		ProviderID: providerID,
		From:       string(from),
		To:         string(to),
		At:         s.now().UTC(),
	})
}
