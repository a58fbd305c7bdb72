package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is the PostgreSQL Store. Status values are compared through
// lower(status) because historic rows were written with mixed casing.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a Store backed by pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

var _ Store = (*PgStore)(nil)

const jobColumns = `
	service_id, customer_id, service_type, status, scheduling_type,
	scheduled_date_time, date_of_creation, location, start_location,
	price::float8, payment_method_type, autofill_type, service_provider_id, description`

const openStatuses = `('finding_pros', 'select_service_provider')`

func scanJob(row pgx.Row) (*Job, error) {
	var (
		j                            Job
		status, scheduling, autofill string
	)
	if err := row.Scan(
		&j.ServiceID, &j.CustomerID, &j.ServiceType, &status, &scheduling,
		&j.ScheduledDateTime, &j.DateOfCreation, &j.Location, &j.StartLocation,
		&j.Price, &j.PaymentMethodType, &autofill, &j.ServiceProviderID, &j.Description,
	); err != nil {
		return nil, err
	}
	st, err := ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", j.ServiceID, err)
	}
	j.Status = st
	j.SchedulingType = SchedulingType(scheduling)
	j.AutofillType = AutofillType(autofill)
	return &j, nil
}

func (s *PgStore) queryJobs(ctx context.Context, query string, args ...any) ([]Job, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list services query: %w", err)
	}
	defer rows.Close()

	jobs := make([]Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("list services scan: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func (s *PgStore) InsertJob(ctx context.Context, j Job) (*Job, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO service (
		   service_id, customer_id, service_type, status, scheduling_type,
		   scheduled_date_time, location, start_location, price,
		   payment_method_type, autofill_type, service_provider_id, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULL, $12)
		 RETURNING`+jobColumns,
		j.ServiceID, j.CustomerID, j.ServiceType, string(j.Status), string(j.SchedulingType),
		j.ScheduledDateTime, j.Location, j.StartLocation, j.Price,
		j.PaymentMethodType, string(j.AutofillType), j.Description,
	)
	out, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("insert service: %w", err)
	}
	return out, nil
}

func (s *PgStore) GetJob(ctx context.Context, jobID string) (*Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT`+jobColumns+` FROM service WHERE service_id = $1`, jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	return j, nil
}

func (s *PgStore) ListCustomerJobs(ctx context.Context, customerID string) ([]Job, error) {
	return s.queryJobs(ctx,
		`SELECT`+jobColumns+` FROM service
		 WHERE customer_id = $1
		 ORDER BY date_of_creation DESC`, customerID)
}

func (s *PgStore) ListProviderJobs(ctx context.Context, providerID string) ([]Job, error) {
	return s.queryJobs(ctx,
		`SELECT`+jobColumns+` FROM service
		 WHERE lower(status) IN `+openStatuses+` OR service_provider_id = $1
		 ORDER BY date_of_creation DESC`, providerID)
}

func (s *PgStore) ListBids(ctx context.Context, jobID string) ([]Bid, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT service_id, service_provider_id, bid::float8, proposed_date_time, created_at
		 FROM service_fill_request
		 WHERE service_id = $1
		 ORDER BY created_at`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list fill requests query: %w", err)
	}
	defer rows.Close()

	bids := make([]Bid, 0)
	for rows.Next() {
		var b Bid
		if err := rows.Scan(&b.ServiceID, &b.ServiceProviderID, &b.Bid, &b.ProposedDateTime, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("list fill requests scan: %w", err)
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func (s *PgStore) CountBids(ctx context.Context, jobIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(jobIDs))
	if len(jobIDs) == 0 {
		return counts, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT service_id, count(*)
		 FROM service_fill_request
		 WHERE service_id = ANY($1)
		 GROUP BY service_id`, jobIDs)
	if err != nil {
		return nil, fmt.Errorf("count fill requests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("count fill requests scan: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (s *PgStore) EnsureProvider(ctx context.Context, providerID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO service_provider (service_provider_id)
		 VALUES ($1)
		 ON CONFLICT (service_provider_id) DO NOTHING`, providerID)
	if err != nil {
		return fmt.Errorf("ensure service provider: %w", err)
	}
	return nil
}

// PlaceBid locks the service row so concurrent bids on the same job are
// serialized, then replaces the bid and flips the status in one transaction.
func (s *PgStore) PlaceBid(ctx context.Context, b Bid) (bool, error) {
	var flipped bool
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx,
			`SELECT status FROM service WHERE service_id = $1 FOR UPDATE`, b.ServiceID,
		).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		st, err := ParseStatus(status)
		if err != nil {
			return err
		}
		if !st.IsOpen() {
			return ErrNotOpen
		}

		if err := replaceBid(ctx, tx, b); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`UPDATE service SET status = 'select_service_provider'
			 WHERE service_id = $1 AND lower(status) = 'finding_pros'`, b.ServiceID)
		if err != nil {
			return fmt.Errorf("flip status: %w", err)
		}
		flipped = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotOpen) {
			return false, err
		}
		return false, fmt.Errorf("place fill request: %w", err)
	}
	return flipped, nil
}

// InsertBid takes the same service row lock as PlaceBid so two submits by
// one provider cannot interleave their delete and insert.
func (s *PgStore) InsertBid(ctx context.Context, b Bid) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockService(ctx, tx, b.ServiceID); err != nil {
			return err
		}
		return replaceBid(ctx, tx, b)
	})
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("insert fill request: %w", err)
	}
	return nil
}

func lockService(ctx context.Context, tx pgx.Tx, jobID string) error {
	var id string
	err := tx.QueryRow(ctx,
		`SELECT service_id FROM service WHERE service_id = $1 FOR UPDATE`, jobID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// replaceBid is the delete-then-insert that keeps one bid per provider.
func replaceBid(ctx context.Context, tx pgx.Tx, b Bid) error {
	if _, err := tx.Exec(ctx,
		`DELETE FROM service_fill_request WHERE service_id = $1 AND service_provider_id = $2`,
		b.ServiceID, b.ServiceProviderID,
	); err != nil {
		return fmt.Errorf("delete previous fill request: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO service_fill_request (service_id, service_provider_id, bid, proposed_date_time)
		 VALUES ($1, $2, $3, $4)`,
		b.ServiceID, b.ServiceProviderID, b.Bid, b.ProposedDateTime,
	); err != nil {
		return fmt.Errorf("insert fill request: %w", err)
	}
	return nil
}

func (s *PgStore) DeleteBid(ctx context.Context, jobID, providerID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM service_fill_request WHERE service_id = $1 AND service_provider_id = $2`,
		jobID, providerID)
	if err != nil {
		return false, fmt.Errorf("delete fill request: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PgStore) DeleteBids(ctx context.Context, jobID string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM service_fill_request WHERE service_id = $1`, jobID)
	if err != nil {
		return 0, fmt.Errorf("delete fill requests: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ClaimJob is the AutoFill compare-and-swap: one UPDATE guarded on status and
// a null provider. Whoever's UPDATE returns a row won.
func (s *PgStore) ClaimJob(ctx context.Context, jobID, providerID string, price float64) (*Job, bool, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`UPDATE service
		 SET service_provider_id = $2, status = 'confirmed', price = $3
		 WHERE service_id = $1
		   AND lower(status) IN `+openStatuses+`
		   AND service_provider_id IS NULL
		 RETURNING`+jobColumns,
		jobID, providerID, price))
	if err == nil {
		return j, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("claim service: %w", err)
	}
	current, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (s *PgStore) ConfirmJob(ctx context.Context, customerID, jobID, providerID string, price float64) (*Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`UPDATE service
		 SET service_provider_id = $3, status = 'confirmed', price = $4
		 WHERE service_id = $1 AND customer_id = $2
		   AND lower(status) IN `+openStatuses+`
		   AND service_provider_id IS NULL
		   AND EXISTS (
		     SELECT 1 FROM service_fill_request f
		     WHERE f.service_id = $1 AND f.service_provider_id = $3
		       AND f.bid = round($4::numeric, 2)
		   )
		 RETURNING`+jobColumns,
		jobID, customerID, providerID, price))
	if err == nil {
		return j, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("confirm service: %w", err)
	}
	current, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if current.CustomerID != customerID {
		return nil, ErrNotFound
	}
	if !current.Status.IsOpen() || current.ServiceProviderID != nil {
		return nil, ErrNotOpen
	}

	var bid float64
	err = s.pool.QueryRow(ctx,
		`SELECT bid FROM service_fill_request
		 WHERE service_id = $1 AND service_provider_id = $2
		 LIMIT 1`, jobID, providerID).Scan(&bid)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errNoBid
	}
	if err != nil {
		return nil, fmt.Errorf("confirm service: %w", err)
	}
	return nil, errBidMismatch
}

func (s *PgStore) ReleaseJob(ctx context.Context, jobID, providerID string) (*Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`UPDATE service
		 SET service_provider_id = NULL, status = 'finding_pros'
		 WHERE service_id = $1 AND service_provider_id = $2 AND lower(status) = 'confirmed'
		 RETURNING`+jobColumns,
		jobID, providerID))
	if err == nil {
		return j, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("release service: %w", err)
	}
	return nil, s.missOrClosed(ctx, jobID, providerID)
}

func (s *PgStore) RevertIfNoBids(ctx context.Context, jobID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE service SET status = 'finding_pros'
		 WHERE service_id = $1
		   AND lower(status) = 'select_service_provider'
		   AND NOT EXISTS (SELECT 1 FROM service_fill_request WHERE service_id = $1)`,
		jobID)
	if err != nil {
		return false, fmt.Errorf("revert service status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PgStore) AdvanceJob(ctx context.Context, jobID, providerID string, from, to Status) (*Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`UPDATE service SET status = $4
		 WHERE service_id = $1 AND service_provider_id = $2 AND lower(status) = $3
		 RETURNING`+jobColumns,
		jobID, providerID, string(from), string(to)))
	if err == nil {
		return j, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("advance service: %w", err)
	}
	return nil, s.missOrClosed(ctx, jobID, providerID)
}

// missOrClosed explains why a provider-scoped conditional update matched
// nothing.
func (s *PgStore) missOrClosed(ctx context.Context, jobID, providerID string) error {
	current, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !current.IsAssignedTo(providerID) {
		return ErrNotFound
	}
	return ErrNotOpen
}
