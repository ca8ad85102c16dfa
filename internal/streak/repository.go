package streak

import (
	"context"
	"time"
)

// Repository is the durable store behind the streak engine. The postgres
// implementation lives in internal/repository/postgres; tests use an
// in-memory fake.
type Repository interface {
	// InsertCompletion appends one ledger entry. Returns
	// ErrDuplicateCompletion when the (UserID, LocalDate) unique constraint
	// rejects the row.
	InsertCompletion(ctx context.Context, c *Completion) error

	// GetAggregate returns ErrAggregateNotFound for users with no streak yet.
	GetAggregate(ctx context.Context, userID string) (*Aggregate, error)

	// CreateAggregate inserts a first-ever aggregate. Returns
	// ErrStaleAggregate if one already exists (a concurrent first completion
	// won the creation race).
	CreateAggregate(ctx context.Context, agg *Aggregate) error

	// UpdateAggregateIf writes agg only if the stored LastCompletedDate still
	// equals expectLast (the optimistic-concurrency precondition). Returns
	// ErrStaleAggregate when the condition fails.
	UpdateAggregateIf(ctx context.Context, agg *Aggregate, expectLast *time.Time) error

	// SaveAggregate is the authoritative upsert used by full recalculation.
	// Current streak and last date are overwritten unconditionally; longest
	// streak never decreases.
	SaveAggregate(ctx context.Context, agg *Aggregate) error

	// ListCompletionDates returns every completion date for the user in
	// ascending order.
	ListCompletionDates(ctx context.Context, userID string) ([]time.Time, error)

	// ListAggregateUserIDs returns every user with a stored aggregate, for
	// the consistency audit.
	ListAggregateUserIDs(ctx context.Context) ([]string, error)
}

// LegacyTaskSource reads "task marked done on date X" records from before the
// completion ledger existed, for one-time backfill. Dates come back in legacy
// insertion order unless orderByDate is set; duplicates are allowed and
// resolved by the migration's first-date-wins dedupe.
type LegacyTaskSource interface {
	ListCompletedTaskDates(ctx context.Context, userID string, orderByDate bool) ([]time.Time, error)
}
