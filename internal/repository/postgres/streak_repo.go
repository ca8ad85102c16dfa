package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"greenHabitAPI/internal/streak"
)

const pgUniqueViolation = "23505"

type StreakRepository struct {
	db *pgxpool.Pool
}

// NewStreakRepository returns the pgx-backed implementation of both
// streak.Repository and streak.LegacyTaskSource.
func NewStreakRepository(db *pgxpool.Pool) *StreakRepository {
	return &StreakRepository{db: db}
}

var _ streak.Repository = (*StreakRepository)(nil)
var _ streak.LegacyTaskSource = (*StreakRepository)(nil)

func (r *StreakRepository) InsertCompletion(ctx context.Context, c *streak.Completion) error {
	query := `
	INSERT INTO habit_completions (id, user_id, local_date, recorded_at_utc, timezone_identifier, source)
	VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		c.ID,
		c.UserID,
		c.LocalDate,
		c.RecordedAtUTC,
		c.TimezoneID,
		string(c.Source),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return streak.ErrDuplicateCompletion
		}
		return fmt.Errorf("failed to insert completion: %w", err)
	}
	return nil
}

func (r *StreakRepository) GetAggregate(ctx context.Context, userID string) (*streak.Aggregate, error) {
	query := `
	SELECT user_id, current_streak, longest_streak, last_completed_date, created_at, updated_at
	FROM streak_aggregates
	WHERE user_id = $1
	`

	agg := &streak.Aggregate{}
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&agg.UserID,
		&agg.CurrentStreak,
		&agg.LongestStreak,
		&agg.LastCompletedDate,
		&agg.CreatedAt,
		&agg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, streak.ErrAggregateNotFound
		}
		return nil, fmt.Errorf("failed to get streak aggregate: %w", err)
	}
	return agg, nil
}

func (r *StreakRepository) CreateAggregate(ctx context.Context, agg *streak.Aggregate) error {
	query := `
	INSERT INTO streak_aggregates (user_id, current_streak, longest_streak, last_completed_date)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (user_id) DO NOTHING
	`

	result, err := r.db.Exec(ctx, query,
		agg.UserID,
		agg.CurrentStreak,
		agg.LongestStreak,
		agg.LastCompletedDate,
	)
	if err != nil {
		return fmt.Errorf("failed to create streak aggregate: %w", err)
	}
	if result.RowsAffected() == 0 {
		// A concurrent first completion created the row between our read and
		// write. The caller falls back to full recalculation.
		return streak.ErrStaleAggregate
	}
	return nil
}

func (r *StreakRepository) UpdateAggregateIf(ctx context.Context, agg *streak.Aggregate, expectLast *time.Time) error {
	// IS NOT DISTINCT FROM makes the precondition hold for NULL last dates
	// too. Zero matched rows means the aggregate moved since we read it.
	query := `
	UPDATE streak_aggregates
	SET current_streak = $2,
		longest_streak = $3,
		last_completed_date = $4,
		updated_at = NOW()
	WHERE user_id = $1
		AND last_completed_date IS NOT DISTINCT FROM $5
	`

	result, err := r.db.Exec(ctx, query,
		agg.UserID,
		agg.CurrentStreak,
		agg.LongestStreak,
		agg.LastCompletedDate,
		expectLast,
	)
	if err != nil {
		return fmt.Errorf("failed to update streak aggregate: %w", err)
	}
	if result.RowsAffected() == 0 {
		return streak.ErrStaleAggregate
	}
	return nil
}

func (r *StreakRepository) SaveAggregate(ctx context.Context, agg *streak.Aggregate) error {
	// Recalculation is authoritative for current streak and last date, but
	// longest_streak must never decrease, even against a ledger missing
	// pre-migration history.
	query := `
	INSERT INTO streak_aggregates (user_id, current_streak, longest_streak, last_completed_date)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (user_id) DO UPDATE
	SET current_streak = EXCLUDED.current_streak,
		longest_streak = GREATEST(streak_aggregates.longest_streak, EXCLUDED.longest_streak),
		last_completed_date = EXCLUDED.last_completed_date,
		updated_at = NOW()
	`

	_, err := r.db.Exec(ctx, query,
		agg.UserID,
		agg.CurrentStreak,
		agg.LongestStreak,
		agg.LastCompletedDate,
	)
	if err != nil {
		return fmt.Errorf("failed to save streak aggregate: %w", err)
	}
	return nil
}

func (r *StreakRepository) ListCompletionDates(ctx context.Context, userID string) ([]time.Time, error) {
	query := `
	SELECT local_date
	FROM habit_completions
	WHERE user_id = $1
	ORDER BY local_date ASC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completion dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan completion date: %w", err)
		}
		dates = append(dates, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating completion dates: %w", err)
	}
	return dates, nil
}

func (r *StreakRepository) ListAggregateUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id FROM streak_aggregates ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list aggregate users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aggregate users: %w", err)
	}
	return ids, nil
}

// ListCompletedTaskDates reads legacy completed eco_tasks for the one-time
// migration into the completion ledger. Legacy rows were written without any
// ordering guarantee; insertion order (created_at) is the default replay
// order, date order is opt-in.
func (r *StreakRepository) ListCompletedTaskDates(ctx context.Context, userID string, orderByDate bool) ([]time.Time, error) {
	query := `
	SELECT date
	FROM eco_tasks
	WHERE user_id = $1 AND is_completed = TRUE
	ORDER BY created_at ASC
	`
	if orderByDate {
		query = `
	SELECT date
	FROM eco_tasks
	WHERE user_id = $1 AND is_completed = TRUE
	ORDER BY date ASC
	`
	}

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list legacy task dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan legacy task date: %w", err)
		}
		dates = append(dates, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating legacy task dates: %w", err)
	}
	return dates, nil
}
