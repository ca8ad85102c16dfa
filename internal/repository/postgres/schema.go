package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureStreakSchema creates the streak tables and indexes. Call once at
// startup. The unique index on (user_id, local_date) is the store-level
// duplicate guard the whole engine leans on.
func EnsureStreakSchema(ctx context.Context, db *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS habit_completions (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			local_date DATE NOT NULL,
			recorded_at_utc TIMESTAMPTZ NOT NULL,
			timezone_identifier TEXT NOT NULL,
			source TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS unique_user_date
			ON habit_completions (user_id, local_date)`,
		`CREATE INDEX IF NOT EXISTS user_date_desc
			ON habit_completions (user_id, local_date DESC)`,
		`CREATE TABLE IF NOT EXISTS streak_aggregates (
			user_id TEXT PRIMARY KEY,
			current_streak INT NOT NULL DEFAULT 0,
			longest_streak INT NOT NULL DEFAULT 0,
			last_completed_date DATE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure streak schema: %w", err)
		}
	}
	return nil
}
