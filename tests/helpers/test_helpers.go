package helpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SetupTestDB creates a test database connection. Tests calling this are
// skipped when no database is configured.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or DATABASE_URL must be set for integration tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	return pool
}

// CleanupTestDB removes rows created by integration tests and closes the pool.
func CleanupTestDB(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	for _, table := range []string{"habit_completions", "streak_aggregates"} {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table+" WHERE user_id LIKE 'test_%'"); err != nil {
			t.Logf("Warning: failed to cleanup %s: %v", table, err)
		}
	}
	pool.Close()
}

// TestUserID returns a user ID unique to this test run.
func TestUserID() string {
	return fmt.Sprintf("test_%d", time.Now().UnixNano())
}
