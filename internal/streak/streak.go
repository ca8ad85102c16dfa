package streak

import (
	"time"

	"github.com/google/uuid"
)

// Anti-cheat and sync bounds. A client clock can only move the ledger
// within [-MaxBackdateDays, +MaxFutureDays] of the server's view of the
// user's local calendar day.
const (
	MaxFutureDays   = 1
	MaxBackdateDays = 7
	MaxBatchSize    = 30
)

type Source string

const (
	SourceOnline      Source = "online"
	SourceOfflineSync Source = "offline_sync"
	SourceMigration   Source = "migration"
)

// Completion is one append-only ledger entry: the user completed their habit
// on LocalDate. LocalDate is the authoritative field for all streak math;
// RecordedAtUTC is audit only. At most one row exists per (UserID, LocalDate),
// enforced by a unique index in the store.
type Completion struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	LocalDate     time.Time `json:"local_date" db:"local_date"`
	RecordedAtUTC time.Time `json:"recorded_at_utc" db:"recorded_at_utc"`
	TimezoneID    string    `json:"timezone_identifier" db:"timezone_identifier"`
	Source        Source    `json:"source" db:"source"`
}

// Aggregate is the per-user cached streak state. It is always reconcilable:
// recomputing from the full completion ledger must converge with it.
type Aggregate struct {
	UserID            string     `json:"user_id" db:"user_id"`
	CurrentStreak     int        `json:"current_streak" db:"current_streak"`
	LongestStreak     int        `json:"longest_streak" db:"longest_streak"`
	LastCompletedDate *time.Time `json:"last_completed_date" db:"last_completed_date"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

type RecordResult struct {
	CurrentStreak     int     `json:"current_streak"`
	LongestStreak     int     `json:"longest_streak"`
	LastCompletedDate *string `json:"last_completed_date"`
	IsDuplicate       bool    `json:"is_duplicate"`
}

type CompleteRequest struct {
	LocalDate string `json:"local_date" validate:"required"`
	Timezone  string `json:"timezone" validate:"required"`
}

// SyncItem is one client-buffered offline completion. CompletedAt is the
// original client timestamp, kept for audit only.
type SyncItem struct {
	TaskID      string `json:"task_id"`
	LocalDate   string `json:"local_date"`
	Timezone    string `json:"timezone"`
	CompletedAt string `json:"completed_at,omitempty"`
}

type SyncRequest struct {
	Completions []SyncItem `json:"completions" validate:"required"`
}

type ItemStatus string

const (
	StatusRecorded  ItemStatus = "recorded"
	StatusDuplicate ItemStatus = "duplicate"
	StatusRejected  ItemStatus = "rejected"
	StatusError     ItemStatus = "error"
)

type ItemResult struct {
	TaskID string     `json:"task_id"`
	Status ItemStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
}

type SyncResult struct {
	FinalStreak    *RecordResult `json:"final_streak"`
	Results        []ItemResult  `json:"results"`
	TotalProcessed int           `json:"total_processed"`
	TotalNew       int           `json:"total_new"`
	TotalDuplicate int           `json:"total_duplicate"`
	TotalRejected  int           `json:"total_rejected"`
}

type MigrateRequest struct {
	OrderByDate bool `json:"order_by_date"`
}

type MigrateResult struct {
	Migrated int `json:"migrated"`
}
