package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"greenHabitAPI/internal/streak"
)

// MigrationOptions controls the one-time legacy backfill. The legacy task
// table carries no ordering guarantee; with OrderByDate unset the replay
// keeps legacy insertion order and the first row seen for a date wins,
// matching the historical backfill behavior. OrderByDate replays oldest
// calendar day first instead.
type MigrationOptions struct {
	OrderByDate bool
}

// MigrateLegacy backfills the completion ledger from legacy "task done on
// date X" records: dedupe by date, insert with source=migration, silently
// skip dates already in the ledger, then one full recalculation if anything
// landed. Returns the number of completions migrated.
func (s *StreakService) MigrateLegacy(ctx context.Context, userID string, opts MigrationOptions) (int, error) {
	if s.legacy == nil {
		return 0, streak.ErrNoLegacySource
	}

	dates, err := s.legacy.ListCompletedTaskDates(ctx, userID, opts.OrderByDate)
	if err != nil {
		return 0, fmt.Errorf("failed to read legacy completions: %w", err)
	}

	seen := make(map[time.Time]struct{}, len(dates))
	migrated := 0
	skipped := 0

	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		day := streak.CivilDate(d)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}

		completion := &streak.Completion{
			ID:            uuid.New(),
			UserID:        userID,
			LocalDate:     day,
			RecordedAtUTC: s.now().UTC(),
			TimezoneID:    "UTC", // legacy rows never stored a zone
			Source:        streak.SourceMigration,
		}
		err := s.repo.InsertCompletion(ctx, completion)
		if errors.Is(err, streak.ErrDuplicateCompletion) {
			skipped++
			continue
		}
		if err != nil {
			return migrated, fmt.Errorf("failed to migrate completion for %s: %w", streak.FormatDate(day), err)
		}
		migrated++
	}

	if migrated > 0 {
		if _, err := s.recalculateAndStore(ctx, userID, "migration"); err != nil {
			return migrated, err
		}
		log.Printf("Migrated %d completions for user %s (%d already present)", migrated, userID, skipped)
	}

	return migrated, nil
}
