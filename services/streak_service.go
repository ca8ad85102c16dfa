package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"greenHabitAPI/internal/streak"
)

// StreakService is the single write path for streak state: it validates
// claims, appends to the completion ledger and advances the cached aggregate.
// Everything else in the system only reads its output.
type StreakService struct {
	repo   streak.Repository
	legacy streak.LegacyTaskSource

	// now is swapped out in tests to pin the server clock.
	now func() time.Time
}

func NewStreakService(repo streak.Repository, legacy streak.LegacyTaskSource) *StreakService {
	return &StreakService{
		repo:   repo,
		legacy: legacy,
		now:    time.Now,
	}
}

// Record validates and durably records one completion, then advances the
// streak. A store-rejected duplicate is not an error: the existing aggregate
// comes back with IsDuplicate set and nothing is mutated.
func (s *StreakService) Record(ctx context.Context, userID, localDateStr, timezoneID string, source streak.Source) (*streak.RecordResult, error) {
	serverUTC := s.now().UTC()

	if err := streak.Validate(localDateStr, timezoneID, serverUTC); err != nil {
		completionsRecorded.WithLabelValues(string(source), "rejected").Inc()
		return nil, err
	}

	localDate, err := streak.ParseLocalDate(localDateStr)
	if err != nil {
		// Unreachable after Validate, but the parse result is load-bearing.
		return nil, &streak.RejectionError{
			Reason:  streak.ReasonInvalidDateFormat,
			Message: fmt.Sprintf("invalid date format: %s", localDateStr),
		}
	}

	completion := &streak.Completion{
		ID:            uuid.New(),
		UserID:        userID,
		LocalDate:     localDate,
		RecordedAtUTC: serverUTC,
		TimezoneID:    timezoneID,
		Source:        source,
	}

	err = s.repo.InsertCompletion(ctx, completion)
	if errors.Is(err, streak.ErrDuplicateCompletion) {
		completionsRecorded.WithLabelValues(string(source), "duplicate").Inc()
		agg, aggErr := s.repo.GetAggregate(ctx, userID)
		if aggErr != nil && !errors.Is(aggErr, streak.ErrAggregateNotFound) {
			return nil, fmt.Errorf("failed to read streak after duplicate: %w", aggErr)
		}
		result := &streak.RecordResult{
			LastCompletedDate: &localDateStr,
			IsDuplicate:       true,
		}
		if agg != nil {
			result.CurrentStreak = agg.CurrentStreak
			result.LongestStreak = agg.LongestStreak
		}
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}

	result, err := s.advance(ctx, userID, localDate)
	if err != nil {
		return nil, err
	}
	completionsRecorded.WithLabelValues(string(source), "recorded").Inc()
	return result, nil
}

// advance moves the aggregate forward from one new completion date. The write
// is conditioned on the last-completed date we read; losing that race, or any
// out-of-order date, routes through full recalculation instead of retrying
// the increment from a stale read.
func (s *StreakService) advance(ctx context.Context, userID string, newDate time.Time) (*streak.RecordResult, error) {
	agg, err := s.repo.GetAggregate(ctx, userID)
	if errors.Is(err, streak.ErrAggregateNotFound) {
		first := &streak.Aggregate{
			UserID:            userID,
			CurrentStreak:     1,
			LongestStreak:     1,
			LastCompletedDate: &newDate,
		}
		if createErr := s.repo.CreateAggregate(ctx, first); createErr != nil {
			if errors.Is(createErr, streak.ErrStaleAggregate) {
				return s.recalculateAndStore(ctx, userID, "create_race")
			}
			return nil, fmt.Errorf("failed to create streak aggregate: %w", createErr)
		}
		return resultFrom(1, 1, &newDate, false), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read streak aggregate: %w", err)
	}

	var newStreak int
	if agg.LastCompletedDate == nil {
		newStreak = 1
	} else {
		switch daysDiff := streak.DaysBetween(*agg.LastCompletedDate, newDate); {
		case daysDiff == 1:
			newStreak = agg.CurrentStreak + 1
		case daysDiff == 0:
			// The unique index upstream makes this unreachable; keep the
			// no-op rather than trusting that.
			newStreak = agg.CurrentStreak
		case daysDiff < 0:
			// Backfill: insertion order and calendar order diverged, a
			// simple increment can no longer be trusted.
			return s.recalculateAndStore(ctx, userID, "backfill")
		default:
			newStreak = 1
		}
	}

	newLongest := agg.LongestStreak
	if newStreak > newLongest {
		newLongest = newStreak
	}

	updated := &streak.Aggregate{
		UserID:            userID,
		CurrentStreak:     newStreak,
		LongestStreak:     newLongest,
		LastCompletedDate: &newDate,
	}
	err = s.repo.UpdateAggregateIf(ctx, updated, agg.LastCompletedDate)
	if errors.Is(err, streak.ErrStaleAggregate) {
		return s.recalculateAndStore(ctx, userID, "cas_conflict")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update streak aggregate: %w", err)
	}

	return resultFrom(newStreak, newLongest, &newDate, false), nil
}

// Recalculate rebuilds the aggregate from the full ledger and stores it.
// Exposed for admin recalculation and integrity checks.
func (s *StreakService) Recalculate(ctx context.Context, userID string) (*streak.RecordResult, error) {
	return s.recalculateAndStore(ctx, userID, "manual")
}

func (s *StreakService) recalculateAndStore(ctx context.Context, userID, trigger string) (*streak.RecordResult, error) {
	dates, err := s.repo.ListCompletionDates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completions for recalculation: %w", err)
	}

	totals := streak.ComputeFromDates(dates, s.today())

	agg := &streak.Aggregate{
		UserID:            userID,
		CurrentStreak:     totals.CurrentStreak,
		LongestStreak:     totals.LongestStreak,
		LastCompletedDate: totals.LastCompletedDate,
	}
	if err := s.repo.SaveAggregate(ctx, agg); err != nil {
		return nil, fmt.Errorf("failed to store recalculated streak: %w", err)
	}

	streakRecalculations.WithLabelValues(trigger).Inc()
	return resultFrom(totals.CurrentStreak, totals.LongestStreak, totals.LastCompletedDate, false), nil
}

// GetStreak returns the cached aggregate; users with no completions yet get
// an all-zero result rather than an error.
func (s *StreakService) GetStreak(ctx context.Context, userID string) (*streak.RecordResult, error) {
	agg, err := s.repo.GetAggregate(ctx, userID)
	if errors.Is(err, streak.ErrAggregateNotFound) {
		return &streak.RecordResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}
	return resultFrom(agg.CurrentStreak, agg.LongestStreak, agg.LastCompletedDate, false), nil
}

// SyncBatch replays client-buffered offline completions through Record, one
// at a time. Items are sorted by claimed date first: chronological order is
// what keeps the incremental path off the full-recompute fallback. Oversized
// batches are rejected wholesale with nothing processed.
func (s *StreakService) SyncBatch(ctx context.Context, userID string, items []streak.SyncItem) (*streak.SyncResult, error) {
	if len(items) > streak.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d > %d", streak.ErrBatchTooLarge, len(items), streak.MaxBatchSize)
	}

	sorted := make([]streak.SyncItem, len(items))
	copy(sorted, items)
	// YYYY-MM-DD sorts chronologically as plain strings.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LocalDate < sorted[j].LocalDate
	})

	result := &streak.SyncResult{
		Results:        make([]streak.ItemResult, 0, len(sorted)),
		TotalProcessed: len(sorted),
	}
	var finalStreak *streak.RecordResult

	// Strictly sequential: processing in parallel would break the
	// chronological precondition we just established.
	for _, item := range sorted {
		taskID := item.TaskID
		if taskID == "" {
			taskID = "unknown"
		}
		if item.LocalDate == "" {
			result.Results = append(result.Results, streak.ItemResult{
				TaskID: taskID,
				Status: streak.StatusRejected,
				Error:  "missing local_date",
			})
			result.TotalRejected++
			continue
		}
		timezoneID := item.Timezone
		if timezoneID == "" {
			timezoneID = "UTC"
		}

		recorded, err := s.Record(ctx, userID, item.LocalDate, timezoneID, streak.SourceOfflineSync)
		if err != nil {
			if rej, ok := streak.AsRejection(err); ok {
				result.Results = append(result.Results, streak.ItemResult{
					TaskID: taskID,
					Status: streak.StatusRejected,
					Error:  rej.Message,
				})
			} else {
				log.Printf("SyncBatch: failed to record %s for user %s: %v", item.LocalDate, userID, err)
				result.Results = append(result.Results, streak.ItemResult{
					TaskID: taskID,
					Status: streak.StatusError,
					Error:  err.Error(),
				})
			}
			result.TotalRejected++
			continue
		}

		if recorded.IsDuplicate {
			result.Results = append(result.Results, streak.ItemResult{TaskID: taskID, Status: streak.StatusDuplicate})
			result.TotalDuplicate++
		} else {
			result.Results = append(result.Results, streak.ItemResult{TaskID: taskID, Status: streak.StatusRecorded})
			result.TotalNew++
		}
		finalStreak = recorded
	}

	if finalStreak == nil {
		// Every item failed; report the unchanged aggregate.
		agg, err := s.repo.GetAggregate(ctx, userID)
		if err != nil && !errors.Is(err, streak.ErrAggregateNotFound) {
			return nil, fmt.Errorf("failed to read streak after sync: %w", err)
		}
		finalStreak = &streak.RecordResult{IsDuplicate: true}
		if agg != nil {
			finalStreak = resultFrom(agg.CurrentStreak, agg.LongestStreak, agg.LastCompletedDate, true)
		}
	}
	result.FinalStreak = finalStreak

	return result, nil
}

// AuditUser recomputes one user's streak from the ledger and heals the stored
// aggregate when they disagree. Returns whether drift was found.
func (s *StreakService) AuditUser(ctx context.Context, userID string) (bool, error) {
	agg, err := s.repo.GetAggregate(ctx, userID)
	if errors.Is(err, streak.ErrAggregateNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read aggregate for audit: %w", err)
	}

	dates, err := s.repo.ListCompletionDates(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to list completions for audit: %w", err)
	}
	totals := streak.ComputeFromDates(dates, s.today())

	if totals.CurrentStreak == agg.CurrentStreak &&
		totals.LongestStreak <= agg.LongestStreak &&
		sameDate(totals.LastCompletedDate, agg.LastCompletedDate) {
		return false, nil
	}

	log.Printf("Streak audit: healing drift for user %s (stored %d/%d, computed %d/%d)",
		userID, agg.CurrentStreak, agg.LongestStreak, totals.CurrentStreak, totals.LongestStreak)

	heal := &streak.Aggregate{
		UserID:            userID,
		CurrentStreak:     totals.CurrentStreak,
		LongestStreak:     totals.LongestStreak,
		LastCompletedDate: totals.LastCompletedDate,
	}
	if err := s.repo.SaveAggregate(ctx, heal); err != nil {
		return true, fmt.Errorf("failed to heal aggregate: %w", err)
	}
	streakAuditDrift.Inc()
	streakRecalculations.WithLabelValues("audit").Inc()
	return true, nil
}

// AuditAll runs AuditUser over every stored aggregate and returns the number
// of healed users.
func (s *StreakService) AuditAll(ctx context.Context) (int, error) {
	ids, err := s.repo.ListAggregateUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users for audit: %w", err)
	}

	healed := 0
	for _, id := range ids {
		drifted, err := s.AuditUser(ctx, id)
		if err != nil {
			log.Printf("Streak audit: user %s failed: %v", id, err)
			continue
		}
		if drifted {
			healed++
		}
	}
	return healed, nil
}

// today is the server's UTC calendar day, used as the recompute reference.
func (s *StreakService) today() time.Time {
	return streak.CivilDate(s.now().UTC())
}

func resultFrom(current, longest int, last *time.Time, isDuplicate bool) *streak.RecordResult {
	result := &streak.RecordResult{
		CurrentStreak: current,
		LongestStreak: longest,
		IsDuplicate:   isDuplicate,
	}
	if last != nil {
		formatted := streak.FormatDate(*last)
		result.LastCompletedDate = &formatted
	}
	return result
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return streak.CivilDate(*a).Equal(streak.CivilDate(*b))
}
