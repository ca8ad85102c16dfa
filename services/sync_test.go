package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenHabitAPI/internal/streak"
)

func TestSyncBatchOutOfOrderItems(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, "2026-02-16")

	items := []streak.SyncItem{
		{TaskID: "t3", LocalDate: "2026-02-16", Timezone: "UTC"},
		{TaskID: "t1", LocalDate: "2026-02-14", Timezone: "UTC"},
		{TaskID: "t2", LocalDate: "2026-02-15", Timezone: "UTC"},
	}

	result, err := svc.SyncBatch(context.Background(), testUser, items)
	require.NoError(t, err)

	// Same final state as recording 14, 15, 16 in order.
	assert.Equal(t, 3, result.FinalStreak.CurrentStreak)
	assert.Equal(t, 3, result.FinalStreak.LongestStreak)
	assert.Equal(t, 3, result.TotalNew)
	assert.Equal(t, 0, result.TotalDuplicate)
	assert.Equal(t, 0, result.TotalRejected)
	assert.Equal(t, 3, result.TotalProcessed)

	// Items were replayed chronologically regardless of arrival order.
	require.Len(t, result.Results, 3)
	assert.Equal(t, "t1", result.Results[0].TaskID)
	assert.Equal(t, "t2", result.Results[1].TaskID)
	assert.Equal(t, "t3", result.Results[2].TaskID)
	for _, item := range result.Results {
		assert.Equal(t, streak.StatusRecorded, item.Status)
	}
}

func TestSyncBatchTooLargeRejectedWholesale(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, "2026-02-16")

	items := make([]streak.SyncItem, streak.MaxBatchSize+1)
	for i := range items {
		items[i] = streak.SyncItem{
			TaskID:    fmt.Sprintf("t%d", i),
			LocalDate: "2026-02-16",
			Timezone:  "UTC",
		}
	}

	_, err := svc.SyncBatch(context.Background(), testUser, items)
	require.ErrorIs(t, err, streak.ErrBatchTooLarge)

	// Nothing was recorded: zero completions, zero duplicates.
	assert.Equal(t, 0, repo.completionCount(testUser))
}

func TestSyncBatchMixedOutcomes(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, "2026-02-16")
	ctx := context.Background()

	// The 15th is already on the ledger from an online completion.
	_, err := svc.Record(ctx, testUser, "2026-02-15", "UTC", streak.SourceOnline)
	require.NoError(t, err)

	items := []streak.SyncItem{
		{TaskID: "dup", LocalDate: "2026-02-15", Timezone: "UTC"},
		{TaskID: "new", LocalDate: "2026-02-16", Timezone: "UTC"},
		{TaskID: "nodate"},
		{TaskID: "cheat", LocalDate: "2026-02-19", Timezone: "UTC"},
	}

	result, err := svc.SyncBatch(ctx, testUser, items)
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalNew)
	assert.Equal(t, 1, result.TotalDuplicate)
	assert.Equal(t, 2, result.TotalRejected)
	assert.Equal(t, 4, result.TotalProcessed)

	statuses := make(map[string]streak.ItemStatus, len(result.Results))
	for _, item := range result.Results {
		statuses[item.TaskID] = item.Status
	}
	assert.Equal(t, streak.StatusDuplicate, statuses["dup"])
	assert.Equal(t, streak.StatusRecorded, statuses["new"])
	assert.Equal(t, streak.StatusRejected, statuses["nodate"])
	assert.Equal(t, streak.StatusRejected, statuses["cheat"])

	assert.Equal(t, 2, result.FinalStreak.CurrentStreak)
	assert.Equal(t, 2, result.FinalStreak.LongestStreak)
}

func TestSyncBatchAllFailedReturnsUnchangedAggregate(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, "2026-02-16")
	ctx := context.Background()

	_, err := svc.Record(ctx, testUser, "2026-02-16", "UTC", streak.SourceOnline)
	require.NoError(t, err)

	items := []streak.SyncItem{
		{TaskID: "a", LocalDate: "2026-02-25", Timezone: "UTC"},
		{TaskID: "b"},
	}

	result, err := svc.SyncBatch(ctx, testUser, items)
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalNew)
	assert.Equal(t, 2, result.TotalRejected)
	require.NotNil(t, result.FinalStreak)
	assert.Equal(t, 1, result.FinalStreak.CurrentStreak)
	assert.Equal(t, 1, result.FinalStreak.LongestStreak)
}

func TestSyncBatchEmptyTimezoneDefaultsToUTC(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, "2026-02-16")

	result, err := svc.SyncBatch(context.Background(), testUser, []streak.SyncItem{
		{TaskID: "t1", LocalDate: "2026-02-16"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalNew)
}
