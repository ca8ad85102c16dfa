package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenHabitAPI/internal/streak"
	"greenHabitAPI/middleware"
	"greenHabitAPI/services"
)

// fakeRepo is just enough of streak.Repository for the handler paths under
// test. The engine itself is covered in the services package.
type fakeRepo struct {
	completions map[string]struct{}
	aggregate   *streak.Aggregate
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{completions: make(map[string]struct{})}
}

func (f *fakeRepo) InsertCompletion(_ context.Context, c *streak.Completion) error {
	key := c.UserID + "|" + streak.FormatDate(c.LocalDate)
	if _, ok := f.completions[key]; ok {
		return streak.ErrDuplicateCompletion
	}
	f.completions[key] = struct{}{}
	return nil
}

func (f *fakeRepo) GetAggregate(_ context.Context, _ string) (*streak.Aggregate, error) {
	if f.aggregate == nil {
		return nil, streak.ErrAggregateNotFound
	}
	out := *f.aggregate
	return &out, nil
}

func (f *fakeRepo) CreateAggregate(_ context.Context, agg *streak.Aggregate) error {
	if f.aggregate != nil {
		return streak.ErrStaleAggregate
	}
	cc := *agg
	f.aggregate = &cc
	return nil
}

func (f *fakeRepo) UpdateAggregateIf(_ context.Context, agg *streak.Aggregate, _ *time.Time) error {
	cc := *agg
	f.aggregate = &cc
	return nil
}

func (f *fakeRepo) SaveAggregate(_ context.Context, agg *streak.Aggregate) error {
	cc := *agg
	f.aggregate = &cc
	return nil
}

func (f *fakeRepo) ListCompletionDates(_ context.Context, _ string) ([]time.Time, error) {
	return nil, nil
}

func (f *fakeRepo) ListAggregateUserIDs(_ context.Context) ([]string, error) {
	return nil, nil
}

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.ClerkIDKey, "user_test")
	return req.WithContext(ctx)
}

func todayUTC() string {
	return time.Now().UTC().Format("2006-01-02")
}

func TestCompleteHabitRecordsAndReturnsStreak(t *testing.T) {
	handler := NewStreakHandler(services.NewStreakService(newFakeRepo(), nil))

	body, _ := json.Marshal(streak.CompleteRequest{LocalDate: todayUTC(), Timezone: "UTC"})
	rr := httptest.NewRecorder()
	handler.CompleteHabit(rr, authedRequest(http.MethodPost, "/api/v1/habits/complete", body))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var result streak.RecordResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, 1, result.CurrentStreak)
	assert.False(t, result.IsDuplicate)
}

func TestCompleteHabitRejectionMapsTo422(t *testing.T) {
	handler := NewStreakHandler(services.NewStreakService(newFakeRepo(), nil))

	future := time.Now().UTC().AddDate(0, 0, 5).Format("2006-01-02")
	body, _ := json.Marshal(streak.CompleteRequest{LocalDate: future, Timezone: "UTC"})
	rr := httptest.NewRecorder()
	handler.CompleteHabit(rr, authedRequest(http.MethodPost, "/api/v1/habits/complete", body))

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.Equal(t, string(streak.ReasonFutureDate), payload["reason"])
}

func TestCompleteHabitMissingFields(t *testing.T) {
	handler := NewStreakHandler(services.NewStreakService(newFakeRepo(), nil))

	body := []byte(`{"local_date": "` + todayUTC() + `"}`)
	rr := httptest.NewRecorder()
	handler.CompleteHabit(rr, authedRequest(http.MethodPost, "/api/v1/habits/complete", body))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCompleteHabitUnauthenticated(t *testing.T) {
	handler := NewStreakHandler(services.NewStreakService(newFakeRepo(), nil))

	body, _ := json.Marshal(streak.CompleteRequest{LocalDate: todayUTC(), Timezone: "UTC"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/habits/complete", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	handler.CompleteHabit(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSyncCompletionsBatchTooLarge(t *testing.T) {
	handler := NewStreakHandler(services.NewStreakService(newFakeRepo(), nil))

	items := make([]streak.SyncItem, streak.MaxBatchSize+1)
	for i := range items {
		items[i] = streak.SyncItem{TaskID: "t", LocalDate: todayUTC(), Timezone: "UTC"}
	}
	body, _ := json.Marshal(streak.SyncRequest{Completions: items})

	rr := httptest.NewRecorder()
	handler.SyncCompletions(rr, authedRequest(http.MethodPost, "/api/v1/habits/sync", body))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetStreakForNewUser(t *testing.T) {
	handler := NewStreakHandler(services.NewStreakService(newFakeRepo(), nil))

	rr := httptest.NewRecorder()
	handler.GetStreak(rr, authedRequest(http.MethodGet, "/api/v1/habits/streak", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var result streak.RecordResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, 0, result.CurrentStreak)
	assert.Equal(t, 0, result.LongestStreak)
}
