package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := ParseLocalDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func days(ss ...string) []time.Time {
	out := make([]time.Time, len(ss))
	for i, s := range ss {
		out[i] = day(s)
	}
	return out
}

func TestComputeFromDatesEmpty(t *testing.T) {
	totals := ComputeFromDates(nil, day("2026-02-16"))
	assert.Equal(t, 0, totals.CurrentStreak)
	assert.Equal(t, 0, totals.LongestStreak)
	assert.Nil(t, totals.LastCompletedDate)
}

func TestComputeFromDatesConsecutiveRun(t *testing.T) {
	// N consecutive days ending today: current == longest == N.
	totals := ComputeFromDates(days("2026-02-12", "2026-02-13", "2026-02-14", "2026-02-15", "2026-02-16"), day("2026-02-16"))
	assert.Equal(t, 5, totals.CurrentStreak)
	assert.Equal(t, 5, totals.LongestStreak)
	require.NotNil(t, totals.LastCompletedDate)
	assert.Equal(t, "2026-02-16", FormatDate(*totals.LastCompletedDate))
}

func TestComputeFromDatesScenario(t *testing.T) {
	// 13,14,15 seen from the 15th: current=3, longest=3.
	totals := ComputeFromDates(days("2026-02-13", "2026-02-14", "2026-02-15"), day("2026-02-15"))
	assert.Equal(t, 3, totals.CurrentStreak)
	assert.Equal(t, 3, totals.LongestStreak)

	// Then a completion on the 20th: current resets to 1, longest stays 3.
	totals = ComputeFromDates(days("2026-02-13", "2026-02-14", "2026-02-15", "2026-02-20"), day("2026-02-20"))
	assert.Equal(t, 1, totals.CurrentStreak)
	assert.Equal(t, 3, totals.LongestStreak)
	assert.Equal(t, "2026-02-20", FormatDate(*totals.LastCompletedDate))
}

func TestComputeFromDatesBrokenStreak(t *testing.T) {
	// Most recent completion is more than a day old: current is 0 but the
	// historical longest run survives.
	totals := ComputeFromDates(days("2026-02-10", "2026-02-11", "2026-02-12"), day("2026-02-16"))
	assert.Equal(t, 0, totals.CurrentStreak)
	assert.Equal(t, 3, totals.LongestStreak)
	assert.Equal(t, "2026-02-12", FormatDate(*totals.LastCompletedDate))
}

func TestComputeFromDatesYesterdayStillCounts(t *testing.T) {
	totals := ComputeFromDates(days("2026-02-14", "2026-02-15"), day("2026-02-16"))
	assert.Equal(t, 2, totals.CurrentStreak)
	assert.Equal(t, 2, totals.LongestStreak)
}

func TestComputeFromDatesLongestIsMaxRun(t *testing.T) {
	// Two runs: 4 days then 2 days; the old run is the longest.
	totals := ComputeFromDates(
		days("2026-02-01", "2026-02-02", "2026-02-03", "2026-02-04", "2026-02-15", "2026-02-16"),
		day("2026-02-16"),
	)
	assert.Equal(t, 2, totals.CurrentStreak)
	assert.Equal(t, 4, totals.LongestStreak)
}

func TestComputeFromDatesUnsortedWithDuplicates(t *testing.T) {
	// Input order and duplicates must not matter.
	scrambled := days("2026-02-15", "2026-02-13", "2026-02-14", "2026-02-15", "2026-02-13")
	totals := ComputeFromDates(scrambled, day("2026-02-15"))
	assert.Equal(t, 3, totals.CurrentStreak)
	assert.Equal(t, 3, totals.LongestStreak)
}

func TestComputeFromDatesSingleDay(t *testing.T) {
	totals := ComputeFromDates(days("2026-02-16"), day("2026-02-16"))
	assert.Equal(t, 1, totals.CurrentStreak)
	assert.Equal(t, 1, totals.LongestStreak)
}

func TestComputeFromDatesInvariant(t *testing.T) {
	// current <= longest over a spread of shapes.
	cases := [][]string{
		{"2026-02-16"},
		{"2026-02-01", "2026-02-16"},
		{"2026-02-01", "2026-02-02", "2026-02-03"},
		{"2026-02-10", "2026-02-12", "2026-02-14", "2026-02-15", "2026-02-16"},
	}
	for _, c := range cases {
		totals := ComputeFromDates(days(c...), day("2026-02-16"))
		assert.LessOrEqual(t, totals.CurrentStreak, totals.LongestStreak, "dates %v", c)
	}
}
