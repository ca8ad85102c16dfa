package streak

import (
	"sort"
	"time"
)

// Totals is the output of a full recalculation.
type Totals struct {
	CurrentStreak     int
	LongestStreak     int
	LastCompletedDate *time.Time
}

// ComputeFromDates derives {current, longest} from the complete set of a
// user's completion dates. It is the ground truth the incremental path heals
// into: deterministic, order-independent, correct by construction.
//
// today decides whether the run ending at the most recent date still counts
// as the current streak (broken once the gap exceeds one day).
func ComputeFromDates(dates []time.Time, today time.Time) Totals {
	if len(dates) == 0 {
		return Totals{}
	}

	// Dedupe and sort ascending. The unique index should guarantee both, but
	// migration and test inputs may not come from the index.
	seen := make(map[time.Time]struct{}, len(dates))
	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := CivilDate(d)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest := 1
	run := 1
	for i := 1; i < len(days); i++ {
		if DaysBetween(days[i-1], days[i]) == 1 {
			run++
		} else {
			if run > longest {
				longest = run
			}
			run = 1
		}
	}
	if run > longest {
		longest = run
	}

	mostRecent := days[len(days)-1]
	current := 0
	if DaysBetween(mostRecent, CivilDate(today)) <= 1 {
		current = 1
		for i := len(days) - 2; i >= 0; i-- {
			if DaysBetween(days[i], days[i+1]) != 1 {
				break
			}
			current++
		}
	}

	last := mostRecent
	return Totals{
		CurrentStreak:     current,
		LongestStreak:     longest,
		LastCompletedDate: &last,
	}
}
