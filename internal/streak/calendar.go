package streak

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// ParseLocalDate parses a strict YYYY-MM-DD calendar date into a UTC-midnight
// time.Time, the canonical in-memory form for all streak math.
func ParseLocalDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return CivilDate(t), nil
}

func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// CivilDate strips the clock and zone, leaving the calendar day at UTC
// midnight. Dates from different sources (parsed strings, pgx DATE scans,
// zone projections) must pass through here before being compared.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns to - from in whole calendar days. Both arguments are
// normalized first, so the division is exact and DST-free.
func DaysBetween(from, to time.Time) int {
	return int(CivilDate(to).Sub(CivilDate(from)).Hours() / 24)
}
