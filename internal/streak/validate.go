package streak

import (
	"fmt"
	"time"
)

// Validate runs the anti-cheat checks on a claimed completion. Pure: no side
// effects, the caller supplies the server's current UTC instant.
//
// The server projects its own clock into the claimed zone to form its belief
// of "today" for that user, then bounds how far the claimed date may deviate.
// This is a heuristic calendar-day bound: a single projection does not fully
// account for DST transitions or a user changing timezone mid-streak.
func Validate(localDateStr, timezoneID string, serverUTCNow time.Time) error {
	claimed, err := ParseLocalDate(localDateStr)
	if err != nil {
		return &RejectionError{
			Reason:  ReasonInvalidDateFormat,
			Message: fmt.Sprintf("invalid date format: %s", localDateStr),
		}
	}

	// time.LoadLocation("") silently means UTC, which would let clients omit
	// the zone and dodge the projection. Reject empty explicitly.
	if timezoneID == "" {
		return &RejectionError{
			Reason:  ReasonUnknownTimezone,
			Message: "missing timezone identifier",
		}
	}
	loc, err := time.LoadLocation(timezoneID)
	if err != nil {
		return &RejectionError{
			Reason:  ReasonUnknownTimezone,
			Message: fmt.Sprintf("unknown timezone: %s", timezoneID),
		}
	}

	serverLocalDay := CivilDate(serverUTCNow.In(loc))
	daysDiff := DaysBetween(serverLocalDay, claimed)

	if daysDiff > MaxFutureDays {
		return &RejectionError{
			Reason: ReasonFutureDate,
			Message: fmt.Sprintf("future date rejected: claimed %s, server sees %s in %s",
				localDateStr, FormatDate(serverLocalDay), timezoneID),
		}
	}
	if daysDiff < -MaxBackdateDays {
		return &RejectionError{
			Reason: ReasonBackdate,
			Message: fmt.Sprintf("backdate rejected: claimed %s, server sees %s in %s (max %d days back)",
				localDateStr, FormatDate(serverLocalDay), timezoneID, MaxBackdateDays),
		}
	}

	return nil
}
