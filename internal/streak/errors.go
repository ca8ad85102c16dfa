package streak

import "errors"

// RejectReason codes surfaced to clients for anti-cheat rejections. All are
// non-retryable: resubmitting the same claim will fail the same way.
type RejectReason string

const (
	ReasonInvalidDateFormat RejectReason = "invalid_date_format"
	ReasonUnknownTimezone   RejectReason = "unknown_timezone"
	ReasonFutureDate        RejectReason = "future_date_rejected"
	ReasonBackdate          RejectReason = "backdate_rejected"
)

// RejectionError is returned when a completion claim fails validation.
type RejectionError struct {
	Reason  RejectReason
	Message string
}

func (e *RejectionError) Error() string {
	return e.Message
}

func AsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

var (
	// ErrDuplicateCompletion: the (userID, localDate) pair already exists.
	// Not a failure — the recorder turns it into an idempotent result.
	ErrDuplicateCompletion = errors.New("completion already recorded for this date")

	ErrAggregateNotFound = errors.New("streak aggregate not found")

	// ErrStaleAggregate: a conditional aggregate write lost the race. The
	// caller must re-derive state via full recalculation, never retry the
	// increment from its stale read.
	ErrStaleAggregate = errors.New("streak aggregate changed since read")

	ErrBatchTooLarge = errors.New("sync batch exceeds maximum size")

	ErrNoLegacySource = errors.New("no legacy task source configured")
)
