package eligibility

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("user not found")

	// ErrSubscriptionNotFound maps to the user-visible "no active
	// subscription" outcome.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrAlreadyRecorded means the event key was already in the user's
	// issued set; RecordIssued never appends duplicates.
	ErrAlreadyRecorded = errors.New("event already recorded for user")
)
