package allocation

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoCodeAvailable means the inventory holds no available entry for
	// the requested event/tier. Terminal; never retried.
	ErrNoCodeAvailable = errors.New("no code available")

	// ErrContended means every attempt lost the conditioned write to a
	// concurrent claimant. Transient, distinct from inventory exhaustion.
	ErrContended = errors.New("allocation contended")

	// ErrStoreUnavailable covers transport and timeout failures, including
	// the ambiguous put-timeout case where the write may have landed.
	ErrStoreUnavailable = errors.New("document store unavailable")

	// ErrInventoryCorrupt means the document did not parse. Operator
	// territory; callers must not echo it to users.
	ErrInventoryCorrupt = errors.New("inventory corrupt")
)
