package credential

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("credential not found")

	// ErrNotConfigured means no token record exists for the identity;
	// an operator has to provision one out-of-band.
	ErrNotConfigured = errors.New("credential not configured")

	// ErrRefreshFailed means the refresh exchange did not yield a usable
	// token. The stale token is never returned in that case.
	ErrRefreshFailed = errors.New("token refresh failed")
)
