package inventory

import "errors"

var (
	ErrCorrupt = errors.New("inventory document corrupt")
)
