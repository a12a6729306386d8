package filter

import "errors"

// Sentinel kinds for filter errors.
var (
	ErrUnsupportedDimension = errors.New("unsupported scope dimension")
	ErrInvalidScope         = errors.New("invalid scope")
)
