package split

import "errors"

var (
	// ErrInvalidDocument indicates the source document is nil or empty.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidThreshold indicates a non-positive size threshold.
	ErrInvalidThreshold = errors.New("size threshold must be positive")
)
