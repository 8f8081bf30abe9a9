package render

import "errors"

// Configuration errors, reported at construction time.
var (
	// ErrInvalidFrameSkip indicates a non-positive throttle cadence.
	ErrInvalidFrameSkip = errors.New("render: frame skip must be positive")

	// ErrInvalidFPS indicates a non-positive clock rate.
	ErrInvalidFPS = errors.New("render: fps must be positive")

	// ErrInvalidSize indicates a surface with non-positive dimensions.
	ErrInvalidSize = errors.New("render: surface size must be positive")
)
