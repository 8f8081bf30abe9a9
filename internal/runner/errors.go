package runner

import "errors"

// Domain errors for run lifecycle operations.
var (
	// ErrAlreadyRunning indicates Run was called while another run on the same Runner is active.
	ErrAlreadyRunning = errors.New("runner: a run is already active")

	// ErrNilAlgorithm indicates Run was called without an algorithm function.
	ErrNilAlgorithm = errors.New("runner: algorithm function is nil")

	// errCancelled is the cooperative cancellation signal handed to the algorithm by its
	// snapshot function. Run converts it into the Cancelled outcome.
	errCancelled = errors.New("runner: run cancelled")
)
