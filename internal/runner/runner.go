// Package runner drives a single algorithm execution at a time, feeding it a snapshot
// function and honouring cooperative cancellation requests.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner owns the lifecycle of algorithm runs. It is long-lived: one instance is reused for
// many sequential runs, only its run state resets between them.
type Runner struct {
	snapshooter Snapshooter
	logger      *zap.Logger

	mu      sync.Mutex
	running bool
	token   *Token
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger attaches a logger; runs are logged at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func New(snapshooter Snapshooter, opts ...Option) *Runner {
	r := &Runner{
		snapshooter: snapshooter,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes algo over data until it returns or is cancelled. It reports Completed or
// Cancelled with a nil error; any other error from algo is returned unchanged together with
// Failed. Mutations already applied to data are kept whatever the outcome.
func (r *Runner) Run(ctx context.Context, algo AlgorithmFunc, data []int) (Outcome, error) {
	if algo == nil {
		return Failed, ErrNilAlgorithm
	}
	token, err := r.begin()
	if err != nil {
		return Failed, err
	}
	defer r.end()

	log := r.logger.With(zap.String("run_id", uuid.NewString()), zap.Int("size", len(data)))
	log.Debug("run started")
	start := time.Now()

	snapshots := 0
	snapshot := func() error {
		if err := token.Err(); err != nil {
			return err
		}
		snapshots++
		return r.snapshooter.Snapshot(ctx, data)
	}

	err = algo(ctx, data, snapshot)
	fields := []zap.Field{zap.Int("snapshots", snapshots), zap.Duration("elapsed", time.Since(start))}
	switch {
	case err == nil:
		log.Debug("run completed", fields...)
		return Completed, nil
	case errors.Is(err, errCancelled):
		log.Debug("run cancelled", fields...)
		return Cancelled, nil
	default:
		log.Debug("run failed", append(fields, zap.Error(err))...)
		return Failed, err
	}
}

// Cancel requests cancellation of the active run. The request is observed at the run's next
// snapshot call. Without an active run it does nothing, and it never affects a later run.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		r.token.Cancel()
	}
}

// Running reports whether a run is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// CancelRequested reports whether the active run has a pending cancellation.
func (r *Runner) CancelRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running && r.token.Cancelled()
}

func (r *Runner) begin() (*Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil, ErrAlreadyRunning
	}
	r.running = true
	r.token = &Token{}
	return r.token, nil
}

func (r *Runner) end() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.token = nil
}
