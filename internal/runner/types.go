package runner

import "context"

// SnapshotFunc exposes the current state of the data array. It returns the cancellation
// signal when a cancellation is pending; algorithms must return that error unchanged
// (or wrapped) to abort.
type SnapshotFunc func() error

// AlgorithmFunc mutates data in place and calls snapshot whenever it wants to expose a
// point-in-time state. The context only carries host shutdown; cancellation of a run goes
// through the snapshot function.
type AlgorithmFunc func(ctx context.Context, data []int, snapshot SnapshotFunc) error

// Snapshooter receives the snapshot requests of a run.
type Snapshooter interface {
	Snapshot(ctx context.Context, data []int) error
}

// SnapshooterFunc adapts a plain function to Snapshooter.
type SnapshooterFunc func(ctx context.Context, data []int) error

func (f SnapshooterFunc) Snapshot(ctx context.Context, data []int) error { return f(ctx, data) }

// Outcome is the tagged result of a single run.
type Outcome int

const (
	// Completed means the algorithm returned normally.
	Completed Outcome = iota
	// Cancelled means the algorithm was aborted by the cancellation signal.
	Cancelled
	// Failed means the algorithm returned any other error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
