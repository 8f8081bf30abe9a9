package render

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Throttle forwards roughly every frameSkip-th snapshot to a Renderer. It counts every
// snapshot request and renders when the count before increment is a multiple of
// frameSkip, so the very first snapshot always renders. The counter is never reset.
//
// The throttle does not serialize renders; callers must wait for Snapshot to return
// before mutating the array again.
type Throttle struct {
	renderer  Renderer
	frameSkip uint64
	frames    atomic.Uint64
}

// NewThrottle returns a Throttle rendering one in frameSkip snapshots.
func NewThrottle(renderer Renderer, frameSkip int) (*Throttle, error) {
	if frameSkip <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidFrameSkip, frameSkip)
	}
	return &Throttle{renderer: renderer, frameSkip: uint64(frameSkip)}, nil
}

// Snapshot counts one snapshot request and renders data when its turn has come.
func (t *Throttle) Snapshot(ctx context.Context, data []int) error {
	n := t.frames.Add(1) - 1
	if n%t.frameSkip != 0 {
		return nil
	}
	return t.renderer.Render(ctx, data)
}

// Frames returns the number of snapshot requests seen so far.
func (t *Throttle) Frames() uint64 { return t.frames.Load() }

// FrameSkip returns the configured cadence.
func (t *Throttle) FrameSkip() int { return int(t.frameSkip) }
