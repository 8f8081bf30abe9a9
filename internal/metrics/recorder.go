package metrics

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/sortviz/internal/render"
)

// Frame is the state of the array at one drawn frame.
type Frame struct {
	Index      int     `json:"index"`
	Sortedness float64 `json:"sortedness"`
	Inversions int64   `json:"inversions"`
}

// Recorder wraps a Renderer and records one Frame for every frame that was drawn.
type Recorder struct {
	next render.Renderer

	mu     sync.Mutex
	frames []Frame
}

func NewRecorder(next render.Renderer) *Recorder {
	return &Recorder{next: next}
}

func (r *Recorder) Render(ctx context.Context, data []int) error {
	if err := r.next.Render(ctx, data); err != nil {
		return err
	}
	r.record(data)
	return nil
}

func (r *Recorder) RenderNow(data []int) error {
	if err := r.next.RenderNow(data); err != nil {
		return err
	}
	r.record(data)
	return nil
}

func (r *Recorder) record(data []int) {
	frame := Frame{Sortedness: Sortedness(data), Inversions: Inversions(data)}
	r.mu.Lock()
	frame.Index = len(r.frames)
	r.frames = append(r.frames, frame)
	r.mu.Unlock()
}

func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.frames...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.frames = nil
	r.mu.Unlock()
}

// Plot charts sortedness in percent over the recorded frames.
func (r *Recorder) Plot(width, height int) string { return Plot(r.Frames(), width, height) }

// Plot charts sortedness in percent over frames.
func Plot(frames []Frame, width, height int) string {
	if len(frames) == 0 {
		return ""
	}
	series := make([]float64, len(frames))
	for i, f := range frames {
		series[i] = f.Sortedness * 100
	}
	return asciigraph.Plot(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("sortedness %% over %d frames", len(frames))),
	)
}

// Summary is a one line description of the recorded run.
func (r *Recorder) Summary() string {
	frames := r.Frames()
	if len(frames) == 0 {
		return "no frames"
	}
	first, last := frames[0], frames[len(frames)-1]
	var b strings.Builder
	fmt.Fprintf(&b, "%d frames, sortedness %.1f%% -> %.1f%%", len(frames), first.Sortedness*100, last.Sortedness*100)
	fmt.Fprintf(&b, ", inversions %d -> %d", first.Inversions, last.Inversions)
	return b.String()
}
