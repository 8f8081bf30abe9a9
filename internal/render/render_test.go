package render

import (
	"context"
	"errors"
	"image/color"
	"testing"
	"time"
)

type rect struct {
	x, y, w, h int
	c          color.RGBA
}

type recordingSurface struct {
	w, h      int
	rects     []rect
	presented int
}

func (s *recordingSurface) Size() (int, int) { return s.w, s.h }

func (s *recordingSurface) FillRect(x, y, w, h int, c color.Color) error {
	r, g, b, a := c.RGBA()
	s.rects = append(s.rects, rect{x, y, w, h, color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}})
	return nil
}

func (s *recordingSurface) Present() error {
	s.presented++
	return nil
}

type countingRenderer struct {
	deferred int
	now      int
}

func (r *countingRenderer) Render(ctx context.Context, data []int) error {
	r.deferred++
	return nil
}

func (r *countingRenderer) RenderNow(data []int) error {
	r.now++
	return nil
}

func TestThrottleCadence(t *testing.T) {
	tests := []struct {
		skip     int
		calls    int
		expected int
	}{
		{1, 0, 0},
		{1, 1, 1},
		{1, 2, 2},
		{1, 3, 3},
		{1, 4, 4},
		{1, 5, 5},
		{1, 6, 6},
		{3, 0, 0},
		{3, 1, 1},
		{3, 2, 1},
		{3, 3, 1},
		{3, 4, 2},
		{3, 5, 2},
		{3, 6, 2},
		{3, 7, 3},
	}

	for _, tt := range tests {
		r := &countingRenderer{}
		th, err := NewThrottle(r, tt.skip)
		if err != nil {
			t.Fatalf("NewThrottle(%d): %v", tt.skip, err)
		}
		for i := 0; i < tt.calls; i++ {
			if err := th.Snapshot(context.Background(), []int{0}); err != nil {
				t.Fatalf("snapshot: %v", err)
			}
		}
		if r.deferred != tt.expected {
			t.Errorf("skip=%d calls=%d: expected %d renders, got %d", tt.skip, tt.calls, tt.expected, r.deferred)
		}
		if r.now != 0 {
			t.Errorf("skip=%d: throttle must use the deferred entry point, got %d immediate renders", tt.skip, r.now)
		}
		if th.Frames() != uint64(tt.calls) {
			t.Errorf("skip=%d: expected frame counter %d, got %d", tt.skip, tt.calls, th.Frames())
		}
	}
}

func TestThrottleInvalidFrameSkip(t *testing.T) {
	for _, skip := range []int{0, -1, -10} {
		th, err := NewThrottle(&countingRenderer{}, skip)
		if err == nil {
			t.Errorf("skip=%d: expected error", skip)
		}
		if !errors.Is(err, ErrInvalidFrameSkip) {
			t.Errorf("skip=%d: expected ErrInvalidFrameSkip, got %v", skip, err)
		}
		if th != nil {
			t.Errorf("skip=%d: expected nil throttle", skip)
		}
	}
}

func TestSide(t *testing.T) {
	tests := []struct {
		n, side int
	}{
		{0, 0},
		{1, 1},
		{3, 1},
		{4, 2},
		{9, 3},
		{32, 5},
		{1024, 32},
		{1025, 32},
	}
	for _, tt := range tests {
		if got := Side(tt.n); got != tt.side {
			t.Errorf("Side(%d) = %d, want %d", tt.n, got, tt.side)
		}
	}
}

func TestDefaultColors(t *testing.T) {
	tests := []struct {
		name       string
		x, y, w, h int
		want       color.RGBA
	}{
		{"origin", 0, 0, 4, 4, color.RGBA{0, 0, 0, 255}},
		{"half x", 2, 0, 4, 4, color.RGBA{127, 0, 0, 255}},
		{"last cell", 3, 3, 4, 4, color.RGBA{191, 191, 0, 255}},
		{"out of proportion", 0, 9, 4, 4, color.RGBA{0, 255, 0, 255}},
		{"zero extent", 1, 1, 0, 0, color.RGBA{0, 0, 0, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultColors(tt.x, tt.y, tt.w, tt.h); got != tt.want {
				t.Errorf("DefaultColors(%d,%d,%d,%d) = %v, want %v", tt.x, tt.y, tt.w, tt.h, got, tt.want)
			}
		})
	}
}

func TestHex(t *testing.T) {
	if got := Hex(color.RGBA{R: 255, G: 8, B: 0, A: 255}); got != "#ff0800" {
		t.Errorf("Hex = %q, want #ff0800", got)
	}
}

func TestGridRenderNow(t *testing.T) {
	surface := &recordingSurface{w: 4, h: 4}
	r := NewGridRenderer(surface, Immediate)

	if err := r.RenderNow([]int{3, 1, 2, 0}); err != nil {
		t.Fatalf("RenderNow: %v", err)
	}

	if len(surface.rects) != 5 {
		t.Fatalf("expected background + 4 cells, got %d rects", len(surface.rects))
	}
	bg := surface.rects[0]
	if bg.x != 0 || bg.y != 0 || bg.w != 4 || bg.h != 4 || bg.c != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("unexpected background rect %+v", bg)
	}

	want := []rect{
		{0, 0, 2, 2, DefaultColors(1, 1, 2, 2)},
		{2, 0, 2, 2, DefaultColors(1, 0, 2, 2)},
		{0, 2, 2, 2, DefaultColors(0, 1, 2, 2)},
		{2, 2, 2, 2, DefaultColors(0, 0, 2, 2)},
	}
	for i, w := range want {
		if got := surface.rects[i+1]; got != w {
			t.Errorf("cell %d: got %+v, want %+v", i, got, w)
		}
	}
	if surface.presented != 1 {
		t.Errorf("expected 1 present, got %d", surface.presented)
	}
}

func TestGridRenderInjectedColors(t *testing.T) {
	surface := &recordingSurface{w: 2, h: 2}
	calls := 0
	lookup := func(x, y, w, h int) color.RGBA {
		calls++
		return color.RGBA{R: uint8(x), G: uint8(y), B: uint8(w), A: 255}
	}
	r := NewGridRenderer(surface, nil, WithColors(lookup))

	// 5 items on a 2x2 grid: the fifth one lands below the surface
	if err := r.RenderNow([]int{0, 1, 2, 3, 4}); err != nil {
		t.Fatalf("RenderNow: %v", err)
	}
	if calls != 5 {
		t.Errorf("expected 5 lookups, got %d", calls)
	}
	last := surface.rects[len(surface.rects)-1]
	if last.x != 0 || last.y != 2 {
		t.Errorf("expected overflow cell at (0,2), got (%d,%d)", last.x, last.y)
	}
	if last.c.G != 2 {
		t.Errorf("expected out of proportion y=2, got %d", last.c.G)
	}
}

func TestGridRenderEmpty(t *testing.T) {
	surface := &recordingSurface{w: 3, h: 3}
	r := NewGridRenderer(surface, Immediate)
	if err := r.RenderNow(nil); err != nil {
		t.Fatalf("RenderNow: %v", err)
	}
	if len(surface.rects) != 1 {
		t.Errorf("expected only the background, got %d rects", len(surface.rects))
	}
}

func TestGridRenderWaitsForClock(t *testing.T) {
	surface := &recordingSurface{w: 2, h: 2}
	clock := NewPulseClock()
	r := NewGridRenderer(surface, clock)

	done := make(chan error, 1)
	go func() { done <- r.Render(context.Background(), []int{0}) }()

	select {
	case <-done:
		t.Fatal("render returned before the clock ticked")
	case <-time.After(20 * time.Millisecond):
	}

	clock.Tick()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("render did not return after tick")
	}
	if surface.presented != 1 {
		t.Errorf("expected 1 frame, got %d", surface.presented)
	}
}

func TestGridRenderContextCanceled(t *testing.T) {
	r := NewGridRenderer(&recordingSurface{w: 1, h: 1}, NewPulseClock())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Render(ctx, []int{0}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPulseClockDropsExtraTicks(t *testing.T) {
	c := NewPulseClock()
	c.Tick()
	c.Tick()
	c.Tick()

	if err := c.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := c.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected only one retained tick, got %v", err)
	}
}

func TestTickerClock(t *testing.T) {
	if _, err := NewTickerClock(0); !errors.Is(err, ErrInvalidFPS) {
		t.Errorf("expected ErrInvalidFPS, got %v", err)
	}

	c, err := NewTickerClock(200)
	if err != nil {
		t.Fatalf("NewTickerClock: %v", err)
	}
	defer c.Stop()
	if err := c.Next(context.Background()); err != nil {
		t.Errorf("Next: %v", err)
	}
}

func TestImageSurface(t *testing.T) {
	if _, err := NewImageSurface(0, 10); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}

	s, err := NewImageSurface(40, 40)
	if err != nil {
		t.Fatalf("NewImageSurface: %v", err)
	}
	defer s.Close()

	r := NewGridRenderer(s, Immediate)
	if err := r.RenderNow([]int{0, 1, 2, 3}); err != nil {
		t.Fatalf("RenderNow: %v", err)
	}

	img := s.Image()
	checks := []struct {
		x, y int
		want color.RGBA
	}{
		{10, 10, DefaultColors(0, 0, 2, 2)},
		{30, 10, DefaultColors(1, 0, 2, 2)},
		{10, 30, DefaultColors(0, 1, 2, 2)},
		{30, 30, DefaultColors(1, 1, 2, 2)},
	}
	for _, c := range checks {
		r, g, b, _ := img.At(c.x, c.y).RGBA()
		got := color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), 255}
		if got != c.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestMultiSurface(t *testing.T) {
	a := &recordingSurface{w: 4, h: 4}
	b := &recordingSurface{w: 8, h: 8}
	m := Multi(a, b)

	if w, h := m.Size(); w != 4 || h != 4 {
		t.Errorf("expected the size of the first surface, got %dx%d", w, h)
	}
	if err := NewGridRenderer(m, Immediate).RenderNow([]int{0, 1, 2, 3}); err != nil {
		t.Fatalf("RenderNow: %v", err)
	}
	for i, s := range []*recordingSurface{a, b} {
		if len(s.rects) != 5 {
			t.Errorf("surface %d: expected 5 rects, got %d", i, len(s.rects))
		}
		if s.presented != 1 {
			t.Errorf("surface %d: expected 1 present, got %d", i, s.presented)
		}
	}

	if Multi(a) != Surface(a) {
		t.Error("a single surface should be returned as is")
	}
}
