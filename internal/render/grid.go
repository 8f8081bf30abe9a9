package render

import (
	"context"
	"fmt"
	"image/color"
)

// GridRenderer is the default Renderer. It splits the surface into a side x side grid,
// side = floor(sqrt(N)), paints index i into cell (i mod side, i div side) and colors that
// cell from the coordinates its value maps to. Items past side*side land outside the
// surface and are clipped by it.
type GridRenderer struct {
	surface    Surface
	clock      Clock
	colors     ColorLookup
	background color.Color
}

// GridOption configures a GridRenderer.
type GridOption func(*GridRenderer)

// WithColors injects the coordinate to color mapping.
func WithColors(colors ColorLookup) GridOption {
	return func(r *GridRenderer) {
		if colors != nil {
			r.colors = colors
		}
	}
}

// WithBackground sets the color the surface is cleared to before each frame.
func WithBackground(c color.Color) GridOption {
	return func(r *GridRenderer) { r.background = c }
}

func NewGridRenderer(surface Surface, clock Clock, opts ...GridOption) *GridRenderer {
	if clock == nil {
		clock = Immediate
	}
	r := &GridRenderer{
		surface:    surface,
		clock:      clock,
		colors:     DefaultColors,
		background: color.Black,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *GridRenderer) Render(ctx context.Context, data []int) error {
	if err := r.clock.Next(ctx); err != nil {
		return err
	}
	return r.RenderNow(data)
}

func (r *GridRenderer) RenderNow(data []int) error {
	width, height := r.surface.Size()
	if err := r.surface.FillRect(0, 0, width, height, r.background); err != nil {
		return fmt.Errorf("render: clear surface: %w", err)
	}

	if side := Side(len(data)); side > 0 {
		cellW, cellH := width/side, height/side
		for i, v := range data {
			valueX, valueY := Coords(v, side)
			tileX, tileY := Coords(i, side)
			c := r.colors(valueX, valueY, side, side)
			if err := r.surface.FillRect(tileX*cellW, tileY*cellH, cellW, cellH, c); err != nil {
				return fmt.Errorf("render: fill cell %d: %w", i, err)
			}
		}
	}

	if p, ok := r.surface.(Presenter); ok {
		return p.Present()
	}
	return nil
}

// Surface returns the surface the renderer draws on.
func (r *GridRenderer) Surface() Surface { return r.surface }
