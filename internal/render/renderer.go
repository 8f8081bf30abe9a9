// Package render turns data arrays into images and throttles how often that happens.
//
// A Renderer has two entry points: Render waits for the next tick of its Clock before
// drawing, RenderNow draws immediately. The Throttle forwards every Nth snapshot to
// Render, which keeps the visual update rate bounded relative to the algorithm's steps.
package render

import (
	"context"
	"fmt"
	"image/color"
	"math"
)

// Renderer draws a data array.
type Renderer interface {
	// Render waits for the next paint opportunity and draws data. It returns once the
	// drawing has happened, or with the context's error.
	Render(ctx context.Context, data []int) error

	// RenderNow draws data synchronously.
	RenderNow(data []int) error
}

// ColorLookup maps a value-derived grid coordinate to a color. It must be pure.
type ColorLookup func(x, y, width, height int) color.RGBA

// DefaultColors maps x to the red channel and y to the green channel, blue is zero.
// A sorted array therefore shows a smooth 2-D gradient. Inputs outside the grid clamp to
// the channel range.
func DefaultColors(x, y, width, height int) color.RGBA {
	return color.RGBA{R: channel(x, width), G: channel(y, height), B: 0, A: 0xff}
}

func channel(v, extent int) uint8 {
	if extent <= 0 {
		return 0
	}
	c := int(math.Floor(float64(v) / float64(extent) * 255))
	switch {
	case c < 0:
		return 0
	case c > 255:
		return 255
	}
	return uint8(c)
}

// Hex formats c as #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Side returns the grid side used for n items: floor(sqrt(n)).
func Side(n int) int {
	if n <= 0 {
		return 0
	}
	side := int(math.Sqrt(float64(n)))
	// guard against float rounding around perfect squares
	for side*side > n {
		side--
	}
	for (side+1)*(side+1) <= n {
		side++
	}
	return side
}

// Coords maps an index or a value to its grid cell (v mod side, v div side).
func Coords(v, side int) (x, y int) {
	if side <= 0 {
		return 0, 0
	}
	return v % side, v / side
}
