package export

import (
	"fmt"
	"image/color"
	"strings"
	"sync"

	"github.com/san-kum/sortviz/internal/render"
)

type svgRect struct {
	x, y, w, h int
	fill       string
}

// SVGSurface records rectangles and renders the last presented frame as an SVG document.
type SVGSurface struct {
	width, height int

	mu      sync.Mutex
	pending []svgRect
	last    []svgRect
}

func NewSVGSurface(width, height int) (*SVGSurface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w, got %dx%d", render.ErrInvalidSize, width, height)
	}
	return &SVGSurface{width: width, height: height}, nil
}

func (s *SVGSurface) Size() (int, int) { return s.width, s.height }

func (s *SVGSurface) FillRect(x, y, width, height int, c color.Color) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	// a full clear starts a new frame
	if x <= 0 && y <= 0 && x+width >= s.width && y+height >= s.height {
		s.mu.Lock()
		s.pending = s.pending[:0]
		s.mu.Unlock()
	}
	r, g, b, _ := c.RGBA()
	rect := svgRect{x, y, width, height, render.Hex(color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 0xff})}
	s.mu.Lock()
	s.pending = append(s.pending, rect)
	s.mu.Unlock()
	return nil
}

func (s *SVGSurface) Present() error {
	s.mu.Lock()
	s.last = append(s.last[:0], s.pending...)
	s.mu.Unlock()
	return nil
}

// String renders the last presented frame.
func (s *SVGSurface) String() string {
	s.mu.Lock()
	rects := append([]svgRect(nil), s.last...)
	s.mu.Unlock()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">
`, s.width, s.height, s.width, s.height))
	for _, r := range rects {
		sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>
`, r.x, r.y, r.w, r.h, r.fill))
	}
	sb.WriteString("</svg>")
	return sb.String()
}
