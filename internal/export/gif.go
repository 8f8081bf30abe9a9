package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"os"

	"github.com/san-kum/sortviz/internal/render"
)

// GradientPalette holds 16 red by 16 green levels with blue at zero, which covers the
// default color lookup without dithering.
func GradientPalette() color.Palette {
	p := make(color.Palette, 0, 256)
	for g := 0; g < 16; g++ {
		for r := 0; r < 16; r++ {
			p = append(p, color.RGBA{R: uint8(r * 17), G: uint8(g * 17), A: 0xff})
		}
	}
	return p
}

// GIFRecorder is a surface that draws into an ImageSurface and keeps every presented
// frame as a GIF frame. When a frame limit is set and reached, every other kept frame is
// dropped and capture continues at half the rate.
type GIFRecorder struct {
	surface   *render.ImageSurface
	palette   color.Palette
	delay     int
	maxFrames int

	stride    int
	presented int
	stale     bool
	anim      gif.GIF
}

type GIFOption func(*GIFRecorder)

// WithPalette replaces the gradient palette.
func WithPalette(p color.Palette) GIFOption {
	return func(g *GIFRecorder) {
		if len(p) > 0 {
			g.palette = p
		}
	}
}

// WithDelay sets the per-frame delay in hundredths of a second.
func WithDelay(delay int) GIFOption {
	return func(g *GIFRecorder) {
		if delay > 0 {
			g.delay = delay
		}
	}
}

// WithMaxFrames bounds the number of frames kept in memory. Zero keeps all.
func WithMaxFrames(n int) GIFOption {
	return func(g *GIFRecorder) {
		if n >= 2 {
			g.maxFrames = n
		}
	}
}

func NewGIFRecorder(surface *render.ImageSurface, opts ...GIFOption) *GIFRecorder {
	g := &GIFRecorder{
		surface: surface,
		palette: GradientPalette(),
		delay:   2,
		stride:  1,
		anim:    gif.GIF{LoopCount: 0},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GIFRecorder) Size() (int, int) { return g.surface.Size() }

func (g *GIFRecorder) FillRect(x, y, width, height int, c color.Color) error {
	return g.surface.FillRect(x, y, width, height, c)
}

func (g *GIFRecorder) Present() error {
	g.presented++
	if (g.presented-1)%g.stride != 0 {
		g.stale = true
		return nil
	}
	g.capture()
	if g.maxFrames > 0 && len(g.anim.Image) > g.maxFrames {
		g.halve()
	}
	return nil
}

func (g *GIFRecorder) capture() {
	src := g.surface.Image()
	b := src.Bounds()
	frame := image.NewPaletted(b, g.palette)
	draw.Draw(frame, b, src, b.Min, draw.Src)
	g.anim.Image = append(g.anim.Image, frame)
	g.anim.Delay = append(g.anim.Delay, g.delay*g.stride)
	g.stale = false
}

func (g *GIFRecorder) halve() {
	keep := 0
	for i := 0; i < len(g.anim.Image); i += 2 {
		g.anim.Image[keep] = g.anim.Image[i]
		g.anim.Delay[keep] = g.anim.Delay[i] * 2
		keep++
	}
	clear(g.anim.Image[keep:])
	g.anim.Image = g.anim.Image[:keep]
	g.anim.Delay = g.anim.Delay[:keep]
	g.stride *= 2
}

// Frames returns the number of frames kept so far.
func (g *GIFRecorder) Frames() int { return len(g.anim.Image) }

// Encode writes the animation. The last presented frame is always included.
func (g *GIFRecorder) Encode(w io.Writer) error {
	if g.stale {
		g.capture()
	}
	if len(g.anim.Image) == 0 {
		return fmt.Errorf("export: no frames recorded")
	}
	return gif.EncodeAll(w, &g.anim)
}

func (g *GIFRecorder) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := g.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
