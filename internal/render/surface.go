package render

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/gogpu/gg"
)

// Surface is a drawable area of fixed size. Implementations clip rectangles that fall
// partly or fully outside of it.
type Surface interface {
	Size() (width, height int)
	FillRect(x, y, width, height int, c color.Color) error
}

// Presenter is implemented by surfaces that need to know when a frame is complete.
type Presenter interface {
	Present() error
}

// ImageSurface draws into an in-memory raster.
type ImageSurface struct {
	dc *gg.Context
}

func NewImageSurface(width, height int) (*ImageSurface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w, got %dx%d", ErrInvalidSize, width, height)
	}
	return &ImageSurface{dc: gg.NewContext(width, height)}, nil
}

func (s *ImageSurface) Size() (int, int) { return s.dc.Width(), s.dc.Height() }

func (s *ImageSurface) FillRect(x, y, width, height int, c color.Color) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	s.dc.SetColor(c)
	s.dc.DrawRectangle(float64(x), float64(y), float64(width), float64(height))
	return s.dc.Fill()
}

// Image returns the current raster.
func (s *ImageSurface) Image() image.Image { return s.dc.Image() }

func (s *ImageSurface) EncodePNG(w io.Writer) error { return s.dc.EncodePNG(w) }

func (s *ImageSurface) SavePNG(path string) error { return s.dc.SavePNG(path) }

func (s *ImageSurface) Close() error { return s.dc.Close() }

type multiSurface []Surface

// Multi draws on every surface at once. Its size is the size of the first one.
func Multi(surfaces ...Surface) Surface {
	if len(surfaces) == 1 {
		return surfaces[0]
	}
	return multiSurface(surfaces)
}

func (m multiSurface) Size() (int, int) {
	if len(m) == 0 {
		return 0, 0
	}
	return m[0].Size()
}

func (m multiSurface) FillRect(x, y, width, height int, c color.Color) error {
	for _, s := range m {
		if err := s.FillRect(x, y, width, height, c); err != nil {
			return err
		}
	}
	return nil
}

func (m multiSurface) Present() error {
	for _, s := range m {
		if p, ok := s.(Presenter); ok {
			if err := p.Present(); err != nil {
				return err
			}
		}
	}
	return nil
}
