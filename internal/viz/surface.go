package viz

import (
	"image/color"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/sortviz/internal/render"
)

// cellWidth is the number of terminal columns per cell; two keeps cells roughly square.
const cellWidth = 2

// TermSurface is a grid of terminal cells. Drawing goes to a back buffer which becomes
// visible on Present, so View never shows a half drawn frame.
type TermSurface struct {
	width, height int

	mu     sync.Mutex
	back   []color.RGBA
	front  []color.RGBA
	styles map[color.RGBA]lipgloss.Style
}

func NewTermSurface(width, height int) *TermSurface {
	width, height = max(width, 1), max(height, 1)
	return &TermSurface{
		width:  width,
		height: height,
		back:   make([]color.RGBA, width*height),
		front:  make([]color.RGBA, width*height),
		styles: make(map[color.RGBA]lipgloss.Style),
	}
}

func (s *TermSurface) Size() (int, int) { return s.width, s.height }

func (s *TermSurface) FillRect(x, y, width, height int, c color.Color) error {
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+width, s.width), min(y+height, s.height)
	if x0 >= x1 || y0 >= y1 {
		return nil
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	s.mu.Lock()
	defer s.mu.Unlock()
	for row := y0; row < y1; row++ {
		line := s.back[row*s.width : (row+1)*s.width]
		for col := x0; col < x1; col++ {
			line[col] = rgba
		}
	}
	return nil
}

func (s *TermSurface) Present() error {
	s.mu.Lock()
	s.back, s.front = s.front, s.back
	copy(s.back, s.front)
	s.mu.Unlock()
	return nil
}

// Cell returns the visible color at (x, y).
func (s *TermSurface) Cell(x, y int) color.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return color.RGBA{}
	}
	return s.front[y*s.width+x]
}

// String renders the visible frame, one line per row. Runs of equal color share one
// styled segment.
func (s *TermSurface) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	for row := 0; row < s.height; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		line := s.front[row*s.width : (row+1)*s.width]
		for start := 0; start < len(line); {
			end := start + 1
			for end < len(line) && line[end] == line[start] {
				end++
			}
			b.WriteString(s.style(line[start]).Render(strings.Repeat(" ", (end-start)*cellWidth)))
			start = end
		}
	}
	return b.String()
}

func (s *TermSurface) style(c color.RGBA) lipgloss.Style {
	st, ok := s.styles[c]
	if !ok {
		st = lipgloss.NewStyle().Background(lipgloss.Color(render.Hex(c)))
		s.styles[c] = st
	}
	return st
}
