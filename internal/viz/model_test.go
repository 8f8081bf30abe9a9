package viz

import (
	"context"
	"image/color"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/sortviz/internal/config"
	"github.com/san-kum/sortviz/internal/dataset"
	"github.com/san-kum/sortviz/internal/loader"
)

var (
	tinySort = config.Preset{Name: "Tiny Sort", Code: "data.sort((a, b) => a - b); await snapshot();", Size: 9, Skip: 1}
	forever  = config.Preset{Name: "Forever", Code: "while (true) { await snapshot(); }", Size: 4, Skip: 1}
	broken   = config.Preset{Name: "Broken", Code: "let x = ;", Size: 4, Skip: 1}
)

func newTestModel(t *testing.T, presets ...config.Preset) Model {
	t.Helper()
	l, err := loader.New(loader.Config{}, nil)
	require.NoError(t, err)
	cfg := config.DefaultConfig()
	cfg.Preset = presets[0].Name
	cfg.Seed = 1
	return NewModel(context.Background(), Options{Config: cfg, Catalog: config.NewCatalog(presets...), Loader: l})
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func key(r rune) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}} }

func launch(cmd tea.Cmd) <-chan tea.Msg {
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	return done
}

// await ticks the model's clock until the run reports back.
func await(t *testing.T, m Model, done <-chan tea.Msg) runDoneMsg {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-done:
			res, ok := msg.(runDoneMsg)
			require.True(t, ok, "unexpected message %T", msg)
			return res
		case <-deadline:
			t.Fatal("run did not finish")
		case <-time.After(time.Millisecond):
			m.clock.Tick()
		}
	}
}

func TestTermSurface(t *testing.T) {
	s := NewTermSurface(3, 2)
	w, h := s.Size()
	assert.Equal(t, 3, w)
	assert.Equal(t, 2, h)

	red := color.RGBA{R: 255, A: 255}
	require.NoError(t, s.FillRect(-1, -1, 3, 2, red))
	require.NoError(t, s.FillRect(5, 5, 2, 2, red))
	assert.Equal(t, color.RGBA{}, s.Cell(0, 0), "drawing must not show before Present")

	require.NoError(t, s.Present())
	assert.Equal(t, red, s.Cell(0, 0))
	assert.Equal(t, red, s.Cell(1, 0))
	assert.Equal(t, color.RGBA{}, s.Cell(2, 0))
	assert.Equal(t, color.RGBA{}, s.Cell(0, 1))
	assert.Equal(t, color.RGBA{}, s.Cell(9, 9))

	lines := strings.Split(s.String(), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Equal(t, 3*cellWidth, lipgloss.Width(line))
	}
}

func TestModelRunsToCompletion(t *testing.T) {
	m := newTestModel(t, tinySort)

	m, cmd := update(t, m, startMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, statusRunning, m.status)
	assert.True(t, dataset.IsPermutation(m.data))

	res := await(t, m, launch(cmd))
	m, cmd = update(t, m, res)
	assert.Nil(t, cmd)
	assert.Equal(t, statusCompleted, m.status)
	assert.True(t, dataset.IsSorted(m.data))
	assert.Contains(t, m.View(), "COMPLETED")
	assert.Len(t, m.current.recorder.Frames(), 1)
}

func TestModelCancel(t *testing.T) {
	m := newTestModel(t, forever)
	m, cmd := update(t, m, startMsg{})
	require.NotNil(t, cmd)
	done := launch(cmd)

	m, _ = update(t, m, key('c'))
	assert.True(t, m.cancelling)
	assert.Contains(t, m.View(), "STOPPING")

	// ticks keep re-sending the request until the run picks it up
	stop := make(chan struct{})
	defer close(stop)
	go func(m Model) {
		for {
			select {
			case <-stop:
				return
			case <-time.After(time.Millisecond):
				m.current.runner.Cancel()
			}
		}
	}(m)

	res := await(t, m, done)
	m, _ = update(t, m, res)
	assert.Equal(t, statusCancelled, m.status)
	assert.False(t, m.cancelling)
	assert.True(t, dataset.IsPermutation(m.data))
}

func TestModelSwitchPresetWaitsForRun(t *testing.T) {
	m := newTestModel(t, forever, tinySort)
	m, cmd := update(t, m, startMsg{})
	done := launch(cmd)
	require.Eventually(t, m.current.runner.Running, time.Second, time.Millisecond)

	m, cmd = update(t, m, key('n'))
	assert.Nil(t, cmd)
	assert.Equal(t, 0, m.index)

	res := await(t, m, done)
	m, cmd = update(t, m, res)
	require.NotNil(t, cmd)
	assert.Equal(t, 1, m.index)
	assert.Equal(t, statusRunning, m.status)
	assert.Equal(t, "Tiny Sort", m.current.preset.Name)

	res = await(t, m, launch(cmd))
	m, _ = update(t, m, res)
	assert.Equal(t, statusCompleted, m.status)

	m, cmd = update(t, m, key('p'))
	require.NotNil(t, cmd)
	assert.Equal(t, 0, m.index)
	assert.Equal(t, "Forever", m.current.preset.Name)
}

func TestModelRestartReusesPipeline(t *testing.T) {
	m := newTestModel(t, tinySort)
	m, cmd := update(t, m, startMsg{})
	m, _ = update(t, m, await(t, m, launch(cmd)))
	first := m.current

	m, cmd = update(t, m, key('r'))
	require.NotNil(t, cmd)
	assert.Same(t, first, m.current)
	m, _ = update(t, m, await(t, m, launch(cmd)))
	assert.Equal(t, statusCompleted, m.status)
	assert.Len(t, m.pipelines, 1)
}

func TestModelBrokenPreset(t *testing.T) {
	m := newTestModel(t, broken)
	m, cmd := update(t, m, startMsg{})
	assert.Nil(t, cmd)
	assert.Equal(t, statusFailed, m.status)
	var jsErr *loader.JSError
	assert.ErrorAs(t, m.err, &jsErr)
	assert.Contains(t, m.View(), "FAILED")
}

func TestModelQuit(t *testing.T) {
	m := newTestModel(t, tinySort)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Error(t, m.ctx.Err())
}

func TestModelTickAndToggles(t *testing.T) {
	m := newTestModel(t, tinySort)
	m, cmd := update(t, m, TickMsg(time.Now()))
	assert.NotNil(t, cmd)
	assert.Equal(t, 1, m.ticks)

	m, _ = update(t, m, key('t'))
	assert.Equal(t, ThemeRetroGreen.Name, m.theme.Name)
	m, _ = update(t, m, key('?'))
	assert.Contains(t, m.View(), "KEYBOARD SHORTCUTS")
}

func TestThemes(t *testing.T) {
	assert.Equal(t, ThemeSunset, GetTheme("sunset"))
	assert.Equal(t, ThemeCyberpunk, GetTheme("missing"))
	assert.Equal(t, ThemeCyberpunk, NextTheme(ThemeSunset))
	assert.Equal(t, []string{"cyberpunk", "retro", "sunset"}, ThemeNames())

	l, err := loader.New(loader.Config{}, nil)
	require.NoError(t, err)
	cfg := config.DefaultConfig()
	cfg.Theme = "retro"
	m := NewModel(context.Background(), Options{Config: cfg, Loader: l})
	assert.Equal(t, ThemeRetroGreen, m.theme)
}

func TestStyles(t *testing.T) {
	assert.Equal(t, 10, lipgloss.Width(ProgressBar(0.5, 10)))
	assert.Equal(t, 10, lipgloss.Width(ProgressBar(2, 10)))
	assert.Equal(t, 5, lipgloss.Width(SparklineChart([]float64{0, 1, 2, 3, 4, 5, 6}, 5)))
	assert.Equal(t, 4, lipgloss.Width(SparklineChart(nil, 4)))
	assert.Empty(t, GradientText("", "#000000", "#ffffff"))
	r, g, b := parseHex("#0a0b0c")
	assert.Equal(t, []int{10, 11, 12}, []int{r, g, b})
}
