package viz

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/san-kum/sortviz/internal/config"
	"github.com/san-kum/sortviz/internal/dataset"
	"github.com/san-kum/sortviz/internal/loader"
	"github.com/san-kum/sortviz/internal/metrics"
	"github.com/san-kum/sortviz/internal/render"
	"github.com/san-kum/sortviz/internal/runner"
)

type TickMsg time.Time

type startMsg struct{}

type runDoneMsg struct {
	outcome runner.Outcome
	err     error
}

type status int

const (
	statusIdle status = iota
	statusRunning
	statusCompleted
	statusCancelled
	statusFailed
)

func (s status) String() string {
	switch s {
	case statusRunning:
		return "RUNNING"
	case statusCompleted:
		return "COMPLETED"
	case statusCancelled:
		return "CANCELLED"
	case statusFailed:
		return "FAILED"
	default:
		return "IDLE"
	}
}

// pipeline is everything needed to run one preset. Pipelines are built once per preset
// and reused across restarts.
type pipeline struct {
	preset   config.Preset
	algo     runner.AlgorithmFunc
	surface  *TermSurface
	grid     *render.GridRenderer
	recorder *metrics.Recorder
	throttle *render.Throttle
	runner   *runner.Runner
}

// action is what to do once the active run has finished.
type action int

const (
	actionNone action = iota
	actionRestart
	actionSwitch
)

// Options configures the terminal program.
type Options struct {
	Config  *config.Config
	Catalog *config.Catalog
	Loader  *loader.Loader
	Logger  *zap.Logger
}

// Model is the Bubble Tea model of the terminal program.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg     *config.Config
	catalog *config.Catalog
	loader  *loader.Loader
	logger  *zap.Logger
	rng     *rand.Rand
	clock   *render.PulseClock

	pipelines map[string]*pipeline
	index     int
	current   *pipeline
	data      []int

	status     status
	err        error
	pending    action
	cancelling bool
	target     int
	ticks      int
	theme      Theme
	showHelp   bool
}

func NewModel(ctx context.Context, opts Options) Model {
	ctx, cancel := context.WithCancel(ctx)
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	catalog := opts.Catalog
	if catalog == nil || catalog.Len() == 0 {
		catalog = config.DefaultCatalog()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	index := 0
	for i, name := range catalog.Names() {
		if config.Slug(name) == config.Slug(cfg.Preset) {
			index = i
			break
		}
	}

	return Model{
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		catalog:   catalog,
		loader:    opts.Loader,
		logger:    logger,
		rng:       dataset.NewRand(cfg.Seed),
		clock:     render.NewPulseClock(),
		pipelines: make(map[string]*pipeline),
		index:     index,
		theme:     GetTheme(cfg.Theme),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), func() tea.Msg { return startMsg{} })
}

func (m Model) tick() tea.Cmd {
	fps := max(m.cfg.FPS, 1)
	return tea.Tick(time.Second/time.Duration(fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m *Model) pipelineFor(p config.Preset) (*pipeline, error) {
	if pl, ok := m.pipelines[p.Slug()]; ok {
		return pl, nil
	}
	if m.loader == nil {
		return nil, fmt.Errorf("no script loader configured")
	}
	algo, err := m.loader.Load(p.Code)
	if err != nil {
		return nil, err
	}
	side := render.Side(p.Size)
	surface := NewTermSurface(side, side)
	grid := render.NewGridRenderer(surface, m.clock)
	recorder := metrics.NewRecorder(grid)
	throttle, err := render.NewThrottle(recorder, p.Skip)
	if err != nil {
		return nil, err
	}
	pl := &pipeline{
		preset:   p,
		algo:     algo,
		surface:  surface,
		grid:     grid,
		recorder: recorder,
		throttle: throttle,
		runner:   runner.New(throttle, runner.WithLogger(m.logger.With(zap.String("preset", p.Name)))),
	}
	m.pipelines[p.Slug()] = pl
	return pl, nil
}

// start shuffles a fresh array for the selected preset and launches the run.
func (m *Model) start() tea.Cmd {
	preset := m.cfg.Resolve(m.catalog.At(m.index))
	pl, err := m.pipelineFor(preset)
	if err != nil {
		m.current, m.data = nil, nil
		m.status, m.err = statusFailed, err
		m.logger.Warn("preset unavailable", zap.String("preset", preset.Name), zap.Error(err))
		return nil
	}

	data := dataset.Sequence(preset.Size)
	dataset.Shuffle(data, m.rng)
	pl.recorder.Reset()
	if err := pl.grid.RenderNow(data); err != nil {
		m.status, m.err = statusFailed, err
		return nil
	}

	m.current, m.data = pl, data
	m.status, m.err = statusRunning, nil
	ctx := m.ctx
	return func() tea.Msg {
		outcome, err := pl.runner.Run(ctx, pl.algo, data)
		return runDoneMsg{outcome: outcome, err: err}
	}
}

// after cancels the active run and schedules a, or performs a at once when idle.
func (m *Model) after(a action) tea.Cmd {
	if m.status == statusRunning {
		m.pending = a
		m.requestCancel()
		return nil
	}
	return m.perform(a)
}

// requestCancel asks the active run to stop. The request is repeated on every tick until
// the run ends, since a run that has not reached the runner yet ignores it.
func (m *Model) requestCancel() {
	m.cancelling = true
	m.current.runner.Cancel()
}

func (m *Model) perform(a action) tea.Cmd {
	switch a {
	case actionRestart:
		return m.start()
	case actionSwitch:
		m.index = m.target
		return m.start()
	}
	return nil
}

// Update handles input events, frame ticks and run results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.current != nil {
				m.current.runner.Cancel()
			}
			m.cancel()
			return m, tea.Quit
		case " ", "c":
			if m.status == statusRunning {
				m.requestCancel()
			}
		case "r":
			return m, m.after(actionRestart)
		case "n", "right":
			m.target = (m.index + 1) % m.catalog.Len()
			return m, m.after(actionSwitch)
		case "p", "left":
			m.target = (m.index - 1 + m.catalog.Len()) % m.catalog.Len()
			return m, m.after(actionSwitch)
		case "t":
			m.theme = NextTheme(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case startMsg:
		if m.status == statusRunning {
			return m, nil
		}
		return m, m.start()
	case TickMsg:
		m.ticks++
		if m.cancelling && m.status == statusRunning {
			m.current.runner.Cancel()
		}
		m.clock.Tick()
		return m, m.tick()
	case runDoneMsg:
		m.cancelling = false
		switch msg.outcome {
		case runner.Completed:
			m.status = statusCompleted
		case runner.Cancelled:
			m.status = statusCancelled
		default:
			m.status, m.err = statusFailed, msg.err
			m.logger.Warn("run failed", zap.Error(msg.err))
		}
		if m.current != nil && m.status != statusFailed {
			_ = m.current.grid.RenderNow(m.data)
		}
		pending := m.pending
		m.pending = actionNone
		return m, m.perform(pending)
	}
	return m, nil
}

func (m Model) View() string {
	title := lipgloss.NewStyle().Bold(true).Render(GradientText(strings.ToUpper(m.presetName()), m.theme.Primary, m.theme.Secondary))

	grid := Subtle.Render("(no grid)")
	if m.current != nil {
		grid = m.current.surface.String()
	}

	var s strings.Builder
	s.WriteString(title + "\n\n")
	s.WriteString(m.statusLine() + "\n\n")
	if m.current != nil {
		p := m.current.preset
		frames := m.current.recorder.Frames()
		s.WriteString(MetricLabel.Render("Size") + MetricValue.Render(fmt.Sprintf("%d", p.Size)) + "\n")
		s.WriteString(MetricLabel.Render("Skip") + MetricValue.Render(fmt.Sprintf("%d", p.Skip)) + "\n")
		s.WriteString(MetricLabel.Render("Snapshots") + MetricValue.Render(fmt.Sprintf("%d", m.current.throttle.Frames())) + "\n")
		s.WriteString(MetricLabel.Render("Frames") + MetricValue.Render(fmt.Sprintf("%d", len(frames))) + "\n")
		if len(frames) > 0 {
			last := frames[len(frames)-1]
			s.WriteString(MetricLabel.Render("Sorted") + ProgressBar(last.Sortedness, 20) + "\n")
			series := make([]float64, len(frames))
			for i, f := range frames {
				series[i] = f.Sortedness
			}
			s.WriteString(MetricLabel.Render("History") + SparklineChart(series, 20) + "\n")
		}
		if m.status != statusRunning && m.data != nil {
			s.WriteString(MetricLabel.Render("Final") + MetricValue.Render(fmt.Sprintf("%.1f%% in order", metrics.Sortedness(m.data)*100)) + "\n")
		}
	}
	if m.err != nil {
		s.WriteString("\n" + ErrorText.Render(m.err.Error()) + "\n")
	}
	s.WriteString("\n" + Separator(28) + "\n")
	s.WriteString(KeyHint.Render(fmt.Sprintf("%d/%d  N/P:Preset R:Restart\nSP:Cancel T:Theme ?:Help Q:Quit", m.index+1, m.catalog.Len())))

	main := lipgloss.JoinHorizontal(lipgloss.Top, Panel.Render(grid), Panel.BorderForeground(m.theme.Muted).Render(s.String()))
	if m.showHelp {
		return help + "\n\n" + main
	}
	return main
}

const help = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space/C  - Cancel the running sort  ║
║  R        - Reshuffle and restart    ║
║  N/Right  - Next preset              ║
║  P/Left   - Previous preset          ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`

func (m Model) presetName() string {
	if m.catalog.Len() == 0 {
		return ""
	}
	return m.catalog.At(m.index).Name
}

func (m Model) statusLine() string {
	style := lipgloss.NewStyle().Bold(true)
	switch m.status {
	case statusRunning:
		label := m.status.String()
		if m.cancelling {
			label = "STOPPING"
		}
		return style.Foreground(m.theme.Success).Render(AnimatedSpinner(m.ticks) + " " + label)
	case statusCompleted:
		return style.Foreground(m.theme.Success).Render(m.status.String())
	case statusCancelled:
		return style.Foreground(m.theme.Warning).Render(m.status.String())
	case statusFailed:
		return style.Foreground(m.theme.Error).Render(m.status.String())
	}
	return style.Foreground(m.theme.Muted).Render(m.status.String())
}

// Run starts the terminal program and blocks until it exits.
func Run(ctx context.Context, opts Options) error {
	m := NewModel(ctx, opts)
	defer m.cancel()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
