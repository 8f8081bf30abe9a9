package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/sortviz/internal/automation"
	"github.com/san-kum/sortviz/internal/config"
	"github.com/san-kum/sortviz/internal/dataset"
	"github.com/san-kum/sortviz/internal/export"
	"github.com/san-kum/sortviz/internal/loader"
	"github.com/san-kum/sortviz/internal/logging"
	"github.com/san-kum/sortviz/internal/metrics"
	"github.com/san-kum/sortviz/internal/render"
	"github.com/san-kum/sortviz/internal/report"
	"github.com/san-kum/sortviz/internal/runner"
	"github.com/san-kum/sortviz/internal/server"
	"github.com/san-kum/sortviz/internal/viz"
)

var (
	configFile  string
	logLevel    string
	presetsFile string

	size     int
	skip     int
	seed     int64
	fps      int
	width    int
	height   int
	timeout  time.Duration
	security string
	codeFile string

	gifOut    string
	pngOut    string
	svgOut    string
	showPlt   bool
	reportDir string
	asJSON    bool
	outFile   string

	logFile string
	theme   string
	addr    string
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "sortviz",
		Short:        "watch sorting algorithms work",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(cmd, args)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&presetsFile, "presets-file", "", "extra presets (yaml)")
	addRunFlags(rootCmd)
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file while the screen is taken")
	rootCmd.Flags().StringVar(&theme, "theme", "", fmt.Sprintf("color theme %v", viz.ThemeNames()))

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run an algorithm headless and export what it drew",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHeadless,
	}
	addRunFlags(runCmd)
	runCmd.Flags().StringVar(&codeFile, "code-file", "", "run the script in this file instead of a preset")
	runCmd.Flags().StringVar(&gifOut, "gif", "", "write an animated gif")
	runCmd.Flags().StringVar(&pngOut, "png", "", "write the final frame as png")
	runCmd.Flags().StringVar(&svgOut, "svg", "", "write the final frame as svg")
	runCmd.Flags().BoolVar(&showPlt, "plot", false, "plot sortedness over time")
	runCmd.Flags().StringVar(&reportDir, "report", "", "write a run report to this directory")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "interactive terminal visualizer",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file while the screen is taken")
	liveCmd.Flags().StringVar(&theme, "theme", "", fmt.Sprintf("color theme %v", viz.ThemeNames()))

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "stream runs to a browser",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addRunFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	reportCmd := &cobra.Command{
		Use:   "report [dir]",
		Short: "show a run report written by run --report",
		Args:  cobra.ExactArgs(1),
		RunE:  showReport,
	}
	reportCmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	reportCmd.Flags().StringVarP(&outFile, "out", "o", "", "write the JSON report to this file")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run a scripted batch of sorts",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().DurationVar(&timeout, "timeout", 0, "abort scripts running longer than this")
	batchCmd.Flags().StringVar(&security, "security", "", "script sandbox level (strict, standard, permissive)")

	rootCmd.AddCommand(runCmd, liveCmd, serveCmd, presetsCmd, reportCmd, batchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&size, "size", 0, "number of items (0 uses the preset)")
	cmd.Flags().IntVar(&skip, "skip", 0, "render one in this many snapshots (0 uses the preset)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "shuffle seed (0 picks one)")
	cmd.Flags().IntVar(&fps, "fps", config.DefaultFPS, "frame rate")
	cmd.Flags().IntVar(&width, "width", config.DefaultWidth, "surface width in pixels")
	cmd.Flags().IntVar(&height, "height", config.DefaultHeight, "surface height in pixels")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort scripts running longer than this")
	cmd.Flags().StringVar(&security, "security", "", "script sandbox level (strict, standard, permissive)")
}

// loadConfig reads the config file and lays the flags the user set on top of it.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	if len(args) > 0 {
		cfg.Preset = args[0]
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if presetsFile != "" {
		cfg.PresetsFile = presetsFile
	}
	if flags.Changed("size") {
		cfg.Size = size
	}
	if flags.Changed("skip") {
		cfg.Skip = skip
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("fps") {
		cfg.FPS = fps
	}
	if flags.Changed("width") {
		cfg.Width = width
	}
	if flags.Changed("height") {
		cfg.Height = height
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("theme") {
		cfg.Theme = theme
	}
	if flags.Changed("security") {
		cfg.SecurityLevel = security
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadCatalog(cfg *config.Config) (*config.Catalog, error) {
	if cfg.PresetsFile == "" {
		return config.DefaultCatalog(), nil
	}
	return config.LoadPresets(cfg.PresetsFile)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	var preset config.Preset
	if codeFile != "" {
		code, err := os.ReadFile(codeFile)
		if err != nil {
			return err
		}
		preset = config.Preset{Name: codeFile, Code: string(code), Size: 1024, Skip: 1}
	} else {
		found := catalog.Get(cfg.Preset)
		if found == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", cfg.Preset, catalog.Names())
		}
		preset = *found
	}
	preset = cfg.Resolve(preset)
	if err := preset.Validate(); err != nil {
		return err
	}

	l, err := loader.New(cfg.Loader(), logger)
	if err != nil {
		return err
	}
	algo, err := l.Load(preset.Code)
	if err != nil {
		return err
	}

	img, err := render.NewImageSurface(cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer img.Close()

	surfaces := []render.Surface{img}
	var rec *export.GIFRecorder
	if gifOut != "" {
		rec = export.NewGIFRecorder(img, export.WithMaxFrames(512))
		surfaces[0] = rec
	}
	var svg *export.SVGSurface
	if svgOut != "" {
		svg, err = export.NewSVGSurface(cfg.Width, cfg.Height)
		if err != nil {
			return err
		}
		surfaces = append(surfaces, svg)
	}

	grid := render.NewGridRenderer(render.Multi(surfaces...), render.Immediate)
	recorder := metrics.NewRecorder(grid)
	throttle, err := render.NewThrottle(recorder, preset.Skip)
	if err != nil {
		return err
	}
	r := runner.New(throttle, runner.WithLogger(logger))

	ctx, stop := signalContext()
	defer stop()
	go func() {
		<-ctx.Done()
		r.Cancel()
	}()

	data := dataset.Shuffled(preset.Size, cfg.Seed)
	if err := recorder.RenderNow(data); err != nil {
		return err
	}

	logger.Info("run started", zap.String("preset", preset.Name), zap.Int("size", preset.Size), zap.Int("skip", preset.Skip))
	start := time.Now()
	outcome, runErr := r.Run(context.Background(), algo, data)
	elapsed := time.Since(start)

	if outcome != runner.Failed {
		if err := recorder.RenderNow(data); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tSIZE\tSKIP\tOUTCOME\tSNAPSHOTS\tTIME")
	fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%d\t%s\n", preset.Name, preset.Size, preset.Skip, outcome, throttle.Frames(), elapsed.Round(time.Millisecond))
	w.Flush()
	fmt.Println(recorder.Summary())
	if showPlt {
		fmt.Println()
		fmt.Println(recorder.Plot(60, 12))
	}

	if rec != nil {
		if err := rec.Save(gifOut); err != nil {
			return fmt.Errorf("write gif: %w", err)
		}
		fmt.Printf("wrote %s (%d frames)\n", gifOut, rec.Frames())
	}
	if pngOut != "" {
		if err := img.SavePNG(pngOut); err != nil {
			return fmt.Errorf("write png: %w", err)
		}
		fmt.Printf("wrote %s\n", pngOut)
	}
	if svg != nil {
		if err := os.WriteFile(svgOut, []byte(svg.String()), 0o644); err != nil {
			return fmt.Errorf("write svg: %w", err)
		}
		fmt.Printf("wrote %s\n", svgOut)
	}

	if reportDir != "" {
		rep := report.Report{
			Metadata: report.Metadata{
				RunID:     uuid.NewString(),
				Preset:    preset.Name,
				Seed:      cfg.Seed,
				Size:      preset.Size,
				Skip:      preset.Skip,
				Outcome:   outcome.String(),
				Snapshots: throttle.Frames(),
				Elapsed:   elapsed,
			},
			Frames: recorder.Frames(),
		}
		if runErr != nil {
			rep.Error = runErr.Error()
		}
		if err := report.Write(reportDir, rep); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Printf("wrote report to %s\n", reportDir)
	}

	return runErr
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := logging.NewTUI(cfg.LogLevel, logFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	if catalog.Get(cfg.Preset) == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", cfg.Preset, catalog.Names())
	}
	l, err := loader.New(cfg.Loader(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	return viz.Run(ctx, viz.Options{Config: cfg, Catalog: catalog, Loader: l, Logger: logger})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	l, err := loader.New(cfg.Loader(), logger)
	if err != nil {
		return err
	}

	h := server.NewHandler(server.Options{
		Catalog: catalog,
		Loader:  l,
		Logger:  logger,
		Width:   cfg.Width,
		Height:  cfg.Height,
		FPS:     cfg.FPS,
	})
	srv := server.New(addr, h.Routes(), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	ctx, stop := signalContext()
	defer stop()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func listPresets(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSLUG\tSIZE\tSKIP")
	for _, p := range catalog.All() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", p.Name, p.Slug(), p.Size, p.Skip)
	}
	return w.Flush()
}

func showReport(cmd *cobra.Command, args []string) error {
	rep, err := report.Read(args[0])
	if err != nil {
		return err
	}

	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := rep.ExportJSON(f); err != nil {
			return err
		}
		fmt.Printf("exported to %s\n", outFile)
		return nil
	}
	if asJSON {
		return rep.ExportJSON(os.Stdout)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tTIME\tSIZE\tSKIP\tOUTCOME\tSNAPSHOTS\tSORTED")
	fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%d\t%.1f%%\n",
		rep.Preset,
		rep.Timestamp.Format("2006-01-02 15:04:05"),
		rep.Size,
		rep.Skip,
		rep.Outcome,
		rep.Snapshots,
		rep.Sortedness*100,
	)
	if err := w.Flush(); err != nil {
		return err
	}
	if rep.Error != "" {
		fmt.Printf("error: %s\n", rep.Error)
	}
	if len(rep.Frames) > 0 {
		fmt.Println()
		fmt.Println(metrics.Plot(rep.Frames, 60, 12))
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	l, err := loader.New(cfg.Loader(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	results, runErr := automation.NewBatch(catalog, l, logger).Run(ctx, scenario)

	if scenario.Name != "" {
		fmt.Printf("scenario %s: %d runs\n", scenario.Name, len(results))
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tPRESET\tSIZE\tSKIP\tOUTCOME\tSNAPSHOTS\tTIME\tSORTED")
	for _, res := range results {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%d\t%s\t%t\n",
			res.Step,
			res.Preset,
			res.Size,
			res.Skip,
			res.Outcome,
			res.Snapshots,
			res.Elapsed.Round(time.Microsecond),
			res.Sorted,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	for _, res := range results {
		if res.Err != nil {
			fmt.Printf("step %d: %v\n", res.Step, res.Err)
		}
	}
	return runErr
}
