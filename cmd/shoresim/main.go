package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/shoresim/internal/config"
	"github.com/san-kum/shoresim/internal/engine"
	"github.com/san-kum/shoresim/internal/logging"
	"github.com/san-kum/shoresim/internal/result"
	"github.com/san-kum/shoresim/internal/shoreline"
	"github.com/san-kum/shoresim/internal/storage"
	"github.com/san-kum/shoresim/internal/viz"
)

// exit codes by failure class
const (
	exitFailure     = 1
	exitConfig      = 2
	exitUnavailable = 3
	exitSimulation  = 4
	exitShape       = 5
)

var (
	dataDir   string
	logLevel  string
	logFormat string
	themeName string

	// run
	runtimeName string
	executable  string
	timeout     time.Duration
	console     bool
	save        bool
	csvOut      string
	jsonOut     string

	// import
	configPath string

	// init
	preset string
	force  bool

	// plot
	column string
	step   int
	point  int
	plan   bool
	width  int
	height int

	// export
	format string
	out    string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "shoresim",
		Short:         "run ShorelineS coastline simulations and inspect their output",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := logging.New(logLevel, logFormat, cmd.ErrOrStderr())
			slog.SetDefault(logger)
			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".shoresim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&themeName, "theme", "ocean", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run [config]",
		Short: "run a simulation from a parameter file",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&runtimeName, "runtime", "", "engine runtime (matlab, octave), overrides engine.runtime")
	runCmd.Flags().StringVar(&executable, "executable", "", "engine executable, overrides engine.executable")
	runCmd.Flags().DurationVar(&timeout, "timeout", 0, "engine timeout, overrides engine.timeout")
	runCmd.Flags().BoolVar(&console, "console", false, "stream engine console output to stderr")
	runCmd.Flags().BoolVar(&save, "save", true, "store the run in the data directory")
	runCmd.Flags().StringVar(&csvOut, "csv", "", "also write the table as CSV to this path")
	runCmd.Flags().StringVar(&jsonOut, "json", "", "also write the table as JSON to this path")

	importCmd := &cobra.Command{
		Use:   "import [file.mat]",
		Short: "tabulate a saved ShorelineS result file without rerunning the model",
		Args:  cobra.ExactArgs(1),
		RunE:  importResult,
	}
	importCmd.Flags().StringVar(&configPath, "config", "", "parameter file the result was produced with (required)")
	importCmd.Flags().StringVar(&runtimeName, "runtime", "", "engine runtime (matlab, octave), overrides engine.runtime")
	importCmd.Flags().StringVar(&executable, "executable", "", "engine executable, overrides engine.executable")
	importCmd.Flags().BoolVar(&save, "save", true, "store the run in the data directory")
	importCmd.Flags().StringVar(&csvOut, "csv", "", "also write the table as CSV to this path")
	importCmd.Flags().StringVar(&jsonOut, "json", "", "also write the table as JSON to this path")
	_ = importCmd.MarkFlagRequired("config")

	validateCmd := &cobra.Command{
		Use:   "validate [config]",
		Short: "check a parameter file without starting the engine",
		Args:  cobra.ExactArgs(1),
		RunE:  validateConfig,
	}

	paramsCmd := &cobra.Command{
		Use:   "params",
		Short: "list recognised model parameters",
		RunE:  listParams,
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a parameter file from a preset",
		Args:  cobra.ExactArgs(1),
		RunE:  initConfig,
	}
	initCmd.Flags().StringVar(&preset, "preset", "straight", "preset ("+strings.Join(config.ListPresets(), ", ")+")")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "check that the engine runtime starts",
		RunE:  runDoctor,
	}
	doctorCmd.Flags().StringVar(&runtimeName, "runtime", config.DefaultRuntime, "engine runtime (matlab, octave)")
	doctorCmd.Flags().StringVar(&executable, "executable", "", "engine executable")
	doctorCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "probe timeout")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "summarise a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&column, "column", "y", "column to plot")
	plotCmd.Flags().IntVar(&step, "step", -1, "time step for a coastline snapshot (-1 = last)")
	plotCmd.Flags().IntVar(&point, "point", -1, "plot the time series of this point instead of a snapshot")
	plotCmd.Flags().BoolVar(&plan, "plan", false, "draw the coastline x/y plan view")
	plotCmd.Flags().IntVar(&width, "width", 70, "chart width")
	plotCmd.Flags().IntVar(&height, "height", 15, "chart height")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&format, "format", "json", "export format (json, csv)")
	exportCmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")

	viewCmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "browse a stored run interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  viewRun,
	}

	rootCmd.AddCommand(runCmd, importCmd, validateCmd, paramsCmd, initCmd, doctorCmd,
		listCmd, showCmd, plotCmd, exportCmd, viewCmd)
	return rootCmd
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, bridge, err := loadWithEngine(cmd, args[0])
	if err != nil {
		return err
	}
	rep, err := shoreline.NewRunner(bridge).Run(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	return finishRun(cmd, cfg, rep)
}

func importResult(cmd *cobra.Command, args []string) error {
	cfg, bridge, err := loadWithEngine(cmd, configPath)
	if err != nil {
		return err
	}
	rep, err := shoreline.NewRunner(bridge).LoadResult(cmd.Context(), cfg, args[0])
	if err != nil {
		return err
	}
	return finishRun(cmd, cfg, rep)
}

// loadWithEngine loads the parameter file, applies engine flag overrides
// and builds the bridge the file asks for.
func loadWithEngine(cmd *cobra.Command, path string) (*config.SimulationConfig, *engine.Process, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("runtime") {
		cfg.Engine.Runtime = runtimeName
	}
	if flags.Changed("executable") {
		cfg.Engine.Executable = executable
	}
	if flags.Changed("timeout") {
		cfg.Engine.Timeout = timeout
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}

	opts := engine.Options{
		Runtime:    cfg.Engine.Runtime,
		Executable: cfg.Engine.Executable,
		Timeout:    cfg.Engine.Timeout,
	}
	if console {
		opts.Console = cmd.ErrOrStderr()
	}
	bridge, err := engine.NewProcess(opts)
	if err != nil {
		return nil, nil, err
	}
	return cfg, bridge, nil
}

// finishRun stores and exports a table as requested and prints its summary.
func finishRun(cmd *cobra.Command, cfg *config.SimulationConfig, rep *shoreline.Report) error {
	log := logging.FromContext(cmd.Context())
	meta := storage.NewMetadata(cfg, rep.Table, rep.Elapsed)
	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(meta, rep.Table)
		if err != nil {
			return err
		}
		meta.ID = runID
		log.Info("run saved", "id", runID, "dir", dataDir)
	}
	if csvOut != "" {
		if err := writeFile(csvOut, func(w io.Writer) error { return storage.ExportCSV(w, rep.Table) }); err != nil {
			return err
		}
	}
	if jsonOut != "" {
		if err := writeFile(jsonOut, func(w io.Writer) error { return storage.ExportJSON(w, &meta, rep.Table) }); err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), viz.Summary(&meta, rep.Table, viz.GetTheme(themeName)))
	return nil
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	params, err := cfg.Parameters()
	if err != nil {
		return err
	}

	names := make([]string, 0, params.Len())
	for _, f := range params.Fields() {
		names = append(names, f.Name)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s: ok\n", cfg.Source())
	fmt.Fprintf(w, "  period    %s to %s (%d stored steps expected)\n",
		cfg.RefTime, cfg.EndOfSimulation, expectedSteps(cfg))
	fmt.Fprintf(w, "  engine    %s via %s\n", cfg.Engine.Function, cfg.Engine.Runtime)
	fmt.Fprintf(w, "  params    %s\n", strings.Join(names, ", "))
	fmt.Fprintf(w, "  output    %s\n", strings.Join(cfg.Output.Fields, ", "))
	return nil
}

// expectedSteps estimates the number of stored steps, counting the initial
// state.
func expectedSteps(cfg *config.SimulationConfig) int {
	days := cfg.EndOfSimulation.Sub(cfg.RefTime.Time).Hours() / 24
	if cfg.StorageInterval <= 0 {
		return 0
	}
	return int(days/cfg.StorageInterval) + 1
}

func listParams(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tUNIT\tREQUIRED\tDESCRIPTION")
	for _, p := range config.Params {
		req := ""
		if p.Required {
			req = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Key, p.Unit, req, p.Description)
	}
	return w.Flush()
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := args[0]
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return fmt.Errorf("unknown preset %q (available: %s)", preset, strings.Join(config.ListPresets(), ", "))
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s from preset %q\n", path, preset)
	return nil
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	bridge, err := engine.NewProcess(engine.Options{Runtime: runtimeName, Executable: executable})
	if err != nil {
		return err
	}
	rtt, err := engine.Probe(ctx, bridge)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (round trip %s)\n", runtimeName, rtt.Round(time.Millisecond))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tPERIOD\tSTEPS\tPOINTS\tRUNTIME\tELAPSED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s..%s\t%d\t%d\t%s\t%.1fs\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.RefTime,
			run.EndOfSimulation,
			run.Steps,
			run.Points,
			run.Runtime,
			run.Elapsed,
		)
	}
	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, *result.Table, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	table, err := st.LoadTable(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, table, nil
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, table, err := loadRun(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), viz.Summary(meta, table, viz.GetTheme(themeName)))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	_, table, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if table.Steps() == 0 {
		return errors.New("run has no stored time steps")
	}

	s := step
	if s < 0 {
		s = table.Steps() - 1
	}

	var chart string
	switch {
	case plan:
		chart, err = viz.PlanView(table, s, width, height)
	case point >= 0:
		chart, err = viz.PlotSeries(table, point, column, viz.PlotOptions{Width: width, Height: height})
	default:
		chart, err = viz.PlotSnapshot(table, s, column, viz.PlotOptions{Width: width, Height: height})
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), chart)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, table, err := loadRun(args[0])
	if err != nil {
		return err
	}

	var export func(io.Writer) error
	switch format {
	case "json":
		export = func(w io.Writer) error { return storage.ExportJSON(w, meta, table) }
	case "csv":
		export = func(w io.Writer) error { return storage.ExportCSV(w, table) }
	default:
		return fmt.Errorf("unknown format %q (want json or csv)", format)
	}

	if out == "" {
		return export(cmd.OutOrStdout())
	}
	if err := writeFile(out, export); err != nil {
		return err
	}
	logging.FromContext(cmd.Context()).Info("exported run", "id", meta.ID, "format", format, "path", out)
	return nil
}

func viewRun(cmd *cobra.Command, args []string) error {
	meta, table, err := loadRun(args[0])
	if err != nil {
		return err
	}
	p := tea.NewProgram(viz.NewBrowser(meta.ID, table, viz.GetTheme(themeName)),
		tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && cmd.Context().Err() != nil {
		return nil
	}
	return err
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}

func exitCode(err error) int {
	var (
		cfgErr   *config.ConfigurationError
		parseErr *config.ParseError
		unavail  *engine.UnavailableError
		simErr   *engine.SimulationError
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &parseErr):
		return exitConfig
	case errors.As(err, &unavail):
		return exitUnavailable
	case errors.As(err, &simErr):
		return exitSimulation
	case errors.Is(err, result.ErrShape):
		return exitShape
	}
	return exitFailure
}
