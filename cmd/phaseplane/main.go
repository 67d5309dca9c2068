package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/phaseplane/internal/analysis"
	"github.com/san-kum/phaseplane/internal/automation"
	"github.com/san-kum/phaseplane/internal/config"
	"github.com/san-kum/phaseplane/internal/dynamo"
	"github.com/san-kum/phaseplane/internal/export"
	"github.com/san-kum/phaseplane/internal/integrators"
	"github.com/san-kum/phaseplane/internal/phase"
	"github.com/san-kum/phaseplane/internal/viz"
)

var (
	exportFormat string
	exportOut    string
	plotWidth    int
	plotHeight   int
	plotFixed    bool
	exportFixed  bool
	chartWidth   int
	chartHeight  int
	plotColor    bool
	showPoints   bool
	initForce    bool
	sweepFile    string
	sweepVary    string
	sweepSteps   int
	basinTrials  int
	basinSeed    int64
	basinHorizon float64
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "phaseplane",
})

func main() {
	rootCmd := &cobra.Command{
		Use:   "phaseplane",
		Short: "Phase-plane analysis for one- and two-dimensional ODE systems",
		Long: `Explore autonomous ODE systems: direction fields, trajectories,
nullclines and equilibria. Without a subcommand an interactive
explorer opens on the configured system.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(log.DebugLevel)
			}
		},
		RunE: runExplorer,
	}
	addSystemFlags(rootCmd)
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".phaseplane", "directory for saved portraits")
	rootCmd.Flags().StringVarP(&themeName, "theme", "t", viz.DefaultTheme.Name,
		"color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	fieldCmd := &cobra.Command{
		Use:   "field",
		Short: "Print the sampled direction field",
		RunE:  runField,
	}

	trajectoryCmd := &cobra.Command{
		Use:   "trajectory [x,y ...]",
		Short: "Integrate trajectories from seeds and chart each coordinate",
		Long: `Integrate forward and backward from every seed. Seeds come from
the arguments, the --seed flags or the config, in that order.`,
		RunE: runTrajectory,
	}
	trajectoryCmd.Flags().IntVar(&chartHeight, "height", 10, "chart height")
	trajectoryCmd.Flags().IntVar(&chartWidth, "width", 70, "chart width")

	nullclinesCmd := &cobra.Command{
		Use:   "nullclines",
		Short: "Trace the nullclines of each coordinate",
		RunE:  runNullclines,
	}
	nullclinesCmd.Flags().BoolVar(&showPoints, "points", false, "print every curve point")

	fixedCmd := &cobra.Command{
		Use:     "fixed-points",
		Aliases: []string{"fixed", "equilibria"},
		Short:   "Locate and classify equilibria in the window",
		RunE:    runFixedPoints,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [x,y ...]",
		Short: "Draw the phase portrait in the terminal",
		RunE:  runPlot,
	}
	plotCmd.Flags().IntVar(&plotWidth, "width", 72, "portrait width in cells")
	plotCmd.Flags().IntVar(&plotHeight, "height", 24, "portrait height in cells")
	plotCmd.Flags().BoolVar(&plotFixed, "fixed", false, "mark equilibria")
	plotCmd.Flags().BoolVar(&plotColor, "color", true, "colorize layers")
	plotCmd.Flags().StringVarP(&themeName, "theme", "t", viz.DefaultTheme.Name, "color theme")

	exportCmd := &cobra.Command{
		Use:   "export [x,y ...]",
		Short: "Write the portrait data as json, csv or svg, or save it to the store",
		RunE:  runExport,
	}
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "json, csv, svg or store")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (csv: directory); stdout when empty")
	exportCmd.Flags().BoolVar(&exportFixed, "fixed", true, "include equilibria")

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List saved portraits",
		RunE:  listRuns,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "List built-in systems",
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSYSTEM")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\n", name, describe(p))
			}
			w.Flush()
		},
	}

	methodsCmd := &cobra.Command{
		Use:   "methods",
		Short: "List integration methods",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range integrators.Names() {
				marker := " "
				if name == integrators.Default {
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, name)
			}
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file for the selected system",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Step a parameter and classify the equilibria at each value",
		Long: `Step one parameter across a range, classify the equilibria at every
value and report where their number or kind changes.`,
		RunE: runSweep,
	}
	sweepCmd.Flags().StringVar(&sweepVary, "vary", "", "parameter range as name=min:max")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 21, "number of parameter values")
	sweepCmd.Flags().StringVar(&sweepFile, "sweep", "", "YAML sweep definition (param, min, max, steps)")

	basinsCmd := &cobra.Command{
		Use:   "basins",
		Short: "Sample random seeds and count which equilibrium each one reaches",
		RunE:  runBasins,
	}
	basinsCmd.Flags().IntVarP(&basinTrials, "trials", "n", 200, "number of random seeds")
	basinsCmd.Flags().Int64Var(&basinSeed, "rng-seed", 0, "random seed (0 = time based)")
	basinsCmd.Flags().Float64Var(&basinHorizon, "horizon", 0, "forward integration time (default t_f)")

	rootCmd.AddCommand(fieldCmd, trajectoryCmd, nullclinesCmd, fixedCmd, plotCmd,
		exportCmd, runsCmd, presetsCmd, methodsCmd, initCmd, sweepCmd, basinsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func describe(cfg *config.Config) string {
	parts := make([]string, len(cfg.Exprs))
	for i, e := range cfg.Exprs {
		coord := "?"
		if i < len(cfg.Coords) {
			coord = cfg.Coords[i]
		}
		parts[i] = fmt.Sprintf("%s' = %s", coord, e)
	}
	return strings.Join(parts, ", ")
}

// buildModel resolves the configuration and brings a model to Ready with
// the configured seeds integrated. Positional "x,y" arguments add seeds.
func buildModel(cmd *cobra.Command, args []string) (*phase.Model, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	m, err := phase.FromConfig(cfg, phase.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	logger.Debug("model ready", "system", m.System(), "window", formatWindow(m.Window()), "elapsed", time.Since(start))

	extra, err := seedArgs(m.System().Dim(), args)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()
	if err := m.AddTrajectories(ctx, extra); err != nil {
		return nil, err
	}
	return m, nil
}

func seedArgs(dim int, args []string) ([]dynamo.State, error) {
	out := make([]dynamo.State, 0, len(args))
	for _, raw := range args {
		s, err := parseSeed(raw)
		if err != nil {
			return nil, err
		}
		if len(s) != dim {
			return nil, fmt.Errorf("seed %q has %d components, system has %d: %w", raw, len(s), dim, dynamo.ErrDimensionMismatch)
		}
		out = append(out, dynamo.State(s))
	}
	return out, nil
}

func runExplorer(cmd *cobra.Command, args []string) error {
	m, err := buildModel(cmd, args)
	if err != nil {
		return err
	}
	if !verbose {
		// log lines would tear the alternate screen
		logger.SetLevel(log.FatalLevel)
	}
	return viz.RunExplorer(m, export.NewStore(dataDir), viz.GetTheme(themeName))
}

func runField(cmd *cobra.Command, args []string) error {
	m, err := buildModel(cmd, nil)
	if err != nil {
		return err
	}
	g := m.Field()
	labels := m.Snapshot().AxisLabels()
	fmt.Printf("%s\n%s  %dx%d lattice, %d/%d valid, max |v| = %.4g\n\n",
		m.System(), formatWindow(m.Window()), g.Resolution.NX, g.Resolution.NY,
		g.ValidCount(), g.Len(), g.MaxMagnitude())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "%s\t%s\td%s\td%s\t\n", labels[0], labels[1], labels[0], labels[1])
	for _, p := range g.Points {
		if !p.Valid {
			fmt.Fprintf(w, "%.4g\t%.4g\t-\t-\t\n", p.Pos[0], p.Pos[1])
			continue
		}
		fmt.Fprintf(w, "%.4g\t%.4g\t%.4g\t%.4g\t\n", p.Pos[0], p.Pos[1], p.Vec[0], p.Vec[1])
	}
	return w.Flush()
}

func runTrajectory(cmd *cobra.Command, args []string) error {
	m, err := buildModel(cmd, args)
	if err != nil {
		return err
	}
	if len(m.Trajectories()) == 0 {
		return errors.New("no seeds: pass x,y arguments or --seed")
	}

	coordNames := m.System().Coords()
	for _, pair := range m.Trajectories() {
		fmt.Printf("\nseed %s\n", formatState(pair.Seed))
		for _, tr := range []*dynamo.Trajectory{pair.Backward, pair.Forward} {
			if tr == nil || tr.Len() == 0 {
				continue
			}
			fmt.Printf("  t %.4g..%.4g  %-16s steps=%d rejected=%d evals=%d\n",
				tr.Times[0], tr.Times[tr.Len()-1], tr.Termination,
				tr.Stats.Steps, tr.Stats.Rejected, tr.Stats.Evaluations)
		}
		for i, name := range coordNames {
			series := joined(pair, i)
			if len(series) < 2 {
				continue
			}
			fmt.Println(asciigraph.Plot(series,
				asciigraph.Height(chartHeight),
				asciigraph.Width(chartWidth),
				asciigraph.Caption(fmt.Sprintf("%s(t), t in [%g, %g]", name, m.Bounds().Reverse, m.Bounds().Forward)),
			))
		}
	}
	return nil
}

// joined is the coordinate series over the whole time span. The backward
// branch ends at the seed, which the forward branch repeats.
func joined(pair *dynamo.Pair, i int) []float64 {
	var out []float64
	if pair.Backward != nil && pair.Backward.Len() > 0 {
		back := pair.Backward.Component(i)
		out = append(out, back[:len(back)-1]...)
	}
	if pair.Forward != nil {
		out = append(out, pair.Forward.Component(i)...)
	}
	finite := out[:0]
	for _, v := range out {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	return finite
}

func runNullclines(cmd *cobra.Command, args []string) error {
	m, err := buildModel(cmd, nil)
	if err != nil {
		return err
	}
	if err := m.ToggleNullclines(true); err != nil {
		return err
	}
	result, _ := m.Nullclines()
	labels := m.Snapshot().AxisLabels()

	for _, set := range result {
		total := 0
		for _, c := range set.Curves {
			total += len(c)
		}
		fmt.Printf("%s' = 0: %d curves, %d points\n", set.Coord, len(set.Curves), total)
		if !showPoints {
			continue
		}
		for ci, c := range set.Curves {
			fmt.Printf("  curve %d\n", ci)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintf(w, "\t%s\t%s\t\n", labels[0], labels[1])
			for _, p := range c {
				fmt.Fprintf(w, "\t%.5g\t%.5g\t\n", p[0], p[1])
			}
			w.Flush()
		}
	}
	return nil
}

func runFixedPoints(cmd *cobra.Command, args []string) error {
	m, err := buildModel(cmd, nil)
	if err != nil {
		return err
	}
	fps, err := m.FixedPoints()
	if err != nil {
		return err
	}
	if len(fps) == 0 {
		fmt.Println("No equilibria in the window.")
		return nil
	}
	printFixedPoints(fps)
	return nil
}

func printFixedPoints(fps []analysis.FixedPoint) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATE\tKIND\tEIGENVALUES")
	for _, fp := range fps {
		evs := make([]string, len(fp.Eigenvalues))
		for i, ev := range fp.Eigenvalues {
			evs[i] = analysis.EigenString(ev)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", formatState(fp.State), fp.Kind, strings.Join(evs, ", "))
	}
	w.Flush()
}

func runPlot(cmd *cobra.Command, args []string) error {
	m, err := buildModel(cmd, args)
	if err != nil {
		return err
	}
	if plotFixed {
		if _, err := m.FixedPoints(); err != nil {
			return err
		}
	}

	snap := m.Snapshot()
	theme := viz.GetTheme(themeName)
	fmt.Println(viz.HeaderStyle.Render(m.System().String()))
	fmt.Print(viz.Render(snap, viz.RenderOptions{
		Width:     plotWidth,
		Height:    plotHeight,
		Theme:     theme,
		Color:     plotColor,
		Highlight: -1,
	}))
	labels := snap.AxisLabels()
	fmt.Println(viz.Subtle.Render(fmt.Sprintf("%s ∈ [%g, %g]   %s ∈ [%g, %g]   t ∈ [%g, %g]   %s",
		labels[0], snap.Window[0].Min, snap.Window[0].Max,
		labels[1], snap.Window[1].Min, snap.Window[1].Max,
		snap.Bounds.Reverse, snap.Bounds.Forward, snap.Method)))
	if plotFixed && len(snap.FixedPoints) > 0 {
		fmt.Println()
		printFixedPoints(snap.FixedPoints)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	m, err := buildModel(cmd, args)
	if err != nil {
		return err
	}
	if exportFixed {
		if _, err := m.FixedPoints(); err != nil {
			return err
		}
	}
	b := export.NewBundle(m.Snapshot())

	switch exportFormat {
	case "json":
		if exportOut == "" || exportOut == "-" {
			return export.WriteJSON(os.Stdout, b)
		}
		if err := export.SaveJSON(exportOut, b); err != nil {
			return err
		}
	case "csv":
		if exportOut == "" {
			exportOut = "phaseplane-" + b.ID[:8]
		}
		if err := os.MkdirAll(exportOut, 0755); err != nil {
			return err
		}
		if err := export.WriteCSV(exportOut, b); err != nil {
			return err
		}
		exportOut = filepath.Join(exportOut, "*.csv")
	case "svg":
		svg := export.Portrait(b, export.SVGOptions{})
		if exportOut == "" || exportOut == "-" {
			_, err := fmt.Print(svg)
			return err
		}
		if err := os.WriteFile(exportOut, []byte(svg), 0644); err != nil {
			return err
		}
	case "store":
		store := export.NewStore(dataDir)
		if err := store.Init(); err != nil {
			return err
		}
		id, err := store.Save(b)
		if err != nil {
			return err
		}
		exportOut = store.Dir(id)
	default:
		return fmt.Errorf("unknown format %q (json, csv, svg, store)", exportFormat)
	}
	logger.Info("exported", "format", exportFormat, "path", exportOut, "id", b.ID)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	m, err := buildModel(cmd, nil)
	if err != nil {
		return err
	}
	var sweep *automation.ParameterSweep
	switch {
	case sweepFile != "":
		if sweep, err = automation.LoadSweep(sweepFile); err != nil {
			return err
		}
	case sweepVary != "":
		if sweep, err = parseSweep(sweepVary, sweepSteps); err != nil {
			return err
		}
	default:
		return errors.New("nothing to sweep: pass --vary name=min:max or --sweep file")
	}

	start := time.Now()
	results, err := automation.RunSweep(cmd.Context(), m.System(), m.Window(), sweep, analysis.Options{})
	if err != nil {
		return err
	}
	logger.Debug("sweep done", "param", sweep.Param, "values", len(results), "elapsed", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tEQUILIBRIA\n", strings.ToUpper(sweep.Param))
	for _, r := range results {
		fmt.Fprintf(w, "%.4g\t%s\n", r.Value, r.Signature())
	}
	w.Flush()

	transitions := automation.Transitions(results)
	if len(transitions) == 0 {
		fmt.Println("\nNo change in equilibria across the range.")
		return nil
	}
	fmt.Println()
	for _, tr := range transitions {
		fmt.Printf("%s in (%.4g, %.4g): %s -> %s\n", sweep.Param, tr.From, tr.To, tr.Before, tr.After)
	}
	return nil
}

func runBasins(cmd *cobra.Command, args []string) error {
	m, err := buildModel(cmd, nil)
	if err != nil {
		return err
	}
	fps, err := m.FixedPoints()
	if err != nil {
		return err
	}
	horizon := basinHorizon
	if horizon <= 0 {
		horizon = m.Bounds().Forward
	}
	results, err := automation.RunBasins(cmd.Context(), m.System(), m.Window(), fps, automation.BasinSample{
		NumTrials: basinTrials,
		Seed:      basinSeed,
		Method:    m.Method(),
		Horizon:   horizon,
	})
	if err != nil {
		return err
	}

	stats := automation.BasinStats(results)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ATTRACTOR\tKIND\tTRIALS\tSHARE")
	for i, fp := range fps {
		if n := stats[i]; n > 0 {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.1f%%\n", formatState(fp.State), fp.Kind, n, 100*float64(n)/float64(len(results)))
		}
	}
	if n := stats[-1]; n > 0 {
		fmt.Fprintf(w, "elsewhere\t-\t%d\t%.1f%%\n", n, 100*float64(n)/float64(len(results)))
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	store := export.NewStore(dataDir)
	runs, err := store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No saved portraits.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tMETHOD\tTRAJ\tFIXED\tSYSTEM")
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			id, r.Created.Format("2006-01-02 15:04"), r.Method, r.Trajectories, r.FixedPoints, r.System)
	}
	return w.Flush()
}

func runInit(cmd *cobra.Command, args []string) error {
	path := "phaseplane.yaml"
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s exists (use --force to overwrite)", path)
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	// refuse to write a record that would not load back
	if _, err := cfg.Build(); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	logger.Info("wrote config", "path", path)
	return nil
}

func formatState(s dynamo.State) string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprintf("%.4g", v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatWindow(w dynamo.Window) string {
	return fmt.Sprintf("[%g, %g] x [%g, %g]", w[0].Min, w[0].Max, w[1].Min, w[1].Max)
}
