package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"ctrllab/internal/analysis"
	"ctrllab/internal/config"
	"ctrllab/internal/experiment"
	"ctrllab/internal/linearize"
	"ctrllab/internal/loop"
	"ctrllab/internal/optim"
	"ctrllab/internal/scenario"
	"ctrllab/internal/store"
	"ctrllab/internal/viz"
)

var (
	dbPath      string
	configFile  string
	presetName  string
	stepperName string
	lawName     string
	dt          float64
	duration    float64
	seed        int64
	adaptive    bool
	initSpec    string   // comma-separated initial state
	controlSpec string   // comma-separated constant control vector
	paramSpecs  []string // law parameters as name=value
	plantSpecs  []string // plant parameters as name=value
	noSave      bool
	every       int // step: print every n-th sample
	runs        int
	spread      float64
	gridSpecs   []string // sweep axes as name=lo:hi:n
	fdStep      float64
	sensitivity bool
	separation  float64
	stateIdx    int
	xAxis       int
	yAxis       int
	frameRate   int
)

func main() {
	envCfg, err := config.ParseEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:   "ctrllab",
		Short: "control law simulation lab",
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", envCfg.DBPath, "run catalog path")

	runCmd := &cobra.Command{
		Use:   "run [plant]",
		Short: "run one experiment and record it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExperiment,
	}
	experimentFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "skip writing the run to the catalog")

	stepCmd := &cobra.Command{
		Use:   "step [plant]",
		Short: "stream a rollout sample by sample",
		Args:  cobra.MaximumNArgs(1),
		RunE:  streamRun,
	}
	experimentFlags(stepCmd)
	stepCmd.Flags().IntVar(&every, "every", 10, "print every n-th sample")

	liveCmd := &cobra.Command{
		Use:   "live [plant]",
		Short: "run with live terminal visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	experimentFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", envCfg.FPS, "frame rate")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [plant]",
		Short: "run perturbed replicas and summarize their metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	experimentFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&runs, "runs", 16, "number of replicas")
	ensembleCmd.Flags().Float64Var(&spread, "spread", 0.01, "initial state jitter")

	sweepCmd := &cobra.Command{
		Use:   "sweep [metric]",
		Short: "grid-search law parameters against a metric",
		Args:  cobra.ExactArgs(1),
		RunE:  sweepMetric,
	}
	experimentFlags(sweepCmd)
	sweepCmd.Flags().StringSliceVar(&gridSpecs, "grid", nil, "sweep axis as name=lo:hi:n (repeatable)")

	batchCmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "run a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase portrait of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for the x axis")
	phaseCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for the y axis")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&stateIdx, "index", 0, "state component to analyze")

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [plant]",
		Short: "estimate the maximal lyapunov exponent of the loop",
		Args:  cobra.MaximumNArgs(1),
		RunE:  lyapunovExponent,
	}
	experimentFlags(lyapunovCmd)
	lyapunovCmd.Flags().Float64Var(&separation, "separation", 0, "twin trajectory offset (0 uses the default)")

	linearizeCmd := &cobra.Command{
		Use:   "linearize [plant]",
		Short: "linearize the loop at the initial state",
		Args:  cobra.MaximumNArgs(1),
		RunE:  linearizeLoop,
	}
	experimentFlags(linearizeCmd)
	linearizeCmd.Flags().Float64Var(&fdStep, "fd-step", 0, "finite difference step (0 uses the default)")
	linearizeCmd.Flags().BoolVar(&sensitivity, "sensitivity", false, "also print the control-to-state sensitivity")

	compareCmd := &cobra.Command{
		Use:   "compare [plant] [stepper] [stepper]...",
		Short: "run the same experiment under different steppers",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareSteppers,
	}
	experimentFlags(compareCmd)

	benchCmd := &cobra.Command{
		Use:   "bench [plant]",
		Short: "time a plant across dt and duration",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchPlant,
	}
	experimentFlags(benchCmd)

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a recorded run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a recorded trajectory as csv",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRunCSV,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [plant]",
		Short: "list preset experiments",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a starter experiment file",
		Args:  cobra.ExactArgs(1),
		RunE:  writeStarterConfig,
	}

	rootCmd.AddCommand(runCmd, stepCmd, liveCmd, ensembleCmd, sweepCmd, batchCmd,
		listCmd, plotCmd, phaseCmd, analyzeCmd, lyapunovCmd, linearizeCmd,
		compareCmd, benchCmd, exportCmd, exportCSVCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// experimentFlags registers the flags shared by every command that builds
// an experiment from scratch.
func experimentFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "experiment file (yaml)")
	cmd.Flags().StringVar(&presetName, "preset", "", "preset as plant/name")
	cmd.Flags().StringVar(&stepperName, "stepper", "rk4", "stepper")
	cmd.Flags().StringVar(&lawName, "law", "constant", "control law")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().BoolVar(&adaptive, "adaptive", false, "error-controlled stepping")
	cmd.Flags().StringVar(&initSpec, "init", "", "initial state, comma separated")
	cmd.Flags().StringVar(&controlSpec, "control", "", "constant control vector, comma separated")
	cmd.Flags().StringSliceVar(&paramSpecs, "param", nil, "law parameter as name=value (repeatable)")
	cmd.Flags().StringSliceVar(&plantSpecs, "plant-param", nil, "plant parameter as name=value (repeatable)")
}

// buildConfig assembles the experiment config for a command: defaults,
// then preset, then config file, then explicit flags, then the positional
// plant argument.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if presetName != "" {
		plantName, name, ok := strings.Cut(presetName, "/")
		if !ok {
			return nil, fmt.Errorf("preset must be plant/name, got %q", presetName)
		}
		p := config.GetPreset(plantName, name)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q (try 'ctrllab presets')", presetName)
		}
		cfg = p.Clone()
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if len(args) > 0 {
		cfg.Plant = args[0]
	}

	f := cmd.Flags()
	if f.Changed("stepper") {
		cfg.Stepper = stepperName
	}
	if f.Changed("law") {
		cfg.Law = lawName
	}
	if f.Changed("dt") {
		cfg.Dt = dt
	}
	if f.Changed("time") {
		cfg.Duration = duration
	}
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("adaptive") {
		cfg.Adaptive = adaptive
	}
	if f.Changed("init") {
		xs, err := parseVector(initSpec)
		if err != nil {
			return nil, fmt.Errorf("--init: %w", err)
		}
		cfg.InitState = xs
	}
	if f.Changed("control") {
		us, err := parseVector(controlSpec)
		if err != nil {
			return nil, fmt.Errorf("--control: %w", err)
		}
		cfg.Control = us
	}
	if len(paramSpecs) > 0 {
		if cfg.LawParams == nil {
			cfg.LawParams = map[string]float64{}
		}
		if err := parseParams(paramSpecs, cfg.LawParams); err != nil {
			return nil, fmt.Errorf("--param: %w", err)
		}
	}
	if len(plantSpecs) > 0 {
		if cfg.PlantParams == nil {
			cfg.PlantParams = map[string]float64{}
		}
		if err := parseParams(plantSpecs, cfg.PlantParams); err != nil {
			return nil, fmt.Errorf("--plant-param: %w", err)
		}
	}
	return cfg, nil
}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("running %s under %s law (%s, dt=%g, %.1fs)...\n",
		cfg.Plant, cfg.Law, cfg.Stepper, cfg.Dt, cfg.Duration)

	start := time.Now()
	res, err := exp.Run(context.Background())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("completed in %v\n", elapsed.Round(time.Microsecond))
	fmt.Printf("steps: %d\n", res.StepsTaken)
	fmt.Printf("final state: %s\n", fmtVec(res.Final()))

	if !noSave {
		ctx := context.Background()
		cat, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer cat.Close()

		run := store.Run{
			ID:       store.NewRunID(cfg.Plant),
			Plant:    cfg.Plant,
			Stepper:  cfg.Stepper,
			Law:      cfg.Law,
			Dt:       cfg.Dt,
			Duration: cfg.Duration,
			Seed:     cfg.Seed,
		}
		if err := cat.SaveRun(ctx, run, res); err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", run.ID)
	}

	fmt.Println("\nmetrics:")
	for _, name := range sortedKeys(res.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, res.Metrics[name])
	}
	return nil
}

func streamRun(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}
	x0, err := exp.InitState()
	if err != nil {
		return err
	}
	if every < 1 {
		every = 1
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "T\tSTATE\tCONTROL")

	n := 0
	err = exp.Runner().RunWithCallback(context.Background(), x0, cfg.Loop(),
		func(x loop.State, u loop.Control, t float64) bool {
			if n%every == 0 {
				fmt.Fprintf(w, "%.4f\t%s\t%s\n", t, fmtVec(x), fmtVec(u))
			}
			n++
			return true
		})
	if err != nil {
		return err
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}
	m, err := viz.NewLive(exp, frameRate)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}
	ens, err := exp.Ensemble(runs, spread)
	if err != nil {
		return err
	}
	x0, err := exp.InitState()
	if err != nil {
		return err
	}

	fmt.Printf("running %d replicas of %s (spread %g)...\n", runs, cfg.Plant, spread)
	start := time.Now()
	results, err := ens.Run(context.Background(), x0, cfg.Loop())
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start).Round(time.Microsecond))

	seen := map[string]bool{}
	for _, res := range results {
		for name := range res.Metrics {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tSTDDEV\tMIN\tMAX")
	for _, name := range names {
		vals := make([]float64, 0, len(results))
		for _, res := range results {
			if v, ok := res.Metrics[name]; ok {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%.6f\t%.6f\n",
			name, stat.Mean(vals, nil), stat.StdDev(vals, nil),
			floats.Min(vals), floats.Max(vals))
	}
	return w.Flush()
}

func sweepMetric(cmd *cobra.Command, args []string) error {
	metricName := args[0]

	cfg, err := buildConfig(cmd, nil)
	if err != nil {
		return err
	}
	if len(gridSpecs) == 0 {
		return fmt.Errorf("need at least one --grid axis, e.g. --grid kp=1:50:10")
	}

	names := make([]string, 0, len(gridSpecs))
	values := make([][]float64, 0, len(gridSpecs))
	for _, spec := range gridSpecs {
		name, vals, err := parseGridAxis(spec)
		if err != nil {
			return err
		}
		names = append(names, name)
		values = append(values, vals)
	}

	gs, err := optim.NewGridSearch(names, values)
	if err != nil {
		return err
	}

	fmt.Printf("sweeping %s over %d combinations (%s)...\n",
		metricName, gs.Size(), strings.Join(names, ", "))

	start := time.Now()
	best, score, err := gs.Search(context.Background(), optim.MetricObjective(cfg, metricName))
	if err != nil {
		return err
	}

	fmt.Printf("done in %v\n\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("best %s: %.6f\n", metricName, score)
	for _, name := range names {
		fmt.Printf("  %s = %g\n", name, best[name])
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	b, err := scenario.Load(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	cat, err := openCatalog(ctx)
	if err != nil {
		return err
	}
	defer cat.Close()

	if b.Name != "" {
		fmt.Printf("%s: %d steps\n", b.Name, len(b.Steps))
	} else {
		fmt.Printf("%d steps\n", len(b.Steps))
	}
	if b.Description != "" {
		fmt.Println(b.Description)
	}

	runner := &scenario.Runner{
		Catalog: cat,
		Logf: func(format string, a ...any) {
			fmt.Printf(format+"\n", a...)
		},
	}
	results, runErr := runner.Run(ctx, b)

	for _, sr := range results {
		line := fmt.Sprintf("  %s: %d steps", sr.Step.Name, sr.Rollout.StepsTaken)
		if sr.RunID != "" {
			line += ", saved as " + sr.RunID
		}
		fmt.Println(line)
	}
	return runErr
}

func listRuns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cat, err := openCatalog(ctx)
	if err != nil {
		return err
	}
	defer cat.Close()

	rs, err := cat.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(rs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLANT\tTIME\tDURATION\tDT\tSTEPPER\tLAW")
	for _, run := range rs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%s\n",
			run.ID, run.Plant,
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.Duration, run.Dt, run.Stepper, run.Law)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cat, err := openCatalog(ctx)
	if err != nil {
		return err
	}
	defer cat.Close()

	run, res, err := loadRun(ctx, cat, args[0])
	if err != nil {
		return err
	}
	if len(res.States) == 0 {
		return fmt.Errorf("run %q has no samples", run.ID)
	}

	fmt.Printf("run: %s\nplant: %s\nsamples: %d\n\n", run.ID, run.Plant, len(res.States))

	dim := len(res.States[0])
	if dim > 6 {
		dim = 6
	}
	for i := 0; i < dim; i++ {
		series, err := viz.StateSeries(res, i)
		if err != nil {
			return err
		}
		fmt.Println(viz.Chart(series, stateLabel(run.Plant, i), 80, 10))
		fmt.Println()
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cat, err := openCatalog(ctx)
	if err != nil {
		return err
	}
	defer cat.Close()

	run, res, err := loadRun(ctx, cat, args[0])
	if err != nil {
		return err
	}

	out, err := viz.PhasePortrait(res, xAxis, yAxis, 70, 18)
	if err != nil {
		return err
	}
	fmt.Printf("phase portrait: %s\nplant: %s\nx: x%d, y: x%d\n\n", run.ID, run.Plant, xAxis, yAxis)
	fmt.Print(out)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cat, err := openCatalog(ctx)
	if err != nil {
		return err
	}
	defer cat.Close()

	run, res, err := loadRun(ctx, cat, args[0])
	if err != nil {
		return err
	}

	series, err := viz.StateSeries(res, stateIdx)
	if err != nil {
		return err
	}
	if len(series) < 4 {
		return fmt.Errorf("run %q is too short to analyze", run.ID)
	}

	fmt.Printf("frequency analysis: %s\nplant: %s\n\n", run.ID, run.Plant)

	freqs, power := analysis.PowerSpectrum(series, run.Dt)
	keep := len(power) / 4
	if keep < 2 {
		keep = len(power)
	}
	graph := asciigraph.Plot(power[:keep],
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("power spectrum (x%d)", stateIdx)))
	fmt.Println(graph)
	fmt.Println()

	if len(freqs) > 1 {
		fmt.Printf("resolution: %.4f hz, nyquist: %.3f hz\n", freqs[1], freqs[len(freqs)-1])
	}
	dom := analysis.DominantFrequency(series, run.Dt)
	fmt.Printf("dominant frequency: %.3f hz\n", dom)
	if dom > 0 {
		fmt.Printf("period: %.3f s\n", 1/dom)
	}
	return nil
}

func lyapunovExponent(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}
	x0, err := exp.InitState()
	if err != nil {
		return err
	}
	factory, err := exp.StepperFactory()
	if err != nil {
		return err
	}

	fmt.Printf("estimating the maximal lyapunov exponent of %s under %s law...\n", cfg.Plant, cfg.Law)
	lam, err := analysis.MaxLyapunov(exp.Plant(), factory, exp.Law(), x0, cfg.Loop(), separation)
	if err != nil {
		return err
	}

	fmt.Printf("lambda_max: %+.6f /s\n", lam)
	switch {
	case lam > 0.01:
		fmt.Println("nearby trajectories diverge")
	case lam < -0.01:
		fmt.Println("nearby trajectories converge")
	default:
		fmt.Println("nearby trajectories neither grow nor shrink")
	}
	return nil
}

func linearizeLoop(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}
	x0, err := exp.InitState()
	if err != nil {
		return err
	}

	u0 := make(loop.Control, exp.Plant().ControlDim())
	a, b := linearize.Plant(exp.Plant(), x0, u0, 0, fdStep)

	fmt.Printf("linearization of %s at %s\n\n", cfg.Plant, fmtVec(x0))
	fmt.Printf("open-loop A:\n%v\n\n", mat.Formatted(a, mat.Squeeze()))
	fmt.Printf("input B:\n%v\n\n", mat.Formatted(b, mat.Squeeze()))

	openEigs, err := linearize.Eigenvalues(a)
	if err != nil {
		return err
	}
	printEigs("open-loop eigenvalues", openEigs)

	acl, err := linearize.ClosedLoop(exp.Plant(), exp.Law(), x0, 0, fdStep)
	if err != nil {
		return err
	}
	closedEigs, err := linearize.Eigenvalues(acl)
	if err != nil {
		return err
	}
	printEigs(fmt.Sprintf("closed-loop eigenvalues (%s law)", cfg.Law), closedEigs)
	if linearize.Stable(closedEigs) {
		fmt.Println("closed loop: stable")
	} else {
		fmt.Println("closed loop: not stable")
	}

	if sensitivity {
		factory, err := exp.StepperFactory()
		if err != nil {
			return err
		}
		g, err := linearize.ControlToState(context.Background(), exp.Plant(), exp.Law(),
			factory, x0, cfg.Loop(), fdStep)
		if err != nil {
			return err
		}
		fmt.Printf("\nfinal-state sensitivity to the stored control:\n%v\n", mat.Formatted(g, mat.Squeeze()))
	}
	return nil
}

func compareSteppers(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[:1])
	if err != nil {
		return err
	}

	fmt.Printf("comparing steppers on %s (dt=%g, %.1fs)\n\n", cfg.Plant, cfg.Dt, cfg.Duration)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEPPER\tFINAL_X0\tENERGY_DRIFT\tSTEPS\tTIME")

	for _, name := range args[1:] {
		c := cfg.Clone()
		c.Stepper = name

		exp, err := experiment.New(c)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\t\t\t\n", name, err)
			continue
		}
		start := time.Now()
		res, err := exp.Run(context.Background())
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\t\t\t\n", name, err)
			continue
		}

		finalX0 := 0.0
		if final := res.Final(); len(final) > 0 {
			finalX0 = final[0]
		}
		fmt.Fprintf(w, "%s\t%.6f\t%.2e\t%d\t%v\n",
			name, finalX0, res.EnergyDrift, res.StepsTaken, elapsed.Round(time.Microsecond))
	}
	return w.Flush()
}

func benchPlant(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	durations := []float64{1.0, 5.0, 10.0}
	dts := []float64{0.001, 0.01, 0.1}

	fmt.Printf("benchmarking %s (%s, %s law)\n\n", cfg.Plant, cfg.Stepper, cfg.Law)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DURATION\tDT\tSTEPS\tTIME\tSTEPS/SEC")

	for _, dur := range durations {
		for _, step := range dts {
			c := cfg.Clone()
			c.Duration = dur
			c.Dt = step

			exp, err := experiment.New(c)
			if err != nil {
				return err
			}
			start := time.Now()
			res, err := exp.Run(context.Background())
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			fmt.Fprintf(w, "%.1fs\t%.4fs\t%d\t%v\t%.0f\n",
				dur, step, res.StepsTaken, elapsed.Round(time.Microsecond),
				float64(res.StepsTaken)/elapsed.Seconds())
		}
	}
	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cat, err := openCatalog(ctx)
	if err != nil {
		return err
	}
	defer cat.Close()

	run, res, err := loadRun(ctx, cat, args[0])
	if err != nil {
		return err
	}
	return store.ExportJSON(os.Stdout, run, res)
}

func exportRunCSV(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cat, err := openCatalog(ctx)
	if err != nil {
		return err
	}
	defer cat.Close()

	_, res, err := loadRun(ctx, cat, args[0])
	if err != nil {
		return err
	}
	return store.ExportCSV(os.Stdout, res)
}

func listPresets(cmd *cobra.Command, args []string) error {
	names := config.PresetNames()
	if len(args) > 0 {
		prefix := args[0] + "/"
		var kept []string
		for _, name := range names {
			if strings.HasPrefix(name, prefix) {
				kept = append(kept, name)
			}
		}
		if len(kept) == 0 {
			fmt.Printf("no presets for plant %q\n", args[0])
			return nil
		}
		names = kept
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func writeStarterConfig(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.Save(path, config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func openCatalog(ctx context.Context) (*store.Catalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	cat := store.NewCatalog(dbPath)
	if err := cat.Init(ctx); err != nil {
		return nil, err
	}
	return cat, nil
}

func loadRun(ctx context.Context, cat *store.Catalog, id string) (store.Run, *loop.Result, error) {
	run, ok, err := cat.GetRun(ctx, id)
	if err != nil {
		return store.Run{}, nil, err
	}
	if !ok {
		return store.Run{}, nil, fmt.Errorf("no run %q (try 'ctrllab list')", id)
	}
	res, ok, err := cat.GetResult(ctx, id)
	if err != nil {
		return store.Run{}, nil, err
	}
	if !ok {
		return store.Run{}, nil, fmt.Errorf("run %q has no stored trajectory", id)
	}
	return run, res, nil
}

func parseGridAxis(spec string) (string, []float64, error) {
	name, rangeSpec, ok := strings.Cut(spec, "=")
	if !ok {
		return "", nil, fmt.Errorf("grid axis %q: want name=lo:hi:n", spec)
	}
	parts := strings.Split(rangeSpec, ":")
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("grid axis %q: want name=lo:hi:n", spec)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return "", nil, fmt.Errorf("grid axis %q: bad lower bound", spec)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", nil, fmt.Errorf("grid axis %q: bad upper bound", spec)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return "", nil, fmt.Errorf("grid axis %q: bad point count", spec)
	}
	return strings.TrimSpace(name), optim.Linspace(lo, hi, n), nil
}

func parseVector(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bad component %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseParams(specs []string, into map[string]float64) error {
	for _, spec := range specs {
		name, val, ok := strings.Cut(spec, "=")
		if !ok {
			return fmt.Errorf("want name=value, got %q", spec)
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("bad value in %q", spec)
		}
		into[strings.TrimSpace(name)] = v
	}
	return nil
}

// stateLabel names state components for the plants that ship with the lab.
func stateLabel(plant string, i int) string {
	labels := map[string][]string{
		"pendulum":          {"theta (angle)", "omega (angular velocity)"},
		"cartpole":          {"cart position", "cart velocity", "pole angle", "pole angular velocity"},
		"spring_mass":       {"position", "velocity"},
		"double_integrator": {"position", "velocity"},
	}
	if names, ok := labels[plant]; ok && i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("x%d vs time", i)
}

// printEigs lists a spectrum one eigenvalue per line.
func printEigs(label string, eigs []complex128) {
	fmt.Printf("%s:\n", label)
	for _, e := range eigs {
		fmt.Printf("  %.6f%+.6fi\n", real(e), imag(e))
	}
	fmt.Println()
}

func fmtVec(xs []float64) string {
	parts := make([]string, len(xs))
	for i, v := range xs {
		parts[i] = strconv.FormatFloat(v, 'g', 6, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
