package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stp2stl/internal/convert"
	"stp2stl/internal/manifest"
	"stp2stl/pkg/freecad"
)

var (
	convScale  float64
	convScaleX float64
	convScaleY float64
	convScaleZ float64
	convMMToM  bool

	convMesher      string
	convLinearDefl  float64
	convAngularDefl float64
	convFineness    int
	convSecondOrder bool
	convOptimize    bool
	convAllowQuad   bool
	convCheckChart  bool

	convOutputDir string
	convASCII     bool
	convTimeout   time.Duration
	convNoHistory bool

	convJobs   int
	convSkip   bool
	convDryRun bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [file|glob...]",
	Short: "Convert STEP files to STL meshes",
	Long: `Convert one or more STEP files to STL by importing each file into FreeCAD,
optionally scaling the shape, tessellating it and exporting the mesh.

Arguments may be literal paths or glob patterns (** is supported). Files
that do not exist or do not carry a .stp/.step extension are reported and
skipped; a failing file never stops the rest of the batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	addConversionFlags(convertCmd)

	convertCmd.Flags().IntVarP(&convJobs, "jobs", "j", 1, "Number of kernel processes to run in parallel")
	convertCmd.Flags().BoolVar(&convSkip, "skip-unchanged", false, "Skip files already converted with the same content and settings")
	convertCmd.Flags().BoolVar(&convDryRun, "dry-run", false, "List the planned conversions without running the kernel")
}

// addConversionFlags registers the scale, mesh and output flags shared by
// convert and watch. Flag defaults mirror the built-in configuration
// defaults; a flag the user actually set wins over the configuration file.
func addConversionFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&convScale, "scale", 1.0, "Uniform scale factor applied before tessellation")
	cmd.Flags().Float64Var(&convScaleX, "scale-x", 1.0, "X axis scale factor (overrides --scale)")
	cmd.Flags().Float64Var(&convScaleY, "scale-y", 1.0, "Y axis scale factor (overrides --scale)")
	cmd.Flags().Float64Var(&convScaleZ, "scale-z", 1.0, "Z axis scale factor (overrides --scale)")
	cmd.Flags().BoolVar(&convMMToM, "mm-to-m", false, "Convert millimeter models to meters (base factor 0.001)")

	cmd.Flags().StringVar(&convMesher, "mesher", "standard", "Tessellation algorithm: standard, mefisto or netgen")
	cmd.Flags().Float64Var(&convLinearDefl, "linear-deflection", 10.0, "Maximum linear deviation of the mesh, standard mesher")
	cmd.Flags().Float64Var(&convAngularDefl, "angular-deflection", 5.0, "Maximum angular deviation in degrees, standard mesher")
	cmd.Flags().IntVar(&convFineness, "fineness", 2, "Mesh fineness 0-5, mefisto and netgen meshers")
	cmd.Flags().BoolVar(&convSecondOrder, "second-order", false, "Use second order elements, mefisto and netgen meshers")
	cmd.Flags().BoolVar(&convOptimize, "optimize", false, "Optimize the generated mesh, mefisto and netgen meshers")
	cmd.Flags().BoolVar(&convAllowQuad, "allow-quad", false, "Allow quad faces, mefisto and netgen meshers")
	cmd.Flags().BoolVar(&convCheckChart, "check-chart", false, "Check chart boundaries, netgen mesher")

	cmd.Flags().StringVarP(&convOutputDir, "output-dir", "o", "", "Directory for the produced STL files (default: next to each input)")
	cmd.Flags().BoolVar(&convASCII, "ascii", false, "Write ASCII STL instead of binary")
	cmd.Flags().DurationVar(&convTimeout, "timeout", freecad.DefaultTimeout, "Per-file kernel timeout")
	cmd.Flags().BoolVar(&convNoHistory, "no-history", false, "Do not record this run in the conversion manifest")
}

// conversionOptions merges the configuration file with the flags the user
// actually set and validates the result.
func conversionOptions(cmd *cobra.Command) (convert.Options, error) {
	flags := cmd.Flags()

	merged := cfg
	if flags.Changed("mesher") {
		merged.Mesh.Mesher = convMesher
	}
	if flags.Changed("linear-deflection") {
		merged.Mesh.LinearDeflection = convLinearDefl
	}
	if flags.Changed("angular-deflection") {
		merged.Mesh.AngularDeflection = convAngularDefl
	}
	if flags.Changed("fineness") {
		merged.Mesh.Fineness = convFineness
	}
	if flags.Changed("second-order") {
		merged.Mesh.SecondOrder = convSecondOrder
	}
	if flags.Changed("optimize") {
		merged.Mesh.Optimize = convOptimize
	}
	if flags.Changed("allow-quad") {
		merged.Mesh.AllowQuad = convAllowQuad
	}
	if flags.Changed("check-chart") {
		merged.Mesh.CheckChart = convCheckChart
	}
	meshOpts, err := merged.MeshOptions()
	if err != nil {
		return convert.Options{}, err
	}

	scaleFlags := convert.ScaleFlags{MMToM: convMMToM}
	if flags.Changed("scale") {
		scaleFlags.Uniform = &convScale
	}
	if flags.Changed("scale-x") {
		scaleFlags.X = &convScaleX
	}
	if flags.Changed("scale-y") {
		scaleFlags.Y = &convScaleY
	}
	if flags.Changed("scale-z") {
		scaleFlags.Z = &convScaleZ
	}

	outputDir := cfg.Convert.OutputDir
	if flags.Changed("output-dir") {
		outputDir = convOutputDir
	}
	ascii := cfg.Convert.ASCII
	if flags.Changed("ascii") {
		ascii = convASCII
	}

	return convert.Options{
		Scale:     convert.ResolveScale(scaleFlags),
		Mesh:      meshOpts,
		OutputDir: outputDir,
		ASCII:     ascii,
	}, nil
}

// kernelTimeout resolves the per-file timeout, flag over configuration.
func kernelTimeout(cmd *cobra.Command) (time.Duration, error) {
	timeout, err := cfg.Timeout()
	if err != nil {
		return 0, err
	}
	if cmd.Flags().Changed("timeout") {
		timeout = convTimeout
	}
	return timeout, nil
}

// openManifest opens the conversion manifest unless history is disabled.
// A manifest that cannot be opened degrades to a warning, so conversions
// still run without history.
func openManifest(ctx context.Context) *manifest.Store {
	if convNoHistory || !cfg.Manifest.Enabled {
		return nil
	}
	path, err := cfg.ManifestPath()
	if err != nil {
		logger.Warn("conversion manifest disabled", zap.Error(err))
		return nil
	}
	store := manifest.NewStore(path)
	if err := store.Init(ctx); err != nil {
		logger.Warn("conversion manifest disabled", zap.Error(err))
		return nil
	}
	return store
}

func runConvert(cmd *cobra.Command, args []string) error {
	opts, err := conversionOptions(cmd)
	if err != nil {
		return err
	}

	files, err := convert.ExpandInputs(args, logger)
	if err != nil {
		return err
	}

	if convDryRun {
		printPlan(cmd.OutOrStdout(), files, opts)
		return nil
	}

	timeout, err := kernelTimeout(cmd)
	if err != nil {
		return err
	}

	rt, err := locateKernel()
	if err != nil {
		return err
	}
	logger.Info("FreeCAD runtime located",
		zap.String("binary", rt.Binary),
		zap.String("source", rt.Source))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openManifest(ctx)
	if store != nil {
		defer store.Close()
	}

	jobs := cfg.Convert.Jobs
	if cmd.Flags().Changed("jobs") {
		jobs = convJobs
	}
	skip := cfg.Convert.SkipUnchanged
	if cmd.Flags().Changed("skip-unchanged") {
		skip = convSkip
	}

	runner := freecad.NewRunner(rt, timeout, logger)
	pipeline := convert.NewPipeline(runner, logger)
	batch := convert.NewBatch(pipeline, store, logger)

	summary := batch.Run(ctx, files, convert.BatchOptions{
		Pipeline:      opts,
		Jobs:          jobs,
		SkipUnchanged: skip,
	})

	printSummary(cmd.OutOrStdout(), summary)

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", summary.Failed, summary.Matched)
	}
	return nil
}

// printPlan lists what a run would do without touching the kernel.
func printPlan(w io.Writer, files []string, opts convert.Options) {
	st := newStyles(w)

	planned := 0
	for _, file := range files {
		if !convert.IsStepFile(file) || !fileReadable(file) {
			fmt.Fprintf(w, "  %s %s\n", st.dim("ignore "), file)
			continue
		}
		planned++
		fmt.Fprintf(w, "  %s %s -> %s\n", st.dim("convert"), file, convert.OutputPath(file, opts.OutputDir))
	}
	if len(files) > 0 {
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d of %d files would be converted with %s\n", planned, len(files), opts.Mesh.Describe())
}

func fileReadable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// printSummary writes the per-file outcomes and the run totals.
func printSummary(w io.Writer, summary convert.Summary) {
	st := newStyles(w)

	for _, r := range summary.Results {
		printResult(w, st, r)
	}
	if len(summary.Results) > 0 {
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d converted, %d skipped, %d failed, %d ignored in %s\n",
		summary.Converted, summary.Skipped, summary.Failed, summary.Ignored,
		summary.Duration.Round(time.Millisecond))
}

func printResult(w io.Writer, st styles, r convert.FileResult) {
	switch r.Status {
	case convert.StatusConverted:
		fmt.Fprintf(w, "  %s %s -> %s %s\n", st.status(r.Status), r.Input, r.Output,
			st.dim(fmt.Sprintf("(%d facets, %s)", r.Facets, r.Duration.Round(time.Millisecond))))
	case convert.StatusSkipped:
		fmt.Fprintf(w, "  %s %s %s\n", st.status(r.Status), r.Input, st.dim("(unchanged)"))
	case convert.StatusFailed:
		fmt.Fprintf(w, "  %s %s: %v\n", st.status(r.Status), r.Input, r.Err)
	case convert.StatusIgnored:
		fmt.Fprintf(w, "  %s %s\n", st.status(r.Status), r.Input)
	}
}
