package main

import (
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stp2stl/internal/convert"
	"stp2stl/pkg/freecad"
	"stp2stl/pkg/watcher"
)

var (
	watchDebounce time.Duration
	watchSkip     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [file|glob...]",
	Short: "Convert STEP files and reconvert them on change",
	Long: `Convert the matched STEP files once, then keep watching their directories
and reconvert any STEP file that changes. New .stp/.step files appearing
in a watched directory are converted as well.

Press Ctrl-C to stop.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addConversionFlags(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Quiet period before a changed file is reconverted")
	watchCmd.Flags().BoolVar(&watchSkip, "skip-unchanged", false, "Skip files already converted with the same content and settings")
}

func runWatch(cmd *cobra.Command, args []string) error {
	opts, err := conversionOptions(cmd)
	if err != nil {
		return err
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

	files, err := convert.ExpandInputs(args, logger)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("nothing to watch")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openManifest(ctx)
	if store != nil {
		defer store.Close()
	}

	skip := cfg.Convert.SkipUnchanged
	if cmd.Flags().Changed("skip-unchanged") {
		skip = watchSkip
	}

	runner := freecad.NewRunner(rt, timeout, logger)
	pipeline := convert.NewPipeline(runner, logger)
	batch := convert.NewBatch(pipeline, store, logger)
	batchOpts := convert.BatchOptions{Pipeline: opts, Jobs: 1, SkipUnchanged: skip}

	out := cmd.OutOrStdout()
	st := newStyles(out)

	printSummary(out, batch.Run(ctx, files, batchOpts))

	debounce := cfg.Debounce()
	if cmd.Flags().Changed("debounce") {
		debounce = watchDebounce
	}

	// Changed files funnel through a channel so conversions stay serial;
	// one kernel process at a time is heavyweight enough.
	changed := make(chan string, 64)
	enqueue := func(path string) {
		select {
		case changed <- path:
		default:
			logger.Warn("change queue full, dropping event", zap.String("file", path))
		}
	}

	w, err := watcher.New(debounce, logger, convert.IsStepFile, enqueue)
	if err != nil {
		return err
	}
	defer w.Close()

	dirs := watchDirs(files)
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			return err
		}
	}
	logger.Info("watching for changes",
		zap.Strings("dirs", dirs),
		zap.Duration("debounce", debounce))

	go func() {
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("watcher stopped", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil
		case path := <-changed:
			one := batch.Run(ctx, []string{path}, batchOpts)
			for _, result := range one.Results {
				printResult(out, st, result)
			}
		}
	}
}

// watchDirs returns the sorted set of parent directories of the matched
// files.
func watchDirs(files []string) []string {
	seen := make(map[string]struct{})
	var dirs []string
	for _, file := range files {
		dir := filepath.Dir(file)
		if _, dup := seen[dir]; dup {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}
