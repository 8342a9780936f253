package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stp2stl/internal/manifest"
)

// BatchOptions configure one conversion run.
type BatchOptions struct {
	// Pipeline carries the per-file settings.
	Pipeline Options
	// Jobs bounds how many kernel processes run in parallel. Values below
	// one run sequentially.
	Jobs int
	// SkipUnchanged consults the manifest before converting.
	SkipUnchanged bool
}

// Summary totals one run. Results holds a FileResult for every candidate,
// in input order.
type Summary struct {
	Matched   int
	Converted int
	Skipped   int
	Failed    int
	Ignored   int
	Duration  time.Duration
	Results   []FileResult
}

// ExpandInputs resolves literal paths and glob patterns (including **) into
// a deduplicated candidate list. Patterns that match nothing produce a
// warning, mirroring how a shell user expects globs to behave.
func ExpandInputs(patterns []string, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var files []string
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			logger.Warn("no files matched the pattern", zap.String("pattern", pattern))
			continue
		}
		for _, match := range matches {
			match = filepath.Clean(match)
			if _, dup := seen[match]; dup {
				continue
			}
			seen[match] = struct{}{}
			files = append(files, match)
		}
	}
	return files, nil
}

// Batch drives the per-file pipeline over many inputs with a bounded
// worker pool.
type Batch struct {
	pipeline *Pipeline
	store    *manifest.Store
	logger   *zap.Logger
}

// NewBatch creates a batch runner. store may be nil to run without a
// manifest.
func NewBatch(pipeline *Pipeline, store *manifest.Store, logger *zap.Logger) *Batch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batch{pipeline: pipeline, store: store, logger: logger}
}

// Run converts every candidate file. Conversion errors stay inside the
// per-file results; only the surrounding context can stop the run early,
// and even then every candidate still gets a result.
func (b *Batch) Run(ctx context.Context, files []string, opts BatchOptions) Summary {
	start := time.Now()
	runID := uuid.NewString()

	jobs := opts.Jobs
	if jobs < 1 {
		jobs = 1
	}

	b.logger.Info("starting conversion run",
		zap.String("run_id", runID),
		zap.Int("files", len(files)),
		zap.Int("jobs", jobs))

	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, file := range files {
		g.Go(func() error {
			results[i] = b.convertOne(gctx, runID, file, opts)
			return nil
		})
	}
	// Workers never return errors; Wait only fences the pool.
	_ = g.Wait()

	summary := Summary{
		Matched:  len(files),
		Duration: time.Since(start),
		Results:  results,
	}
	for _, result := range results {
		switch result.Status {
		case StatusConverted:
			summary.Converted++
		case StatusSkipped:
			summary.Skipped++
		case StatusFailed:
			summary.Failed++
		case StatusIgnored:
			summary.Ignored++
		}
	}

	b.logger.Info("conversion run finished",
		zap.String("run_id", runID),
		zap.Int("converted", summary.Converted),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("ignored", summary.Ignored),
		zap.Duration("duration", summary.Duration))
	return summary
}

func (b *Batch) convertOne(ctx context.Context, runID, file string, opts BatchOptions) FileResult {
	if !IsStepFile(file) {
		b.logger.Warn("file is not a .stp or .step file, skipping", zap.String("file", file))
		return FileResult{Input: file, Status: StatusIgnored}
	}
	if !fileExists(file) {
		b.logger.Warn("file not found, skipping", zap.String("file", file))
		return FileResult{Input: file, Status: StatusIgnored}
	}
	if ctx.Err() != nil {
		return FileResult{Input: file, Status: StatusFailed, Err: ctx.Err()}
	}

	pipelineOpts := opts.Pipeline
	if opts.SkipUnchanged && b.store != nil {
		pipelineOpts.Skip = b.skipFunc()
	}

	result := b.pipeline.ConvertFile(ctx, file, pipelineOpts)
	b.record(ctx, runID, result, opts)
	return result
}

func (b *Batch) skipFunc() SkipFunc {
	return func(ctx context.Context, input, digest, fingerprint string) bool {
		entry, found, err := b.store.LastSuccess(ctx, input)
		if err != nil {
			b.logger.Warn("manifest lookup failed", zap.Error(err))
			return false
		}
		return found && entry.InputSHA256 == digest && entry.OptionsFP == fingerprint
	}
}

// record appends the outcome to the manifest. Manifest trouble downgrades
// to a warning; it must never fail a conversion that already happened.
func (b *Batch) record(ctx context.Context, runID string, result FileResult, opts BatchOptions) {
	if b.store == nil || result.Status == StatusIgnored {
		return
	}

	entry := manifest.Entry{
		RunID:       runID,
		InputPath:   result.Input,
		OutputPath:  result.Output,
		InputSHA256: result.InputSHA256,
		OptionsFP:   result.OptionsFP,
		Mesher:      string(opts.Pipeline.Mesh.Kind),
		Facets:      result.Facets,
		DurationMS:  result.Duration.Milliseconds(),
	}
	switch result.Status {
	case StatusConverted:
		entry.Status = manifest.StatusOK
	case StatusSkipped:
		entry.Status = manifest.StatusSkipped
	default:
		entry.Status = manifest.StatusError
	}
	if result.Err != nil {
		entry.Error = result.Err.Error()
	}

	if err := b.store.Record(ctx, entry); err != nil {
		b.logger.Warn("failed to record conversion in manifest", zap.Error(err))
	}
}
