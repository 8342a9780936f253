// Package convert orchestrates STEP to STL conversions: it expands input
// patterns, drives the CAD kernel per file, verifies the resulting meshes
// and keeps failures isolated to the file that caused them.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"stp2stl/pkg/freecad"
	"stp2stl/pkg/mesher"
	"stp2stl/pkg/stl"
)

// KernelRunner abstracts the CAD kernel so the pipeline can be exercised
// without a FreeCAD installation.
type KernelRunner interface {
	Convert(ctx context.Context, job freecad.Job) (*freecad.Result, error)
}

// SkipFunc decides whether a conversion is redundant, given the input
// digest and the options fingerprint of the pending run.
type SkipFunc func(ctx context.Context, input, digest, fingerprint string) bool

// Options bundle the per-file conversion settings.
type Options struct {
	Scale Factors
	Mesh  mesher.Options
	// OutputDir receives the converted meshes. Empty writes each mesh next
	// to its input file.
	OutputDir string
	// ASCII rewrites the kernel output as ASCII STL.
	ASCII bool
	// Skip, when set, short-circuits conversions whose input and settings
	// match an earlier successful run and whose output still exists.
	Skip SkipFunc
}

// Status classifies the outcome of one file.
type Status int

const (
	StatusConverted Status = iota
	StatusSkipped
	StatusFailed
	StatusIgnored
)

func (s Status) String() string {
	switch s {
	case StatusConverted:
		return "converted"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	case StatusIgnored:
		return "ignored"
	}
	return "unknown"
}

// FileResult is the outcome of one file's conversion. Errors land here
// instead of propagating, so one broken file never stops a batch.
type FileResult struct {
	Input       string
	Output      string
	Status      Status
	Err         error
	Facets      int
	Degenerate  int
	Duration    time.Duration
	InputSHA256 string
	OptionsFP   string
}

// Pipeline converts single STEP files by driving the kernel and verifying
// its output.
type Pipeline struct {
	runner KernelRunner
	logger *zap.Logger
}

func NewPipeline(runner KernelRunner, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{runner: runner, logger: logger}
}

// OutputPath derives the STL path for an input file: the input's extension
// is replaced, and the file moves into outputDir when one is set.
func OutputPath(input, outputDir string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base)) + ".stl"
	if outputDir == "" {
		return filepath.Join(filepath.Dir(input), base)
	}
	return filepath.Join(outputDir, base)
}

// IsStepFile reports whether path has a STEP extension. The check is
// case-insensitive, so exports named PART.STP convert too.
func IsStepFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stp", ".step":
		return true
	}
	return false
}

// ConvertFile runs one conversion end to end: hash the input, consult the
// skip check, drive the kernel, then parse the written mesh to verify it.
func (p *Pipeline) ConvertFile(ctx context.Context, input string, opts Options) FileResult {
	start := time.Now()
	result := FileResult{Input: input, Status: StatusFailed}
	result.Output = OutputPath(input, opts.OutputDir)

	p.logger.Info("processing file", zap.String("file", input))

	digest, err := InputDigest(input)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}
	result.InputSHA256 = digest
	result.OptionsFP = OptionsFingerprint(opts.Scale, opts.Mesh, opts.ASCII)

	if opts.Skip != nil && fileExists(result.Output) && opts.Skip(ctx, input, digest, result.OptionsFP) {
		p.logger.Info("unchanged since last conversion, skipping", zap.String("file", input))
		result.Status = StatusSkipped
		result.Duration = time.Since(start)
		return result
	}

	if !opts.Scale.Identity() {
		p.logger.Info("applying scaling",
			zap.Float64("x", opts.Scale.X),
			zap.Float64("y", opts.Scale.Y),
			zap.Float64("z", opts.Scale.Z))
	}
	p.logger.Debug("meshing", zap.String("settings", opts.Mesh.Describe()))

	job := freecad.Job{
		Input:  input,
		Output: result.Output,
		ScaleX: opts.Scale.X,
		ScaleY: opts.Scale.Y,
		ScaleZ: opts.Scale.Z,
		Mesh:   opts.Mesh,
	}
	kernelResult, err := p.runner.Convert(ctx, job)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		p.logger.Error("conversion failed", zap.String("file", input), zap.Error(err))
		return result
	}

	model, err := stl.Parse(result.Output)
	if err != nil {
		result.Err = fmt.Errorf("kernel reported success but the output is unreadable: %w", err)
		result.Duration = time.Since(start)
		p.logger.Error("conversion failed", zap.String("file", input), zap.Error(result.Err))
		return result
	}
	if model.TriangleCount() == 0 {
		result.Err = errors.New("tessellation produced an empty mesh")
		result.Duration = time.Since(start)
		p.logger.Error("conversion failed", zap.String("file", input), zap.Error(result.Err))
		return result
	}

	// Trust the parsed file over the kernel's own count, but surface a
	// mismatch since it points at a truncated write.
	result.Facets = model.TriangleCount()
	result.Degenerate = model.DegenerateCount()
	if kernelResult.Facets > 0 && kernelResult.Facets != result.Facets {
		p.logger.Warn("facet count mismatch between kernel and output",
			zap.Int("kernel", kernelResult.Facets),
			zap.Int("parsed", result.Facets))
	}

	if opts.ASCII && model.Format != stl.FormatASCII {
		if err := rewriteASCII(result.Output, model); err != nil {
			result.Err = err
			result.Duration = time.Since(start)
			p.logger.Error("conversion failed", zap.String("file", input), zap.Error(err))
			return result
		}
	}

	result.Status = StatusConverted
	result.Duration = time.Since(start)
	p.logger.Info("file converted",
		zap.String("output", result.Output),
		zap.Int("facets", result.Facets),
		zap.Duration("duration", result.Duration))
	if result.Degenerate > 0 {
		p.logger.Warn("mesh contains degenerate facets",
			zap.String("output", result.Output),
			zap.Int("degenerate", result.Degenerate))
	}
	return result
}

// rewriteASCII replaces the kernel's binary output with an ASCII rendition,
// going through a temp file so a crash cannot leave a half-written mesh.
func rewriteASCII(output string, model *stl.Model) error {
	tmp := output + ".tmp"
	if model.Name == "" {
		base := filepath.Base(output)
		model.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if err := stl.WriteFile(tmp, model, stl.FormatASCII); err != nil {
		return fmt.Errorf("failed to rewrite as ascii: %w", err)
	}
	if err := os.Rename(tmp, output); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rewrite as ascii: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
