package freecad

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single kernel run. Tessellating a pathological
// model can hang FreeCAD, so every run carries a deadline.
const DefaultTimeout = 10 * time.Minute

// Runner executes conversion scripts with a located FreeCAD runtime.
type Runner struct {
	runtime *Runtime
	timeout time.Duration
	logger  *zap.Logger
}

// NewRunner creates a Runner for the given runtime. A zero timeout selects
// DefaultTimeout and a nil logger disables logging.
func NewRunner(rt *Runtime, timeout time.Duration, logger *zap.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{runtime: rt, timeout: timeout, logger: logger}
}

// Runtime returns the runtime this runner drives.
func (r *Runner) Runtime() *Runtime {
	return r.runtime
}

// Result carries what the kernel reported for one successful script run.
type Result struct {
	// Facets is the triangle count the kernel reported after tessellation.
	Facets int
	// Output is the combined stdout and stderr of the run, kept for
	// diagnostics.
	Output string
	// Duration is the wall time of the kernel process.
	Duration time.Duration
}

// Convert renders the conversion script for job and executes it.
func (r *Runner) Convert(ctx context.Context, job Job) (*Result, error) {
	script, err := Script(job)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, script)
}

// Version probes the kernel and returns its version string.
func (r *Runner) Version(ctx context.Context) (string, error) {
	res, sent, err := r.execute(ctx, versionScript)
	if err != nil {
		return "", err
	}
	version := sent.fields["version"]
	if version == "" {
		return "", fmt.Errorf("kernel did not report a version: %s", strings.TrimSpace(res.Output))
	}
	return version, nil
}

func (r *Runner) run(ctx context.Context, script string) (*Result, error) {
	res, sent, err := r.execute(ctx, script)
	if err != nil {
		return nil, err
	}
	res.Facets, _ = strconv.Atoi(sent.fields["facets"])
	return res, nil
}

// execute writes the script to a temp file, runs the kernel on it and
// interprets the sentinel line the script printed.
func (r *Runner) execute(ctx context.Context, script string) (*Result, *sentinel, error) {
	tmp, err := os.CreateTemp("", "stp2stl-*.py")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create script file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(script); err != nil {
		tmp.Close()
		return nil, nil, fmt.Errorf("failed to write script file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, nil, fmt.Errorf("failed to write script file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.runtime.Binary, tmp.Name())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running kernel",
		zap.String("binary", r.runtime.Binary),
		zap.String("script", tmp.Name()))

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	output := combineOutput(stdout.String(), stderr.String())
	sent, found := findSentinel(stdout.String())

	// A sentinel error is the kernel explaining itself and beats the bare
	// exit status.
	if found && !sent.ok {
		return nil, nil, &KernelError{Message: sent.message, Output: output}
	}

	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("kernel timed out after %s", r.timeout)
		}
		return nil, nil, execError(runErr, output)
	}

	if !found {
		return nil, nil, fmt.Errorf("kernel finished without reporting a result: %s", strings.TrimSpace(output))
	}

	return &Result{Output: output, Duration: duration}, sent, nil
}

// sentinel is the parsed form of the result line a kernel script prints.
type sentinel struct {
	ok      bool
	fields  map[string]string
	message string
}

// findSentinel scans kernel stdout for the first result line. FreeCAD is
// chatty on startup, so all other lines are ignored.
func findSentinel(output string) (*sentinel, bool) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		rest, found := strings.CutPrefix(line, resultPrefix)
		if !found {
			continue
		}

		if message, isErr := strings.CutPrefix(rest, "error "); isErr {
			return &sentinel{message: message}, true
		}

		if fieldPart, isOK := strings.CutPrefix(rest, "ok"); isOK {
			s := &sentinel{ok: true, fields: make(map[string]string)}
			for _, field := range strings.Fields(fieldPart) {
				if key, value, hasValue := strings.Cut(field, "="); hasValue {
					s.fields[key] = value
				}
			}
			return s, true
		}
	}
	return nil, false
}

func combineOutput(stdout, stderr string) string {
	var b strings.Builder
	if stdout != "" {
		b.WriteString(stdout)
	}
	if stderr != "" {
		if b.Len() > 0 && !strings.HasSuffix(stdout, "\n") {
			b.WriteByte('\n')
		}
		b.WriteString(stderr)
	}
	return b.String()
}

// execError assembles a readable error for a kernel process that failed
// without printing a sentinel.
func execError(runErr error, output string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "kernel exited abnormally: %v", runErr)
	if trimmed := strings.TrimSpace(output); trimmed != "" {
		b.WriteString("\noutput: ")
		b.WriteString(trimmed)
	}
	return errors.New(b.String())
}
