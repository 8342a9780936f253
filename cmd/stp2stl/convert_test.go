package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stp2stl/internal/config"
	"stp2stl/internal/convert"
	"stp2stl/pkg/mesher"
)

func TestConversionOptionsFlagBeatsConfig(t *testing.T) {
	cfg = config.Default()
	cfg.Mesh.Mesher = "mefisto"
	cfg.Convert.OutputDir = "meshes"

	for flag, value := range map[string]string{
		"fineness": "4",
		"scale":    "2.0",
		"scale-z":  "3.0",
	} {
		if err := convertCmd.Flags().Set(flag, value); err != nil {
			t.Fatalf("set %s: %v", flag, err)
		}
	}

	opts, err := conversionOptions(convertCmd)
	if err != nil {
		t.Fatalf("conversionOptions: %v", err)
	}

	if opts.Mesh.Kind != mesher.Mefisto {
		t.Errorf("expected mesher from config, got %s", opts.Mesh.Kind)
	}
	if opts.Mesh.Fineness != 4 {
		t.Errorf("expected fineness 4 from flag, got %d", opts.Mesh.Fineness)
	}
	if opts.Scale.X != 2.0 || opts.Scale.Y != 2.0 || opts.Scale.Z != 3.0 {
		t.Errorf("unexpected scale factors: %+v", opts.Scale)
	}
	if opts.OutputDir != "meshes" {
		t.Errorf("expected output dir from config, got %q", opts.OutputDir)
	}
}

func TestPrintSummaryPlain(t *testing.T) {
	summary := convert.Summary{
		Matched:   2,
		Converted: 1,
		Failed:    1,
		Duration:  1500 * time.Millisecond,
		Results: []convert.FileResult{
			{Input: "a.stp", Output: "a.stl", Status: convert.StatusConverted, Facets: 12, Duration: time.Second},
			{Input: "b.stp", Status: convert.StatusFailed, Err: errors.New("kernel reported: import failed")},
		},
	}

	var buf bytes.Buffer
	printSummary(&buf, summary)
	out := buf.String()

	for _, want := range []string{
		"a.stp -> a.stl",
		"(12 facets, 1s)",
		"kernel reported: import failed",
		"1 converted, 0 skipped, 1 failed, 0 ignored in 1.5s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintPlan(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "part.stp")
	if err := os.WriteFile(input, []byte("ISO-10303-21;"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	opts := convert.Options{Mesh: mesher.DefaultOptions(), OutputDir: "out"}

	var buf bytes.Buffer
	printPlan(&buf, []string{"readme.txt", input}, opts)
	out := buf.String()

	if !strings.Contains(out, "ignore") || !strings.Contains(out, "readme.txt") {
		t.Errorf("plan should ignore non-STEP files:\n%s", out)
	}
	expected := input + " -> " + filepath.Join("out", "part.stl")
	if !strings.Contains(out, expected) {
		t.Errorf("plan output missing %q:\n%s", expected, out)
	}
	if !strings.Contains(out, "1 of 2 files would be converted") {
		t.Errorf("plan totals wrong:\n%s", out)
	}
}

func TestWatchDirs(t *testing.T) {
	dirs := watchDirs([]string{
		filepath.Join("parts", "a.stp"),
		filepath.Join("parts", "b.stp"),
		"c.stp",
	})

	if len(dirs) != 2 || dirs[0] != "." || dirs[1] != "parts" {
		t.Errorf("unexpected watch dirs: %v", dirs)
	}
}
