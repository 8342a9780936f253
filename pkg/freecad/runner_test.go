package freecad

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// fakeKernel builds an executable that stands in for FreeCADCmd. The
// script body runs instead of the real kernel; the generated Python file
// arrives as $1 and is ignored.
func fakeKernel(t *testing.T, body string) *Runtime {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake kernel needs a POSIX shell")
	}

	binary := filepath.Join(t.TempDir(), "FreeCADCmd")
	content := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(binary, []byte(content), 0o755); err != nil {
		t.Fatalf("failed to create fake kernel: %v", err)
	}
	return &Runtime{Binary: binary, Source: "test"}
}

func TestRunnerConvert(t *testing.T) {
	rt := fakeKernel(t, `echo "FreeCAD 1.0, Libs: 1.0.0"
echo "STP2STL RESULT ok facets=42"`)
	runner := NewRunner(rt, 0, nil)

	res, err := runner.Convert(context.Background(), identityJob())
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if res.Facets != 42 {
		t.Errorf("Facets failed: expected 42, got %d", res.Facets)
	}
	if res.Duration <= 0 {
		t.Errorf("Duration failed: expected positive duration, got %v", res.Duration)
	}
}

func TestRunnerKernelError(t *testing.T) {
	rt := fakeKernel(t, `echo "STP2STL RESULT error STEP file could not be imported or is empty."
exit 3`)
	runner := NewRunner(rt, 0, nil)

	_, err := runner.Convert(context.Background(), identityJob())
	if err == nil {
		t.Fatal("Convert failed: expected error")
	}

	var kerr *KernelError
	if !errors.As(err, &kerr) {
		t.Fatalf("Convert failed: expected KernelError, got %T: %v", err, err)
	}
	if kerr.Message != "STEP file could not be imported or is empty." {
		t.Errorf("Message failed: got %q", kerr.Message)
	}
}

func TestRunnerExitWithoutSentinel(t *testing.T) {
	rt := fakeKernel(t, `echo "segfault incoming" >&2
exit 139`)
	runner := NewRunner(rt, 0, nil)

	_, err := runner.Convert(context.Background(), identityJob())
	if err == nil {
		t.Fatal("Convert failed: expected error")
	}
	if !strings.Contains(err.Error(), "kernel exited abnormally") {
		t.Errorf("Error failed: got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "segfault incoming") {
		t.Errorf("Error failed: expected stderr in message, got %q", err.Error())
	}
}

func TestRunnerSilentSuccessIsAnError(t *testing.T) {
	rt := fakeKernel(t, `echo "all quiet"`)
	runner := NewRunner(rt, 0, nil)

	_, err := runner.Convert(context.Background(), identityJob())
	if err == nil {
		t.Fatal("Convert failed: expected error")
	}
	if !strings.Contains(err.Error(), "without reporting a result") {
		t.Errorf("Error failed: got %q", err.Error())
	}
}

func TestRunnerTimeout(t *testing.T) {
	rt := fakeKernel(t, `sleep 10`)
	runner := NewRunner(rt, 100*time.Millisecond, nil)

	_, err := runner.Convert(context.Background(), identityJob())
	if err == nil {
		t.Fatal("Convert failed: expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("Error failed: got %q", err.Error())
	}
}

func TestRunnerVersion(t *testing.T) {
	rt := fakeKernel(t, `echo "STP2STL RESULT ok version=1.0.2"`)
	runner := NewRunner(rt, 0, nil)

	version, err := runner.Version(context.Background())
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if version != "1.0.2" {
		t.Errorf("Version failed: expected %q, got %q", "1.0.2", version)
	}
}

func TestFindSentinel(t *testing.T) {
	chatty := `FreeCAD 1.0, Libs: 1.0.0RT
during initialization
STP2STL RESULT ok facets=1234 other=x
trailing noise`

	sent, found := findSentinel(chatty)
	if !found {
		t.Fatal("findSentinel failed: expected to find sentinel")
	}
	if !sent.ok {
		t.Error("findSentinel failed: expected ok sentinel")
	}
	if sent.fields["facets"] != "1234" {
		t.Errorf("fields failed: expected facets=1234, got %q", sent.fields["facets"])
	}

	sent, found = findSentinel("STP2STL RESULT error shape has no faces\n")
	if !found {
		t.Fatal("findSentinel failed: expected to find error sentinel")
	}
	if sent.ok {
		t.Error("findSentinel failed: expected error sentinel")
	}
	if sent.message != "shape has no faces" {
		t.Errorf("message failed: got %q", sent.message)
	}

	if _, found := findSentinel("no sentinel here\n"); found {
		t.Error("findSentinel failed: expected no sentinel")
	}
}
