package freecad

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// fakeInstall creates a FreeCAD-shaped directory tree and returns its root
// and the binary path inside it.
func fakeInstall(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	binDir := filepath.Join(root, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("failed to create bin dir: %v", err)
	}
	binary := filepath.Join(binDir, binaryNames()[0])
	if err := os.WriteFile(binary, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("failed to create fake binary: %v", err)
	}
	return root, binary
}

func TestLocateExplicitBinary(t *testing.T) {
	_, binary := fakeInstall(t)

	rt, err := Locate(LocateOptions{Binary: binary})
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}

	if rt.Binary != binary {
		t.Errorf("Binary failed: expected %q, got %q", binary, rt.Binary)
	}
	if rt.Source != "explicit binary" {
		t.Errorf("Source failed: expected %q, got %q", "explicit binary", rt.Source)
	}
}

func TestLocateExplicitBinaryMissing(t *testing.T) {
	_, err := Locate(LocateOptions{Binary: filepath.Join(t.TempDir(), "nope")})
	if err == nil {
		t.Error("Locate failed: expected error for missing binary")
	}
}

func TestLocateExplicitRoot(t *testing.T) {
	root, binary := fakeInstall(t)

	rt, err := Locate(LocateOptions{Root: root})
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}

	if rt.Root != root {
		t.Errorf("Root failed: expected %q, got %q", root, rt.Root)
	}
	if rt.Binary != binary {
		t.Errorf("Binary failed: expected %q, got %q", binary, rt.Binary)
	}
	if rt.Source != "explicit root" {
		t.Errorf("Source failed: expected %q, got %q", "explicit root", rt.Source)
	}
}

func TestLocateExplicitRootWithoutBinary(t *testing.T) {
	_, err := Locate(LocateOptions{Root: t.TempDir()})
	if err == nil {
		t.Error("Locate failed: expected error for root without binary")
	}
	if err != nil && errors.Is(err, ErrKernelNotFound) {
		t.Error("Locate failed: an explicit but unusable root is its own error, not ErrKernelNotFound")
	}
}

func TestLocateFromEnv(t *testing.T) {
	root, binary := fakeInstall(t)
	t.Setenv("FREECAD_PATH", root)

	rt, err := Locate(LocateOptions{})
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}

	if rt.Binary != binary {
		t.Errorf("Binary failed: expected %q, got %q", binary, rt.Binary)
	}
	if rt.Source != "FREECAD_PATH" {
		t.Errorf("Source failed: expected %q, got %q", "FREECAD_PATH", rt.Source)
	}
}

func TestBinaryInRoot(t *testing.T) {
	root, binary := fakeInstall(t)

	found, ok := binaryInRoot(root)
	if !ok {
		t.Fatal("binaryInRoot failed: expected to find binary")
	}
	if found != binary {
		t.Errorf("binaryInRoot failed: expected %q, got %q", binary, found)
	}

	// A binary directly in the root is found too.
	flat := t.TempDir()
	flatBinary := filepath.Join(flat, binaryNames()[0])
	if err := os.WriteFile(flatBinary, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("failed to create fake binary: %v", err)
	}
	found, ok = binaryInRoot(flat)
	if !ok || found != flatBinary {
		t.Errorf("binaryInRoot failed: expected %q, got %q (ok=%v)", flatBinary, found, ok)
	}

	if _, ok := binaryInRoot(t.TempDir()); ok {
		t.Error("binaryInRoot failed: expected no binary in empty root")
	}
}

func TestRootFromBinary(t *testing.T) {
	root, binary := fakeInstall(t)

	if got := rootFromBinary(binary); got != root {
		t.Errorf("rootFromBinary failed: expected %q, got %q", root, got)
	}

	flat := filepath.Join("/usr", "local", "FreeCADCmd")
	if got := rootFromBinary(flat); got != "" {
		t.Errorf("rootFromBinary failed: expected empty root for %q, got %q", flat, got)
	}
}
