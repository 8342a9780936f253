// Package freecad locates a headless FreeCAD runtime and drives it to
// convert STEP files into STL meshes.
package freecad

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Runtime describes a located FreeCAD installation.
type Runtime struct {
	// Root is the installation directory. It may be empty when only the
	// binary is known, for example after a plain PATH lookup.
	Root string
	// Binary is the path of the headless FreeCADCmd executable.
	Binary string
	// Source names how the runtime was found, for logs and doctor output.
	Source string
}

// LocateOptions narrow the search for a FreeCAD installation. Both fields
// are optional; empty values fall through to the automatic search.
type LocateOptions struct {
	// Binary is an explicit FreeCADCmd executable and wins over everything.
	Binary string
	// Root is an explicit installation directory.
	Root string
}

// Locate finds a usable headless FreeCAD runtime. The search order is the
// explicit binary, the explicit root, the FREECAD_PATH environment
// variable, well-known installation directories for the current platform,
// and finally a PATH lookup.
func Locate(opts LocateOptions) (*Runtime, error) {
	if opts.Binary != "" {
		if !isFile(opts.Binary) {
			return nil, fmt.Errorf("freecad binary %s does not exist", opts.Binary)
		}
		return &Runtime{
			Root:   rootFromBinary(opts.Binary),
			Binary: opts.Binary,
			Source: "explicit binary",
		}, nil
	}

	if opts.Root != "" {
		binary, found := binaryInRoot(opts.Root)
		if !found {
			return nil, fmt.Errorf("no FreeCADCmd binary under %s", opts.Root)
		}
		return &Runtime{Root: opts.Root, Binary: binary, Source: "explicit root"}, nil
	}

	if env := os.Getenv("FREECAD_PATH"); env != "" && isDir(env) {
		if binary, found := binaryInRoot(env); found {
			return &Runtime{Root: env, Binary: binary, Source: "FREECAD_PATH"}, nil
		}
	}

	for _, root := range wellKnownRoots() {
		if !isDir(root) {
			continue
		}
		if binary, found := binaryInRoot(root); found {
			return &Runtime{Root: root, Binary: binary, Source: "well-known path"}, nil
		}
	}

	for _, name := range binaryNames() {
		if binary, err := exec.LookPath(name); err == nil {
			return &Runtime{
				Root:   rootFromBinary(binary),
				Binary: binary,
				Source: "PATH",
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: set FREECAD_PATH to the installation root or pass --freecad-root", ErrKernelNotFound)
}

// binaryNames returns the candidate executable names for this platform.
func binaryNames() []string {
	if runtime.GOOS == "windows" {
		return []string{"FreeCADCmd.exe"}
	}
	return []string{"FreeCADCmd", "freecadcmd"}
}

// binaryInRoot searches an installation root for the headless binary,
// checking the bin subdirectory first and then the root itself.
func binaryInRoot(root string) (string, bool) {
	for _, dir := range []string{filepath.Join(root, "bin"), root} {
		for _, name := range binaryNames() {
			candidate := filepath.Join(dir, name)
			if isFile(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

// wellKnownRoots lists the default installation directories per platform.
func wellKnownRoots() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			`C:\Program Files\FreeCAD 1.0`,
			`C:\Program Files\FreeCAD 0.21`,
		}
	case "darwin":
		return []string{
			"/Applications/FreeCAD.app/Contents/Resources",
		}
	default:
		return []string{
			"/usr/lib/freecad",
			"/opt/freecad",
		}
	}
}

// rootFromBinary derives the installation root from a binary path, assuming
// the conventional <root>/bin layout. It returns an empty string when the
// binary does not sit in a bin directory.
func rootFromBinary(binary string) string {
	dir := filepath.Dir(binary)
	if filepath.Base(dir) == "bin" {
		return filepath.Dir(dir)
	}
	return ""
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
