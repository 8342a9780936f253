// Package config loads tool settings from TOML files, dotenv files and
// environment variables. Precedence from weakest to strongest is built-in
// defaults, the config file, then STP2STL_* environment variables; flags
// are applied on top by the commands themselves.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"stp2stl/pkg/mesher"
)

// LocalConfigName is the project-local config file, checked before the
// per-user one so a parts directory can pin its own conversion settings.
const LocalConfigName = "stp2stl.toml"

type Config struct {
	FreeCAD  FreeCADConfig  `toml:"freecad"`
	Convert  ConvertConfig  `toml:"convert"`
	Mesh     MeshConfig     `toml:"mesh"`
	Manifest ManifestConfig `toml:"manifest"`
	Watch    WatchConfig    `toml:"watch"`

	// Origin is the config file that was merged, empty when only defaults
	// and the environment applied.
	Origin string `toml:"-"`
}

type FreeCADConfig struct {
	Root    string `toml:"root"`
	Binary  string `toml:"binary"`
	Timeout string `toml:"timeout"`
}

type ConvertConfig struct {
	Jobs          int    `toml:"jobs"`
	OutputDir     string `toml:"output_dir"`
	ASCII         bool   `toml:"ascii"`
	SkipUnchanged bool   `toml:"skip_unchanged"`
}

type MeshConfig struct {
	Mesher            string  `toml:"mesher"`
	LinearDeflection  float64 `toml:"linear_deflection"`
	AngularDeflection float64 `toml:"angular_deflection"`
	Fineness          int     `toml:"fineness"`
	SecondOrder       bool    `toml:"second_order"`
	Optimize          bool    `toml:"optimize"`
	AllowQuad         bool    `toml:"allow_quad"`
	CheckChart        bool    `toml:"check_chart"`
}

type ManifestConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type WatchConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

func Default() Config {
	return Config{
		FreeCAD: FreeCADConfig{
			Timeout: "10m",
		},
		Convert: ConvertConfig{
			Jobs: 1,
		},
		Mesh: MeshConfig{
			Mesher:            string(mesher.Standard),
			LinearDeflection:  10.0,
			AngularDeflection: 5.0,
			Fineness:          2,
		},
		Manifest: ManifestConfig{
			Enabled: true,
		},
		Watch: WatchConfig{
			DebounceMS: 500,
		},
	}
}

func Load() (Config, error) {
	if err := loadDotEnvPrecedence(); err != nil {
		return Config{}, err
	}

	cfg := Default()
	origin, err := mergeFile(&cfg)
	if err != nil {
		return Config{}, err
	}
	cfg.Origin = origin
	mergeEnv(&cfg)
	return cfg, nil
}

// LoadFile behaves like Load but reads the named configuration file instead
// of searching for one. The file must exist.
func LoadFile(path string) (Config, error) {
	if err := loadDotEnvPrecedence(); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if _, err := os.Stat(path); err != nil {
		return Config{}, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.Origin = path
	mergeEnv(&cfg)
	return cfg, nil
}

// StateDir returns the per-user data directory, creating it if needed.
func StateDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "stp2stl")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// ConfigPath returns the path of the per-user config file.
func ConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "stp2stl", "config.toml"), nil
}

func loadDotEnvPrecedence() error {
	for _, name := range []string{".env", ".env.local"} {
		values, err := godotenv.Read(name)
		if err != nil {
			continue
		}
		for k, v := range values {
			if _, exists := os.LookupEnv(k); !exists {
				if setErr := os.Setenv(k, v); setErr != nil {
					return setErr
				}
			}
		}
	}
	return nil
}

func mergeFile(cfg *Config) (string, error) {
	if _, err := os.Stat(LocalConfigName); err == nil {
		if _, err := toml.DecodeFile(LocalConfigName, cfg); err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", LocalConfigName, err)
		}
		return LocalConfigName, nil
	}

	path, err := ConfigPath()
	if err != nil {
		return "", nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return path, nil
}

func mergeEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("STP2STL_FREECAD_ROOT")); v != "" {
		cfg.FreeCAD.Root = v
	}
	if v := strings.TrimSpace(os.Getenv("STP2STL_FREECAD_BINARY")); v != "" {
		cfg.FreeCAD.Binary = v
	}
	if v := strings.TrimSpace(os.Getenv("STP2STL_TIMEOUT")); v != "" {
		cfg.FreeCAD.Timeout = v
	}
	if v := strings.TrimSpace(os.Getenv("STP2STL_JOBS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Convert.Jobs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("STP2STL_OUTPUT_DIR")); v != "" {
		cfg.Convert.OutputDir = v
	}
	if v := strings.TrimSpace(os.Getenv("STP2STL_ASCII")); v != "" {
		cfg.Convert.ASCII = v == "1" || strings.EqualFold(v, "true")
	}
	if v := strings.TrimSpace(os.Getenv("STP2STL_MESHER")); v != "" {
		cfg.Mesh.Mesher = v
	}
	if v := strings.TrimSpace(os.Getenv("STP2STL_MANIFEST_PATH")); v != "" {
		cfg.Manifest.Path = v
	}
}

// MeshOptions converts the mesh section into validated tessellation
// options.
func (c Config) MeshOptions() (mesher.Options, error) {
	kind, err := mesher.ParseKind(c.Mesh.Mesher)
	if err != nil {
		return mesher.Options{}, err
	}
	opts := mesher.Options{
		Kind:                 kind,
		LinearDeflection:     c.Mesh.LinearDeflection,
		AngularDeflectionDeg: c.Mesh.AngularDeflection,
		Fineness:             c.Mesh.Fineness,
		SecondOrder:          c.Mesh.SecondOrder,
		Optimize:             c.Mesh.Optimize,
		AllowQuad:            c.Mesh.AllowQuad,
		CheckChart:           c.Mesh.CheckChart,
	}
	if err := opts.Validate(); err != nil {
		return mesher.Options{}, err
	}
	return opts, nil
}

// Timeout parses the kernel timeout. An empty value selects the runner's
// built-in default.
func (c Config) Timeout() (time.Duration, error) {
	raw := strings.TrimSpace(c.FreeCAD.Timeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid freecad.timeout %q: %w", raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("freecad.timeout must be positive, got %q", raw)
	}
	return d, nil
}

// ManifestPath resolves the manifest database location, defaulting to the
// per-user state directory.
func (c Config) ManifestPath() (string, error) {
	if c.Manifest.Path != "" {
		return c.Manifest.Path, nil
	}
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "manifest.db"), nil
}

// Debounce returns the watch debounce interval.
func (c Config) Debounce() time.Duration {
	if c.Watch.DebounceMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

const defaultTemplate = `# stp2stl configuration. Values here are overridden by STP2STL_*
# environment variables and command-line flags.

[freecad]
# Installation root of FreeCAD. Leave empty to search FREECAD_PATH, the
# well-known installation directories and PATH.
root = ""
# Explicit FreeCADCmd binary. Wins over root when set.
binary = ""
# Upper bound for a single kernel run.
timeout = "10m"

[convert]
# Number of files converted in parallel.
jobs = 1
# Directory for converted meshes. Empty writes next to each input file.
output_dir = ""
# Write ASCII STL instead of binary.
ascii = false
# Skip files whose content and settings match the last successful run.
skip_unchanged = false

[mesh]
# Tessellation algorithm: standard, mefisto or netgen.
mesher = "standard"
# Standard mesher settings. Angular deflection is in degrees.
linear_deflection = 10.0
angular_deflection = 5.0
# Mefisto and netgen settings. 0=very coarse .. 4=very fine, 5=user defined.
fineness = 2
second_order = false
optimize = false
allow_quad = false
# Netgen only.
check_chart = false

[manifest]
# Record conversions in a local database.
enabled = true
# Database location. Empty uses the per-user state directory.
path = ""

[watch]
# Quiet time before a changed file is converted, in milliseconds.
debounce_ms = 500
`

// WriteDefault writes a commented starter config to path.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	return os.WriteFile(path, []byte(defaultTemplate), 0o644)
}
