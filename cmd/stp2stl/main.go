package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stp2stl/internal/config"
	"stp2stl/internal/logging"
	"stp2stl/pkg/freecad"
	"stp2stl/version"
)

var (
	verbose       bool
	logJSON       bool
	configFile    string
	freecadRoot   string
	freecadBinary string

	logger *zap.Logger
	cfg    config.Config
)

var rootCmd = &cobra.Command{
	Use:   "stp2stl",
	Short: "Convert STEP CAD files to STL meshes with FreeCAD",
	Long: `stp2stl batch-converts STEP (.stp, .step) files to STL meshes by driving
a headless FreeCAD installation. Inputs may be literal paths or glob
patterns, each shape can be scaled before tessellation, and the standard,
mefisto and netgen tessellation algorithms are supported.

Every conversion is recorded in a local manifest, so unchanged inputs can
be skipped on later runs.`,
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(logging.Options{Verbose: verbose, JSON: logJSON})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if configFile != "" {
			cfg, err = config.LoadFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON instead of console lines")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file (default: ./stp2stl.toml, then the user config dir)")
	rootCmd.PersistentFlags().StringVar(&freecadRoot, "freecad-root", "", "FreeCAD installation directory")
	rootCmd.PersistentFlags().StringVar(&freecadBinary, "freecad-binary", "", "FreeCADCmd executable (overrides --freecad-root)")
}

// locateKernel resolves the FreeCAD runtime, flags first, then the
// configuration file. FREECAD_PATH and the well-known installation
// directories are tried by the search itself.
func locateKernel() (*freecad.Runtime, error) {
	opts := freecad.LocateOptions{
		Binary: freecadBinary,
		Root:   freecadRoot,
	}
	if opts.Binary == "" {
		opts.Binary = cfg.FreeCAD.Binary
	}
	if opts.Root == "" {
		opts.Root = cfg.FreeCAD.Root
	}
	return freecad.Locate(opts)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, freecad.ErrKernelNotFound) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
