package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stp2stl/pkg/freecad"
	"stp2stl/version"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the FreeCAD installation and configuration",
	Long: `Report how the FreeCAD runtime is discovered, which version it runs, where
the configuration was read from and where the conversion manifest lives.

The command exits non-zero when no usable FreeCAD installation is found.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// versionProbeTimeout bounds the doctor's kernel probe. Printing a version
// should never take anywhere near the conversion timeout.
const versionProbeTimeout = time.Minute

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	st := newStyles(out)

	fmt.Fprintln(out, st.header("stp2stl"))
	fmt.Fprintln(out, st.kv("Version", version.GetFullVersion()))
	origin := cfg.Origin
	if origin == "" {
		origin = "built-in defaults"
	}
	fmt.Fprintln(out, st.kv("Config", origin))
	if manifestPath, err := cfg.ManifestPath(); err == nil {
		fmt.Fprintln(out, st.kv("Manifest", manifestPath))
	}
	if meshOpts, err := cfg.MeshOptions(); err != nil {
		fmt.Fprintln(out, st.kv("Mesh", fmt.Sprintf("invalid: %v", err)))
	} else {
		fmt.Fprintln(out, st.kv("Mesh", meshOpts.Describe()))
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, st.header("FreeCAD"))
	rt, err := locateKernel()
	if err != nil {
		fmt.Fprintln(out, st.kv("Runtime", "not found"))
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Install FreeCAD and either add FreeCADCmd to the PATH, set")
		fmt.Fprintln(out, "FREECAD_PATH to the installation root, or pass --freecad-root.")
		return err
	}
	fmt.Fprintln(out, st.kv("Binary", rt.Binary))
	if rt.Root != "" {
		fmt.Fprintln(out, st.kv("Root", rt.Root))
	}
	fmt.Fprintln(out, st.kv("Found via", rt.Source))

	runner := freecad.NewRunner(rt, versionProbeTimeout, logger)
	kernelVersion, err := runner.Version(cmd.Context())
	if err != nil {
		fmt.Fprintln(out, st.kv("Version", "probe failed"))
		return fmt.Errorf("FreeCAD version probe failed: %w", err)
	}
	fmt.Fprintln(out, st.kv("Version", kernelVersion))
	return nil
}
