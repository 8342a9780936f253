package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stp2stl/pkg/analysis"
	"stp2stl/pkg/stl"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Display measurements of an STL mesh",
	Long:  "Show format, facet count, dimensions, surface area and edge statistics of a converted mesh.",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	filename := args[0]

	model, err := stl.Parse(filename)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	report := analysis.Analyze(model)
	out := cmd.OutOrStdout()
	st := newStyles(out)

	fmt.Fprintln(out, st.header("Mesh"))
	if model.Name != "" {
		fmt.Fprintln(out, st.kv("Name", model.Name))
	}
	fmt.Fprintln(out, st.kv("File", filename))
	fmt.Fprintln(out, st.kv("Format", model.Format.String()))
	fmt.Fprintln(out, st.kv("Facets", fmt.Sprintf("%d", report.FacetCount)))
	if report.DegenerateCount > 0 {
		fmt.Fprintln(out, st.kv("Degenerate", fmt.Sprintf("%d", report.DegenerateCount)))
	}
	fmt.Fprintln(out, st.kv("Surface area", fmt.Sprintf("%.6f", report.SurfaceArea)))
	fmt.Fprintln(out)

	fmt.Fprintln(out, st.header("Bounding box"))
	fmt.Fprintln(out, st.kv("Min", analysis.FormatVector(report.BoundingBox.Min)))
	fmt.Fprintln(out, st.kv("Max", analysis.FormatVector(report.BoundingBox.Max)))
	fmt.Fprintln(out, st.kv("Center", analysis.FormatVector(report.BoundingBox.Center())))
	fmt.Fprintln(out, st.kv("Size", analysis.FormatVector(report.Dimensions)))
	fmt.Fprintln(out, st.kv("Diagonal", fmt.Sprintf("%.6f", report.BoundingBox.Diagonal())))
	fmt.Fprintln(out, st.kv("Box volume", fmt.Sprintf("%.6f", report.BoxVolume)))
	fmt.Fprintln(out)

	fmt.Fprintln(out, st.header("Edges"))
	fmt.Fprintln(out, st.kv("Count", fmt.Sprintf("%d", report.EdgeCount)))
	fmt.Fprintln(out, st.kv("Min length", fmt.Sprintf("%.6f", report.MinEdgeLength)))
	fmt.Fprintln(out, st.kv("Max length", fmt.Sprintf("%.6f", report.MaxEdgeLength)))
	fmt.Fprintln(out, st.kv("Avg length", fmt.Sprintf("%.6f", report.AvgEdgeLength)))
	return nil
}
