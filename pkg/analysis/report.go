package analysis

import (
	"fmt"
	"math"

	"stp2stl/pkg/geometry"
	"stp2stl/pkg/stl"
)

// Report contains the measurements of a converted mesh
type Report struct {
	BoundingBox geometry.BoundingBox
	Dimensions  geometry.Vector3
	// BoxVolume is the volume of the axis-aligned bounding box, not of the
	// solid itself.
	BoxVolume       float64
	SurfaceArea     float64
	FacetCount      int
	DegenerateCount int
	EdgeCount       int
	MinEdgeLength   float64
	MaxEdgeLength   float64
	AvgEdgeLength   float64
}

// Analyze measures a parsed mesh: bounding box, dimensions, surface area
// and edge length statistics
func Analyze(model *stl.Model) *Report {
	report := &Report{
		BoundingBox:     model.BoundingBox(),
		SurfaceArea:     model.SurfaceArea(),
		FacetCount:      model.TriangleCount(),
		DegenerateCount: model.DegenerateCount(),
	}

	report.Dimensions = report.BoundingBox.Size()
	report.BoxVolume = report.BoundingBox.Volume()

	minLength := math.MaxFloat64
	maxLength := 0.0
	totalLength := 0.0

	for _, triangle := range model.Triangles {
		edges := []struct {
			start, end geometry.Vector3
		}{
			{triangle.V1, triangle.V2},
			{triangle.V2, triangle.V3},
			{triangle.V3, triangle.V1},
		}

		for _, edge := range edges {
			length := edge.start.Distance(edge.end)
			report.EdgeCount++
			totalLength += length
			if length < minLength {
				minLength = length
			}
			if length > maxLength {
				maxLength = length
			}
		}
	}

	if report.EdgeCount > 0 {
		report.MinEdgeLength = minLength
		report.MaxEdgeLength = maxLength
		report.AvgEdgeLength = totalLength / float64(report.EdgeCount)
	}

	return report
}

// FormatVector formats a 3D vector
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", v.X, v.Y, v.Z)
}
