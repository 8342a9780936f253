package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
)

// WriteFile writes the model to filename in the given format.
func WriteFile(filename string, model *Model, format Format) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if format == FormatASCII {
		return WriteASCII(file, model)
	}
	return WriteBinary(file, model)
}

// WriteBinary writes the model in binary STL format: an 80-byte header,
// a little-endian uint32 triangle count, then 50 bytes per facet.
func WriteBinary(w io.Writer, model *Model) error {
	bw := bufio.NewWriter(w)

	header := make([]byte, 80)
	copy(header, model.Name)
	if _, err := bw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(model.Triangles))); err != nil {
		return fmt.Errorf("failed to write triangle count: %w", err)
	}

	for i, triangle := range model.Triangles {
		values := [][3]float32{
			vec32(triangle.Normal.X, triangle.Normal.Y, triangle.Normal.Z),
			vec32(triangle.V1.X, triangle.V1.Y, triangle.V1.Z),
			vec32(triangle.V2.X, triangle.V2.Y, triangle.V2.Z),
			vec32(triangle.V3.X, triangle.V3.Y, triangle.V3.Z),
		}
		for _, v := range values {
			if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
				return fmt.Errorf("failed to write triangle %d: %w", i, err)
			}
		}
		if err := binary.Write(bw, binary.LittleEndian, uint16(0)); err != nil {
			return fmt.Errorf("failed to write attribute for triangle %d: %w", i, err)
		}
	}

	return bw.Flush()
}

// WriteASCII writes the model in ASCII STL format.
func WriteASCII(w io.Writer, model *Model) error {
	bw := bufio.NewWriter(w)

	name := model.Name
	if _, err := fmt.Fprintf(bw, "solid %s\n", name); err != nil {
		return fmt.Errorf("failed to write solid header: %w", err)
	}

	for i, triangle := range model.Triangles {
		_, err := fmt.Fprintf(bw, "  facet normal %s %s %s\n    outer loop\n      vertex %s %s %s\n      vertex %s %s %s\n      vertex %s %s %s\n    endloop\n  endfacet\n",
			ftoa(triangle.Normal.X), ftoa(triangle.Normal.Y), ftoa(triangle.Normal.Z),
			ftoa(triangle.V1.X), ftoa(triangle.V1.Y), ftoa(triangle.V1.Z),
			ftoa(triangle.V2.X), ftoa(triangle.V2.Y), ftoa(triangle.V2.Z),
			ftoa(triangle.V3.X), ftoa(triangle.V3.Y), ftoa(triangle.V3.Z))
		if err != nil {
			return fmt.Errorf("failed to write triangle %d: %w", i, err)
		}
	}

	if _, err := fmt.Fprintf(bw, "endsolid %s\n", name); err != nil {
		return fmt.Errorf("failed to write solid footer: %w", err)
	}

	return bw.Flush()
}

func vec32(x, y, z float64) [3]float32 {
	return [3]float32{float32(x), float32(y), float32(z)}
}

// ftoa formats a coordinate with the shortest representation that
// round-trips, so writing and re-parsing a model is lossless.
func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
