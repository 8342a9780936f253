package stl

import (
	"bytes"
	"path/filepath"
	"testing"

	"stp2stl/pkg/geometry"
)

func fixtureModel(name string) *Model {
	model := NewModel(name)
	model.AddTriangle(geometry.NewTriangle(
		geometry.NewVector3(0, 0, 1),
		geometry.NewVector3(0, 0, 0),
		geometry.NewVector3(2.5, 0, 0),
		geometry.NewVector3(0, 1.5, 0),
	))
	model.AddTriangle(geometry.NewTriangle(
		geometry.NewVector3(0, 0, -1),
		geometry.NewVector3(0, 0, 0),
		geometry.NewVector3(0, 1.5, 0),
		geometry.NewVector3(2.5, 0, 0),
	))
	return model
}

func TestWriteBinarySize(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBinary(&buf, fixtureModel("part")); err != nil {
		t.Fatalf("WriteBinary failed: %v", err)
	}

	// 80-byte header + 4-byte count + 50 bytes per facet
	expected := 84 + 2*50
	if buf.Len() != expected {
		t.Errorf("Size failed: expected %d bytes, got %d", expected, buf.Len())
	}
}

func TestWriteBinaryRoundTrip(t *testing.T) {
	original := fixtureModel("round-trip")
	path := filepath.Join(t.TempDir(), "out.stl")

	if err := WriteFile(path, original, FormatBinary); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	parsed, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if parsed.Format != FormatBinary {
		t.Errorf("Format failed: expected %v, got %v", FormatBinary, parsed.Format)
	}
	if parsed.Name != "round-trip" {
		t.Errorf("Name failed: expected %q, got %q", "round-trip", parsed.Name)
	}
	if parsed.TriangleCount() != original.TriangleCount() {
		t.Fatalf("TriangleCount failed: expected %d, got %d",
			original.TriangleCount(), parsed.TriangleCount())
	}

	// The fixture coordinates are exactly representable as float32, so the
	// binary round trip must be lossless.
	for i := range original.Triangles {
		if parsed.Triangles[i] != original.Triangles[i] {
			t.Errorf("Triangle %d failed: expected %v, got %v",
				i, original.Triangles[i], parsed.Triangles[i])
		}
	}
}

func TestWriteASCIIRoundTrip(t *testing.T) {
	original := fixtureModel("ascii-part")
	path := filepath.Join(t.TempDir(), "out.stl")

	if err := WriteFile(path, original, FormatASCII); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	parsed, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if parsed.Format != FormatASCII {
		t.Errorf("Format failed: expected %v, got %v", FormatASCII, parsed.Format)
	}
	if parsed.Name != "ascii-part" {
		t.Errorf("Name failed: expected %q, got %q", "ascii-part", parsed.Name)
	}
	if parsed.TriangleCount() != original.TriangleCount() {
		t.Fatalf("TriangleCount failed: expected %d, got %d",
			original.TriangleCount(), parsed.TriangleCount())
	}

	for i := range original.Triangles {
		if parsed.Triangles[i] != original.Triangles[i] {
			t.Errorf("Triangle %d failed: expected %v, got %v",
				i, original.Triangles[i], parsed.Triangles[i])
		}
	}
}

func TestWriteASCIIEmptyModel(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteASCII(&buf, NewModel("empty")); err != nil {
		t.Fatalf("WriteASCII failed: %v", err)
	}

	expected := "solid empty\nendsolid empty\n"
	if buf.String() != expected {
		t.Errorf("Output failed: expected %q, got %q", expected, buf.String())
	}
}
