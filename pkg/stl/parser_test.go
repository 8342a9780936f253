package stl

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"stp2stl/pkg/geometry"
)

const asciiCube = `solid cube-corner
  facet normal 0 0 -1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
  facet normal 0 -1 0
    outer loop
      vertex 0 0 0
      vertex 0 0 1
      vertex 1 0 0
    endloop
  endfacet
endsolid cube-corner
`

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestParseASCII(t *testing.T) {
	path := writeTempFile(t, "cube.stl", []byte(asciiCube))

	model, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if model.Format != FormatASCII {
		t.Errorf("Format failed: expected %v, got %v", FormatASCII, model.Format)
	}
	if model.Name != "cube-corner" {
		t.Errorf("Name failed: expected %q, got %q", "cube-corner", model.Name)
	}
	if model.TriangleCount() != 2 {
		t.Fatalf("TriangleCount failed: expected 2, got %d", model.TriangleCount())
	}

	first := model.Triangles[0]
	if first.Normal != geometry.NewVector3(0, 0, -1) {
		t.Errorf("Normal failed: expected (0, 0, -1), got %v", first.Normal)
	}
	if first.V2 != geometry.NewVector3(1, 0, 0) {
		t.Errorf("V2 failed: expected (1, 0, 0), got %v", first.V2)
	}
}

func TestParseEmptyASCIISolid(t *testing.T) {
	path := writeTempFile(t, "empty.stl", []byte("solid empty\nendsolid empty\n"))

	model, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if model.Format != FormatASCII {
		t.Errorf("Format failed: expected %v, got %v", FormatASCII, model.Format)
	}
	if model.TriangleCount() != 0 {
		t.Errorf("TriangleCount failed: expected 0, got %d", model.TriangleCount())
	}
}

func binaryFixture(t *testing.T, header string, triangles [][12]float32) []byte {
	t.Helper()
	var buf bytes.Buffer

	head := make([]byte, 80)
	copy(head, header)
	buf.Write(head)

	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(triangles))); err != nil {
		t.Fatalf("failed to build fixture: %v", err)
	}
	for _, tri := range triangles {
		if err := binary.Write(&buf, binary.LittleEndian, tri); err != nil {
			t.Fatalf("failed to build fixture: %v", err)
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint16(0)); err != nil {
			t.Fatalf("failed to build fixture: %v", err)
		}
	}

	return buf.Bytes()
}

func TestParseBinary(t *testing.T) {
	data := binaryFixture(t, "bracket", [][12]float32{
		{0, 0, 1, 0, 0, 0, 2, 0, 0, 0, 2, 0},
	})
	path := writeTempFile(t, "bracket.stl", data)

	model, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if model.Format != FormatBinary {
		t.Errorf("Format failed: expected %v, got %v", FormatBinary, model.Format)
	}
	if model.Name != "bracket" {
		t.Errorf("Name failed: expected %q, got %q", "bracket", model.Name)
	}
	if model.TriangleCount() != 1 {
		t.Fatalf("TriangleCount failed: expected 1, got %d", model.TriangleCount())
	}

	tri := model.Triangles[0]
	if tri.Normal != geometry.NewVector3(0, 0, 1) {
		t.Errorf("Normal failed: expected (0, 0, 1), got %v", tri.Normal)
	}
	if tri.V3 != geometry.NewVector3(0, 2, 0) {
		t.Errorf("V3 failed: expected (0, 2, 0), got %v", tri.V3)
	}
}

// A binary file whose comment header happens to begin with "solid" must
// still be detected as binary.
func TestParseBinaryWithSolidHeader(t *testing.T) {
	data := binaryFixture(t, "solid exported part", [][12]float32{
		{0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1, 0},
	})
	path := writeTempFile(t, "solid-header.stl", data)

	model, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if model.Format != FormatBinary {
		t.Errorf("Format failed: expected %v, got %v", FormatBinary, model.Format)
	}
	if model.TriangleCount() != 1 {
		t.Errorf("TriangleCount failed: expected 1, got %d", model.TriangleCount())
	}
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "does-not-exist.stl"))
	if err == nil {
		t.Error("Parse failed: expected error for missing file, got nil")
	}
}

func TestParseTruncatedBinary(t *testing.T) {
	data := binaryFixture(t, "truncated", [][12]float32{
		{0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1, 0},
	})
	path := writeTempFile(t, "truncated.stl", data[:len(data)-10])

	_, err := Parse(path)
	if err == nil {
		t.Error("Parse failed: expected error for truncated file, got nil")
	}
}
