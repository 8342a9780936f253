package freecad

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"stp2stl/pkg/mesher"
)

// Job describes a single conversion for the kernel to execute.
type Job struct {
	// Input is the STEP file to import.
	Input string
	// Output is the STL file to write.
	Output string
	// ScaleX, ScaleY and ScaleZ are the per-axis scale factors. They are
	// applied to the shape before tessellation, so mesh quality settings
	// operate on the final geometry.
	ScaleX float64
	ScaleY float64
	ScaleZ float64
	// Mesh selects the tessellation algorithm and its parameters.
	Mesh mesher.Options
}

// NeedsScale reports whether a transform step has to be emitted. Identity
// scaling is skipped entirely, matching a plain import and export.
func (j Job) NeedsScale() bool {
	return j.ScaleX != 1.0 || j.ScaleY != 1.0 || j.ScaleZ != 1.0
}

// resultPrefix starts every sentinel line the generated script prints. The
// runner only trusts lines carrying this prefix; everything else the kernel
// writes is treated as diagnostics.
const resultPrefix = "STP2STL RESULT "

var scriptTemplate = template.Must(template.New("convert").Funcs(template.FuncMap{
	"pystr":   pyString,
	"pyfloat": pyFloat,
	"pybool":  pyBool,
}).Parse(`import sys

import FreeCAD
import Import
import MeshPart
import Part

doc = None
try:
    doc = FreeCAD.newDocument("stp2stl")
    Import.insert({{pystr .Input}}, doc.Name)
    if not doc.Objects:
        raise RuntimeError("STEP file could not be imported or is empty.")
    shape = doc.Objects[0].Shape
{{- if .NeedsScale}}
    matrix = FreeCAD.Base.Matrix({{pyfloat .ScaleX}}, 0, 0, 0, 0, {{pyfloat .ScaleY}}, 0, 0, 0, 0, {{pyfloat .ScaleZ}}, 0, 0, 0, 0, 1)
    shape = shape.transformed(matrix)
{{- end}}
{{- if eq .Mesh.Kind "standard"}}
    mesh = MeshPart.meshFromShape(
        Shape=shape,
        LinearDeflection={{pyfloat .Mesh.LinearDeflection}},
        AngularDeflection={{pyfloat .Mesh.AngularDeflectionRad}},
        Relative=True,
    )
{{- else if eq .Mesh.Kind "mefisto"}}
    mesh = MeshPart.meshFromShape(
        Shape=shape,
        Fineness={{.Mesh.Fineness}},
        SecondOrder={{pybool .Mesh.SecondOrder}},
        Optimize={{pybool .Mesh.Optimize}},
        AllowQuad={{pybool .Mesh.AllowQuad}},
    )
{{- else}}
    mesh = MeshPart.meshFromShape(
        Shape=shape,
        Tessellator=1,
        Fineness={{.Mesh.Fineness}},
        SecondOrder={{pybool .Mesh.SecondOrder}},
        Optimize={{pybool .Mesh.Optimize}},
        AllowQuad={{pybool .Mesh.AllowQuad}},
        CheckChart={{pybool .Mesh.CheckChart}},
    )
{{- end}}
    mesh.write({{pystr .Output}})
    print("{{.ResultPrefix}}ok facets=%d" % mesh.CountFacets)
except Exception as exc:
    print("{{.ResultPrefix}}error %s" % exc)
    sys.exit(3)
finally:
    if doc is not None:
        FreeCAD.closeDocument(doc.Name)
`))

// versionScript probes the kernel without touching any files. The doctor
// command runs it to prove the runtime is actually usable.
const versionScript = `import FreeCAD

print("` + resultPrefix + `ok version=%s" % ".".join(FreeCAD.Version()[:3]))
`

type scriptData struct {
	Job
	ResultPrefix string
}

// Script renders the Python program the kernel executes for one conversion.
func Script(job Job) (string, error) {
	var buf bytes.Buffer
	if err := scriptTemplate.Execute(&buf, scriptData{Job: job, ResultPrefix: resultPrefix}); err != nil {
		return "", fmt.Errorf("failed to render kernel script: %w", err)
	}
	return buf.String(), nil
}

// pyString renders s as a quoted Python string literal. Backslashes are
// escaped rather than using a raw literal, so Windows paths survive.
func pyString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func pyFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func pyBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
