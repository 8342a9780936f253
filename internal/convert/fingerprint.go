package convert

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"stp2stl/pkg/mesher"
)

// InputDigest hashes the content of an input file. The digest keys the
// skip-unchanged check, so a touched but unmodified file is still skipped.
func InputDigest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open input: %w", err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("failed to hash input: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// OptionsFingerprint condenses every setting that affects the output mesh.
// Only the parameters the selected mesher actually uses are included, so
// changing an inert setting does not invalidate earlier conversions.
func OptionsFingerprint(factors Factors, opts mesher.Options, ascii bool) string {
	h := sha256.New()
	fmt.Fprintf(h, "scale=%g,%g,%g;", factors.X, factors.Y, factors.Z)
	fmt.Fprintf(h, "mesher=%s;", opts.Kind)
	switch opts.Kind {
	case mesher.Standard:
		fmt.Fprintf(h, "linear=%g;angular=%g;", opts.LinearDeflection, opts.AngularDeflectionDeg)
	case mesher.Mefisto:
		fmt.Fprintf(h, "fineness=%d;second=%t;optimize=%t;quad=%t;",
			opts.Fineness, opts.SecondOrder, opts.Optimize, opts.AllowQuad)
	case mesher.Netgen:
		fmt.Fprintf(h, "fineness=%d;second=%t;optimize=%t;quad=%t;chart=%t;",
			opts.Fineness, opts.SecondOrder, opts.Optimize, opts.AllowQuad, opts.CheckChart)
	}
	fmt.Fprintf(h, "ascii=%t;", ascii)
	return hex.EncodeToString(h.Sum(nil))
}
