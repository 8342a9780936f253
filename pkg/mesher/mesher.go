// Package mesher describes the tessellation algorithms the CAD kernel
// supports and the parameters each of them accepts.
package mesher

import (
	"fmt"
	"math"
	"strings"
)

// Kind selects the tessellation algorithm.
type Kind string

const (
	// Standard is the kernel's built-in tessellator, driven by linear and
	// angular deflection.
	Standard Kind = "standard"
	// Mefisto is driven by a fineness level.
	Mefisto Kind = "mefisto"
	// Netgen takes the mefisto parameters plus chart analysis.
	Netgen Kind = "netgen"
)

// Kinds returns the supported algorithms in documentation order.
func Kinds() []Kind {
	return []Kind{Standard, Mefisto, Netgen}
}

// ParseKind converts a user-supplied name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Standard:
		return Standard, nil
	case Mefisto:
		return Mefisto, nil
	case Netgen:
		return Netgen, nil
	}
	return "", fmt.Errorf("unknown mesher %q (choose standard, mefisto or netgen)", s)
}

// Options carries the tessellation parameters for all algorithms. Only the
// fields relevant to the selected Kind are passed to the kernel.
type Options struct {
	Kind Kind

	// Standard mesher. The angular deflection is kept in degrees and
	// converted to radians exactly once, when the kernel call is built.
	LinearDeflection     float64
	AngularDeflectionDeg float64

	// Mefisto and netgen meshers.
	Fineness    int
	SecondOrder bool
	Optimize    bool
	AllowQuad   bool

	// Netgen only.
	CheckChart bool
}

// DefaultOptions returns the documented defaults: the standard mesher with
// 10.0 mm linear deflection, 5 degrees angular deflection and a moderate
// fineness for the alternative meshers.
func DefaultOptions() Options {
	return Options{
		Kind:                 Standard,
		LinearDeflection:     10.0,
		AngularDeflectionDeg: 5.0,
		Fineness:             2,
	}
}

// Validate checks that the parameters for the selected algorithm are usable.
func (o Options) Validate() error {
	switch o.Kind {
	case Standard:
		if o.LinearDeflection <= 0 {
			return fmt.Errorf("linear deflection must be positive, got %v", o.LinearDeflection)
		}
		if o.AngularDeflectionDeg <= 0 {
			return fmt.Errorf("angular deflection must be positive, got %v", o.AngularDeflectionDeg)
		}
	case Mefisto, Netgen:
		if o.Fineness < 0 || o.Fineness > 5 {
			return fmt.Errorf("fineness must be between 0 and 5, got %d", o.Fineness)
		}
	default:
		return fmt.Errorf("unknown mesher %q (choose standard, mefisto or netgen)", o.Kind)
	}
	return nil
}

// AngularDeflectionRad returns the angular deflection in radians, the unit
// the kernel expects.
func (o Options) AngularDeflectionRad() float64 {
	return o.AngularDeflectionDeg * (math.Pi / 180.0)
}

// FinenessName returns the human-readable name of a fineness level.
func FinenessName(fineness int) string {
	names := []string{"very coarse", "coarse", "moderate", "fine", "very fine", "user defined"}
	if fineness < 0 || fineness >= len(names) {
		return fmt.Sprintf("invalid (%d)", fineness)
	}
	return names[fineness]
}

// Describe returns a one-line summary of the effective parameters, used in
// logs and conversion reports.
func (o Options) Describe() string {
	switch o.Kind {
	case Standard:
		return fmt.Sprintf("standard (linear deflection %g mm, angular deflection %g deg, relative)",
			o.LinearDeflection, o.AngularDeflectionDeg)
	case Mefisto:
		return fmt.Sprintf("mefisto (fineness %d %s)", o.Fineness, FinenessName(o.Fineness))
	case Netgen:
		return fmt.Sprintf("netgen (fineness %d %s)", o.Fineness, FinenessName(o.Fineness))
	}
	return string(o.Kind)
}
