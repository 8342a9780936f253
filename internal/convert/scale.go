package convert

// Factors are the per-axis multipliers applied to the shape before
// tessellation.
type Factors struct {
	X float64
	Y float64
	Z float64
}

// Identity reports whether the factors leave the geometry untouched.
func (f Factors) Identity() bool {
	return f.X == 1.0 && f.Y == 1.0 && f.Z == 1.0
}

// ScaleFlags carries the raw scaling inputs. The pointer fields distinguish
// "not set" from an explicit value, so --scale-x 1.0 still overrides a
// uniform --scale.
type ScaleFlags struct {
	MMToM   bool
	Uniform *float64
	X       *float64
	Y       *float64
	Z       *float64
}

// ResolveScale applies the documented precedence: the mm-to-m base sets all
// axes to 0.001, a uniform factor overrides that, and per-axis values
// override last.
func ResolveScale(flags ScaleFlags) Factors {
	base := 1.0
	if flags.MMToM {
		base = 0.001
	}
	factors := Factors{X: base, Y: base, Z: base}

	if flags.Uniform != nil {
		factors.X = *flags.Uniform
		factors.Y = *flags.Uniform
		factors.Z = *flags.Uniform
	}

	if flags.X != nil {
		factors.X = *flags.X
	}
	if flags.Y != nil {
		factors.Y = *flags.Y
	}
	if flags.Z != nil {
		factors.Z = *flags.Z
	}
	return factors
}
