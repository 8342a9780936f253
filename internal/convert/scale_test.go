package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fptr(v float64) *float64 { return &v }

func TestResolveScale(t *testing.T) {
	tests := []struct {
		name     string
		flags    ScaleFlags
		expected Factors
	}{
		{
			name:     "defaults to identity",
			flags:    ScaleFlags{},
			expected: Factors{X: 1, Y: 1, Z: 1},
		},
		{
			name:     "mm to m sets the base",
			flags:    ScaleFlags{MMToM: true},
			expected: Factors{X: 0.001, Y: 0.001, Z: 0.001},
		},
		{
			name:     "uniform overrides mm to m",
			flags:    ScaleFlags{MMToM: true, Uniform: fptr(2)},
			expected: Factors{X: 2, Y: 2, Z: 2},
		},
		{
			name:     "per-axis overrides uniform",
			flags:    ScaleFlags{Uniform: fptr(2), X: fptr(3)},
			expected: Factors{X: 3, Y: 2, Z: 2},
		},
		{
			name:     "explicit 1.0 still overrides uniform",
			flags:    ScaleFlags{Uniform: fptr(2), Y: fptr(1)},
			expected: Factors{X: 2, Y: 1, Z: 2},
		},
		{
			name:     "per-axis alone keeps other axes at base",
			flags:    ScaleFlags{MMToM: true, Z: fptr(0.5)},
			expected: Factors{X: 0.001, Y: 0.001, Z: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveScale(tt.flags))
		})
	}
}

func TestFactorsIdentity(t *testing.T) {
	assert.True(t, Factors{X: 1, Y: 1, Z: 1}.Identity())
	assert.False(t, Factors{X: 1, Y: 1, Z: 0.001}.Identity())
	assert.False(t, Factors{}.Identity())
}
