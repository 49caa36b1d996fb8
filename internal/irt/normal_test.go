package irt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalCDF(t *testing.T) {
	cases := []struct {
		x, want float64
	}{
		{0, 0.5},
		{1, 0.8413447461},
		{1.96, 0.9750021049},
		{-1.96, 0.0249978951},
		{3, 0.9986501020},
		{-6, 9.8658765e-10},
	}
	for _, c := range cases {
		assert.InDelta(t, c.want, NormalCDF(c.x), 1e-7, "Φ(%v)", c.x)
	}

	for _, x := range []float64{0.1, 0.7, 1.3, 2.5, 4} {
		assert.InDelta(t, 1.0, NormalCDF(x)+NormalCDF(-x), 1e-12, "symmetry at %v", x)
	}
}

func TestTwoSidedP(t *testing.T) {
	assert.InDelta(t, 1.0, TwoSidedP(0), 1e-7)
	assert.InDelta(t, 0.05, TwoSidedP(1.96), 1e-5)
	assert.Equal(t, TwoSidedP(1.5), TwoSidedP(-1.5))
}
