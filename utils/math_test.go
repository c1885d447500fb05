package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPOW(t *testing.T) {
	for p := -10; p <= 10; p++ {
		assert.InDelta(t, math.Pow(1.3, float64(p)), POW(1.3, p), 1.e-12)
	}
	assert.True(t, IsNan([]float64{1, math.NaN()}))
	assert.False(t, IsNan(2.))
}
