package Diffusion1D

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubayang/FOAM-FSI/sdc"
)

func TestDiffusionOperator(t *testing.T) {
	pm := DefaultParameters()
	pm.N = 9
	d, err := NewDiffusion(pm)
	require.NoError(t, err)
	r, c := d.Laplacian.Dims()
	assert.Equal(t, 9, r)
	assert.Equal(t, 9, c)
	assert.InDelta(t, -2/(d.dz*d.dz), d.Laplacian.At(4, 4), 1.e-9)
	assert.InDelta(t, 1/(d.dz*d.dz), d.Laplacian.At(4, 5), 1.e-9)
	assert.Equal(t, 0., d.Laplacian.At(0, 8))
	{ // A heated wall with cold ends: s z (L-z)/(2 kappa) is steady
		s := make([]float64, pm.N)
		for i := range s {
			s[i] = 2
		}
		require.NoError(t, d.SetSource(s))
		var (
			q = make([]float64, pm.N)
			f = make([]float64, pm.N)
		)
		for i, z := range d.Nodes() {
			q[i] = 2 * z * (pm.L - z) / 2
		}
		d.Function(0, q, f)
		for i := range f {
			assert.InDelta(t, 0., f[i], 1.e-10)
		}
	}
	assert.True(t, errors.Is(d.SetSource(make([]float64, 3)), sdc.ErrDimensionMismatch))
}

func TestDiffusionSteadyState(t *testing.T) {
	pm := DefaultParameters()
	pm.N = 30
	pm.TLeft = 1
	pm.Dt, pm.EndTime = 10, 50
	d, err := NewDiffusion(pm)
	require.NoError(t, err)
	s := sdc.NewStageSolver(d)
	c, err := sdc.NewSDC(s, 2, 0, 0)
	require.NoError(t, err)
	require.NoError(t, c.Run())
	q, f := make([]float64, pm.N), make([]float64, pm.N)
	require.NoError(t, s.GetSolution(q, f))
	for i, z := range d.Nodes() {
		assert.InDelta(t, 1-z/pm.L, q[i], 1.e-8)
	}
}

func TestDiffusionDecay(t *testing.T) {
	// The lowest sine mode decays with the discrete eigenvalue
	pm := DefaultParameters()
	pm.N = 20
	pm.Dt, pm.EndTime = 5.e-3, 0.1
	d, err := NewDiffusion(pm)
	require.NoError(t, err)
	var (
		s      = sdc.NewStageSolver(d)
		q0     = make([]float64, pm.N)
		f0     = make([]float64, pm.N)
		lambda = (2 - 2*math.Cos(math.Pi*d.dz)) / (d.dz * d.dz)
	)
	for i, z := range d.Nodes() {
		q0[i] = math.Sin(math.Pi * z / pm.L)
	}
	d.Function(0, q0, f0)
	require.NoError(t, s.SetSolution(q0, f0))
	c, err := sdc.NewSDC(s, 3, 4, 0)
	require.NoError(t, err)
	require.NoError(t, c.Run())
	q, f := make([]float64, pm.N), make([]float64, pm.N)
	require.NoError(t, s.GetSolution(q, f))
	decay := math.Exp(-pm.Kappa * lambda * pm.EndTime)
	for i := range q {
		assert.InDelta(t, decay*q0[i], q[i], 1.e-6)
	}
}

func TestDiffusionBudget(t *testing.T) {
	pm := DefaultParameters()
	pm.TLeft = 1
	pm.CGMaxIter = 1
	d, err := NewDiffusion(pm)
	require.NoError(t, err)
	var (
		n      = pm.N
		qold   = make([]float64, n)
		result = make([]float64, n)
		f      = make([]float64, n)
	)
	err = d.Solve(0.01, 0.01, qold, make([]float64, n), qold, result, f)
	assert.True(t, errors.Is(err, sdc.ErrImplicitSolveDivergence))
	// Enough iterations converge
	d.CGMaxIter = 2 * n
	require.NoError(t, d.Solve(0.01, 0.01, qold, make([]float64, n), qold, result, f))
	check := make([]float64, n)
	d.operator(0.01, check, result)
	check[0] -= 0.01 * d.bc[0]
	for i := range check {
		assert.InDelta(t, 0., check[i], 1.e-10)
	}
	{ // Starting from the solution converges within one iteration, guess is only read
		guess := append([]float64(nil), result...)
		again := make([]float64, n)
		d.CGMaxIter = 1
		require.NoError(t, d.Solve(0.01, 0.01, qold, make([]float64, n), guess, again, f))
		assert.InDeltaSlice(t, result, again, 1.e-10)
		assert.Equal(t, result, guess)
	}
	{ // The tolerance is relative and must lie in (0,1)
		bad := DefaultParameters()
		bad.CGTol = 0
		_, err = NewDiffusion(bad)
		assert.Error(t, err)
		bad.CGTol = 1
		_, err = NewDiffusion(bad)
		assert.Error(t, err)
	}
}
