package sdc

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runDecay(t *testing.T, dt float64, nodes, sweeps int) (err float64) {
	d := newDecay(-1)
	d.dt = dt
	c, e := NewSDC(NewStageSolver(d), nodes, sweeps, 0)
	require.NoError(t, e)
	require.NoError(t, c.Run())
	q, f := make([]float64, 1), make([]float64, 1)
	require.NoError(t, c.Solver.GetSolution(q, f))
	assert.InDelta(t, 1., c.Time, 1.e-12)
	return math.Abs(q[0] - d.exact(0, 1))
}

func TestSDCOrder(t *testing.T) {
	{ // Predictor only is implicit Euler, first order
		e1 := runDecay(t, 0.1, 2, 0)
		e2 := runDecay(t, 0.05, 2, 0)
		ratio := e1 / e2
		assert.True(t, ratio > 1.8 && ratio < 2.2, "ratio %g", ratio)
	}
	{ // Three Lobatto nodes converge to the fourth order collocation solution
		e1 := runDecay(t, 0.1, 3, 6)
		e2 := runDecay(t, 0.05, 3, 6)
		assert.Less(t, e1, 1.e-5)
		assert.Greater(t, e1/e2, 10.)
	}
	{ // More sweeps never hurt on a linear problem
		e1 := runDecay(t, 0.1, 3, 1)
		e2 := runDecay(t, 0.1, 3, 4)
		assert.Less(t, e2, e1)
	}
}

func TestSDCSteps(t *testing.T) {
	var (
		d = newDecay(-1, -0.5)
	)
	d.dt, d.tEnd = 0.3, 1
	s := NewStageSolver(d)
	c, err := NewSDC(s, 3, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, s.History().Capacity())
	var stageTimes []float64
	c.Coupling = func(tt float64) error {
		stageTimes = append(stageTimes, tt)
		return nil
	}
	require.NoError(t, c.Run())
	// 0.3, 0.6, 0.9 and a last short step of 0.1
	assert.Equal(t, 4, c.Steps)
	assert.Equal(t, 4, s.TimeIndex())
	assert.InDelta(t, 1., c.Time, 1.e-12)
	assert.Equal(t, Idle, s.State())
	// The step start, then predictor and two sweeps of two stages each per step
	assert.Len(t, stageTimes, 4*(1+3*2))
	assert.Equal(t, 0., stageTimes[0])
	assert.InDelta(t, 0.15, stageTimes[1], 1.e-14)
	assert.InDelta(t, 0.3, stageTimes[2], 1.e-14)
	assert.InDelta(t, 0.3, stageTimes[7], 1.e-14)
	assert.InDelta(t, 0.95, stageTimes[len(stageTimes)-2], 1.e-14)
	assert.Equal(t, 4*3*2, d.solves)
	assert.Equal(t, d.solves, d.prepares)
}

func TestSDCCouplingAtStepStart(t *testing.T) {
	// The source is only known once coupled; q' = 1 integrates exactly
	d := newDecay(0)
	d.dt, d.tEnd = 0.25, 1
	s := NewStageSolver(d)
	c, err := NewSDC(s, 3, 3, 0)
	require.NoError(t, err)
	c.Coupling = func(float64) error {
		d.forcing = 1
		return nil
	}
	require.NoError(t, c.Run())
	q, f := make([]float64, 1), make([]float64, 1)
	require.NoError(t, s.GetSolution(q, f))
	assert.InDelta(t, 2., q[0], 1.e-12)
	assert.Equal(t, 1., f[0])
}

func TestSDCTolerance(t *testing.T) {
	d := newDecay(-1)
	c, err := NewSDC(NewStageSolver(d), 3, 20, 1.e-10)
	require.NoError(t, err)
	require.NoError(t, c.SolveTimeStep(0, 0.1))
	// The sweeps stop well before the limit once the iterate settles
	assert.Less(t, d.solves, 2*21)
	q, f := make([]float64, 1), make([]float64, 1)
	require.NoError(t, c.Solver.GetSolution(q, f))
	assert.InDelta(t, math.Exp(-0.1), q[0], 1.e-7)
}

func TestSDCRetry(t *testing.T) {
	{ // A diverging step is retried with half the step size
		d := newDecay(-1)
		d.dt, d.maxDt = 0.2, 0.06
		s := NewStageSolver(d)
		c, err := NewSDC(s, 3, 4, 0)
		require.NoError(t, err)
		require.NoError(t, c.Run())
		// Stage dtau is half the step: 0.1 diverges, 0.05 converges
		assert.Equal(t, 10, c.Steps)
		assert.InDelta(t, 1., c.Time, 1.e-12)
		q, f := make([]float64, 1), make([]float64, 1)
		require.NoError(t, s.GetSolution(q, f))
		assert.InDelta(t, math.Exp(-1), q[0], 1.e-6)
	}
	{ // Out of retries
		d := newDecay(-1)
		d.dt, d.maxDt = 0.2, 0.001
		s := NewStageSolver(d)
		c, err := NewSDC(s, 3, 2, 0)
		require.NoError(t, err)
		c.MaxRetries = 2
		err = c.Run()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrImplicitSolveDivergence))
		assert.Equal(t, 0, c.Steps)
		assert.Equal(t, []float64{1}, s.QOld())
		// The solver is left aborted; a fresh step restarts from qold
		require.NoError(t, s.InitTimeStep())
		q, f := make([]float64, 1), make([]float64, 1)
		require.NoError(t, s.GetSolution(q, f))
		assert.Equal(t, []float64{1}, q)
	}
	{ // Coupling failures are not retried
		d := newDecay(-1)
		c, err := NewSDC(NewStageSolver(d), 3, 1, 0)
		require.NoError(t, err)
		c.Coupling = func(float64) error { return fmt.Errorf("no pressure field") }
		err = c.Run()
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrImplicitSolveDivergence))
		assert.Equal(t, 0, d.solves)
	}
}

func TestNewSDCArguments(t *testing.T) {
	_, err := NewSDC(NewStageSolver(newDecay(-1)), 1, 2, 0)
	assert.Error(t, err)
	_, err = NewSDC(NewStageSolver(newDecay(-1)), 3, -1, 0)
	assert.Error(t, err)
}
