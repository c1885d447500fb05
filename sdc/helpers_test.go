package sdc

import (
	"fmt"
	"math"
)

// decay is dq/dt = lambda q for a vector of independent components. The
// implicit solve is exact, unless dt exceeds maxDt, where it reports
// divergence the way an iterative solver out of budget would. forcing is
// a constant source added to every component, prepareErr is returned by
// Prepare.
type decay struct {
	lambda     []float64
	q0         []float64
	dt, tEnd   float64
	maxDt      float64
	forcing    float64
	prepareErr error
	solves     int
	prepares   int
}

func newDecay(lambda ...float64) (d *decay) {
	d = &decay{
		lambda: lambda,
		q0:     make([]float64, len(lambda)),
		dt:     0.1,
		tEnd:   1,
	}
	for i := range d.q0 {
		d.q0[i] = 1
	}
	return
}

func (d *decay) DOF() int { return len(d.lambda) }

func (d *decay) Variables() []Variable {
	return []Variable{{Name: "q", DOF: len(d.lambda), Enabled: true}}
}

func (d *decay) Function(t float64, q, f []float64) {
	for i := range q {
		f[i] = d.lambda[i]*q[i] + d.forcing
	}
}

func (d *decay) Solve(t, dt float64, qold, rhs, guess, result, f []float64) error {
	d.solves++
	if d.maxDt > 0 && dt > d.maxDt {
		return fmt.Errorf("%w: dt %g above %g", ErrImplicitSolveDivergence, dt, d.maxDt)
	}
	for i := range result {
		result[i] = (qold[i] + rhs[i] + dt*d.forcing) / (1 - dt*d.lambda[i])
	}
	d.Function(t, result, f)
	return nil
}

func (d *decay) Prepare(t, dt float64) error {
	d.prepares++
	return d.prepareErr
}

func (d *decay) InitialSolution(q []float64) { copy(q, d.q0) }
func (d *decay) EndTime() float64            { return d.tEnd }
func (d *decay) TimeStep() float64           { return d.dt }

func (d *decay) exact(i int, t float64) float64 { return d.q0[i] * math.Exp(d.lambda[i]*t) }
