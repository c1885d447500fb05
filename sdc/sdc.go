package sdc

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

/*
	Spectral deferred correction on Gauss-Lobatto nodes tau_0 = 0 < ... < tau_K = 1.
	Node 0 is the start of the step, so a step has K implicit stages; stage m
	lands on node m+1.

	Predictor (implicit Euler):
		q_(m+1) = q_m + dtau_m F(q_(m+1))
	Corrector sweep, with the previous sweep marked by ~:
		q_(m+1) = q_m + dtau_m [F(q_(m+1)) - F(~q_(m+1))] + dt sum_j S[m,j] F(~q_j)
	Both are handed to the solver as result = qold + rhs + dtau F(result).
*/

type SDC struct {
	Solver     Solver
	Nodes      []float64
	S          *mat.Dense
	Sweeps     int     // maximum number of correction sweeps per step
	Tol        float64 // sweeps stop once the correction at the last node drops below Tol
	MaxRetries int     // number of time step halvings after a diverged step
	// Coupling is invoked before every implicit stage with the stage time,
	// where boundary data between domains is exchanged.
	Coupling func(t float64) error
	Verbose  bool
	Time     float64
	Steps    int
	dof      int
	q, F     [][]float64
	fPrev    [][]float64
	rhs, tmp []float64
}

func NewSDC(solver Solver, nNodes, sweeps int, tol float64) (c *SDC, err error) {
	var nodes []float64
	if nodes, err = LobattoNodes(nNodes); err != nil {
		return
	}
	if err = CheckVariablesInfo(solver); err != nil {
		return
	}
	if sweeps < 0 {
		return nil, fmt.Errorf("number of correction sweeps must not be negative, have %d", sweeps)
	}
	c = &SDC{
		Solver:     solver,
		Nodes:      nodes,
		S:          IntegrationMatrix(nodes),
		Sweeps:     sweeps,
		Tol:        tol,
		MaxRetries: 4,
		dof:        solver.GetDOF(),
	}
	c.q = alloc2D(nNodes, c.dof)
	c.F = alloc2D(nNodes, c.dof)
	c.fPrev = alloc2D(nNodes, c.dof)
	c.rhs = make([]float64, c.dof)
	c.tmp = make([]float64, c.dof)
	if err = solver.SetNumberOfImplicitStages(nNodes - 1); err != nil {
		return nil, err
	}
	return
}

func alloc2D(n, m int) (a [][]float64) {
	a = make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, m)
	}
	return
}

// SolveTimeStep advances the solver from t0 to t0+dt. A diverged stage
// leaves the solver aborted at qold; the error wraps
// ErrImplicitSolveDivergence so the caller can retry with a smaller dt.
func (c *SDC) SolveTimeStep(t0, dt float64) (err error) {
	var (
		s = c.Solver
		K = len(c.Nodes) - 1
	)
	if err = s.InitTimeStep(); err != nil {
		return
	}
	if err = s.GetSolution(c.q[0], c.F[0]); err != nil {
		return
	}
	// F at the first node sees the boundary data of t0
	if c.Coupling != nil {
		if err = c.Coupling(t0); err != nil {
			return
		}
	}
	if err = s.EvaluateFunction(0, c.q[0], t0, c.F[0]); err != nil {
		return
	}
	stage := func(corrector bool, m int) (err error) {
		var (
			t    = t0 + dt*c.Nodes[m+1]
			dtau = dt * (c.Nodes[m+1] - c.Nodes[m])
		)
		if c.Coupling != nil {
			if err = c.Coupling(t); err != nil {
				return
			}
		}
		if err = s.PrepareImplicitSolve(corrector, m, m-1, t, dtau, c.q[m], c.rhs); err != nil {
			return
		}
		if err = s.ImplicitSolve(corrector, m, m-1, t, dtau, c.q[m], c.rhs, c.F[m+1], c.q[m+1]); err != nil {
			return
		}
		return s.FinalizeImplicitSolve(m)
	}
	for m := 0; m < K; m++ {
		for i := range c.rhs {
			c.rhs[i] = 0
		}
		if err = stage(false, m); err != nil {
			return
		}
	}
	for sweep := 0; sweep < c.Sweeps; sweep++ {
		for j := range c.F {
			copy(c.fPrev[j], c.F[j])
		}
		copy(c.tmp, c.q[K])
		for m := 0; m < K; m++ {
			// rhs = -dtau F~(m+1) + dt sum_j S[m,j] F~(j)
			dtau := dt * (c.Nodes[m+1] - c.Nodes[m])
			for i := range c.rhs {
				c.rhs[i] = -dtau * c.fPrev[m+1][i]
			}
			for j := 0; j <= K; j++ {
				floats.AddScaled(c.rhs, dt*c.S.At(m, j), c.fPrev[j])
			}
			if err = stage(true, m); err != nil {
				return
			}
		}
		floats.Sub(c.tmp, c.q[K])
		correction := floats.Norm(c.tmp, math.Inf(1))
		if c.Verbose {
			fmt.Printf("t = %8.5f, sweep %d, correction = %10.4e\n", t0+dt, sweep+1, correction)
		}
		if correction < c.Tol {
			break
		}
	}
	return s.FinalizeTimeStep()
}

// Run integrates to the solver's end time with its preferred time step,
// halving the step up to MaxRetries times when a step diverges.
func (c *SDC) Run() (err error) {
	var (
		s       = c.Solver
		endTime = s.GetEndTime()
		eps     = 1.e-12 * math.Max(1, math.Abs(endTime))
	)
	for c.Time < endTime-eps {
		dt := math.Min(s.GetTimeStep(), endTime-c.Time)
		if err = s.NextTimeStep(); err != nil {
			return
		}
		err = c.SolveTimeStep(c.Time, dt)
		for retry := 0; errors.Is(err, ErrImplicitSolveDivergence) && retry < c.MaxRetries; retry++ {
			dt *= 0.5
			if c.Verbose {
				fmt.Printf("t = %8.5f, %v\nretrying with dt = %8.5g\n", c.Time, err, dt)
			}
			err = c.SolveTimeStep(c.Time, dt)
		}
		if err != nil {
			return fmt.Errorf("time step %d at t = %g: %w", c.Steps+1, c.Time, err)
		}
		c.Time += dt
		c.Steps++
	}
	return
}
