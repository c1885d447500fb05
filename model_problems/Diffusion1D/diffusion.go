package Diffusion1D

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/exp/linsolve"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cubayang/FOAM-FSI/sdc"
)

/*
	Heat conduction through a wall of length L on N interior nodes with
	fixed end temperatures:

		dT/dt = kappa d2T/dz2 + s(z)

	s is the heat load from the neighbouring domain. The implicit stage
	(I - dt kappa L) T = b is symmetric positive definite and solved with
	conjugate gradients.
*/

type Parameters struct {
	N             int
	Kappa         float64
	L             float64
	TLeft, TRight float64
	T0            float64 // initial temperature
	Dt, EndTime   float64
	CGTol         float64
	CGMaxIter     int
}

func DefaultParameters() Parameters {
	return Parameters{
		N:         50,
		Kappa:     1,
		L:         1,
		Dt:        1.e-3,
		EndTime:   0.1,
		CGTol:     1.e-12,
		CGMaxIter: 500,
	}
}

type Diffusion struct {
	Parameters
	dz        float64
	Laplacian *sparse.CSR // N x N, second difference over dz^2
	bc        []float64   // boundary contribution of the end temperatures
	source    []float64
	x, ax     []float64
	b         []float64
	work      *linsolve.Context
	Verbose   bool
}

var _ sdc.Physics = (*Diffusion)(nil)

func NewDiffusion(pm Parameters) (d *Diffusion, err error) {
	switch {
	case pm.N < 1:
		err = fmt.Errorf("wall needs at least one node, have %d", pm.N)
	case pm.Kappa <= 0 || pm.L <= 0:
		err = fmt.Errorf("diffusivity and length must be positive, have %g and %g", pm.Kappa, pm.L)
	case pm.Dt <= 0 || pm.EndTime <= 0:
		err = fmt.Errorf("time step and end time must be positive, have %g and %g", pm.Dt, pm.EndTime)
	case pm.CGMaxIter < 1:
		err = fmt.Errorf("cg iteration budget must be positive, have %d", pm.CGMaxIter)
	case pm.CGTol <= 0 || pm.CGTol >= 1:
		err = fmt.Errorf("cg tolerance %g outside (0,1)", pm.CGTol)
	}
	if err != nil {
		return
	}
	var (
		N   = pm.N
		dz  = pm.L / float64(N+1)
		idz = 1 / (dz * dz)
		dok = sparse.NewDOK(N, N)
	)
	for i := 0; i < N; i++ {
		dok.Set(i, i, -2*idz)
		if i > 0 {
			dok.Set(i, i-1, idz)
		}
		if i < N-1 {
			dok.Set(i, i+1, idz)
		}
	}
	d = &Diffusion{
		Parameters: pm,
		dz:         dz,
		Laplacian:  dok.ToCSR(),
		bc:         make([]float64, N),
		source:     make([]float64, N),
		x:          make([]float64, N),
		ax:         make([]float64, N),
		b:          make([]float64, N),
		work:       linsolve.NewContext(N),
	}
	d.bc[0] += pm.TLeft * idz
	d.bc[N-1] += pm.TRight * idz
	return
}

func (d *Diffusion) DOF() int { return d.N }

func (d *Diffusion) Variables() []sdc.Variable {
	return []sdc.Variable{{Name: "T", DOF: d.N, Enabled: true}}
}

func (d *Diffusion) InitialSolution(q []float64) {
	for i := range q {
		q[i] = d.T0
	}
}

func (d *Diffusion) EndTime() float64  { return d.Parameters.EndTime }
func (d *Diffusion) TimeStep() float64 { return d.Dt }

// SetSource sets the volumetric heat load at the N nodes.
func (d *Diffusion) SetSource(s []float64) error {
	if len(s) != d.N {
		return fmt.Errorf("%w: source has %d values, wall has %d nodes", sdc.ErrDimensionMismatch, len(s), d.N)
	}
	copy(d.source, s)
	return nil
}

func (d *Diffusion) Nodes() (z []float64) {
	z = make([]float64, d.N)
	for i := range z {
		z[i] = float64(i+1) * d.dz
	}
	return
}

// mulVec computes y = Laplacian x straight from the CSR arrays.
func (d *Diffusion) mulVec(y, x []float64) {
	raw := d.Laplacian.RawMatrix()
	for i := range y {
		var sum float64
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			sum += raw.Data[k] * x[raw.Ind[k]]
		}
		y[i] = sum
	}
}

func (d *Diffusion) Function(t float64, q, f []float64) {
	d.mulVec(f, q)
	for i := range f {
		f[i] = d.Kappa*(f[i]+d.bc[i]) + d.source[i]
	}
}

// operator computes y = (I - dt kappa L) x.
func (d *Diffusion) operator(dt float64, y, x []float64) {
	d.mulVec(y, x)
	for i := range y {
		y[i] = x[i] - dt*d.Kappa*y[i]
	}
}

// stageOperator is I - dt kappa L for linsolve. It is symmetric, so trans
// is ignored.
type stageOperator struct {
	d  *Diffusion
	dt float64
}

func (op stageOperator) MulVecTo(dst *mat.VecDense, _ bool, x mat.Vector) {
	d := op.d
	for i := range d.x {
		d.x[i] = x.AtVec(i)
	}
	d.operator(op.dt, d.ax, d.x)
	for i, v := range d.ax {
		dst.SetVec(i, v)
	}
}

// Solve runs conjugate gradients on (I - dt kappa L) x = qold + rhs + dt (kappa bc + s)
// from guess.
func (d *Diffusion) Solve(t, dt float64, qold, rhs, guess, result, f []float64) (err error) {
	for i := range d.b {
		d.b[i] = qold[i] + rhs[i] + dt*(d.Kappa*d.bc[i]+d.source[i])
	}
	var (
		n   = d.N
		res *linsolve.Result
	)
	res, err = linsolve.Iterative(stageOperator{d: d, dt: dt}, mat.NewVecDense(n, d.b), &linsolve.CG{},
		&linsolve.Settings{
			InitX:         mat.NewVecDense(n, append([]float64(nil), guess...)),
			Dst:           mat.NewVecDense(n, result),
			Tolerance:     d.CGTol,
			MaxIterations: d.CGMaxIter,
			Work:          d.work,
		})
	if d.Verbose && res != nil {
		fmt.Printf("t = %8.5f, cg iterations %d, |r| = %10.4e\n", t, res.Stats.Iterations, res.ResidualNorm)
	}
	switch {
	case err != nil:
		return fmt.Errorf("%w: cg at t = %g: %v", sdc.ErrImplicitSolveDivergence, t, err)
	case floats.HasNaN(result):
		return fmt.Errorf("%w: cg produced NaN at t = %g", sdc.ErrImplicitSolveDivergence, t)
	}
	d.Function(t, result, f)
	return
}
