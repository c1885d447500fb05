package TubeSolid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cubayang/FOAM-FSI/sdc"
	"github.com/cubayang/FOAM-FSI/utils"
)

/*
	Elastic tube wall on N axial nodes between two clamped ends, loaded by
	the fluid pressure p(z).

		rho h du/dt = p - p0 - E0 h/(r0^2 (1-nu^2)) (r - r0) + G h d2r/dz2 - beta (r - r0)^3
		dr/dt       = u

	The state is q = [u; r], u the radial wall velocity. Nodes sit at
	z_i = (i+1) dz with dz = L/(N+1); r = r0 at z = 0 and z = L.
*/

type Parameters struct {
	N             int     // number of axial nodes
	Nu            float64 // Poisson ratio
	Rho           float64 // wall density
	H             float64 // wall thickness
	L             float64 // tube length
	Dt            float64 // preferred time step
	G             float64 // shear modulus
	E0            float64 // Young's modulus
	R0            float64 // radius at rest
	P0            float64 // pressure at rest
	T             float64 // end time
	Beta          float64 // cubic hardening, zero for a linear wall
	NewtonTol     float64
	NewtonMaxIter int
}

func DefaultParameters() Parameters {
	return Parameters{
		N:             20,
		Nu:            0.4,
		Rho:           1.225,
		H:             1.e-3,
		L:             1,
		Dt:            0.01,
		G:             1,
		E0:            490,
		R0:            0.2,
		P0:            0,
		T:             1,
		NewtonTol:     1.e-12,
		NewtonMaxIter: 20,
	}
}

type TubeSolid struct {
	Parameters
	dz       float64
	stiff    float64 // E0 h/(r0^2 (1-nu^2))
	p        []float64
	jac      *mat.Dense
	lu       mat.LU
	luDt     float64 // dt the factorization in lu was built for
	res, dq  []float64
	resV, dV *mat.VecDense
	Verbose  bool
}

var (
	_ sdc.Physics  = (*TubeSolid)(nil)
	_ sdc.Preparer = (*TubeSolid)(nil)
)

func NewTubeSolid(pm Parameters) (ts *TubeSolid, err error) {
	switch {
	case pm.N < 1:
		err = fmt.Errorf("tube needs at least one node, have %d", pm.N)
	case pm.Rho <= 0 || pm.H <= 0 || pm.L <= 0 || pm.R0 <= 0:
		err = fmt.Errorf("density, thickness, length and rest radius must be positive")
	case pm.Nu >= 1 || pm.Nu <= -1:
		err = fmt.Errorf("poisson ratio %g outside (-1,1)", pm.Nu)
	case pm.Dt <= 0 || pm.T <= 0:
		err = fmt.Errorf("time step and end time must be positive, have %g and %g", pm.Dt, pm.T)
	case pm.NewtonMaxIter < 1:
		err = fmt.Errorf("newton iteration budget must be positive, have %d", pm.NewtonMaxIter)
	}
	if err != nil {
		return
	}
	dof := 2 * pm.N
	ts = &TubeSolid{
		Parameters: pm,
		dz:         pm.L / float64(pm.N+1),
		stiff:      pm.E0 * pm.H / (pm.R0 * pm.R0 * (1 - pm.Nu*pm.Nu)),
		p:          make([]float64, pm.N),
		jac:        mat.NewDense(dof, dof, nil),
		res:        make([]float64, dof),
		dq:         make([]float64, dof),
	}
	ts.resV = mat.NewVecDense(dof, ts.res)
	ts.dV = mat.NewVecDense(dof, ts.dq)
	for i := range ts.p {
		ts.p[i] = pm.P0
	}
	return
}

func (ts *TubeSolid) DOF() int { return 2 * ts.N }

// Only the radius is exchanged with the fluid.
func (ts *TubeSolid) Variables() []sdc.Variable {
	return []sdc.Variable{
		{Name: "u", DOF: ts.N, Enabled: false},
		{Name: "r", DOF: ts.N, Enabled: true},
	}
}

func (ts *TubeSolid) InitialSolution(q []float64) {
	for i := 0; i < ts.N; i++ {
		q[i] = 0
		q[ts.N+i] = ts.R0
	}
}

func (ts *TubeSolid) EndTime() float64  { return ts.T }
func (ts *TubeSolid) TimeStep() float64 { return ts.Dt }

// SetPressure loads the wall with the fluid pressure at the N nodes.
func (ts *TubeSolid) SetPressure(p []float64) error {
	if len(p) != ts.N {
		return fmt.Errorf("%w: pressure has %d values, tube has %d nodes", sdc.ErrDimensionMismatch, len(p), ts.N)
	}
	copy(ts.p, p)
	return nil
}

func (ts *TubeSolid) Pressure() []float64 { return append([]float64(nil), ts.p...) }

// Nodes returns the axial coordinates of the wall nodes.
func (ts *TubeSolid) Nodes() (z []float64) {
	z = make([]float64, ts.N)
	for i := range z {
		z[i] = float64(i+1) * ts.dz
	}
	return
}

// Radius returns the radius block of a state vector.
func (ts *TubeSolid) Radius(q []float64) []float64 { return q[ts.N:] }

func (ts *TubeSolid) Function(t float64, q, f []float64) {
	var (
		N    = ts.N
		u, r = q[:N], q[N:]
		rhoH = ts.Rho * ts.H
		gh   = ts.G * ts.H / (ts.dz * ts.dz)
	)
	for i := 0; i < N; i++ {
		rl, rr := ts.R0, ts.R0
		if i > 0 {
			rl = r[i-1]
		}
		if i < N-1 {
			rr = r[i+1]
		}
		dr := r[i] - ts.R0
		f[i] = (ts.p[i] - ts.P0 - ts.stiff*dr + gh*(rl-2*r[i]+rr) - ts.Beta*dr*dr*dr) / rhoH
		f[N+i] = u[i]
	}
}

// jacobian fills I - dt dF/dq at state q.
func (ts *TubeSolid) jacobian(dt float64, q []float64) {
	var (
		N    = ts.N
		r    = q[N:]
		rhoH = ts.Rho * ts.H
		gh   = ts.G * ts.H / (ts.dz * ts.dz)
		J    = ts.jac
	)
	J.Zero()
	for i := 0; i < 2*N; i++ {
		J.Set(i, i, 1)
	}
	for i := 0; i < N; i++ {
		dr := r[i] - ts.R0
		J.Set(i, N+i, -dt*(-ts.stiff-2*gh-3*ts.Beta*dr*dr)/rhoH)
		if i > 0 {
			J.Set(i, N+i-1, -dt*gh/rhoH)
		}
		if i < N-1 {
			J.Set(i, N+i+1, -dt*gh/rhoH)
		}
		J.Set(N+i, i, -dt)
	}
}

func (ts *TubeSolid) factorize(dt float64, q []float64) error {
	ts.jacobian(dt, q)
	ts.lu.Factorize(ts.jac)
	if cond := ts.lu.Cond(); math.IsInf(cond, 0) || math.IsNaN(cond) || cond > mat.ConditionTolerance {
		ts.luDt = 0
		return fmt.Errorf("%w: singular newton matrix, condition number %g", sdc.ErrImplicitSolveDivergence, cond)
	}
	ts.luDt = dt
	return nil
}

// Prepare factorizes the Newton matrix of the linear wall for the stage
// step size. A hardening wall refactorizes on every Newton iteration.
func (ts *TubeSolid) Prepare(t, dt float64) error {
	if ts.Beta != 0 || ts.luDt == dt {
		return nil
	}
	q := make([]float64, ts.DOF())
	ts.InitialSolution(q)
	return ts.factorize(dt, q)
}

// Solve runs Newton iterations on R(x) = x - qold - rhs - dt F(t, x).
func (ts *TubeSolid) Solve(t, dt float64, qold, rhs, guess, result, f []float64) (err error) {
	copy(result, guess)
	for iter := 0; iter < ts.NewtonMaxIter; iter++ {
		ts.Function(t, result, f)
		for i := range ts.res {
			ts.res[i] = -(result[i] - qold[i] - rhs[i] - dt*f[i])
		}
		if ts.Beta != 0 || ts.luDt != dt {
			if err = ts.factorize(dt, result); err != nil {
				return
			}
		}
		if err = ts.lu.SolveVecTo(ts.dV, false, ts.resV); err != nil {
			return fmt.Errorf("%w: %v", sdc.ErrImplicitSolveDivergence, err)
		}
		floats.Add(result, ts.dq)
		var (
			step  = floats.Norm(ts.dq, math.Inf(1))
			scale = math.Max(1, floats.Norm(result, math.Inf(1)))
		)
		if ts.Verbose {
			fmt.Printf("t = %8.5f, newton iteration %d, |dq| = %10.4e\n", t, iter+1, step)
		}
		if utils.IsNan(result) {
			break
		}
		if step < ts.NewtonTol*scale {
			ts.Function(t, result, f)
			return nil
		}
	}
	return fmt.Errorf("%w: newton did not reach %g in %d iterations at t = %g",
		sdc.ErrImplicitSolveDivergence, ts.NewtonTol, ts.NewtonMaxIter, t)
}
