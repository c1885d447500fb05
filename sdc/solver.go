package sdc

import (
	"fmt"
)

// Solver is the contract a physical sub-solver offers to the time
// integration orchestrator. The orchestrator only sees this interface and
// never the concrete solver behind it.
//
// Per time step the calls follow
//
//	InitTimeStep
//	  { PrepareImplicitSolve, ImplicitSolve (one or more), FinalizeImplicitSolve }*
//	FinalizeTimeStep
//
// ImplicitSolve solves result = qold + rhs + dt*F(t, result), where rhs is
// the already time scaled quadrature contribution of the sweep.
type Solver interface {
	GetDOF() int
	GetVariablesInfo() (dof []int, enabled []bool, names []string)
	SetNumberOfImplicitStages(k int) error
	InitTimeStep() error
	EvaluateFunction(k int, q []float64, t float64, f []float64) error
	PrepareImplicitSolve(corrector bool, k, kold int, t, dt float64, qold, rhs []float64) error
	ImplicitSolve(corrector bool, k, kold int, t, dt float64, qold, rhs, f, result []float64) error
	FinalizeImplicitSolve(k int) error
	NextTimeStep() error
	FinalizeTimeStep() error
	GetSolution(solution, f []float64) error
	SetSolution(solution, f []float64) error
	GetEndTime() float64
	GetTimeStep() float64
}

// Variable describes one named block of the monolithic state vector.
// Disabled variables are advanced locally but left out of coupling residuals.
type Variable struct {
	Name    string
	DOF     int
	Enabled bool
}

// Physics is the numerical content of a sub-solver: the right hand side and
// the local implicit solve. StageSolver wraps a Physics with the stage
// protocol and bookkeeping.
type Physics interface {
	DOF() int
	Variables() []Variable
	// Function evaluates f = F(t, q) without touching any persistent state.
	Function(t float64, q, f []float64)
	// Solve finds result = qold + rhs + dt*F(t, result) starting from guess,
	// and writes f = F(t, result). Non convergence must be reported with an
	// error wrapping ErrImplicitSolveDivergence.
	Solve(t, dt float64, qold, rhs, guess, result, f []float64) error
	InitialSolution(q []float64)
	EndTime() float64
	TimeStep() float64
}

// Preparer is implemented by physics that set up per stage data, such as
// an iteration matrix, ahead of the implicit solves of a stage.
type Preparer interface {
	Prepare(t, dt float64) error
}

// CheckVariablesInfo verifies that the variable table of s accounts for
// exactly GetDOF degrees of freedom.
func CheckVariablesInfo(s Solver) (err error) {
	var (
		dof, enabled, names = s.GetVariablesInfo()
		total               int
	)
	if len(dof) != len(enabled) || len(dof) != len(names) {
		return fmt.Errorf("%w: variable table has %d dof, %d enabled and %d name entries",
			ErrDimensionMismatch, len(dof), len(enabled), len(names))
	}
	for i, d := range dof {
		if d < 0 {
			return fmt.Errorf("%w: variable %q has negative size %d", ErrDimensionMismatch, names[i], d)
		}
		total += d
	}
	if total != s.GetDOF() {
		return fmt.Errorf("%w: variables account for %d dof, solver has %d",
			ErrDimensionMismatch, total, s.GetDOF())
	}
	return
}
