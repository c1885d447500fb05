package sdc

import (
	"errors"
	"fmt"
)

// StageSolver implements Solver for any Physics. It owns the visible
// solution pair (q, f), the state at the start of the step (qold) and the
// stage history, and only changes them on FinalizeImplicitSolve,
// FinalizeTimeStep, SetSolution or a rollback in InitTimeStep.
type StageSolver struct {
	Physics   Physics
	tracker   Tracker
	history   *StageHistory
	dof       int
	q, f      []float64 // committed solution and its function value
	qold      []float64 // state at the start of the time step
	fold      []float64
	pendingU  []float64 // last converged implicit solve, not yet committed
	pendingF  []float64
	guess     []float64
	timeIndex int
}

var _ Solver = (*StageSolver)(nil)

func NewStageSolver(p Physics) (s *StageSolver) {
	dof := p.DOF()
	s = &StageSolver{
		Physics:  p,
		dof:      dof,
		q:        make([]float64, dof),
		f:        make([]float64, dof),
		qold:     make([]float64, dof),
		fold:     make([]float64, dof),
		pendingU: make([]float64, dof),
		pendingF: make([]float64, dof),
		guess:    make([]float64, dof),
	}
	s.tracker.k = -1
	p.InitialSolution(s.q)
	p.Function(0, s.q, s.f)
	copy(s.qold, s.q)
	copy(s.fold, s.f)
	return
}

func (s *StageSolver) checkLen(op string, vecs ...[]float64) error {
	for i, v := range vecs {
		if len(v) != s.dof {
			return fmt.Errorf("%w: %s argument %d has length %d, solver has %d dof",
				ErrDimensionMismatch, op, i, len(v), s.dof)
		}
	}
	return nil
}

func (s *StageSolver) checkStage(op string, k int) error {
	if s.history == nil {
		return fmt.Errorf("%w: %s before SetNumberOfImplicitStages", ErrStateSequence, op)
	}
	if k < 0 || k >= s.history.Capacity() {
		return fmt.Errorf("%w: %s stage %d outside [0,%d)", ErrStateSequence, op, k, s.history.Capacity())
	}
	return nil
}

func (s *StageSolver) GetDOF() int { return s.dof }

func (s *StageSolver) GetVariablesInfo() (dof []int, enabled []bool, names []string) {
	for _, v := range s.Physics.Variables() {
		dof = append(dof, v.DOF)
		enabled = append(enabled, v.Enabled)
		names = append(names, v.Name)
	}
	return
}

func (s *StageSolver) SetNumberOfImplicitStages(k int) (err error) {
	if err = s.tracker.Configure(); err != nil {
		return
	}
	if k < 1 {
		return fmt.Errorf("number of implicit stages must be positive, have %d", k)
	}
	s.history = NewStageHistory(k, s.dof)
	return
}

func (s *StageSolver) InitTimeStep() (err error) {
	if s.history == nil {
		return fmt.Errorf("%w: InitTimeStep before SetNumberOfImplicitStages", ErrStateSequence)
	}
	var rollback bool
	if rollback, err = s.tracker.InitTimeStep(); err != nil {
		return
	}
	if rollback {
		copy(s.q, s.qold)
		copy(s.f, s.fold)
	}
	copy(s.qold, s.q)
	copy(s.fold, s.f)
	s.history.Reset()
	return
}

func (s *StageSolver) EvaluateFunction(k int, q []float64, t float64, f []float64) (err error) {
	if err = s.checkLen("EvaluateFunction", q, f); err != nil {
		return
	}
	s.Physics.Function(t, q, f)
	return
}

func (s *StageSolver) PrepareImplicitSolve(corrector bool, k, kold int, t, dt float64, qold, rhs []float64) (err error) {
	if err = s.checkStage("PrepareImplicitSolve", k); err != nil {
		return
	}
	if err = s.checkLen("PrepareImplicitSolve", qold, rhs); err != nil {
		return
	}
	if err = s.tracker.Prepare(k); err != nil {
		return
	}
	if p, ok := s.Physics.(Preparer); ok {
		if err = p.Prepare(t, dt); err != nil {
			if errors.Is(err, ErrImplicitSolveDivergence) {
				s.tracker.EndSolve(err, true)
			} else {
				s.tracker.CancelPrepare()
			}
			return fmt.Errorf("prepare stage %d at t = %g, dt = %g: %w", k, t, dt, err)
		}
	}
	return
}

func (s *StageSolver) ImplicitSolve(corrector bool, k, kold int, t, dt float64, qold, rhs, f, result []float64) (err error) {
	if err = s.checkStage("ImplicitSolve", k); err != nil {
		return
	}
	if err = s.checkLen("ImplicitSolve", qold, rhs, f, result); err != nil {
		return
	}
	if err = s.tracker.BeginSolve(k); err != nil {
		return
	}
	// Start from the previous sweep at this stage, else from the stage before
	switch {
	case corrector && s.history.Has(k):
		copy(s.guess, s.history.U(k))
	case s.history.Has(kold):
		copy(s.guess, s.history.U(kold))
	default:
		copy(s.guess, qold)
	}
	err = s.Physics.Solve(t, dt, qold, rhs, s.guess, s.pendingU, s.pendingF)
	s.tracker.EndSolve(err, errors.Is(err, ErrImplicitSolveDivergence))
	if err != nil {
		return fmt.Errorf("stage %d at t = %g, dt = %g: %w", k, t, dt, err)
	}
	copy(result, s.pendingU)
	copy(f, s.pendingF)
	return
}

func (s *StageSolver) FinalizeImplicitSolve(k int) (err error) {
	if err = s.checkStage("FinalizeImplicitSolve", k); err != nil {
		return
	}
	if err = s.tracker.Finalize(k); err != nil {
		return
	}
	s.history.Commit(k, s.pendingU, s.pendingF)
	copy(s.q, s.pendingU)
	copy(s.f, s.pendingF)
	return
}

func (s *StageSolver) NextTimeStep() (err error) {
	if err = s.tracker.NextTimeStep(); err != nil {
		return
	}
	s.timeIndex++
	return
}

func (s *StageSolver) FinalizeTimeStep() (err error) {
	if err = s.tracker.FinalizeTimeStep(); err != nil {
		return
	}
	copy(s.qold, s.q)
	copy(s.fold, s.f)
	s.history.Reset()
	s.tracker.Done()
	return
}

func (s *StageSolver) GetSolution(solution, f []float64) (err error) {
	if err = s.checkLen("GetSolution", solution, f); err != nil {
		return
	}
	copy(solution, s.q)
	copy(f, s.f)
	return
}

// SetSolution overwrites the visible solution pair. Outside a time step the
// pair also becomes the start state of the next step.
func (s *StageSolver) SetSolution(solution, f []float64) (err error) {
	if err = s.checkLen("SetSolution", solution, f); err != nil {
		return
	}
	if s.tracker.State() == StageSolving {
		return fmt.Errorf("%w: SetSolution during an implicit solve", ErrStateSequence)
	}
	copy(s.q, solution)
	copy(s.f, f)
	if s.tracker.State() == Idle {
		copy(s.qold, s.q)
		copy(s.fold, s.f)
	}
	return
}

func (s *StageSolver) GetEndTime() float64  { return s.Physics.EndTime() }
func (s *StageSolver) GetTimeStep() float64 { return s.Physics.TimeStep() }

func (s *StageSolver) State() Stage { return s.tracker.State() }

// History exposes the committed stages, read only.
func (s *StageSolver) History() *StageHistory { return s.history }

// QOld returns a copy of the state at the start of the current step.
func (s *StageSolver) QOld() []float64 { return append([]float64(nil), s.qold...) }

func (s *StageSolver) TimeIndex() int { return s.timeIndex }
