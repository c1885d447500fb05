package sdc

import (
	"fmt"
)

type Stage uint8

const (
	Idle Stage = iota
	TimeStepInitialized
	StagePrepared
	StageSolving
	StageFinalized
	TimeStepFinalized
)

var stageNames = []string{
	"Idle",
	"TimeStepInitialized",
	"StagePrepared",
	"StageSolving",
	"StageFinalized",
	"TimeStepFinalized",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// Tracker enforces the per time step stage protocol. A diverged implicit
// solve aborts the step: from then on only InitTimeStep is accepted.
type Tracker struct {
	state   Stage
	k       int  // stage currently prepared or solved
	solved  bool // the last implicit solve of stage k converged
	aborted bool
	before  struct {
		state  Stage
		k      int
		solved bool
	} // state ahead of the last Prepare
}

func (tr *Tracker) State() Stage      { return tr.state }
func (tr *Tracker) Aborted() bool     { return tr.aborted }
func (tr *Tracker) CurrentStage() int { return tr.k }
func (tr *Tracker) HasResult() bool   { return tr.solved }

func (tr *Tracker) violation(op string, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s in state %s: %s", ErrStateSequence, op, tr.state, fmt.Sprintf(format, args...))
}

func (tr *Tracker) expect(op string, allowed ...Stage) error {
	if tr.aborted {
		return tr.violation(op, "time step was aborted by a diverged implicit solve")
	}
	for _, s := range allowed {
		if tr.state == s {
			return nil
		}
	}
	return tr.violation(op, "expected one of %v", allowed)
}

// Configure guards SetNumberOfImplicitStages.
func (tr *Tracker) Configure() error {
	return tr.expect("SetNumberOfImplicitStages", Idle)
}

// InitTimeStep is accepted in Idle, or anywhere once the step was aborted.
func (tr *Tracker) InitTimeStep() (rollback bool, err error) {
	if !tr.aborted && tr.state != Idle {
		return false, tr.violation("InitTimeStep", "previous time step not finalized")
	}
	rollback = tr.aborted
	tr.state = TimeStepInitialized
	tr.aborted, tr.solved = false, false
	tr.k = -1
	return
}

func (tr *Tracker) Prepare(k int) (err error) {
	if err = tr.expect("PrepareImplicitSolve", TimeStepInitialized, StageFinalized); err != nil {
		return
	}
	tr.before.state, tr.before.k, tr.before.solved = tr.state, tr.k, tr.solved
	tr.state = StagePrepared
	tr.k = k
	tr.solved = false
	return
}

// CancelPrepare undoes the last Prepare, for a preparation that failed
// without diverging. The stage has to be prepared again before a solve.
func (tr *Tracker) CancelPrepare() {
	if tr.state != StagePrepared || tr.aborted {
		return
	}
	tr.state, tr.k, tr.solved = tr.before.state, tr.before.k, tr.before.solved
}

func (tr *Tracker) BeginSolve(k int) (err error) {
	if err = tr.expect("ImplicitSolve", StagePrepared); err != nil {
		return
	}
	if k != tr.k {
		return tr.violation("ImplicitSolve", "stage %d was prepared, solve requested for %d", tr.k, k)
	}
	tr.state = StageSolving
	return
}

// EndSolve returns the tracker to StagePrepared. Only a converged solve
// leaves a result that may be finalized; divergence aborts the step.
func (tr *Tracker) EndSolve(solveErr error, diverged bool) {
	tr.state = StagePrepared
	tr.solved = solveErr == nil
	if diverged {
		tr.aborted = true
	}
}

func (tr *Tracker) Finalize(k int) (err error) {
	if err = tr.expect("FinalizeImplicitSolve", StagePrepared); err != nil {
		return
	}
	if k != tr.k {
		return tr.violation("FinalizeImplicitSolve", "stage %d was solved, finalize requested for %d", tr.k, k)
	}
	if !tr.solved {
		return tr.violation("FinalizeImplicitSolve", "stage %d has no converged result", k)
	}
	tr.state = StageFinalized
	return
}

// FinalizeTimeStep moves to TimeStepFinalized; Done completes the step.
func (tr *Tracker) FinalizeTimeStep() (err error) {
	if err = tr.expect("FinalizeTimeStep", TimeStepInitialized, StageFinalized); err != nil {
		return
	}
	tr.state = TimeStepFinalized
	return
}

func (tr *Tracker) Done() {
	tr.state = Idle
	tr.k = -1
	tr.solved = false
}

func (tr *Tracker) NextTimeStep() error {
	return tr.expect("NextTimeStep", Idle)
}
