package sdc

import "errors"

var (
	// ErrImplicitSolveDivergence is the only recoverable failure: the local
	// solve did not converge within its budget. Nothing was committed, the
	// orchestrator may shrink the time step and restart the step from qold.
	ErrImplicitSolveDivergence = errors.New("implicit solve diverged")
	// ErrStateSequence is a stage protocol call made out of order.
	ErrStateSequence = errors.New("sdc state sequence violation")
	// ErrDimensionMismatch flags state vectors or variable tables whose
	// sizes disagree with GetDOF.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)
