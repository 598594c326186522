package cpm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConverged is returned in strict mode when a pass exhausts its budget.
	ErrNotConverged = errors.New("schedule did not converge")
	// ErrInvalidActivity reports an activity that cannot be scheduled.
	ErrInvalidActivity = errors.New("invalid activity")
)

// ConvergenceError describes a run stopped by the iteration budget.
// Result holds the partial schedule reached at the cap.
type ConvergenceError struct {
	ForwardIterations  int
	BackwardIterations int
	Limit              int
	Cycles             [][]string
	Result             *Result
}

func (e *ConvergenceError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s after %d forward and %d backward passes (limit %d)",
		ErrNotConverged.Error(), e.ForwardIterations, e.BackwardIterations, e.Limit)
	if len(e.Cycles) > 0 {
		msg += fmt.Sprintf(": cycles %v", e.Cycles)
	}
	return msg
}

func (e *ConvergenceError) Unwrap() error { return ErrNotConverged }
