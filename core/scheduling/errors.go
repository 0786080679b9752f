package scheduling

import (
	"errors"
	"fmt"
)

var (
	// ErrSolveFailed marks a run whose solver did not return a usable solution.
	ErrSolveFailed = errors.New("solve failed")
	// ErrInvalidTransition is returned when a run is driven out of order.
	ErrInvalidTransition = errors.New("invalid run state transition")
)

// SolveError carries the solver status of a failed solve.
type SolveError struct {
	Status  string
	Message string
}

func (e *SolveError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %s", ErrSolveFailed, e.Status)
	}
	return fmt.Sprintf("%s: status %s: %s", ErrSolveFailed, e.Status, e.Message)
}

func (e *SolveError) Unwrap() error { return ErrSolveFailed }
