package workflow

import (
	"errors"
	"fmt"

	"arogya-swarm/backend/internal/state"
)

var (
	// ErrInvalidGraph wraps every structural problem found by Build.
	ErrInvalidGraph = errors.New("invalid workflow graph")
	// ErrUndefinedRoute is returned when a router produces a label it has no target for.
	ErrUndefinedRoute = errors.New("router produced undefined outcome")
)

// TransientStageError marks a recoverable stage failure. The executor
// converts it to a degraded update and the run continues.
type TransientStageError struct {
	Stage string
	Err   error
}

func (e *TransientStageError) Error() string {
	return fmt.Sprintf("stage %s: transient: %v", e.Stage, e.Err)
}

func (e *TransientStageError) Unwrap() error { return e.Err }

// FatalStageError halts a run. Snapshot holds the state as it was when the
// stage failed.
type FatalStageError struct {
	Stage    string
	Snapshot *state.State
	Err      error
}

func (e *FatalStageError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("fatal: %v", e.Err)
	}
	return fmt.Sprintf("stage %s: fatal: %v", e.Stage, e.Err)
}

func (e *FatalStageError) Unwrap() error { return e.Err }

// Transient wraps err so a stage can report it explicitly.
func Transient(err error) error {
	return &TransientStageError{Err: err}
}

// Fatal wraps err so the executor halts the run. The executor fills in the
// stage name and snapshot.
func Fatal(err error) error {
	return &FatalStageError{Err: err}
}

// IsFatal reports whether err halts a run.
func IsFatal(err error) bool {
	var fatal *FatalStageError
	if errors.As(err, &fatal) {
		return true
	}
	var violation *state.SchemaViolation
	return errors.As(err, &violation)
}
