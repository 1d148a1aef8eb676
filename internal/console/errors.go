package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotRunning is returned by console I/O attempted outside the Running state.
	// Programs treat it like cancellation and unwind.
	ErrNotRunning = errors.New("console is not running")
	// ErrCancelled marks a stop-triggered unwind.
	ErrCancelled = errors.New("run cancelled")
	// ErrInputAbandoned is delivered to a pending input request that was resolved without a value.
	ErrInputAbandoned = fmt.Errorf("input abandoned: %w", ErrCancelled)
	// ErrInputPending rejects a second input request while one is outstanding.
	ErrInputPending = errors.New("an input request is already pending")
	// ErrAlreadyRunning rejects Start while a run is in flight.
	ErrAlreadyRunning = errors.New("a run is already in progress")
	// ErrRunning rejects Clear while a run is in flight.
	ErrRunning = errors.New("cannot clear while a run is in progress")
)

// ProgramFailure wraps any error raised by a student program that is not a cancellation.
type ProgramFailure struct {
	Err   error
	Stack string
}

func (e *ProgramFailure) Error() string {
	if e == nil || e.Err == nil {
		return "program failed"
	}
	return "program failed: " + e.Err.Error()
}

// Unwrap exposes the underlying program error.
func (e *ProgramFailure) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is enables errors.Is checks for program failures.
func (e *ProgramFailure) Is(target error) bool {
	_, ok := target.(*ProgramFailure)
	return ok
}

// IsCancellation reports whether err is a cancellation-equivalent signal that the
// controller must not translate into a state transition.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, ErrNotRunning) ||
		errors.Is(err, context.Canceled)
}

// cancelled converts a context error into the console's cancellation signal.
func cancelled(ctx context.Context, where string) error {
	cause := ctx.Err()
	if cause == nil {
		return fmt.Errorf("%s: %w", strings.TrimSpace(where), ErrCancelled)
	}
	return fmt.Errorf("%s: %w: %w", strings.TrimSpace(where), ErrCancelled, cause)
}
