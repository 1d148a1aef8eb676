package console

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

// Program is a compiled-in student entry point. It receives the console handle
// and is expected to return promptly once ctx is cancelled or a console call
// reports cancellation.
type Program[C any] func(ctx context.Context, console C) error

// Execute invokes program with console, propagating its error unchanged. A
// panic is recovered and reported as a ProgramFailure.
func Execute[C any](ctx context.Context, program Program[C], console C) (err error) {
	if program == nil {
		return &ProgramFailure{Err: errors.New("program entry point is nil")}
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			err = &ProgramFailure{
				Err:   fmt.Errorf("panic: %v", recovered),
				Stack: string(debug.Stack()),
			}
		}
	}()
	return program(ctx, console)
}
