// Package console implements the run lifecycle shared by the sandbox's console
// backends: a bounded transcript, a single-slot input rendezvous, and a run
// controller that owns every state transition.
package console

import (
	"context"
	"time"
)

// Console is the capability surface seen by student programs and by the
// presentation layer. Backends are selected at composition time.
type Console interface {
	Write(ctx context.Context, text string) error
	WriteStyled(ctx context.Context, text StyledText) error
	RequestInput(ctx context.Context, prompt string) (string, error)

	Start() error
	Stop()
	Clear() error
	Tick(now time.Time)

	State() RunState
	DurationString() string
	Lines() []Line
	DisableClear() bool
}

// Interactive is the presentation-facing side of a Console: the input draft and
// its submission.
type Interactive interface {
	Console
	SetDraft(text string)
	Draft() string
	Submit() bool
	AwaitingInput() (string, bool)
	Err() error
	Wait(ctx context.Context) error
}

var (
	_ Console     = (*TextConsole)(nil)
	_ Interactive = (*TextConsole)(nil)
)
