package console

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestExecutePropagatesProgramResult(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	err := Execute(context.Background(), func(context.Context, string) error { return boom }, "console")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	got := ""
	err = Execute(context.Background(), func(_ context.Context, console string) error {
		got = console
		return nil
	}, "handle")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "handle" {
		t.Fatalf("console = %q, want handle", got)
	}
}

func TestExecuteRecoversPanics(t *testing.T) {
	t.Parallel()

	err := Execute(context.Background(), func(context.Context, int) error {
		panic("index out of range")
	}, 0)

	var failure *ProgramFailure
	if !errors.As(err, &failure) {
		t.Fatalf("err = %T, want *ProgramFailure", err)
	}
	if !strings.Contains(failure.Error(), "index out of range") {
		t.Fatalf("message = %q", failure.Error())
	}
	if failure.Stack == "" {
		t.Fatal("expected a captured stack")
	}
	if IsCancellation(err) {
		t.Fatal("panic must not classify as cancellation")
	}
}

func TestExecuteRejectsNilProgram(t *testing.T) {
	t.Parallel()

	err := Execute[int](context.Background(), nil, 0)
	if !errors.Is(err, &ProgramFailure{}) {
		t.Fatalf("err = %v, want ProgramFailure", err)
	}
}

func TestIsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "cancelled", err: ErrCancelled, want: true},
		{name: "abandoned input", err: ErrInputAbandoned, want: true},
		{name: "not running", err: ErrNotRunning, want: true},
		{name: "context", err: context.Canceled, want: true},
		{name: "wrapped context", err: cancelled(ctx, "write"), want: true},
		{name: "program failure", err: &ProgramFailure{Err: errors.New("x")}, want: false},
		{name: "input pending", err: ErrInputPending, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsCancellation(tt.err); got != tt.want {
				t.Fatalf("IsCancellation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
