package console

import (
	"fmt"
	"strings"
	"time"
)

// RunState is the lifecycle state of a console session.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateSuccess   RunState = "success"
	StateCancelled RunState = "cancelled"
	StateFailed    RunState = "failed"
)

// Terminal reports whether s ends a run.
func (s RunState) Terminal() bool {
	switch s {
	case StateSuccess, StateCancelled, StateFailed:
		return true
	default:
		return false
	}
}

// Label is the prefix shown before the duration string.
func (s RunState) Label() string {
	switch s {
	case StateRunning:
		return "Running for "
	case StateSuccess:
		return "Success in "
	case StateCancelled:
		return "Canceled in "
	case StateFailed:
		return "Failed in "
	default:
		return "Idle for "
	}
}

// Icon is the glyph drawn beside the label.
func (s RunState) Icon() string {
	switch s {
	case StateRunning:
		return "●"
	case StateSuccess:
		return "✓"
	case StateCancelled, StateFailed:
		return "✗"
	default:
		return "○"
	}
}

var allowedTransitions = map[RunState]map[RunState]struct{}{
	StateIdle: {
		StateRunning: {},
	},
	StateRunning: {
		StateSuccess:   {},
		StateCancelled: {},
		StateFailed:    {},
	},
	StateSuccess: {
		StateRunning: {},
		StateIdle:    {},
	},
	StateCancelled: {
		StateRunning: {},
		StateIdle:    {},
	},
	StateFailed: {
		StateRunning: {},
		StateIdle:    {},
	},
}

func isAllowed(from, to RunState) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// RunRecord holds the timestamps of the current or most recent run.
type RunRecord struct {
	Start *time.Time
	End   *time.Time
}

// Duration returns End-Start when both are set.
func (r RunRecord) Duration() (time.Duration, bool) {
	if r.Start == nil || r.End == nil {
		return 0, false
	}
	return r.End.Sub(*r.Start), true
}

func (r RunRecord) clone() RunRecord {
	out := RunRecord{}
	if r.Start != nil {
		start := *r.Start
		out.Start = &start
	}
	if r.End != nil {
		end := *r.End
		out.End = &end
	}
	return out
}

// TransitionRecord stores one committed lifecycle transition.
type TransitionRecord struct {
	Run       uint64
	FromState RunState
	ToState   RunState
	Reason    string
	Timestamp time.Time
}

// IllegalTransitionError is returned for a disallowed transition.
type IllegalTransitionError struct {
	FromState RunState
	ToState   RunState
	Reason    string
}

func (e *IllegalTransitionError) Error() string {
	reason := strings.TrimSpace(e.Reason)
	if reason == "" {
		reason = "illegal transition for run lifecycle"
	}
	return fmt.Sprintf("cannot transition run from %q to %q: %s", e.FromState, e.ToState, reason)
}

// Is enables errors.Is checks for illegal transition failures.
func (e *IllegalTransitionError) Is(target error) bool {
	_, ok := target.(*IllegalTransitionError)
	return ok
}
