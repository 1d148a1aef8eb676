package invariants

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// InvariantStateTransitionLegal requires run lifecycle transitions to follow the allowed table.
	InvariantStateTransitionLegal = "state_transition_legal"
	// InvariantSinglePendingRead requires at most one outstanding input request per console.
	InvariantSinglePendingRead = "single_pending_read"
	// InvariantAppendRequiresRunning requires transcript appends to happen only while running.
	InvariantAppendRequiresRunning = "append_requires_running"
	// InvariantStepsSerialized requires turtle steps to execute one at a time.
	InvariantStepsSerialized = "steps_serialized"
)

const (
	// SeverityWarn is used for non-fatal invariant violations.
	SeverityWarn = "warn"
	// SeverityError is used for fatal invariant violations.
	SeverityError = "error"
)

var invariantChecksEnabled atomic.Bool

func init() {
	invariantChecksEnabled.Store(true)
}

// ViolationDetails captures invariant violation context for telemetry events.
type ViolationDetails struct {
	WhatInvariant string
	WhereDetected string
	WhyViolated   string
	StackTrace    string
	Additional    map[string]string
}

// SetEnabled globally enables or disables invariant checks.
func SetEnabled(enabled bool) {
	invariantChecksEnabled.Store(enabled)
}

// Enabled reports whether invariant checks are currently enabled.
func Enabled() bool {
	return invariantChecksEnabled.Load()
}

// InvariantViolation emits an invariant.violation telemetry event on the active span.
// If the context has no active span, a short synthetic span is created for observability.
func InvariantViolation(
	ctx context.Context,
	invariantName string,
	severity string,
	details ViolationDetails,
) {
	if !Enabled() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	invariantName = strings.TrimSpace(invariantName)
	if invariantName == "" {
		invariantName = "unknown_invariant"
	}
	severity = normalizeSeverity(severity)

	attrs := []attribute.KeyValue{
		attribute.String("invariant_name", invariantName),
		attribute.String("severity", severity),
		attribute.String("what_invariant", strings.TrimSpace(details.WhatInvariant)),
		attribute.String("where_detected", strings.TrimSpace(details.WhereDetected)),
		attribute.String("why_violated", strings.TrimSpace(details.WhyViolated)),
	}
	if stack := strings.TrimSpace(details.StackTrace); stack != "" {
		attrs = append(attrs, attribute.String("stack_trace", stack))
	}

	if len(details.Additional) > 0 {
		keys := make([]string, 0, len(details.Additional))
		for key := range details.Additional {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			value := strings.TrimSpace(details.Additional[key])
			if value == "" {
				continue
			}
			attrs = append(attrs, attribute.String("context."+key, value))
		}
	}

	span := trace.SpanFromContext(ctx)
	if span != nil && span.SpanContext().IsValid() {
		span.AddEvent("invariant.violation", trace.WithAttributes(attrs...))
		return
	}

	_, temporarySpan := otel.Tracer("sandbox/invariants").Start(ctx, "invariant.violation")
	defer temporarySpan.End()
	temporarySpan.AddEvent("invariant.violation", trace.WithAttributes(attrs...))
}

// CheckStateTransitionLegal validates the state_transition_legal invariant.
func CheckStateTransitionLegal(
	ctx context.Context,
	whereDetected string,
	entityType string,
	fromState string,
	toState string,
	legal bool,
) bool {
	if legal {
		return true
	}
	InvariantViolation(ctx, InvariantStateTransitionLegal, SeverityError, ViolationDetails{
		WhatInvariant: "run lifecycle transition is legal",
		WhereDetected: whereDetected,
		WhyViolated:   fmt.Sprintf("illegal transition for entity=%s from=%s to=%s", entityType, fromState, toState),
		Additional: map[string]string{
			"entity_type": strings.TrimSpace(entityType),
			"from_state":  strings.TrimSpace(fromState),
			"to_state":    strings.TrimSpace(toState),
		},
	})
	return false
}

// CheckSinglePendingRead validates the single_pending_read invariant.
func CheckSinglePendingRead(ctx context.Context, whereDetected string, single bool) bool {
	if single {
		return true
	}
	InvariantViolation(ctx, InvariantSinglePendingRead, SeverityWarn, ViolationDetails{
		WhatInvariant: "at most one input request is outstanding",
		WhereDetected: whereDetected,
		WhyViolated:   "input requested while another request was pending",
	})
	return false
}

// CheckAppendRequiresRunning validates the append_requires_running invariant.
func CheckAppendRequiresRunning(ctx context.Context, whereDetected string, state string, running bool) bool {
	if running {
		return true
	}
	InvariantViolation(ctx, InvariantAppendRequiresRunning, SeverityWarn, ViolationDetails{
		WhatInvariant: "transcript append happens only while running",
		WhereDetected: whereDetected,
		WhyViolated:   fmt.Sprintf("append attempted in state=%s", strings.TrimSpace(state)),
		Additional: map[string]string{
			"state": strings.TrimSpace(state),
		},
	})
	return false
}

// CheckStepsSerialized validates the steps_serialized invariant. inFlight is the
// number of steps observed executing, including the caller.
func CheckStepsSerialized(ctx context.Context, whereDetected string, inFlight int) bool {
	if inFlight <= 1 {
		return true
	}
	InvariantViolation(ctx, InvariantStepsSerialized, SeverityError, ViolationDetails{
		WhatInvariant: "turtle steps execute one at a time",
		WhereDetected: whereDetected,
		WhyViolated:   fmt.Sprintf("in_flight=%d", inFlight),
		Additional: map[string]string{
			"in_flight": fmt.Sprintf("%d", inFlight),
		},
	})
	return false
}

func normalizeSeverity(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case SeverityWarn:
		return SeverityWarn
	case SeverityError:
		return SeverityError
	default:
		return SeverityError
	}
}
