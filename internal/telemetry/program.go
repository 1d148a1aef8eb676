package telemetry

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxErrorMessageBytes = 512

var sensitiveInlinePattern = regexp.MustCompile(`(?i)(api[_-]?key|token|password|secret)\s*[:=]\s*([^\s,;]+)`)

// ProgramRequest describes one invocation of a student program.
type ProgramRequest struct {
	Program string
	Console string
	Run     uint64
}

// ProgramCall tracks one program.execute span lifecycle.
type ProgramCall struct {
	span      trace.Span
	startedAt time.Time

	mu     sync.Mutex
	inputs int
	steps  int
	ended  bool
}

type programCallContextKey struct{}

// StartProgram starts a program.execute span and returns a context carrying the tracker.
func StartProgram(ctx context.Context, req ProgramRequest) (context.Context, *ProgramCall) {
	if ctx == nil {
		ctx = context.Background()
	}

	attrs := []attribute.KeyValue{
		attribute.String("program", normalizeOrUnknown(req.Program)),
		attribute.String("console", normalizeOrUnknown(req.Console)),
	}
	if req.Run > 0 {
		attrs = append(attrs, attribute.Int64("run", int64(req.Run)))
	}

	spanCtx, span := otel.Tracer("sandbox/telemetry/program").Start(
		ctx,
		"program.execute",
		trace.WithAttributes(attrs...),
	)

	call := &ProgramCall{
		span:      span,
		startedAt: time.Now(),
	}
	return context.WithValue(spanCtx, programCallContextKey{}, call), call
}

// ProgramCallFromContext returns the program tracker if one exists on the context.
func ProgramCallFromContext(ctx context.Context) *ProgramCall {
	if ctx == nil {
		return nil
	}
	call, ok := ctx.Value(programCallContextKey{}).(*ProgramCall)
	if !ok {
		return nil
	}
	return call
}

// RecordInput adds an input event: how long the program waited and whether a value arrived.
func (c *ProgramCall) RecordInput(prompt string, waited time.Duration, delivered bool) {
	if c == nil || c.span == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return
	}
	c.inputs++

	c.span.AddEvent(
		"program.input",
		trace.WithAttributes(
			attribute.String("prompt", redactSecrets(prompt)),
			attribute.Int64("wait_ms", nonNegativeMillis(waited)),
			attribute.Bool("delivered", delivered),
		),
	)
}

// RecordStep adds a turtle step event.
func (c *ProgramCall) RecordStep(kind string, duration time.Duration, completed bool) {
	if c == nil || c.span == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return
	}
	c.steps++

	c.span.AddEvent(
		"program.step",
		trace.WithAttributes(
			attribute.String("kind", normalizeOrUnknown(kind)),
			attribute.Int64("duration_ms", nonNegativeMillis(duration)),
			attribute.Bool("completed", completed),
		),
	)
}

// End finalizes the program.execute span with latency and interaction counts.
func (c *ProgramCall) End(err error, cancelled bool) {
	if c == nil || c.span == nil {
		return
	}

	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return
	}
	c.ended = true
	inputs := c.inputs
	steps := c.steps
	c.mu.Unlock()

	c.span.SetAttributes(
		attribute.Int64("latency_ms", nonNegativeMillis(time.Since(c.startedAt))),
		attribute.Int("inputs_count", inputs),
		attribute.Int("steps_count", steps),
		attribute.Bool("cancelled", cancelled),
	)

	switch {
	case err != nil && !cancelled:
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, redactSecrets(err.Error()))
	case cancelled:
		c.span.SetStatus(codes.Unset, "")
	default:
		c.span.SetStatus(codes.Ok, "program returned")
	}
	c.span.End()
}

func nonNegativeMillis(d time.Duration) int64 {
	ms := d.Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

func redactSecrets(input string) string {
	redacted := strings.TrimSpace(input)
	if redacted == "" {
		return ""
	}
	redacted = sensitiveInlinePattern.ReplaceAllString(redacted, "$1=<redacted>")
	if len(redacted) > maxErrorMessageBytes {
		return redacted[:maxErrorMessageBytes-len("...[truncated]")] + "...[truncated]"
	}
	return redacted
}

func normalizeOrUnknown(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
