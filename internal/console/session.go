package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/studentcode/sandbox/internal/events"
	"github.com/studentcode/sandbox/internal/telemetry"
	"github.com/studentcode/sandbox/internal/telemetry/invariants"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "sandbox/console"

// Runner drives one run. It is invoked on its own goroutine by Start.
type Runner func(ctx context.Context) error

// Option configures Session construction.
type Option func(*Session)

// WithMaxLines bounds the transcript.
func WithMaxLines(maxLines int) Option {
	return func(session *Session) {
		if maxLines > 0 {
			session.lines = NewLineBuffer(maxLines)
		}
	}
}

// WithBus publishes lifecycle, transcript and focus events to bus.
func WithBus(bus events.Bus) Option {
	return func(session *Session) {
		if bus != nil {
			session.bus = bus
		}
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *log.Logger) Option {
	return func(session *Session) {
		if logger != nil {
			session.logger = logger
		}
	}
}

// WithTracer configures the tracer used for run spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(session *Session) {
		if tracer != nil {
			session.tracer = tracer
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock Clock) Option {
	return func(session *Session) {
		if clock != nil {
			session.clock = clock
		}
	}
}

// WithName labels the session in logs, events and spans.
func WithName(name string) Option {
	return func(session *Session) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			session.name = trimmed
		}
	}
}

// WithProgram names the program the runner executes, for telemetry.
func WithProgram(name string) Option {
	return func(session *Session) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			session.program = trimmed
		}
	}
}

// Session is the run controller shared by every console backend. It owns the
// transcript, the pending read slot and the lifecycle state, and is the only
// writer of state transitions.
type Session struct {
	runner  Runner
	name    string
	program string
	bus     events.Bus
	logger  *log.Logger
	tracer  trace.Tracer
	clock   Clock

	mu         sync.Mutex
	state      RunState
	record     RunRecord
	timeString string
	lines      *LineBuffer
	gate       inputGate
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	runSpan    trace.Span
	lastErr    error
	history    []TransitionRecord
	clearHooks []func()
}

// NewSession builds an idle session around runner.
func NewSession(runner Runner, options ...Option) *Session {
	session := &Session{
		runner: runner,
		name:   "console",
		logger: log.New(io.Discard),
		tracer: otel.Tracer(tracerName),
		clock:  SystemClock{},
		state:  StateIdle,
		lines:  NewLineBuffer(DefaultMaxLines),
	}
	for _, option := range options {
		if option == nil {
			continue
		}
		option(session)
	}
	return session
}

// Name returns the session label.
func (s *Session) Name() string {
	return s.name
}

// Clock returns the clock shared with timed collaborators.
func (s *Session) Clock() Clock {
	return s.clock
}

// Logger returns the session logger.
func (s *Session) Logger() *log.Logger {
	return s.logger
}

// Bus returns the event bus, or nil when none is configured.
func (s *Session) Bus() events.Bus {
	return s.bus
}

// OnClear registers a hook run after Clear resets the session.
func (s *Session) OnClear(hook func()) {
	if hook == nil {
		return
	}
	s.mu.Lock()
	s.clearHooks = append(s.clearHooks, hook)
	s.mu.Unlock()
}

// Start begins a new run. The runner is launched on its own goroutine and its
// completion is observed, not awaited.
func (s *Session) Start() error {
	if s.runner == nil {
		return errors.New("session runner is nil")
	}

	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		s.logger.Warn("start ignored while running", "session", s.name)
		return ErrAlreadyRunning
	}

	now := s.clock.Now()
	from := s.state
	s.generation++
	generation := s.generation
	if err := s.transitionLocked(context.Background(), StateRunning, "start"); err != nil {
		s.mu.Unlock()
		return err
	}
	s.record = RunRecord{Start: &now}
	s.timeString = FormatDuration(0)
	s.lastErr = nil

	ctx, cancel := context.WithCancel(context.Background())
	ctx, span := s.tracer.Start(ctx, "console.run", trace.WithAttributes(
		attribute.String("session", s.name),
		attribute.Int64("run", int64(generation)),
		attribute.String("from_state", string(from)),
	))
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.runSpan = span
	record := s.history[len(s.history)-1]
	s.mu.Unlock()

	s.logger.Info("run started", "session", s.name, "run", generation)
	s.publishTransition(record)

	go s.drive(ctx, generation, done)
	return nil
}

func (s *Session) drive(ctx context.Context, generation uint64, done chan struct{}) {
	defer close(done)
	ctx, call := telemetry.StartProgram(ctx, telemetry.ProgramRequest{
		Program: s.program,
		Console: s.name,
		Run:     generation,
	})
	err := s.runner(ctx)
	call.End(err, IsCancellation(err))
	s.finish(generation, err)
}

// finish commits the engine outcome. Cancellation never transitions: Stop owns
// the Cancelled state. A completion from an older run, or one arriving after
// Stop already committed, is discarded, so Cancelled wins every race with a
// late success.
func (s *Session) finish(generation uint64, err error) {
	s.mu.Lock()
	if generation != s.generation || s.state != StateRunning {
		s.mu.Unlock()
		s.logger.Debug("discarding stale run completion", "session", s.name, "run", generation, "error", err)
		return
	}
	if IsCancellation(err) {
		s.mu.Unlock()
		s.logger.Debug("run unwound with cancellation", "session", s.name, "run", generation, "error", err)
		return
	}

	target := StateSuccess
	reason := "program returned"
	if err != nil {
		target = StateFailed
		reason = "program failed"
		var failure *ProgramFailure
		if !errors.As(err, &failure) {
			err = &ProgramFailure{Err: err}
		}
		s.lastErr = err
	}
	span := s.runSpan
	if transitionErr := s.endRunLocked(target, reason); transitionErr != nil {
		s.mu.Unlock()
		s.logger.Error("commit run outcome", "session", s.name, "error", transitionErr)
		return
	}
	record := s.history[len(s.history)-1]
	duration, _ := s.record.Duration()
	s.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("run failed", "session", s.name, "run", generation, "error", err, "duration", duration)
	} else {
		span.SetStatus(codes.Ok, "program returned")
		s.logger.Info("run succeeded", "session", s.name, "run", generation, "duration", duration)
	}
	span.End()
	s.publishTransition(record)
}

// Stop cancels the current run, commits Cancelled immediately without waiting
// for the driving goroutine, and abandons any pending read.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	// Abandon the pending read before cancelling the run context: a reader
	// woken by ctx.Done must still observe ErrInputAbandoned.
	cancel := s.cancel
	s.cancel = nil
	if cancel == nil {
		cancel = func() {}
	}
	span := s.runSpan
	if err := s.endRunLocked(StateCancelled, "stop requested"); err != nil {
		cancel()
		s.mu.Unlock()
		s.logger.Error("commit stop", "session", s.name, "error", err)
		return
	}
	record := s.history[len(s.history)-1]
	pending, replaced := s.resolveLocked(s.gate.draft, false)
	pending.resolve("", false)
	cancel()
	s.mu.Unlock()

	span.SetStatus(codes.Error, "cancelled")
	span.End()
	s.logger.Info("run cancelled", "session", s.name, "run", record.Run)
	s.publishTransition(record)
	s.publishReplaced(replaced)
}

// Clear resets the session to Idle and runs clear hooks. It is rejected while
// a run is in flight.
func (s *Session) Clear() error {
	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return ErrRunning
	}
	var record *TransitionRecord
	if s.state != StateIdle {
		if err := s.transitionLocked(context.Background(), StateIdle, "clear"); err != nil {
			s.mu.Unlock()
			return err
		}
		last := s.history[len(s.history)-1]
		record = &last
	}
	s.record = RunRecord{}
	s.timeString = ""
	s.lastErr = nil
	s.lines.Reset()
	stray := s.gate.take()
	s.gate.draft = ""
	hooks := make([]func(), len(s.clearHooks))
	copy(hooks, s.clearHooks)
	s.mu.Unlock()

	stray.resolve("", false)
	for _, hook := range hooks {
		hook()
	}
	if record != nil {
		s.publishTransition(*record)
	}
	s.publish(events.Event{Type: events.EventTypeCleared, EntityType: "session", EntityID: s.name})
	s.logger.Debug("session cleared", "session", s.name)
	return nil
}

// Tick refreshes the live duration string from now. It is cheap and meant to
// be called at a fixed short interval.
func (s *Session) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record.Start == nil {
		return
	}
	if s.record.End != nil {
		s.timeString = FormatDuration(s.record.End.Sub(*s.record.Start))
		return
	}
	s.timeString = FormatDuration(now.Sub(*s.record.Start))
}

// DurationString returns the frozen duration of a finished run, or the value
// computed at the last Tick while running.
func (s *Session) DurationString() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if duration, ok := s.record.Duration(); ok {
		return FormatDuration(duration)
	}
	return s.timeString
}

// State returns the current lifecycle state.
func (s *Session) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Record returns a copy of the current run timestamps.
func (s *Session) Record() RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.clone()
}

// Err returns the failure of the most recent run, if it failed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// History returns the committed transitions.
func (s *Session) History() []TransitionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TransitionRecord, len(s.history))
	copy(out, s.history)
	return out
}

// Wait blocks until the current run's goroutine has returned or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lines returns the transcript in insertion order.
func (s *Session) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.Snapshot()
}

// Empty reports whether the transcript has no lines.
func (s *Session) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.Len() == 0
}

// Write appends a plain output line.
func (s *Session) Write(ctx context.Context, text string) error {
	return s.WriteStyled(ctx, Plain(text))
}

// WriteStyled appends a styled output line.
func (s *Session) WriteStyled(ctx context.Context, text StyledText) error {
	if ctx != nil && ctx.Err() != nil {
		return cancelled(ctx, "write")
	}
	line := OutputLine(text)
	if err := s.appendLines(ctx, line); err != nil {
		return err
	}
	return nil
}

// appendLines pushes every line or none of them.
func (s *Session) appendLines(ctx context.Context, lines ...Line) error {
	s.mu.Lock()
	if s.state != StateRunning {
		state := s.state
		s.mu.Unlock()
		invariants.CheckAppendRequiresRunning(ctx, "console.session.append", string(state), false)
		return fmt.Errorf("append line in state %s: %w", state, ErrNotRunning)
	}
	for _, line := range lines {
		s.lines.Push(line)
	}
	s.mu.Unlock()

	for _, line := range lines {
		s.publish(events.Event{
			Type:       events.EventTypeLineAppended,
			EntityType: "line",
			EntityID:   line.ID.String(),
			Payload:    line,
		})
	}
	return nil
}

// RequestInput writes prompt, appends an input placeholder, asks the
// presentation for focus and suspends until the read is resolved, the run is
// stopped, or ctx is done. A second request while one is pending is rejected
// with ErrInputPending.
func (s *Session) RequestInput(ctx context.Context, prompt string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return "", cancelled(ctx, "request input")
	}

	promptLine := OutputLine(Plain(prompt))
	placeholder := InputLine()

	s.mu.Lock()
	if s.state != StateRunning {
		state := s.state
		s.mu.Unlock()
		return "", fmt.Errorf("request input in state %s: %w", state, ErrNotRunning)
	}
	pending, err := s.gate.open(prompt)
	if err != nil {
		s.mu.Unlock()
		invariants.CheckSinglePendingRead(ctx, "console.session.request_input", false)
		return "", err
	}
	s.lines.Push(promptLine)
	s.lines.Push(placeholder)
	s.mu.Unlock()

	for _, line := range []Line{promptLine, placeholder} {
		s.publish(events.Event{
			Type:       events.EventTypeLineAppended,
			EntityType: "line",
			EntityID:   line.ID.String(),
			Payload:    line,
		})
	}
	s.publish(events.Event{
		Type:       events.EventTypeInputRequested,
		EntityType: "input",
		EntityID:   placeholder.ID.String(),
		Payload:    prompt,
	})

	call := telemetry.ProgramCallFromContext(ctx)
	requested := s.clock.Now()
	select {
	case result := <-pending.result:
		call.RecordInput(prompt, s.clock.Now().Sub(requested), result.delivered)
		if !result.delivered {
			return "", ErrInputAbandoned
		}
		return result.text, nil
	case <-ctx.Done():
		call.RecordInput(prompt, s.clock.Now().Sub(requested), false)
		select {
		case result := <-pending.result:
			if !result.delivered {
				return "", ErrInputAbandoned
			}
		default:
		}
		s.mu.Lock()
		s.gate.forget(pending)
		s.mu.Unlock()
		return "", cancelled(ctx, "request input")
	}
}

// Resolve settles the pending read. The newest line becomes the literal text;
// the waiting program receives text only when deliver is true and is otherwise
// told the read was abandoned. It reports whether a read was pending.
func (s *Session) Resolve(text string, deliver bool) bool {
	s.mu.Lock()
	pending, replaced := s.resolveLocked(text, deliver)
	s.mu.Unlock()

	if pending == nil {
		return false
	}
	s.publishReplaced(replaced)
	pending.resolve(text, deliver)
	return true
}

// SetDraft records the text the user is currently typing.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	s.gate.draft = text
	s.mu.Unlock()
}

// Draft returns the text the user is currently typing.
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.draft
}

// Submit resolves the pending read with the current draft and delivers it.
func (s *Session) Submit() bool {
	s.mu.Lock()
	draft := s.gate.draft
	pending, replaced := s.resolveLocked(draft, true)
	s.mu.Unlock()

	if pending == nil {
		return false
	}
	s.publishReplaced(replaced)
	pending.resolve(draft, true)
	return true
}

// AwaitingInput reports whether a read is pending, and its prompt.
func (s *Session) AwaitingInput() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate.pending == nil {
		return "", false
	}
	return s.gate.pending.prompt, true
}

// resolveLocked detaches the pending read, clears the draft and finalizes the
// placeholder with text. The caller resolves the returned read after unlocking.
func (s *Session) resolveLocked(text string, deliver bool) (*pendingRead, *Line) {
	pending := s.gate.take()
	if pending == nil {
		return nil, nil
	}
	s.gate.draft = ""
	if !s.lines.ReplaceLast(LineOutput, Plain(text)) {
		return pending, nil
	}
	last, _ := s.lines.Last()
	s.logger.Debug("input resolved", "session", s.name, "delivered", deliver)
	return pending, &last
}

// endRunLocked commits a terminal transition and stamps the end time exactly once.
func (s *Session) endRunLocked(target RunState, reason string) error {
	if err := s.transitionLocked(context.Background(), target, reason); err != nil {
		return err
	}
	end := s.clock.Now()
	s.record.End = &end
	if s.record.Start != nil {
		s.timeString = FormatDuration(end.Sub(*s.record.Start))
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.runSpan = nil
	return nil
}

func (s *Session) transitionLocked(ctx context.Context, to RunState, reason string) error {
	from := s.state
	if !isAllowed(from, to) {
		invariants.CheckStateTransitionLegal(ctx, "console.session.transition", "session", string(from), string(to), false)
		return &IllegalTransitionError{FromState: from, ToState: to, Reason: reason}
	}
	s.state = to
	record := TransitionRecord{
		Run:       s.generation,
		FromState: from,
		ToState:   to,
		Reason:    reason,
		Timestamp: s.clock.Now().UTC(),
	}
	s.history = append(s.history, record)
	if s.runSpan != nil && from == StateRunning {
		s.runSpan.AddEvent("console.transition", trace.WithAttributes(
			attribute.String("from_state", string(from)),
			attribute.String("to_state", string(to)),
			attribute.String("reason", reason),
		))
	}
	return nil
}

func (s *Session) publishTransition(record TransitionRecord) {
	severity := events.SeverityInfo
	switch record.ToState {
	case StateFailed:
		severity = events.SeverityError
	case StateCancelled:
		severity = events.SeverityWarn
	}
	s.publish(events.Event{
		Type:       events.EventTypeStateTransition,
		EntityType: "session",
		EntityID:   s.name,
		Payload:    record,
		Severity:   severity,
	})
}

func (s *Session) publishReplaced(line *Line) {
	if line == nil {
		return
	}
	s.publish(events.Event{
		Type:       events.EventTypeLineReplaced,
		EntityType: "line",
		EntityID:   line.ID.String(),
		Payload:    *line,
	})
}

func (s *Session) publish(event events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event)
}
