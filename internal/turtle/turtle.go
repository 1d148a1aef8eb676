package turtle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/studentcode/sandbox/internal/console"
	"github.com/studentcode/sandbox/internal/events"
	"github.com/studentcode/sandbox/internal/telemetry"
	"github.com/studentcode/sandbox/internal/telemetry/invariants"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultMovementSpeed is in scene points per second.
	DefaultMovementSpeed = 200.0
	// DefaultRotationSpeed is in degrees per second.
	DefaultRotationSpeed = 90.0
	// DefaultColor is the pen color of a new turtle.
	DefaultColor = "#00FF00"
)

// ErrInvalidArc rejects arcs with a non-positive radius.
var ErrInvalidArc = errors.New("arc radius must be positive")

// Speeds sets how fast turtles animate.
type Speeds struct {
	Movement float64
	Rotation float64
}

func (s Speeds) withDefaults() Speeds {
	if s.Movement <= 0 {
		s.Movement = DefaultMovementSpeed
	}
	if s.Rotation <= 0 {
		s.Rotation = DefaultRotationSpeed
	}
	return s
}

// StepRecord describes one finished step.
type StepRecord struct {
	Turtle    int
	Kind      StepKind
	From      Pose
	To        Pose
	Duration  time.Duration
	Completed bool
}

// Turtle is a pen-carrying cursor whose steps run one at a time in issue
// order. Each step is a timed animation the caller awaits.
type Turtle struct {
	id     int
	epoch  uint64
	scene  *Scene
	clock  console.Clock
	speeds Speeds
	alive  func() error
	logger *log.Logger
	tracer trace.Tracer
	bus    events.Bus

	// sem serializes steps; acquiring it honors the caller's context.
	sem      chan struct{}
	inFlight atomic.Int32

	mu     sync.Mutex
	pose   Pose
	color  string
	pen    *Path
	active *activeMotion
	steps  int
}

// TurtleSnapshot is a detached view of a turtle for rendering.
type TurtleSnapshot struct {
	ID       int
	Pose     Pose
	Color    string
	PenDown  bool
	Steps    int
	Step     StepKind
	Progress float64
}

// ID returns the turtle's position in the scene, starting at 1.
func (t *Turtle) ID() int {
	return t.id
}

// Pose returns the pose at the last step boundary.
func (t *Turtle) Pose() Pose {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pose
}

// Color returns the pen color.
func (t *Turtle) Color() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.color
}

// PenIsDown reports whether moves currently draw.
func (t *Turtle) PenIsDown() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pen != nil
}

// Snapshot samples the turtle at now.
func (t *Turtle) Snapshot(now time.Time) TurtleSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := TurtleSnapshot{
		ID:      t.id,
		Pose:    t.pose,
		Color:   t.color,
		PenDown: t.pen != nil,
		Steps:   t.steps,
	}
	if t.active != nil {
		out.Pose = t.active.poseAt(now)
		out.Step = t.active.kind
		out.Progress = t.active.fraction(now)
	}
	return out
}

// Forward moves distance points along the heading.
func (t *Turtle) Forward(ctx context.Context, distance float64) error {
	return t.step(ctx, StepForward, func(from Pose) (motion, error) {
		return linearMotion(StepForward, from, distance, t.speeds.Movement), nil
	}, nil)
}

// Backward moves distance points against the heading.
func (t *Turtle) Backward(ctx context.Context, distance float64) error {
	return t.step(ctx, StepBackward, func(from Pose) (motion, error) {
		return linearMotion(StepBackward, from, -distance, t.speeds.Movement), nil
	}, nil)
}

// Rotate turns the heading by angle degrees, counterclockwise for positive angles.
func (t *Turtle) Rotate(ctx context.Context, angle float64) error {
	return t.step(ctx, StepRotate, func(from Pose) (motion, error) {
		return rotateMotion(from, angle, t.speeds.Rotation), nil
	}, nil)
}

// Arc sweeps angle degrees along a circle of the given radius, staying tangent
// to it. Positive angles turn left around a center on the turtle's left.
func (t *Turtle) Arc(ctx context.Context, radius, angle float64) error {
	return t.step(ctx, StepArc, func(from Pose) (motion, error) {
		if radius <= 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
			return motion{}, fmt.Errorf("arc radius %v: %w", radius, ErrInvalidArc)
		}
		return arcMotion(from, radius, angle, t.speeds.Movement), nil
	}, nil)
}

// PenDown starts a new path at the current position.
func (t *Turtle) PenDown(ctx context.Context) error {
	return t.step(ctx, StepPenDown, nil, func() {
		if t.pen != nil {
			t.scene.sealPath(t.pen, t.pose.Position)
		}
		t.pen = t.scene.startPath(t.epoch, t.color, t.pose.Position)
	})
}

// PenUp seals the current path; later moves do not draw.
func (t *Turtle) PenUp(ctx context.Context) error {
	return t.step(ctx, StepPenUp, nil, func() {
		if t.pen == nil {
			return
		}
		t.scene.sealPath(t.pen, t.pose.Position)
		t.pen = nil
	})
}

// SetColor changes the pen color. With the pen down the current path is
// sealed and a new one begins in the new color.
func (t *Turtle) SetColor(ctx context.Context, color string) error {
	color = strings.TrimSpace(color)
	return t.step(ctx, StepColor, nil, func() {
		if color == "" {
			return
		}
		t.color = color
		if t.pen == nil {
			return
		}
		t.scene.sealPath(t.pen, t.pose.Position)
		t.pen = t.scene.startPath(t.epoch, t.color, t.pose.Position)
	})
}

// step runs one serialized step. Timed steps pass plan; instant pen and color
// changes pass apply, which runs under the turtle lock.
func (t *Turtle) step(ctx context.Context, kind StepKind, plan func(Pose) (motion, error), apply func()) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := t.check(ctx, kind); err != nil {
		return err
	}

	select {
	case t.sem <- struct{}{}:
	case <-ctx.Done():
		return t.cancelled(ctx, kind)
	}
	defer func() { <-t.sem }()

	inFlight := t.inFlight.Add(1)
	defer t.inFlight.Add(-1)
	invariants.CheckStepsSerialized(ctx, "turtle.step", int(inFlight))

	if err := t.check(ctx, kind); err != nil {
		return err
	}

	if plan == nil {
		t.mu.Lock()
		from := t.pose
		apply()
		t.steps++
		t.mu.Unlock()
		t.finishStep(ctx, StepRecord{Turtle: t.id, Kind: kind, From: from, To: from, Completed: true})
		return nil
	}

	t.mu.Lock()
	planned, err := plan(t.pose)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	started := t.clock.Now()
	t.active = &activeMotion{motion: planned, started: started}
	t.mu.Unlock()

	ctx, span := t.tracer.Start(ctx, "turtle.step", trace.WithAttributes(
		attribute.Int("turtle", t.id),
		attribute.String("kind", string(kind)),
		attribute.Int64("duration_ms", planned.duration.Milliseconds()),
	))
	defer span.End()

	completed := true
	if planned.duration > 0 {
		select {
		case <-t.clock.After(planned.duration):
		case <-ctx.Done():
			completed = false
		}
	}

	t.mu.Lock()
	to := planned.end()
	if !completed {
		to = t.active.poseAt(t.clock.Now())
	}
	t.pose = to
	t.active = nil
	t.steps++
	if t.pen != nil {
		t.scene.extendPath(t.pen, to.Position)
	}
	t.mu.Unlock()

	record := StepRecord{
		Turtle:    t.id,
		Kind:      kind,
		From:      planned.from,
		To:        to,
		Duration:  planned.duration,
		Completed: completed,
	}
	t.finishStep(ctx, record)
	if !completed {
		span.SetStatus(codes.Error, "cancelled")
		return t.cancelled(ctx, kind)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (t *Turtle) check(ctx context.Context, kind StepKind) error {
	if ctx.Err() != nil {
		return t.cancelled(ctx, kind)
	}
	if !t.scene.live(t.epoch) {
		return fmt.Errorf("turtle %d %s after scene reset: %w", t.id, kind, console.ErrNotRunning)
	}
	if t.alive != nil {
		if err := t.alive(); err != nil {
			return fmt.Errorf("turtle %d %s: %w", t.id, kind, err)
		}
	}
	return nil
}

func (t *Turtle) cancelled(ctx context.Context, kind StepKind) error {
	if cause := ctx.Err(); cause != nil {
		return fmt.Errorf("turtle %d %s: %w: %w", t.id, kind, console.ErrCancelled, cause)
	}
	return fmt.Errorf("turtle %d %s: %w", t.id, kind, console.ErrCancelled)
}

func (t *Turtle) finishStep(ctx context.Context, record StepRecord) {
	telemetry.ProgramCallFromContext(ctx).RecordStep(string(record.Kind), record.Duration, record.Completed)
	t.logger.Debug("turtle step",
		"turtle", record.Turtle,
		"kind", record.Kind,
		"x", record.To.Position.X,
		"y", record.To.Position.Y,
		"heading", record.To.HeadingDegrees(),
		"completed", record.Completed,
	)
	if t.bus == nil {
		return
	}
	severity := events.SeverityInfo
	if !record.Completed {
		severity = events.SeverityWarn
	}
	t.bus.Publish(events.Event{
		Type:       events.EventTypeTurtleStep,
		EntityType: "turtle",
		EntityID:   fmt.Sprintf("%d", record.Turtle),
		Payload:    record,
		Severity:   severity,
	})
}

// trace extends the active path with the live position at now.
func (t *Turtle) trace(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pen == nil || t.active == nil {
		return
	}
	t.scene.extendPath(t.pen, t.active.poseAt(now).Position)
}
