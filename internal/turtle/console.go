// Package turtle implements the graphics console: turtles whose moves are
// timed, serialized animations, and the scene that traces their paths frame
// by frame.
package turtle

import (
	"context"
	"fmt"
	"time"

	"github.com/studentcode/sandbox/internal/console"
	"github.com/studentcode/sandbox/internal/events"
	"go.opentelemetry.io/otel"
)

const tracerName = "sandbox/turtle"

// Settings sizes the scene and sets animation speeds.
type Settings struct {
	Width     float64
	Height    float64
	FrameRate int
	Speeds    Speeds
}

// Console is the graphics backend. It shares the run lifecycle and transcript
// of a console session and owns the scene its turtles draw into.
type Console struct {
	*console.Session
	scene  *Scene
	speeds Speeds
}

// NewConsole wires program to a new session and an empty scene.
func NewConsole(program console.Program[*Console], settings Settings, options ...console.Option) *Console {
	graphics := &Console{
		scene:  NewScene(settings.Width, settings.Height, settings.FrameRate),
		speeds: settings.Speeds.withDefaults(),
	}
	runner := func(ctx context.Context) error {
		return console.Execute(ctx, program, graphics)
	}
	graphics.Session = console.NewSession(runner, append([]console.Option{console.WithName("turtle")}, options...)...)
	graphics.OnClear(graphics.scene.Reset)
	return graphics
}

// DisableClear is always false: the scene may hold drawing even when the
// transcript is empty.
func (c *Console) DisableClear() bool {
	return false
}

// Scene returns the scene turtles draw into.
func (c *Console) Scene() *Scene {
	return c.scene
}

// Frame is the once-per-frame refresh of in-flight paths and the camera.
func (c *Console) Frame(now time.Time) {
	c.scene.Frame(now)
}

// Speeds returns the configured animation speeds.
func (c *Console) Speeds() Speeds {
	return c.speeds
}

// AddTurtle places a new turtle at the scene midpoint facing +x with the
// default color and the pen up.
func (c *Console) AddTurtle(ctx context.Context) (*Turtle, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("add turtle: %w: %w", console.ErrCancelled, err)
	}
	if state := c.State(); state != console.StateRunning {
		return nil, fmt.Errorf("add turtle in state %s: %w", state, console.ErrNotRunning)
	}

	turtle := &Turtle{
		scene:  c.scene,
		clock:  c.Clock(),
		speeds: c.speeds,
		alive:  c.running,
		logger: c.Logger(),
		tracer: otel.Tracer(tracerName),
		bus:    c.Bus(),
		sem:    make(chan struct{}, 1),
		pose:   Pose{Position: c.scene.Midpoint()},
		color:  DefaultColor,
	}
	turtle.id, turtle.epoch = c.scene.addTurtle(turtle)

	c.Logger().Debug("turtle added", "session", c.Name(), "turtle", turtle.id)
	if bus := c.Bus(); bus != nil {
		bus.Publish(events.Event{
			Type:       events.EventTypeTurtleAdded,
			EntityType: "turtle",
			EntityID:   fmt.Sprintf("%d", turtle.id),
			Payload:    turtle.Snapshot(c.Clock().Now()),
		})
	}
	return turtle, nil
}

func (c *Console) running() error {
	if state := c.State(); state != console.StateRunning {
		return fmt.Errorf("state %s: %w", state, console.ErrNotRunning)
	}
	return nil
}

var _ console.Interactive = (*Console)(nil)
