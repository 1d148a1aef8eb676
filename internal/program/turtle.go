package program

import (
	"context"

	"github.com/studentcode/sandbox/internal/turtle"
)

// Loops draws a line, a three-quarter arc, and repeats, leaving two loops.
func Loops(ctx context.Context, c *turtle.Console) error {
	t, err := c.AddTurtle(ctx)
	if err != nil {
		return err
	}
	steps := []func() error{
		func() error { return t.PenDown(ctx) },
		func() error { return t.Rotate(ctx, 30) },
		func() error { return t.Forward(ctx, 50) },
		func() error { return t.Arc(ctx, 40, 270) },
		func() error { return t.Forward(ctx, 100) },
		func() error { return t.Arc(ctx, 40, 270) },
		func() error { return t.Forward(ctx, 100) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
