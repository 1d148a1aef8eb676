package program

import (
	"context"
	"fmt"
	"strings"

	"github.com/studentcode/sandbox/internal/console"
)

const (
	colorAccent = "#5AC8FA"
	colorWarn   = "#FFCC00"
)

// Greeter writes a greeting, asks for a name, and answers. A blank name is
// asked for again.
func Greeter(ctx context.Context, c *console.TextConsole) error {
	if err := c.Write(ctx, "hello"); err != nil {
		return err
	}
	for {
		name, err := c.RequestInput(ctx, "name?")
		if err != nil {
			return err
		}
		name = strings.TrimSpace(name)
		if name == "" {
			if err := c.WriteStyled(ctx, console.Colored("a name, please", colorWarn)); err != nil {
				return err
			}
			continue
		}
		if err := c.Write(ctx, "hi "+name); err != nil {
			return err
		}
		return c.WriteStyled(ctx, console.Plain("your name has ").
			Then(fmt.Sprintf("%d", len([]rune(name))), colorAccent).
			Then(" letters", ""))
	}
}
