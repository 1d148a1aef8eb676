package console

import "context"

// TextConsole is the transcript-only backend.
type TextConsole struct {
	*Session
}

// NewTextConsole wires program to a new session.
func NewTextConsole(program Program[*TextConsole], options ...Option) *TextConsole {
	textConsole := &TextConsole{}
	runner := func(ctx context.Context) error {
		return Execute(ctx, program, textConsole)
	}
	textConsole.Session = NewSession(runner, append([]Option{WithName("text")}, options...)...)
	return textConsole
}

// DisableClear reports whether clearing would be pointless because the
// transcript is already empty.
func (c *TextConsole) DisableClear() bool {
	return c.Empty()
}
