package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/studentcode/sandbox/internal/console"
	"github.com/studentcode/sandbox/internal/events"
	"github.com/studentcode/sandbox/internal/turtle"
	"github.com/studentcode/sandbox/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func greeter(ctx context.Context, c *console.TextConsole) error {
	if err := c.Write(ctx, "hello"); err != nil {
		return err
	}
	name, err := c.RequestInput(ctx, "name?")
	if err != nil {
		return err
	}
	return c.Write(ctx, "hi "+name)
}

func blockUntilStopped(ctx context.Context, _ *console.TextConsole) error {
	<-ctx.Done()
	return ctx.Err()
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newModel(t *testing.T, backend console.Interactive, options Options) *AppModel {
	t.Helper()
	model := NewAppModel(backend, options)
	model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	t.Cleanup(backend.Stop)
	return model
}

// pressAction sends a toolbar key and feeds the resulting action back in.
func pressAction(t *testing.T, model *AppModel, r rune) {
	t.Helper()
	_, cmd := model.Update(runeKey(r))
	require.NotNil(t, cmd, "key %q should activate a button", string(r))
	msg := cmd()
	_, isAction := msg.(runActionMsg)
	require.True(t, isAction, "key %q produced %T", string(r), msg)
	model.Update(msg)
}

func waitForPrompt(t *testing.T, backend console.Interactive) {
	t.Helper()
	test.Eventually(t, func() bool {
		_, pending := backend.AwaitingInput()
		return pending
	}, "expected a pending read")
}

func TestRunTypeAndSubmit(t *testing.T) {
	t.Parallel()
	ctx := test.Context(t)

	backend := console.NewTextConsole(greeter)
	model := newModel(t, backend, Options{Program: "greeter"})

	pressAction(t, model, 'r')
	require.Equal(t, console.StateRunning, backend.State())

	waitForPrompt(t, backend)
	model.Update(inputRequestedMsg{prompt: "name?"})
	require.True(t, model.InputFocused())

	model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("Ada")})
	assert.Equal(t, "Ada", backend.Draft())

	model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, model.InputFocused())
	require.NoError(t, backend.Wait(ctx))

	model.Update(tickMsg(time.Now()))
	assert.Equal(t, console.StateSuccess, backend.State())
	view := model.View()
	assert.Contains(t, view, "Success in")
	assert.Contains(t, view, "hi Ada")
	assert.Contains(t, view, "greeter")
}

func TestInputRequestedEventFocusesInput(t *testing.T) {
	t.Parallel()

	bus := events.New()
	backend := console.NewTextConsole(greeter, console.WithBus(bus))
	model := newModel(t, backend, Options{Bus: bus})

	pressAction(t, model, 'r')

	received := make(chan tea.Msg, 1)
	go func() { received <- model.listen()() }()
	select {
	case msg := <-received:
		requested, ok := msg.(inputRequestedMsg)
		require.True(t, ok, "unexpected message %T", msg)
		assert.Equal(t, "name?", requested.prompt)
		model.Update(msg)
	case <-time.After(2 * time.Second):
		t.Fatal("input request was not forwarded from the bus")
	}
	assert.True(t, model.InputFocused())
}

func TestStopKeepsDraftAndDropsFocus(t *testing.T) {
	t.Parallel()

	backend := console.NewTextConsole(greeter)
	model := newModel(t, backend, Options{})

	pressAction(t, model, 'r')
	waitForPrompt(t, backend)
	model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, model.InputFocused())
	model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("Ad")})

	model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.False(t, model.InputFocused())
	pressAction(t, model, 's')

	assert.Equal(t, console.StateCancelled, backend.State())
	lines := backend.Lines()
	require.NotEmpty(t, lines)
	assert.Equal(t, "Ad", lines[len(lines)-1].Text.String())

	model.Update(tickMsg(time.Now()))
	assert.Contains(t, model.View(), "Canceled in")
}

func TestToolbarFollowsState(t *testing.T) {
	t.Parallel()

	backend := console.NewTextConsole(blockUntilStopped)
	model := newModel(t, backend, Options{})

	_, cmd := model.Update(runeKey('c'))
	assert.Nil(t, cmd, "clear is disabled while the transcript is empty")
	_, cmd = model.Update(runeKey('s'))
	assert.Nil(t, cmd, "stop is disabled while idle")

	pressAction(t, model, 'r')
	_, cmd = model.Update(runeKey('r'))
	assert.Nil(t, cmd, "run is disabled while running")
	_, cmd = model.Update(runeKey('c'))
	assert.Nil(t, cmd, "clear is disabled while running")

	model.Update(tickMsg(time.Now()))
	_, cmd = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd, "enter activates the highlighted stop button")
	model.Update(cmd())
	assert.Equal(t, console.StateCancelled, backend.State())
}

func TestQuitWhileRunningAsksForConfirmation(t *testing.T) {
	t.Parallel()

	backend := console.NewTextConsole(blockUntilStopped)
	model := newModel(t, backend, Options{Program: "spinner"})
	pressAction(t, model, 'r')

	model.Update(runeKey('q'))
	assert.Contains(t, model.View(), "QUIT WHILE RUNNING?")

	model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.NotContains(t, model.View(), "QUIT WHILE RUNNING?")
	assert.Equal(t, console.StateRunning, backend.State())

	model.Update(runeKey('q'))
	model.Update(tea.KeyMsg{Type: tea.KeyLeft})
	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.True(t, model.Quitting())
	assert.Equal(t, console.StateCancelled, backend.State())
}

func TestQuitWhenIdleExitsImmediately(t *testing.T) {
	t.Parallel()

	backend := console.NewTextConsole(blockUntilStopped)
	model := newModel(t, backend, Options{})

	_, cmd := model.Update(runeKey('q'))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, model.View())
}

func TestFailedRunShowsError(t *testing.T) {
	t.Parallel()
	ctx := test.Context(t)

	backend := console.NewTextConsole(func(context.Context, *console.TextConsole) error {
		return errors.New("boom")
	})
	model := newModel(t, backend, Options{})

	pressAction(t, model, 'r')
	require.NoError(t, backend.Wait(ctx))
	model.Update(tickMsg(time.Now()))

	view := model.View()
	assert.Contains(t, view, "Failed in")
	assert.Contains(t, view, "boom")
}

func TestTurtleBackendRendersCanvas(t *testing.T) {
	t.Parallel()

	added := make(chan struct{})
	backend := turtle.NewConsole(func(ctx context.Context, c *turtle.Console) error {
		mover, err := c.AddTurtle(ctx)
		if err != nil {
			return err
		}
		if err := mover.PenDown(ctx); err != nil {
			return err
		}
		close(added)
		<-ctx.Done()
		return ctx.Err()
	}, turtle.Settings{})
	model := NewAppModel(backend, Options{})
	t.Cleanup(backend.Stop)
	model.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	assert.Equal(t, LayoutCompact, model.LayoutMode())

	pressAction(t, model, 'r')
	select {
	case <-added:
	case <-time.After(2 * time.Second):
		t.Fatal("turtle was not added")
	}

	_, cmd := model.Update(frameMsg(time.Now()))
	assert.NotNil(t, cmd, "frames keep rescheduling")

	view := model.View()
	assert.Contains(t, view, "Canvas")
	assert.Contains(t, view, "Turtle 1:")
	assert.Contains(t, view, "→")
}

func TestResolveLayoutMode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, LayoutCompact, resolveLayoutMode(StandardLayoutMinWidth-1))
	assert.Equal(t, LayoutStandard, resolveLayoutMode(StandardLayoutMinWidth))
}
