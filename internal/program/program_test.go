package program

import (
	"context"
	"testing"
	"time"

	"github.com/studentcode/sandbox/internal/console"
	"github.com/studentcode/sandbox/internal/turtle"
	"github.com/studentcode/sandbox/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Scenario
		wantErr bool
	}{
		{input: "text", want: ScenarioText},
		{input: " Turtle ", want: ScenarioTurtle},
		{input: "", wantErr: true},
		{input: "3d", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseScenario(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, got.Description())
			assert.NotEmpty(t, got.ProgramName())
		})
	}
}

func TestGreeterAsksAgainForBlankName(t *testing.T) {
	t.Parallel()
	ctx := test.Context(t)

	c := console.NewTextConsole(Greeter)
	require.NoError(t, c.Start())

	submit := func(text string) {
		t.Helper()
		test.Eventually(t, func() bool {
			_, ok := c.AwaitingInput()
			return ok
		})
		c.SetDraft(text)
		require.True(t, c.Submit())
	}
	submit("   ")
	submit("Ada")
	require.NoError(t, c.Wait(ctx))

	assert.Equal(t, console.StateSuccess, c.State())
	var texts []string
	for _, line := range c.Lines() {
		texts = append(texts, line.Text.String())
	}
	assert.Equal(t, []string{
		"hello",
		"name?",
		"   ",
		"a name, please",
		"name?",
		"Ada",
		"hi Ada",
		"your name has 3 letters",
	}, texts)
}

func TestLoopsDrawsOneContinuousPath(t *testing.T) {
	t.Parallel()
	ctx := test.Context(t)
	clock := test.NewManualClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	c := turtle.NewConsole(Loops, turtle.Settings{}, console.WithClock(clock))
	require.NoError(t, c.Start())
	test.Eventually(t, func() bool {
		if c.State() != console.StateRunning {
			return true
		}
		if clock.Waiters() > 0 {
			clock.Advance(500 * time.Millisecond)
			c.Frame(clock.Now())
		}
		return false
	})
	require.NoError(t, c.Wait(ctx))
	assert.Equal(t, console.StateSuccess, c.State())

	paths := c.Scene().Paths()
	require.Len(t, paths, 1)
	// Frames sample arcs as chords, so the polyline is shorter than the
	// analytic 250 + 2*(3/4 of a radius-40 circle).
	assert.Greater(t, paths[0].Length(), 400.0)
	assert.LessOrEqual(t, paths[0].Length(), 627.5)
}

func TestLoopsStopsWhenCancelled(t *testing.T) {
	t.Parallel()
	ctx := test.Context(t)
	clock := test.NewManualClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	c := turtle.NewConsole(Loops, turtle.Settings{}, console.WithClock(clock))
	require.NoError(t, c.Start())
	clock.BlockUntilWaiters(t, 1)
	c.Stop()
	require.NoError(t, c.Wait(context.Background()))
	require.NoError(t, ctx.Err())
	assert.Equal(t, console.StateCancelled, c.State())
}
