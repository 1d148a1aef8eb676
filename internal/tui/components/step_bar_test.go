package components

import (
	"strings"
	"testing"

	"github.com/studentcode/sandbox/internal/turtle"
)

func TestRenderStepProgress(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		snapshot turtle.TurtleSnapshot
		width    int
		want     string
	}{
		{
			name:     "half way forward",
			snapshot: turtle.TurtleSnapshot{ID: 1, Step: turtle.StepForward, Progress: 0.5, Steps: 2},
			width:    10,
			want:     "Turtle 1: [#####.....] forward (2 done)",
		},
		{
			name:     "idle",
			snapshot: turtle.TurtleSnapshot{ID: 2, Steps: 7},
			width:    4,
			want:     "Turtle 2: [....] idle (7 done)",
		},
		{
			name:     "progress clamps",
			snapshot: turtle.TurtleSnapshot{ID: 3, Step: turtle.StepArc, Progress: 3},
			width:    4,
			want:     "Turtle 3: [####] arc (0 done)",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			rendered := stripANSI(RenderStepProgress(testCase.snapshot, testCase.width))
			if rendered != testCase.want {
				t.Fatalf("rendered = %q, want %q", rendered, testCase.want)
			}
		})
	}
}

func TestRenderStepProgressDefaultWidth(t *testing.T) {
	t.Parallel()

	rendered := stripANSI(RenderStepProgress(turtle.TurtleSnapshot{ID: 1}, 0))
	if !strings.Contains(rendered, "["+strings.Repeat(".", defaultStepBarWidth)+"]") {
		t.Fatalf("expected default-width empty bar, got %q", rendered)
	}
}
