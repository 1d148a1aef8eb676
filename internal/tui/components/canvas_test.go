package components

import (
	"math"
	"strings"
	"testing"

	"github.com/studentcode/sandbox/internal/turtle"
)

func centeredSnapshot() turtle.Snapshot {
	return turtle.Snapshot{
		Width:  300,
		Height: 300,
		Camera: turtle.Vec{X: 150, Y: 150},
	}
}

func TestRasterizeCanvasDrawsPathAndTurtle(t *testing.T) {
	t.Parallel()

	snapshot := centeredSnapshot()
	snapshot.Paths = []turtle.Path{{
		Color:  "#00FF00",
		Points: []turtle.Vec{{X: 150, Y: 150}, {X: 200, Y: 150}},
	}}
	snapshot.Turtles = []turtle.TurtleSnapshot{{
		ID:    1,
		Pose:  turtle.Pose{Position: turtle.Vec{X: 200, Y: 150}},
		Color: "#00FF00",
	}}

	grid := RasterizeCanvas(CanvasConfig{Columns: 30, Rows: 15, Snapshot: snapshot})
	if len(grid) != 15 || len(grid[0]) != 30 {
		t.Fatalf("grid size = %dx%d, want 15x30", len(grid), len(grid[0]))
	}

	row := string(runesOf(grid[7]))
	if got := row[strings.IndexRune(row, '•'):]; !strings.HasPrefix(got, "•••••→") {
		t.Fatalf("row 7 = %q, want path ending in an arrow", row)
	}
	if grid[7][15].Color != "#00FF00" {
		t.Fatalf("path cell color = %q, want #00FF00", grid[7][15].Color)
	}
	for i, line := range grid {
		if i == 7 {
			continue
		}
		if strings.TrimSpace(string(runesOf(line))) != "" {
			t.Fatalf("row %d should be empty, got %q", i, string(runesOf(line)))
		}
	}
}

func TestRasterizeCanvasFollowsCamera(t *testing.T) {
	t.Parallel()

	snapshot := centeredSnapshot()
	snapshot.Turtles = []turtle.TurtleSnapshot{{Pose: turtle.Pose{Position: turtle.Vec{X: 150, Y: 150}}}}

	centered := CanvasText(RasterizeCanvas(CanvasConfig{Columns: 30, Rows: 15, Snapshot: snapshot}))
	snapshot.Camera = turtle.Vec{X: 100, Y: 150}
	shifted := CanvasText(RasterizeCanvas(CanvasConfig{Columns: 30, Rows: 15, Snapshot: snapshot}))

	if strings.Index(shifted, "→") <= strings.Index(centered, "→") {
		t.Fatal("moving the camera left should move the turtle right on screen")
	}

	snapshot.Camera = turtle.Vec{X: 1000, Y: 1000}
	if strings.ContainsRune(CanvasText(RasterizeCanvas(CanvasConfig{Columns: 30, Rows: 15, Snapshot: snapshot})), '→') {
		t.Fatal("turtle outside the view must not be drawn")
	}
}

func TestHeadingArrow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		heading float64
		want    rune
	}{
		{heading: 0, want: '→'},
		{heading: math.Pi / 2, want: '↑'},
		{heading: math.Pi, want: '←'},
		{heading: -math.Pi / 2, want: '↓'},
		{heading: 2 * math.Pi, want: '→'},
		{heading: math.Pi / 4, want: '↗'},
	}
	for _, tt := range tests {
		if got := headingArrow(tt.heading); got != tt.want {
			t.Fatalf("headingArrow(%v) = %q, want %q", tt.heading, got, tt.want)
		}
	}
}

func TestRenderCanvasMinimumSize(t *testing.T) {
	t.Parallel()

	rendered := stripANSI(RenderCanvas(CanvasConfig{Snapshot: centeredSnapshot()}))
	rows := strings.Split(rendered, "\n")
	if len(rows) != canvasMinRows {
		t.Fatalf("row count = %d, want %d", len(rows), canvasMinRows)
	}
	if len([]rune(rows[0])) != canvasMinColumns {
		t.Fatalf("column count = %d, want %d", len([]rune(rows[0])), canvasMinColumns)
	}
}

func runesOf(row []CanvasCell) []rune {
	out := make([]rune, 0, len(row))
	for _, cell := range row {
		out = append(out, cell.Rune)
	}
	return out
}
