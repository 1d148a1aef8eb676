package components

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/studentcode/sandbox/internal/tui/theme"
	"github.com/studentcode/sandbox/internal/turtle"
)

const (
	canvasMinColumns = 8
	canvasMinRows    = 4
	canvasPathRune   = '•'
	canvasEmptyRune  = ' '
)

// headingArrows are indexed by heading in eighths of a turn, counterclockwise from +x.
var headingArrows = []rune{'→', '↗', '↑', '↖', '←', '↙', '↓', '↘'}

// CanvasConfig sizes the character grid the scene is drawn into.
type CanvasConfig struct {
	Columns  int
	Rows     int
	Snapshot turtle.Snapshot
}

// CanvasCell is one character of the rasterized scene.
type CanvasCell struct {
	Rune  rune
	Color string
}

// RenderCanvas draws the scene as seen from its camera. The grid covers the
// scene's width and height centered on the camera; y grows upward so the top
// row is the largest y. Paths are rasterized segment by segment and turtles
// are drawn last as heading arrows.
func RenderCanvas(config CanvasConfig) string {
	grid := RasterizeCanvas(config)
	rows := make([]string, 0, len(grid))
	for _, row := range grid {
		rows = append(rows, renderCanvasRow(row))
	}
	return strings.Join(rows, "\n")
}

// RasterizeCanvas returns the grid as rows of runes with their colors.
func RasterizeCanvas(config CanvasConfig) [][]CanvasCell {
	columns := max(config.Columns, canvasMinColumns)
	rows := max(config.Rows, canvasMinRows)
	grid := make([][]CanvasCell, rows)
	for i := range grid {
		grid[i] = make([]CanvasCell, columns)
		for j := range grid[i] {
			grid[i][j] = CanvasCell{Rune: canvasEmptyRune}
		}
	}

	projector := newCanvasProjector(config.Snapshot, columns, rows)
	for _, path := range config.Snapshot.Paths {
		plotPath(grid, projector, path)
	}
	for _, snapshot := range config.Snapshot.Turtles {
		col, row, ok := projector.cell(snapshot.Pose.Position)
		if !ok {
			continue
		}
		grid[row][col] = CanvasCell{Rune: headingArrow(snapshot.Pose.Heading), Color: snapshot.Color}
	}
	return grid
}

// CanvasText flattens a rasterized grid into plain text.
func CanvasText(grid [][]CanvasCell) string {
	rows := make([]string, 0, len(grid))
	for _, row := range grid {
		var b strings.Builder
		for _, cell := range row {
			b.WriteRune(cell.Rune)
		}
		rows = append(rows, b.String())
	}
	return strings.Join(rows, "\n")
}

type canvasProjector struct {
	originX float64
	originY float64
	scaleX  float64
	scaleY  float64
	columns int
	rows    int
}

func newCanvasProjector(snapshot turtle.Snapshot, columns, rows int) canvasProjector {
	width := snapshot.Width
	if width <= 0 {
		width = turtle.DefaultWidth
	}
	height := snapshot.Height
	if height <= 0 {
		height = turtle.DefaultHeight
	}
	return canvasProjector{
		originX: snapshot.Camera.X - width/2,
		originY: snapshot.Camera.Y - height/2,
		scaleX:  width / float64(columns),
		scaleY:  height / float64(rows),
		columns: columns,
		rows:    rows,
	}
}

// grid maps a scene point to fractional grid coordinates with row 0 at the top.
func (p canvasProjector) grid(point turtle.Vec) (float64, float64) {
	col := (point.X - p.originX) / p.scaleX
	row := float64(p.rows) - (point.Y-p.originY)/p.scaleY
	return col, row
}

func (p canvasProjector) cell(point turtle.Vec) (int, int, bool) {
	col, row := p.grid(point)
	c := int(math.Floor(col))
	r := int(math.Floor(row))
	if row == float64(p.rows) {
		r = p.rows - 1
	}
	if c < 0 || c >= p.columns || r < 0 || r >= p.rows {
		return 0, 0, false
	}
	return c, r, true
}

func plotPath(grid [][]CanvasCell, projector canvasProjector, path turtle.Path) {
	if len(path.Points) == 0 {
		return
	}
	plotPoint(grid, projector, path.Points[0], path.Color)
	for i := 1; i < len(path.Points); i++ {
		plotSegment(grid, projector, path.Points[i-1], path.Points[i], path.Color)
	}
}

// plotSegment samples the segment at sub-cell spacing so no cell it crosses is skipped.
func plotSegment(grid [][]CanvasCell, projector canvasProjector, from, to turtle.Vec, color string) {
	fromCol, fromRow := projector.grid(from)
	toCol, toRow := projector.grid(to)
	steps := int(math.Ceil(math.Max(math.Abs(toCol-fromCol), math.Abs(toRow-fromRow)) * 2))
	if steps < 1 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		f := float64(i) / float64(steps)
		plotPoint(grid, projector, from.Add(to.Sub(from).Scale(f)), color)
	}
}

func plotPoint(grid [][]CanvasCell, projector canvasProjector, point turtle.Vec, color string) {
	col, row, ok := projector.cell(point)
	if !ok {
		return
	}
	grid[row][col] = CanvasCell{Rune: canvasPathRune, Color: color}
}

func headingArrow(heading float64) rune {
	turn := math.Mod(heading, 2*math.Pi)
	if turn < 0 {
		turn += 2 * math.Pi
	}
	index := int(math.Round(turn/(math.Pi/4))) % len(headingArrows)
	return headingArrows[index]
}

func renderCanvasRow(row []CanvasCell) string {
	var b strings.Builder
	var run strings.Builder
	runColor := ""
	flush := func() {
		if run.Len() == 0 {
			return
		}
		if runColor == "" {
			b.WriteString(run.String())
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(theme.SpanColor(runColor)).Render(run.String()))
		}
		run.Reset()
	}
	for _, cell := range row {
		if cell.Color != runColor {
			flush()
			runColor = cell.Color
		}
		run.WriteRune(cell.Rune)
	}
	flush()
	return b.String()
}
