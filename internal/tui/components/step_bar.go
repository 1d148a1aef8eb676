package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/studentcode/sandbox/internal/tui/theme"
	"github.com/studentcode/sandbox/internal/turtle"
)

const defaultStepBarWidth = 20

// StepProgressVariant controls the visual state of the step bar.
type StepProgressVariant string

const (
	// StepProgressActive is a timed step in flight (accent -> gold gradient).
	StepProgressActive StepProgressVariant = "active"
	// StepProgressIdle is a turtle with no step in flight (dim gray).
	StepProgressIdle StepProgressVariant = "idle"
)

// RenderStepProgress renders "Turtle N: [bar] step kind (#K)" for one turtle
// using bubbles/progress.
func RenderStepProgress(snapshot turtle.TurtleSnapshot, width int) string {
	if width <= 0 {
		width = defaultStepBarWidth
	}
	variant := StepProgressIdle
	if snapshot.Step != "" {
		variant = StepProgressActive
	}

	fraction := min(max(snapshot.Progress, 0), 1)
	bar := newStepProgressModel(width, variant).ViewAs(fraction)
	label := string(snapshot.Step)
	if variant == StepProgressIdle {
		label = "idle"
		bar = lipgloss.NewStyle().Faint(true).Render(bar)
	}

	return fmt.Sprintf("Turtle %d: [%s] %s (%d done)", snapshot.ID, bar, label, snapshot.Steps)
}

func newStepProgressModel(width int, variant StepProgressVariant) progress.Model {
	options := []progress.Option{
		progress.WithWidth(width),
		progress.WithoutPercentage(),
		progress.WithFillCharacters('#', '.'),
	}
	if variant == StepProgressIdle {
		options = append(options, progress.WithSolidFill(theme.Gray))
	} else {
		options = append(options, progress.WithScaledGradient(theme.Accent, theme.Gold))
	}
	return progress.New(options...)
}
