// Package theme holds the sandbox palette and the semantic styles built on it.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/studentcode/sandbox/internal/console"
)

const (
	// Accent is the primary accent used for keys and the running state.
	Accent = "#FF9966"
	// Gold is the gradient end of the step progress bar.
	Gold = "#FFAA00"
	// Blue is the informational blue.
	Blue = "#9999CC"
	// Red is the failure red.
	Red = "#FF3333"
	// Yellow is the cancellation yellow.
	Yellow = "#FFCC00"
	// Green is the success green.
	Green = "#33FF33"
	// Gray is the muted neutral for idle and disabled elements.
	Gray = "#52526A"
	// Text is the primary text color.
	Text = "#F5F6FA"
	// Subtle is the secondary text color.
	Subtle = "#CCCCCC"
	// Focus is the focus ring color.
	Focus = "#9966FF"
	// Canvas is the scene background tint used for empty cells.
	Canvas = "#1B4F8F"
)

var (
	AccentColor = profileColor(Accent, "209", "11")
	BlueColor   = profileColor(Blue, "146", "12")
	RedColor    = profileColor(Red, "203", "9")
	YellowColor = profileColor(Yellow, "220", "11")
	GreenColor  = profileColor(Green, "46", "10")
	GrayColor   = profileColor(Gray, "60", "8")
	TextColor   = profileColor(Text, "255", "15")
	SubtleColor = profileColor(Subtle, "252", "7")
	FocusColor  = profileColor(Focus, "99", "5")
	CanvasColor = profileColor(Canvas, "25", "4")
)

var (
	// ActiveStyle marks the running state and highlighted keys.
	ActiveStyle = lipgloss.NewStyle().Foreground(AccentColor).Bold(true)
	// SuccessStyle marks a successful run.
	SuccessStyle = lipgloss.NewStyle().Foreground(GreenColor).Bold(true)
	// ErrorStyle marks a failed run and error text.
	ErrorStyle = lipgloss.NewStyle().Foreground(RedColor).Bold(true)
	// WarningStyle marks a cancelled run.
	WarningStyle = lipgloss.NewStyle().Foreground(YellowColor).Bold(true)
	// MutedStyle marks idle and disabled elements.
	MutedStyle = lipgloss.NewStyle().Foreground(GrayColor)
	// FocusStyle marks the focused control.
	FocusStyle = lipgloss.NewStyle().Foreground(FocusColor).Bold(true)
)

var (
	PanelBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(GrayColor)

	PanelBorderFocused = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(FocusColor).
				Bold(true)

	PanelTitleStyle        = lipgloss.NewStyle().Foreground(SubtleColor)
	PanelTitleFocusedStyle = lipgloss.NewStyle().Foreground(FocusColor).Bold(true)
)

// StateColor is the badge color for a run state: gray while idle or running,
// then green, yellow or red by outcome.
func StateColor(state console.RunState) lipgloss.TerminalColor {
	switch state {
	case console.StateSuccess:
		return GreenColor
	case console.StateCancelled:
		return YellowColor
	case console.StateFailed:
		return RedColor
	default:
		return GrayColor
	}
}

// SpanColor resolves a program-supplied color. Empty means the default
// foreground; anything else is passed to lipgloss, which degrades it to the
// terminal's profile.
func SpanColor(color string) lipgloss.TerminalColor {
	trimmed := strings.TrimSpace(color)
	if trimmed == "" {
		return TextColor
	}
	return lipgloss.Color(trimmed)
}

var colorProfileFn = lipgloss.ColorProfile

func profileColor(hex string, ansi256 string, ansi string) lipgloss.TerminalColor {
	switch colorProfileFn() {
	case termenv.ANSI256, termenv.ANSI:
		return lipgloss.CompleteAdaptiveColor{
			Light: lipgloss.CompleteColor{TrueColor: hex, ANSI256: ansi256, ANSI: ansi},
			Dark:  lipgloss.CompleteColor{TrueColor: hex, ANSI256: ansi256, ANSI: ansi},
		}
	default:
		return lipgloss.AdaptiveColor{Light: hex, Dark: hex}
	}
}
