package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/studentcode/sandbox/internal/console"
	"github.com/studentcode/sandbox/internal/tui/theme"
)

// BadgeOpt configures optional rendering behavior for the run badge.
type BadgeOpt func(*badgeOptions)

type badgeOptions struct {
	showIcon bool
	bold     bool
	spinner  string
}

// WithBadgeIcon controls whether the icon is shown (default: true).
func WithBadgeIcon(show bool) BadgeOpt {
	return func(options *badgeOptions) {
		options.showIcon = show
	}
}

// WithBadgeBold controls whether the badge text is bold (default: false).
func WithBadgeBold(bold bool) BadgeOpt {
	return func(options *badgeOptions) {
		options.bold = bold
	}
}

// WithBadgeSpinner replaces the running icon with the current spinner frame.
func WithBadgeSpinner(frame string) BadgeOpt {
	return func(options *badgeOptions) {
		options.spinner = strings.TrimSpace(frame)
	}
}

// RenderRunBadge renders `[icon] Label duration` in the state's color, for
// example "✓ Success in 1.50s". An idle session with no run shows just "Idle".
func RenderRunBadge(state console.RunState, duration string, opts ...BadgeOpt) string {
	options := badgeOptions{
		showIcon: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	content := state.Label() + strings.TrimSpace(duration)
	if strings.TrimSpace(duration) == "" {
		content = strings.TrimSpace(state.Label())
		if state == console.StateIdle || state == "" {
			content = "Idle"
		}
	}
	if options.showIcon {
		icon := state.Icon()
		if state == console.StateRunning && options.spinner != "" {
			icon = options.spinner
		}
		content = icon + " " + content
	}

	return lipgloss.NewStyle().
		Foreground(theme.StateColor(state)).
		Bold(options.bold).
		Render(content)
}
