package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/studentcode/sandbox/internal/console"
	"github.com/studentcode/sandbox/internal/tui/theme"
)

const toolbarSeparator = "  "

// ToolbarButton is a single keyboard-accessible run control.
type ToolbarButton struct {
	Key     string
	Label   string
	Action  tea.Cmd
	Enabled bool
}

// RunActions are the commands bound to the run controls.
type RunActions struct {
	Run   tea.Cmd
	Stop  tea.Cmd
	Clear tea.Cmd
}

// RunControls builds the Run, Stop and Clear buttons for a console state.
// Run and Clear are disabled while running, Stop only works while running,
// and Clear additionally honors the backend's DisableClear.
func RunControls(state console.RunState, disableClear bool, actions RunActions) []ToolbarButton {
	running := state == console.StateRunning
	return []ToolbarButton{
		{Key: "r", Label: "Run", Action: actions.Run, Enabled: !running},
		{Key: "s", Label: "Stop", Action: actions.Stop, Enabled: running},
		{Key: "c", Label: "Clear", Action: actions.Clear, Enabled: !running && !disableClear},
	}
}

// RenderToolbar renders `[key] Label` buttons separated by two spaces.
func RenderToolbar(buttons []ToolbarButton, highlighted int) string {
	if len(buttons) == 0 {
		return ""
	}

	parts := make([]string, 0, len(buttons))
	for i, button := range buttons {
		parts = append(parts, renderToolbarButton(button, i == highlighted))
	}
	return strings.Join(parts, toolbarSeparator)
}

// NextToolbarIndex returns the next enabled button index, wrapping around.
func NextToolbarIndex(buttons []ToolbarButton, current int) int {
	return walkToolbar(buttons, current, 1)
}

// PreviousToolbarIndex returns the previous enabled button index, wrapping around.
func PreviousToolbarIndex(buttons []ToolbarButton, current int) int {
	return walkToolbar(buttons, current, -1)
}

// ActivateHighlighted returns the highlighted button's command when enabled.
func ActivateHighlighted(buttons []ToolbarButton, highlighted int) tea.Cmd {
	if highlighted < 0 || highlighted >= len(buttons) {
		return nil
	}
	button := buttons[highlighted]
	if !button.Enabled {
		return nil
	}
	return button.Action
}

// ActivateByKey returns the command of the first enabled button bound to key.
func ActivateByKey(buttons []ToolbarButton, key string) tea.Cmd {
	for _, button := range buttons {
		if strings.EqualFold(strings.TrimSpace(button.Key), strings.TrimSpace(key)) && button.Enabled {
			return button.Action
		}
	}
	return nil
}

func walkToolbar(buttons []ToolbarButton, current int, step int) int {
	if !hasEnabledButton(buttons) {
		return -1
	}

	index := current
	if index < 0 || index >= len(buttons) {
		index = 0
	}
	for attempt := 0; attempt < len(buttons); attempt++ {
		index = (index + step + len(buttons)) % len(buttons)
		if buttons[index].Enabled {
			return index
		}
	}
	return -1
}

func hasEnabledButton(buttons []ToolbarButton) bool {
	for _, button := range buttons {
		if button.Enabled {
			return true
		}
	}
	return false
}

func renderToolbarButton(button ToolbarButton, highlighted bool) string {
	keyStyle := lipgloss.NewStyle().Foreground(theme.AccentColor)
	labelStyle := lipgloss.NewStyle().Foreground(theme.TextColor)
	style := lipgloss.NewStyle()

	switch {
	case !button.Enabled:
		keyStyle = theme.MutedStyle
		labelStyle = theme.MutedStyle
	case highlighted:
		style = style.Background(theme.FocusColor).Bold(true)
	}

	return style.Render(keyStyle.Render("["+button.Key+"]") + " " + labelStyle.Render(button.Label))
}
