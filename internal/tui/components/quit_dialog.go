package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/studentcode/sandbox/internal/tui/theme"
)

const (
	quitDialogDefaultWidth  = 80
	quitDialogDefaultHeight = 24
	quitDialogWidthPct      = 0.6
	quitDialogMinimumWidth  = 40
)

// DialogAction is a keyboard intent inside the quit dialog.
type DialogAction string

const (
	DialogActionNone          DialogAction = ""
	DialogActionSelectConfirm DialogAction = "select_confirm"
	DialogActionSelectCancel  DialogAction = "select_cancel"
	DialogActionSubmit        DialogAction = "submit"
	DialogActionDismiss       DialogAction = "dismiss"
)

// QuitDialogConfig is the render payload of the quit confirmation shown when
// the user quits while a run is in flight.
type QuitDialogConfig struct {
	Width           int
	Height          int
	Program         string
	ConfirmSelected bool
}

// DialogActionForKey maps a key press to a dialog intent.
func DialogActionForKey(msg tea.KeyMsg) DialogAction {
	switch strings.ToLower(strings.TrimSpace(msg.String())) {
	case "left", "h", "y":
		return DialogActionSelectConfirm
	case "right", "l", "n":
		return DialogActionSelectCancel
	case "enter":
		return DialogActionSubmit
	case "esc":
		return DialogActionDismiss
	default:
		return DialogActionNone
	}
}

// ToggleDialogSelection applies directional selection changes.
func ToggleDialogSelection(current bool, action DialogAction) bool {
	switch action {
	case DialogActionSelectConfirm:
		return true
	case DialogActionSelectCancel:
		return false
	default:
		return current
	}
}

// ResolveDialogDecision reports whether the dialog closed and whether the
// user confirmed.
func ResolveDialogDecision(selectedConfirm bool, action DialogAction) (finished bool, confirmed bool) {
	switch action {
	case DialogActionDismiss:
		return true, false
	case DialogActionSubmit:
		return true, selectedConfirm
	default:
		return false, false
	}
}

// RenderQuitDialog renders a centered modal asking whether to stop the run and quit.
func RenderQuitDialog(config QuitDialogConfig) string {
	width := config.Width
	if width <= 0 {
		width = quitDialogDefaultWidth
	}
	height := config.Height
	if height <= 0 {
		height = quitDialogDefaultHeight
	}
	modalWidth := min(max(int(float64(width)*quitDialogWidthPct), quitDialogMinimumWidth), width)
	inner := max(20, modalWidth-6)

	program := strings.TrimSpace(config.Program)
	if program == "" {
		program = "The program"
	}

	value := config.ConfirmSelected
	confirmField := huh.NewConfirm().
		Title("Stop and quit?").
		Affirmative("Quit").
		Negative("Keep running").
		Value(&value)
	_ = confirmField.Init()
	confirmView := strings.TrimSpace(confirmField.View())
	if confirmView == "" {
		confirmView = renderDialogButtons(config.ConfirmSelected)
	}

	body := lipgloss.JoinVertical(
		lipgloss.Left,
		theme.ErrorStyle.Align(lipgloss.Center).Width(inner).Render("[!] QUIT WHILE RUNNING?"),
		lipgloss.NewStyle().Foreground(theme.TextColor).Align(lipgloss.Center).Width(inner).Render(program+" is still running and will be stopped."),
		confirmView,
		theme.MutedStyle.Faint(true).Align(lipgloss.Center).Width(inner).Render("Left/Right to select  Enter confirm  Esc cancel"),
	)

	modal := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(theme.RedColor).
		Padding(1, 2).
		Width(modalWidth).
		Render(body)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal,
		lipgloss.WithWhitespaceChars("┄"),
		lipgloss.WithWhitespaceForeground(theme.GrayColor),
	)
}

func renderDialogButtons(confirmSelected bool) string {
	confirmStyle := lipgloss.NewStyle().Foreground(theme.SubtleColor).Padding(0, 1)
	cancelStyle := confirmStyle
	if confirmSelected {
		confirmStyle = lipgloss.NewStyle().Background(theme.RedColor).Foreground(theme.TextColor).Bold(true).Padding(0, 1)
	} else {
		cancelStyle = lipgloss.NewStyle().Background(theme.GrayColor).Foreground(theme.TextColor).Bold(true).Padding(0, 1)
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, confirmStyle.Render("Quit"), "  ", cancelStyle.Render("Keep running"))
}
