package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/studentcode/sandbox/internal/console"
	"github.com/studentcode/sandbox/internal/tui/theme"
)

const (
	transcriptMinWidth  = 24
	transcriptMinHeight = 2
	transcriptPrompt    = "> "
)

// TranscriptConfig contains render-time settings for the transcript panel.
type TranscriptConfig struct {
	Width  int
	Height int
	Lines  []console.Line
	// InputView replaces the pending-input placeholder, typically the view of
	// the focused text input.
	InputView  string
	AutoScroll bool
	Empty      string
}

// TranscriptContent renders every line, one per row. Output lines keep their
// span colors; the input placeholder shows InputView after a prompt marker.
func TranscriptContent(config TranscriptConfig) string {
	if len(config.Lines) == 0 {
		empty := strings.TrimSpace(config.Empty)
		if empty == "" {
			empty = "No output yet"
		}
		return theme.MutedStyle.Faint(true).Render(empty)
	}

	rows := make([]string, 0, len(config.Lines))
	for _, line := range config.Lines {
		rows = append(rows, renderLine(line, config.InputView))
	}
	return strings.Join(rows, "\n")
}

// BuildTranscriptViewport constructs a viewport holding the transcript.
func BuildTranscriptViewport(config TranscriptConfig) viewport.Model {
	model := viewport.New(max(config.Width, transcriptMinWidth), max(config.Height, transcriptMinHeight))
	model.SetContent(TranscriptContent(config))
	if config.AutoScroll {
		model.GotoBottom()
	}
	return model
}

// RenderStyledText draws each span in its own color.
func RenderStyledText(text console.StyledText) string {
	var b strings.Builder
	for _, span := range text {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.SpanColor(span.Color)).Render(span.Text))
	}
	return b.String()
}

func renderLine(line console.Line, inputView string) string {
	if line.Kind == console.LineInput {
		return theme.FocusStyle.Render(transcriptPrompt) + inputView
	}
	return RenderStyledText(line.Text)
}
