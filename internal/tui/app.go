// Package tui is the terminal presentation of a console session: the
// transcript, the input field, the run controls and, for the graphics
// backend, the turtle canvas.
package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/studentcode/sandbox/internal/console"
	"github.com/studentcode/sandbox/internal/events"
	"github.com/studentcode/sandbox/internal/tui/components"
	"github.com/studentcode/sandbox/internal/tui/theme"
	"github.com/studentcode/sandbox/internal/turtle"
)

const (
	// StandardLayoutMinWidth is the terminal width threshold for side-by-side panels.
	StandardLayoutMinWidth = 100
	// DefaultTickInterval refreshes the duration label.
	DefaultTickInterval = 10 * time.Millisecond
	// DefaultFrameInterval refreshes the turtle scene.
	DefaultFrameInterval = time.Second / turtle.DefaultFrameRate

	stepBarWidth  = 20
	eventBacklog  = 16
	chromeHeight  = 6
	minPanelWidth = 24
)

// LayoutMode identifies the responsive layout.
type LayoutMode string

const (
	// LayoutStandard renders canvas and transcript side by side.
	LayoutStandard LayoutMode = "standard"
	// LayoutCompact stacks canvas above transcript.
	LayoutCompact LayoutMode = "compact"
)

// Options configures the model.
type Options struct {
	Title         string
	Program       string
	TickInterval  time.Duration
	FrameInterval time.Duration
	Clock         console.Clock
	Bus           events.Bus
	Logger        *log.Logger
}

type tickMsg time.Time

type frameMsg time.Time

// inputRequestedMsg mirrors an InputRequested bus event.
type inputRequestedMsg struct {
	prompt string
}

// runActionMsg is produced by the toolbar buttons.
type runActionMsg string

const (
	actionRun   runActionMsg = "run"
	actionStop  runActionMsg = "stop"
	actionClear runActionMsg = "clear"
)

// AppModel is the root Bubble Tea model. It observes the console through
// Tick and Frame and forwards user intents to it; it never changes run state
// on its own.
type AppModel struct {
	console  console.Interactive
	graphics *turtle.Console
	options  Options
	clock    console.Clock
	logger   *log.Logger

	keys       keyMap
	help       help.Model
	input      textinput.Model
	transcript viewport.Model
	spinner    spinner.Model

	busEvents   chan tea.Msg
	unsubscribe func()
	highlight   int
	width       int
	height      int
	layoutMode  LayoutMode
	quitPrompt  bool
	quitChoice  bool
	quitting    bool
	notice      string
}

// NewAppModel builds the model for a console. When backend is a
// *turtle.Console the canvas and step bars are shown.
func NewAppModel(backend console.Interactive, options Options) *AppModel {
	if options.TickInterval <= 0 {
		options.TickInterval = DefaultTickInterval
	}
	if options.FrameInterval <= 0 {
		options.FrameInterval = DefaultFrameInterval
	}
	if options.Clock == nil {
		options.Clock = console.SystemClock{}
	}
	if options.Logger == nil {
		options.Logger = log.New(io.Discard)
	}
	if strings.TrimSpace(options.Title) == "" {
		options.Title = "Student Code Sandbox"
	}

	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 256

	model := &AppModel{
		console:    backend,
		options:    options,
		clock:      options.Clock,
		logger:     options.Logger,
		keys:       defaultKeyMap(),
		help:       help.New(),
		input:      input,
		transcript: viewport.New(minPanelWidth, 10),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(theme.ActiveStyle)),
		layoutMode: LayoutStandard,
	}
	if graphics, ok := backend.(*turtle.Console); ok {
		model.graphics = graphics
	}
	if options.Bus != nil {
		model.busEvents = make(chan tea.Msg, eventBacklog)
		model.unsubscribe = options.Bus.Subscribe(events.EventTypeInputRequested, model.forwardInputRequest)
	}
	model.refreshTranscript()
	return model
}

// forwardInputRequest runs on the bus goroutine. A full backlog drops the
// event; the next tick still notices the pending read.
func (m *AppModel) forwardInputRequest(event events.Event) {
	prompt, _ := event.Payload.(string)
	select {
	case m.busEvents <- inputRequestedMsg{prompt: prompt}:
	default:
	}
}

// Init satisfies tea.Model.
func (m *AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tick(), m.spinner.Tick, m.listen()}
	if m.graphics != nil {
		cmds = append(cmds, m.frame())
	}
	return tea.Batch(cmds...)
}

func (m *AppModel) tick() tea.Cmd {
	return tea.Tick(m.options.TickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *AppModel) frame() tea.Cmd {
	return tea.Tick(m.options.FrameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m *AppModel) listen() tea.Cmd {
	if m.busEvents == nil {
		return nil
	}
	return func() tea.Msg {
		return <-m.busEvents
	}
}

// Update satisfies tea.Model.
func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(typed.Width, typed.Height)
		return m, nil
	case tickMsg:
		m.console.Tick(m.clock.Now())
		m.syncInput()
		m.settleHighlight()
		m.refreshTranscript()
		return m, m.tick()
	case frameMsg:
		if m.graphics != nil {
			m.graphics.Frame(m.clock.Now())
		}
		return m, m.frame()
	case inputRequestedMsg:
		cmd := m.focusInput()
		m.refreshTranscript()
		return m, tea.Batch(cmd, m.listen())
	case runActionMsg:
		m.perform(typed)
		m.refreshTranscript()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(typed)
	default:
		return m, nil
	}
}

func (m *AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Abort) {
		return m.quit()
	}
	if m.quitPrompt {
		return m.handleQuitPrompt(msg)
	}
	if m.input.Focused() {
		return m.handleInputKey(msg)
	}

	buttons := m.buttons()
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.console.State() == console.StateRunning {
			m.quitPrompt = true
			m.quitChoice = false
			return m, nil
		}
		return m.quit()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Left):
		m.highlight = components.PreviousToolbarIndex(buttons, m.highlight)
		return m, nil
	case key.Matches(msg, m.keys.Right):
		m.highlight = components.NextToolbarIndex(buttons, m.highlight)
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		if _, pending := m.console.AwaitingInput(); pending {
			return m, m.focusInput()
		}
		return m, components.ActivateHighlighted(buttons, m.highlight)
	case key.Matches(msg, m.keys.Up, m.keys.Down):
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	}
	return m, components.ActivateByKey(buttons, msg.String())
}

func (m *AppModel) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		m.console.SetDraft(m.input.Value())
		if !m.console.Submit() {
			m.logger.Debug("submit ignored without a pending read")
		}
		m.input.Blur()
		m.input.Reset()
		m.refreshTranscript()
		return m, nil
	case key.Matches(msg, m.keys.Blur):
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.console.SetDraft(m.input.Value())
	m.refreshTranscript()
	return m, cmd
}

func (m *AppModel) handleQuitPrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action := components.DialogActionForKey(msg)
	m.quitChoice = components.ToggleDialogSelection(m.quitChoice, action)
	finished, confirmed := components.ResolveDialogDecision(m.quitChoice, action)
	if !finished {
		return m, nil
	}
	m.quitPrompt = false
	if confirmed {
		return m.quit()
	}
	return m, nil
}

func (m *AppModel) quit() (tea.Model, tea.Cmd) {
	m.console.Stop()
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.quitting = true
	m.quitPrompt = false
	return m, tea.Quit
}

// perform forwards a toolbar intent. Run restarts from a clean slate.
func (m *AppModel) perform(action runActionMsg) {
	m.notice = ""
	var err error
	switch action {
	case actionRun:
		if clearErr := m.console.Clear(); clearErr != nil && !errors.Is(clearErr, console.ErrRunning) {
			err = clearErr
			break
		}
		m.input.Reset()
		err = m.console.Start()
	case actionStop:
		m.console.Stop()
		m.input.Blur()
	case actionClear:
		err = m.console.Clear()
		m.input.Reset()
	}
	if err != nil {
		m.notice = err.Error()
		m.logger.Warn("run control rejected", "action", string(action), "error", err)
	}
	m.settleHighlight()
}

// settleHighlight moves the highlight to the first enabled button when the
// current one became disabled.
func (m *AppModel) settleHighlight() {
	buttons := m.buttons()
	if m.highlight >= 0 && m.highlight < len(buttons) && buttons[m.highlight].Enabled {
		return
	}
	for i, button := range buttons {
		if button.Enabled {
			m.highlight = i
			return
		}
	}
	m.highlight = -1
}

func (m *AppModel) buttons() []components.ToolbarButton {
	return components.RunControls(m.console.State(), m.console.DisableClear(), components.RunActions{
		Run:   actionCmd(actionRun),
		Stop:  actionCmd(actionStop),
		Clear: actionCmd(actionClear),
	})
}

func actionCmd(action runActionMsg) tea.Cmd {
	return func() tea.Msg { return action }
}

// focusInput focuses the text field on the pending read, seeded with the
// console's draft.
func (m *AppModel) focusInput() tea.Cmd {
	if _, pending := m.console.AwaitingInput(); !pending {
		return nil
	}
	if m.input.Focused() {
		return nil
	}
	m.input.SetValue(m.console.Draft())
	m.input.CursorEnd()
	return m.input.Focus()
}

// syncInput drops focus once the read is gone, for example after Stop.
func (m *AppModel) syncInput() {
	if _, pending := m.console.AwaitingInput(); !pending && m.input.Focused() {
		m.input.Blur()
		m.input.Reset()
	}
}

func (m *AppModel) resize(width, height int) {
	m.width = width
	m.height = height
	m.layoutMode = resolveLayoutMode(width)
	m.help.Width = width
	m.refreshTranscript()
}

func (m *AppModel) refreshTranscript() {
	width, height := m.transcriptSize()
	follow := m.transcript.AtBottom()
	m.transcript.Width = width
	m.transcript.Height = height

	inputView := m.input.View()
	if !m.input.Focused() {
		inputView = theme.MutedStyle.Render(m.console.Draft())
	}
	m.transcript.SetContent(components.TranscriptContent(components.TranscriptConfig{
		Lines:     m.console.Lines(),
		InputView: inputView,
		Empty:     "Press r to run " + m.programName(),
	}))
	if follow {
		m.transcript.GotoBottom()
	}
}

func (m *AppModel) transcriptSize() (int, int) {
	width := max(m.width-2, minPanelWidth)
	height := max(m.height-chromeHeight, 4)
	if m.graphics != nil {
		if m.layoutMode == LayoutStandard {
			width = max(m.width/2-2, minPanelWidth)
		} else {
			height = max(height/2, 4)
		}
	}
	return width, height
}

func (m *AppModel) programName() string {
	if name := strings.TrimSpace(m.options.Program); name != "" {
		return name
	}
	return "the program"
}

// View satisfies tea.Model.
func (m *AppModel) View() string {
	if m.quitting {
		return ""
	}
	if m.quitPrompt {
		return components.RenderQuitDialog(components.QuitDialogConfig{
			Width:           m.width,
			Height:          m.height,
			Program:         m.programName(),
			ConfirmSelected: m.quitChoice,
		})
	}

	sections := []string{m.renderHeader(), m.renderBody(), components.RenderToolbar(m.buttons(), m.highlight)}
	if status := m.renderStatus(); status != "" {
		sections = append(sections, status)
	}
	sections = append(sections, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *AppModel) renderHeader() string {
	state := m.console.State()
	var badgeOpts []components.BadgeOpt
	if state == console.StateRunning {
		badgeOpts = append(badgeOpts, components.WithBadgeSpinner(m.spinner.View()))
	}
	title := theme.ActiveStyle.Render(m.options.Title)
	if m.options.Program != "" {
		title += theme.MutedStyle.Render(" · " + m.options.Program)
	}
	return title + "  " + components.RenderRunBadge(state, m.console.DurationString(), badgeOpts...)
}

func (m *AppModel) renderBody() string {
	transcript := m.panel("Output", m.transcript.View(), m.input.Focused())
	if m.graphics == nil {
		return transcript
	}

	width, height := m.transcriptSize()
	snapshot := m.graphics.Scene().Snapshot(m.clock.Now())
	lines := []string{components.RenderCanvas(components.CanvasConfig{
		Columns:  width,
		Rows:     max(height-len(snapshot.Turtles), 4),
		Snapshot: snapshot,
	})}
	for _, turtleSnapshot := range snapshot.Turtles {
		lines = append(lines, components.RenderStepProgress(turtleSnapshot, stepBarWidth))
	}
	canvas := m.panel("Canvas", strings.Join(lines, "\n"), false)

	if m.layoutMode == LayoutStandard {
		return lipgloss.JoinHorizontal(lipgloss.Top, canvas, transcript)
	}
	return lipgloss.JoinVertical(lipgloss.Left, canvas, transcript)
}

func (m *AppModel) panel(title, body string, focused bool) string {
	border := theme.PanelBorder
	titleStyle := theme.PanelTitleStyle
	if focused {
		border = theme.PanelBorderFocused
		titleStyle = theme.PanelTitleFocusedStyle
	}
	return border.Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), body))
}

func (m *AppModel) renderStatus() string {
	if m.notice != "" {
		return theme.WarningStyle.Render(m.notice)
	}
	if m.console.State() == console.StateFailed {
		if err := m.console.Err(); err != nil {
			return theme.ErrorStyle.Render(fmt.Sprintf("✗ %v", err))
		}
	}
	if prompt, pending := m.console.AwaitingInput(); pending && !m.input.Focused() {
		return theme.FocusStyle.Render(fmt.Sprintf("waiting for input (%s), press enter to type", strings.TrimSpace(prompt)))
	}
	return ""
}

// LayoutMode reports the active responsive layout mode.
func (m *AppModel) LayoutMode() LayoutMode {
	return m.layoutMode
}

// Dimensions reports current terminal width and height.
func (m *AppModel) Dimensions() (int, int) {
	return m.width, m.height
}

// Quitting reports whether the model asked the program to exit.
func (m *AppModel) Quitting() bool {
	return m.quitting
}

// InputFocused reports whether keystrokes go to the input field.
func (m *AppModel) InputFocused() bool {
	return m.input.Focused()
}

func resolveLayoutMode(width int) LayoutMode {
	if width < StandardLayoutMinWidth {
		return LayoutCompact
	}
	return LayoutStandard
}
