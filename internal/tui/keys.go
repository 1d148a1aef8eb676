package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the sandbox bindings; it satisfies help.KeyMap.
type keyMap struct {
	Run    key.Binding
	Stop   key.Binding
	Clear  key.Binding
	Submit key.Binding
	Blur   key.Binding
	Left   key.Binding
	Right  key.Binding
	Up     key.Binding
	Down   key.Binding
	Help   key.Binding
	Quit   key.Binding
	Abort  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Run:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "run")),
		Stop:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Clear:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit / press")),
		Blur:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "leave input")),
		Left:   key.NewBinding(key.WithKeys("left", "shift+tab"), key.WithHelp("←", "prev button")),
		Right:  key.NewBinding(key.WithKeys("right", "tab"), key.WithHelp("→", "next button")),
		Up:     key.NewBinding(key.WithKeys("up", "pgup", "k"), key.WithHelp("↑", "scroll up")),
		Down:   key.NewBinding(key.WithKeys("down", "pgdown", "j"), key.WithHelp("↓", "scroll down")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:   key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		Abort:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "stop and quit")),
	}
}

// ShortHelp satisfies help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.Stop, k.Clear, k.Help, k.Quit}
}

// FullHelp satisfies help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Run, k.Stop, k.Clear},
		{k.Submit, k.Blur, k.Left, k.Right},
		{k.Up, k.Down, k.Help, k.Quit, k.Abort},
	}
}
