package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	TogglePlay key.Binding
	Stop       key.Binding
	Next       key.Binding
	Prev       key.Binding
	SeekFwd    key.Binding
	SeekBack   key.Binding
	VolumeUp   key.Binding
	VolumeDown key.Binding
	Shuffle    key.Binding
	Repeat     key.Binding
	Up         key.Binding
	Down       key.Binding
	Play       key.Binding
	Remove     key.Binding
	Clear      key.Binding
	Search     key.Binding
	Reconnect  key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		TogglePlay: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Stop:       key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		Next:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		Prev:       key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		SeekFwd:    key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "seek +10s")),
		SeekBack:   key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "seek -10s")),
		VolumeUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		VolumeDown: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		Shuffle:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		Repeat:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat")),
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Play:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play selected")),
		Remove:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "remove")),
		Clear:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear queue")),
		Search:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Reconnect:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reconnect")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}
