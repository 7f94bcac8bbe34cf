package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the application-level key bindings. List navigation lives
// in components.ListKeyMap.
type KeyMap struct {
	Quit        key.Binding
	Help        key.Binding
	Escape      key.Binding
	Orientation key.Binding
	Retry       key.Binding
	Reset       key.Binding
	Search      key.Binding
	NextMatch   key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		Orientation: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "toggle layout"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		Reset: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reset list"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		NextMatch: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next match"),
		),
	}
}

// Keys is the global key map instance
var Keys = DefaultKeyMap()
