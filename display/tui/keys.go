package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all key bindings for the TUI application.
type keyMap struct {
	Quit    key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Tab1    key.Binding
	Tab2    key.Binding
	Tab3    key.Binding
	Up      key.Binding
	Down    key.Binding
	Refresh key.Binding
	Restart key.Binding
	Help    key.Binding
}

// ShortHelp returns the compact set of keybindings shown by default in the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.NextTab, k.Refresh, k.Quit}
}

// FullHelp returns the expanded keybinding groups shown when help is toggled.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextTab, k.PrevTab, k.Tab1, k.Tab2, k.Tab3},
		{k.Up, k.Down, k.Restart},
		{k.Refresh, k.Help, k.Quit},
	}
}

// keys holds the default key bindings used by the application.
var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	NextTab: key.NewBinding(key.WithKeys("tab", "right"), key.WithHelp("tab", "next tab")),
	PrevTab: key.NewBinding(key.WithKeys("shift+tab", "left"), key.WithHelp("shift+tab", "prev tab")),
	Tab1:    key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "overview")),
	Tab2:    key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "processes")),
	Tab3:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "activity")),
	Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "select up")),
	Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/dn", "select down")),
	Refresh: key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "force refresh")),
	Restart: key.NewBinding(key.WithKeys("s", "enter"), key.WithHelp("s", "restart selected")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}
