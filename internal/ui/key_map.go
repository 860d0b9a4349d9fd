package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	start   key.Binding
	remove  key.Binding
	archive key.Binding
	history key.Binding
	refresh key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		start:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
		remove:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
		archive: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "archive")),
		history: key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "history")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.start, k.remove, k.archive, k.history, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down},
		{k.start, k.remove, k.archive},
		{k.history, k.refresh, k.quit},
	}
}
