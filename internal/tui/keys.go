package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all dashboard key bindings with built-in help text.
type KeyMap struct {
	// Global
	Quit      key.Binding
	ForceQuit key.Binding
	Help      key.Binding
	Escape    key.Binding

	// Navigation
	NextCard key.Binding
	PrevCard key.Binding
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding

	// Actions
	Refresh      key.Binding
	RefreshAll   key.Binding
	Remove       key.Binding
	IntervalUp   key.Binding
	IntervalDown key.Binding
	Pause        key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?", "h"),
			key.WithHelp("?/h", "help"),
		),
		Escape: key.NewBinding(
			key.WithKeys("escape", "esc"),
			key.WithHelp("esc", "close"),
		),

		NextCard: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next card"),
		),
		PrevCard: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev card"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "card above"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "card below"),
		),
		Left: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "card left"),
		),
		Right: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "card right"),
		),

		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh card"),
		),
		RefreshAll: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "refresh all"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "remove card"),
		),
		IntervalUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "faster polling"),
		),
		IntervalDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "slower polling"),
		),
		Pause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "pause/resume polling"),
		),
	}
}

// helpSections groups bindings for the help page.
func (k KeyMap) helpSections() []helpSection {
	return []helpSection{
		{Title: "Navigation", Bindings: []key.Binding{k.NextCard, k.PrevCard, k.Up, k.Down, k.Left, k.Right}},
		{Title: "Cards", Bindings: []key.Binding{k.Refresh, k.RefreshAll, k.Remove}},
		{Title: "Polling", Bindings: []key.Binding{k.IntervalUp, k.IntervalDown, k.Pause}},
		{Title: "General", Bindings: []key.Binding{k.Help, k.Escape, k.Quit, k.ForceQuit}},
	}
}

type helpSection struct {
	Title    string
	Bindings []key.Binding
}
