package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpPage lists the key bindings.
type HelpPage struct {
	keys KeyMap
}

// NewHelpPage creates the help page for keys.
func NewHelpPage(keys KeyMap) *HelpPage {
	return &HelpPage{keys: keys}
}

func (p *HelpPage) ID() string    { return helpPageID }
func (p *HelpPage) Init() tea.Cmd { return nil }

func (p *HelpPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil, nil
	}
	switch {
	case key.Matches(km, p.keys.ForceQuit), key.Matches(km, p.keys.Quit):
		return tea.Quit, nil
	case key.Matches(km, p.keys.Escape), key.Matches(km, p.keys.Help):
		return nil, &PageNav{PageID: dashboardPageID}
	}
	return nil, nil
}

func (p *HelpPage) View(width, height int) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBlue)
	keyStyle := lipgloss.NewStyle().Foreground(ColorWhite).Bold(true).Width(12)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Cardwall keys") + "\n")
	for _, sec := range p.keys.helpSections() {
		b.WriteString("\n" + titleStyle.Render(sec.Title) + "\n")
		for _, binding := range sec.Bindings {
			h := binding.Help()
			b.WriteString(keyStyle.Render(h.Key) + helpStyle.Render(h.Desc) + "\n")
		}
	}
	b.WriteString("\n" + helpStyle.Render("esc or ? to return"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBlue).
		Padding(1, 2).
		Render(b.String())

	if width == 0 || height == 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
