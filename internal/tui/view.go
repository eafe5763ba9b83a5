package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderBranding renders "Cardwall" with a green to light blue gradient.
func renderBranding() string {
	colors := []string{
		"#49E209", "#3FDF1C", "#35DD2F", "#21D955",
		"#0DD47B", "#00D0A1", "#00CDB4", "#00CAC7",
	}
	var b strings.Builder
	for i, ch := range "Cardwall" {
		style := lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(lipgloss.Color(colors[i%len(colors)])).Bold(true)
		b.WriteString(style.Render(string(ch)))
	}
	return b.String()
}

func (m *DashboardModel) renderHeader() string {
	left := statusBar.Render(" ") + renderBranding()

	var info []string
	if m.dataSource != "" {
		info = append(info, m.dataSource)
	}
	info = append(info, fmt.Sprintf("%d cards", len(m.cards)))
	if m.paused {
		info = append(info, "⏸ paused")
	} else {
		info = append(info, "poll "+m.pollInterval.String())
	}
	right := statusBar.Render(" " + strings.Join(info, " · ") + " ")

	gap := max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + statusBar.Render(strings.Repeat(" ", gap)) + right
}

// renderStatusLine shows the latest notice or error on the left and key
// hints on the right.
func (m *DashboardModel) renderStatusLine() string {
	var left string
	switch {
	case m.lastError != "":
		left = lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorRed).
			Render(" ⚠ " + m.lastError + " ")
	case m.notice != "":
		left = statusBar.Render(" " + m.notice + " ")
	}

	hints := "tab:select  r:refresh  R:all  x:remove  +/-:poll  ?:help  q:quit"
	if m.width < 80 {
		hints = "r R x ? q"
	}
	right := statusBar.Foreground(ColorGray).Render(" " + hints + " ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		return lipgloss.NewStyle().MaxWidth(m.width).Render(left + right)
	}
	return left + statusBar.Render(strings.Repeat(" ", gap)) + right
}

// gridHeight leaves one line each for the header and the status line.
func (m *DashboardModel) gridHeight() int {
	return max(5, m.height-2)
}

// View renders the header, the card grid and the status line.
func (m *DashboardModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderCardsGrid(m.width, m.gridHeight()),
		m.renderStatusLine(),
	)
}
