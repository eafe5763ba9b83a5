package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// renderLoadingPlaceholder renders an animated loading indicator.
// The frame is selected based on the current time so it animates on re-render.
func renderLoadingPlaceholder(width, height int) string {
	frame := spinnerFrames[time.Now().UnixMilli()/120%int64(len(spinnerFrames))]

	loadingStyle := lipgloss.NewStyle().
		Foreground(ColorGray).
		Italic(true)

	text := loadingStyle.Render(frame + " Loading...")

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, text)
}

// SpinnerTickMsg triggers a re-render for loading spinners.
type SpinnerTickMsg struct{}

// anyLoading reports whether the first fetch or a refresh is still running.
func (m *DashboardModel) anyLoading() bool {
	return (m.fetchInFlight && !m.loaded) || len(m.refreshing) > 0
}

// startSpinnerIfNeeded schedules a spinner tick while anything is loading.
func (m *DashboardModel) startSpinnerIfNeeded() tea.Cmd {
	if m.anyLoading() {
		return tea.Tick(120*time.Millisecond, func(_ time.Time) tea.Msg {
			return SpinnerTickMsg{}
		})
	}
	return nil
}
