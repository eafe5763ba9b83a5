package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorNavy  = lipgloss.Color("#1B2A41")
	ColorBlue  = lipgloss.Color("#00CAC7")
	ColorWhite = lipgloss.Color("#F5F5F5")
	ColorGray  = lipgloss.Color("245")
	ColorRed   = lipgloss.Color("#FF6666")
	ColorAmber = lipgloss.Color("#FFAA00")
	ColorGreen = lipgloss.Color("#44FF44")
)

var (
	helpStyle     = lipgloss.NewStyle().Foreground(ColorGray)
	subtitleStyle = lipgloss.NewStyle().Foreground(ColorGray).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(ColorRed)
	statusBar     = lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorWhite)
)
