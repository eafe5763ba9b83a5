package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/cardwall/internal/model"
)

// columnCount is two once there is more than one card.
func (m *DashboardModel) columnCount() int {
	if len(m.cards) <= 1 {
		return 1
	}
	return 2
}

func (m *DashboardModel) rowCount() int {
	cols := m.columnCount()
	return (len(m.cards) + cols - 1) / cols
}

// rowHeightsFor splits height evenly across grid rows.
func (m *DashboardModel) rowHeightsFor(height int) []int {
	rows := m.rowCount()
	if rows == 0 {
		return nil
	}

	perRow := height / rows
	if perRow < 5 {
		perRow = 5
	}

	heights := make([]int, rows)
	for i := range heights {
		heights[i] = perRow
	}
	// Give the last row any remaining lines.
	heights[rows-1] = max(5, height-perRow*(rows-1))
	return heights
}

// cardAt maps a grid coordinate to a card index.
func (m *DashboardModel) cardAt(width, height, x, y int) (int, bool) {
	if len(m.cards) == 0 || x < 0 || y < 0 {
		return 0, false
	}

	cols := m.columnCount()
	col := 0
	if cols > 1 {
		stride := (width + 1) / cols
		col = min(x/stride, cols-1)
	}

	rowY := 0
	for row, h := range m.rowHeightsFor(height) {
		if y < rowY+h {
			idx := row*cols + col
			if idx >= len(m.cards) {
				return 0, false
			}
			return idx, true
		}
		rowY += h
	}
	return 0, false
}

// cardTitleWithBadges appends running/error badges to a card title.
func cardTitleWithBadges(title string, running bool, status model.CardStatus) string {
	if running {
		title += " ⟳"
	}
	if status.LastError != "" {
		title += " ⚠"
	}
	return title
}

// renderCardsGrid renders a two-column card grid (single-column when only one card).
func (m *DashboardModel) renderCardsGrid(width int, height int) string {
	if width < 20 {
		return "Terminal too narrow"
	}

	if len(m.cards) == 0 {
		if !m.loaded {
			return renderLoadingPlaceholder(width, height)
		}
		return helpStyle.Render("No cards registered")
	}

	cols := m.columnCount()
	rowHeights := m.rowHeightsFor(height)

	// Each card adds 2 chars for borders (left+right) on top of its Width.
	// Account for this so the total rendered row fits within the available width.
	borderWidth := 2
	cardWidth := width - borderWidth
	if cols > 1 {
		colGap := 1
		cardWidth = (width - colGap - cols*borderWidth) / cols
		if cardWidth < 20 {
			cardWidth = 20
		}
	}

	blankCard := func(h int) string {
		return lipgloss.NewStyle().
			Width(cardWidth).
			Height(h).
			Render("")
	}

	renderedRows := make([]string, 0, len(rowHeights))
	for row, h := range rowHeights {
		rowCards := make([]string, 0, cols)
		for col := 0; col < cols; col++ {
			idx := row*cols + col
			if idx >= len(m.cards) {
				if cols > 1 {
					rowCards = append(rowCards, blankCard(h))
				}
				continue
			}
			rowCards = append(rowCards, m.renderCard(idx, cardWidth, h))
		}

		rowView := rowCards[0]
		if len(rowCards) > 1 {
			withGaps := make([]string, 0, len(rowCards)*2-1)
			for i, c := range rowCards {
				if i > 0 {
					withGaps = append(withGaps, " ")
				}
				withGaps = append(withGaps, c)
			}
			rowView = lipgloss.JoinHorizontal(lipgloss.Top, withGaps...)
		}
		renderedRows = append(renderedRows, rowView)
	}

	result := lipgloss.JoinVertical(lipgloss.Left, renderedRows...)

	constrainedStyle := lipgloss.NewStyle().
		Height(height).
		MaxHeight(height).
		Width(width)

	return constrainedStyle.Render(result)
}

// renderCard draws one bordered card: header, body and a status footer.
func (m *DashboardModel) renderCard(idx, width, height int) string {
	c := m.cards[idx]
	active := idx == m.activeIdx
	running := c.Status.InFlight > 0 || m.refreshing[c.ID] || m.refreshing[allCardsKey]

	borderColor := ColorGray
	if active {
		borderColor = ColorBlue
	}

	title := c.Title
	subtitle := ""
	body := ""
	if c.Pane != nil {
		if c.Pane.Title != "" {
			title = c.Pane.Title
		}
		subtitle = c.Pane.Subtitle
		body = c.Pane.Body
	}
	if title == "" {
		title = c.ID
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorWhite)
	if active {
		titleStyle = titleStyle.Foreground(ColorBlue)
	}

	header := titleStyle.Render(cardTitleWithBadges(title, running, c.Status))
	if subtitle != "" {
		header += "  " + subtitleStyle.Render(subtitle)
	}
	footer := renderCardFooter(c, width)

	// Inner height minus the top/bottom border, header and footer lines.
	bodyLines := max(1, height-2-2)
	if body == "" && c.Pane == nil {
		body = helpStyle.Render("not rendered")
	}
	bodyView := lipgloss.NewStyle().
		Width(width).
		MaxWidth(width).
		MaxHeight(bodyLines).
		Render(body)
	bodyView = lipgloss.PlaceVertical(bodyLines, lipgloss.Top, bodyView)

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().MaxWidth(width).Render(header),
		bodyView,
		footer,
	)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Width(width).
		Height(height - 2).
		MaxHeight(height).
		Render(content)
}

func renderCardFooter(c model.CardView, width int) string {
	var parts []string
	if c.Status.Runs > 0 {
		parts = append(parts, fmt.Sprintf("runs %d", c.Status.Runs))
	}
	if c.Status.Failures > 0 {
		parts = append(parts, fmt.Sprintf("failed %d", c.Status.Failures))
	}
	if c.Scheduled {
		parts = append(parts, "every "+c.Interval.String())
	}
	if c.Pane != nil && !c.Pane.UpdatedAt.IsZero() {
		parts = append(parts, "updated "+formatAge(time.Since(c.Pane.UpdatedAt))+" ago")
	}

	style := helpStyle
	if c.Status.LastError != "" {
		parts = append(parts, c.Status.LastError)
		style = errorStyle
	}
	return style.MaxWidth(width).Render(strings.Join(parts, " · "))
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}
