package cards

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/cardwall/internal/card"
	"github.com/tinytelemetry/cardwall/internal/model"
	"github.com/tinytelemetry/cardwall/internal/surface"
)

const defaultTagColor = "#8b5cf6"

var (
	bulletinTimeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	bulletinTitleStyle  = lipgloss.NewStyle().Bold(true)
	bulletinSourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	bulletinEmptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// NewBulletin builds a bulletin card that lists the items of feed. A
// non-positive interval falls back to model.DefaultBulletinEvery.
func NewBulletin(board *surface.Board, id string, f Frame, feed Feed, interval time.Duration) Definition {
	if interval <= 0 {
		interval = model.DefaultBulletinEvery
	}
	if feed == nil {
		feed = SampleItems
	}
	return Definition{
		ID:    id,
		Frame: f,
		Config: card.Config{
			Title:    f.Title,
			Interval: interval,
			Render:   mount(board, id, f, "loading…"),
			Update: func(ctx context.Context) error {
				p, err := paneFor(board, id)
				if err != nil {
					return err
				}
				items, err := feed.Fetch(ctx)
				if err != nil {
					return err
				}
				p.SetBody(RenderBulletin(items))
				return nil
			},
		},
	}
}

// RenderBulletin draws items as a vertical list with a colored tag line.
func RenderBulletin(items []Item) string {
	if len(items) == 0 {
		return bulletinEmptyStyle.Render("no items")
	}

	blocks := make([]string, 0, len(items))
	for _, it := range items {
		color := it.TagColor
		if color == "" {
			color = defaultTagColor
		}
		bar := lipgloss.NewStyle().
			BorderStyle(lipgloss.ThickBorder()).
			BorderLeft(true).
			BorderForeground(lipgloss.Color(color)).
			PaddingLeft(1)
		tag := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true).Render(it.Tag)

		var b strings.Builder
		b.WriteString(tag)
		if it.Time != "" {
			b.WriteString("  " + bulletinTimeStyle.Render(it.Time))
		}
		b.WriteString("\n" + bulletinTitleStyle.Render(it.Title))
		if it.Source != "" {
			b.WriteString("\n" + bulletinSourceStyle.Render(fmt.Sprintf("source: %s", it.Source)))
		}
		blocks = append(blocks, bar.Render(b.String()))
	}
	return strings.Join(blocks, "\n")
}
