package cards

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/cardwall/internal/card"
	"github.com/tinytelemetry/cardwall/internal/model"
	"github.com/tinytelemetry/cardwall/internal/surface"
)

const (
	historyChartWidth  = 36
	historyChartHeight = 6
	historyMaxBars     = historyChartWidth / 3
)

var (
	historyOKStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Background(lipgloss.Color("39"))
	historyFailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Background(lipgloss.Color("196"))
	historyNoneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Background(lipgloss.Color("250"))
	historyTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// NewHistory builds a card charting stored update outcomes per card.
func NewHistory(board *surface.Board, id string, f Frame, reader model.OutcomeReader, interval time.Duration) Definition {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return Definition{
		ID:    id,
		Frame: f,
		Config: card.Config{
			Title:    f.Title,
			Interval: interval,
			Render:   mount(board, id, f, "no outcomes yet"),
			Update: func(context.Context) error {
				p, err := paneFor(board, id)
				if err != nil {
					return err
				}
				summary, err := reader.OutcomeSummary()
				if err != nil {
					return fmt.Errorf("outcome summary: %w", err)
				}
				p.SetBody(RenderHistory(summary))
				return nil
			},
		},
	}
}

// RenderHistory draws one stacked bar per card (successful runs under
// failures) followed by a per-card legend.
func RenderHistory(summary []model.CardSummary) string {
	if len(summary) == 0 {
		return historyTextStyle.Render("no outcomes yet")
	}

	start := 0
	if len(summary) > historyMaxBars {
		start = len(summary) - historyMaxBars
	}
	shown := summary[start:]

	bc := barchart.New(historyChartWidth, historyChartHeight,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)
	for _, s := range shown {
		ok := s.Runs - s.Failures
		var values []barchart.BarValue
		if ok > 0 {
			values = append(values, barchart.BarValue{Name: "ok", Value: float64(ok), Style: historyOKStyle})
		}
		if s.Failures > 0 {
			values = append(values, barchart.BarValue{Name: "failed", Value: float64(s.Failures), Style: historyFailStyle})
		}
		if len(values) == 0 {
			values = append(values, barchart.BarValue{Name: "none", Value: 0, Style: historyNoneStyle})
		}
		bc.Push(barchart.BarData{Label: "", Values: values})
	}
	bc.Draw()

	var legend strings.Builder
	for _, s := range shown {
		fmt.Fprintf(&legend, "\n%s %d runs, %d failed, avg %s",
			s.CardID, s.Runs, s.Failures, s.AvgDuration.Round(time.Microsecond))
	}
	return bc.View() + historyTextStyle.Render(legend.String())
}
