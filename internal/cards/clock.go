package cards

import (
	"context"
	"fmt"
	"time"

	"github.com/tinytelemetry/cardwall/internal/card"
	"github.com/tinytelemetry/cardwall/internal/surface"
)

// NewClock builds a card showing wall time and service uptime.
func NewClock(board *surface.Board, id string, f Frame, interval time.Duration) Definition {
	if interval <= 0 {
		interval = time.Second
	}
	started := time.Now()
	return Definition{
		ID:    id,
		Frame: f,
		Config: card.Config{
			Title:    f.Title,
			Interval: interval,
			Render:   mount(board, id, f, "--:--:--"),
			Update: func(context.Context) error {
				p, err := paneFor(board, id)
				if err != nil {
					return err
				}
				now := time.Now()
				p.SetBody(fmt.Sprintf("%s\nup %s", now.Format("15:04:05 Mon Jan 2"), formatUptime(now.Sub(started))))
				return nil
			},
		},
	}
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
