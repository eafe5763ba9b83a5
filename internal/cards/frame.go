// Package cards holds the concrete cards mounted on the board: a bulletin
// list fed from a pluggable Feed, a clock and a refresh history chart.
package cards

import (
	"fmt"

	"github.com/tinytelemetry/cardwall/internal/card"
	"github.com/tinytelemetry/cardwall/internal/surface"
)

// Frame is the header a card is mounted with.
type Frame struct {
	Title    string
	Subtitle string
}

// Definition couples a card id with its frame and registry hooks.
type Definition struct {
	ID     string
	Frame  Frame
	Config card.Config
}

// Register adds every definition to r in order.
func Register(r *card.Registry, defs ...Definition) error {
	for _, d := range defs {
		if err := r.Register(d.ID, d.Config); err != nil {
			return fmt.Errorf("register card %q: %w", d.ID, err)
		}
	}
	return nil
}

// mount returns a render hook that mounts the card's pane with a placeholder
// body. An existing body is left in place on re-render.
func mount(board *surface.Board, id string, f Frame, placeholder string) func() error {
	return func() error {
		p := board.Mount(id, f.Title, f.Subtitle)
		if p.Body() == "" {
			p.SetBody(placeholder)
		}
		return nil
	}
}

// paneFor finds the mounted pane for id. Updates before the first render
// report errNotMounted so the failure shows up in the card's status.
func paneFor(board *surface.Board, id string) (*surface.Pane, error) {
	p, ok := board.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errNotMounted, id)
	}
	return p, nil
}
