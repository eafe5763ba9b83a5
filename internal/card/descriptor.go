package card

import (
	"context"
	"strings"
	"time"
)

// Config is the registration input for a card. Every field is optional;
// missing hooks are treated as no-ops.
type Config struct {
	Title    string
	Render   func() error                    // materializes the card's initial surface
	Update   func(ctx context.Context) error // refreshes the card's content; may block
	Interval time.Duration                   // > 0 arms a repeating Update
}

// Descriptor is the stored form of a registered card.
type Descriptor struct {
	ID       string
	Title    string
	Render   func() error
	Update   func(ctx context.Context) error
	Interval time.Duration
}

func newDescriptor(id string, cfg Config) (*Descriptor, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrEmptyID
	}
	interval := cfg.Interval
	if interval < 0 {
		interval = 0
	}
	return &Descriptor{
		ID:       id,
		Title:    cfg.Title,
		Render:   cfg.Render,
		Update:   cfg.Update,
		Interval: interval,
	}, nil
}
