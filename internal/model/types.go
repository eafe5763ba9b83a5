package model

import "time"

// Trigger identifies what started a card update.
type Trigger string

const (
	TriggerManual Trigger = "manual" // explicit refresh of one card
	TriggerTick   Trigger = "tick"   // the card's own repeating timer
	TriggerBulk   Trigger = "bulk"   // sequential refresh-all sweep
)

// Outcome is the result of one card update invocation.
// It is the canonical type for storage, transport (socket RPC, HTTP), and display.
type Outcome struct {
	CardID    string
	Title     string
	OK        bool
	Error     string
	Trigger   Trigger
	StartedAt time.Time
	Duration  time.Duration
}

// CardStatus tracks per-card update bookkeeping maintained by the registry.
type CardStatus struct {
	InFlight        int // updates currently running for this card
	Runs            int64
	Failures        int64
	ConsecutiveErrs int
	LastOK          bool
	LastError       string
	LastRunAt       time.Time
	LastDuration    time.Duration
}

// PaneView is a point-in-time copy of one card's render surface.
type PaneView struct {
	CardID    string
	Title     string
	Subtitle  string
	Body      string
	Version   uint64 // bumped on every body write
	UpdatedAt time.Time
}

// CardView combines registry metadata, status, and the mounted pane (if any).
type CardView struct {
	ID        string
	Title     string
	Interval  time.Duration
	Scheduled bool
	HasRender bool
	HasUpdate bool
	Status    CardStatus
	Pane      *PaneView `json:",omitempty"`
}

// CardSummary aggregates stored outcomes for one card.
type CardSummary struct {
	CardID      string
	Title       string
	Runs        int64
	Failures    int64
	AvgDuration time.Duration
	LastRunAt   time.Time
}
