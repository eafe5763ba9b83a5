package model

import "context"

// OutcomeWriter provides append-oriented writes for update outcomes.
type OutcomeWriter interface {
	InsertOutcomeBatch(outcomes []*Outcome) error
}

// OutcomeReader provides read-only queries over stored outcomes.
type OutcomeReader interface {
	RecentOutcomes(cardID string, limit int) ([]Outcome, error)
	OutcomeSummary() ([]CardSummary, error)
	TotalOutcomes() (int64, error)
}

// Dashboard is the unified read/refresh contract for remote surfaces
// (HTTP API, socket RPC, and the TUI through the socket client).
type Dashboard interface {
	ListCards() ([]CardView, error)
	GetCard(id string) (CardView, bool, error)
	RefreshCard(ctx context.Context, id string) (CardView, bool, error)
	RefreshAll(ctx context.Context) error
	RemoveCard(id string) (bool, error)
	History(cardID string, limit int) ([]Outcome, error)
	OutcomeSummary() ([]CardSummary, error)
	OutcomeCount() (int64, error)
}
