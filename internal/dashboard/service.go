// Package dashboard composes the card registry, the render board and the
// outcome store into the read/refresh API served to remote surfaces.
package dashboard

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tinytelemetry/cardwall/internal/card"
	"github.com/tinytelemetry/cardwall/internal/model"
	"github.com/tinytelemetry/cardwall/internal/surface"
)

// Service implements model.Dashboard.
type Service struct {
	registry *card.Registry
	board    *surface.Board
	history  model.OutcomeReader
	started  time.Time
	onRemove []func(id string)
}

// Option configures a Service.
type Option func(*Service)

// OnRemove registers fn to run after a card is removed, e.g. to drop
// per-card metric series.
func OnRemove(fn func(id string)) Option {
	return func(s *Service) {
		if fn != nil {
			s.onRemove = append(s.onRemove, fn)
		}
	}
}

// New creates a service. history may be nil, in which case History and
// OutcomeSummary return empty results.
func New(registry *card.Registry, board *surface.Board, history model.OutcomeReader, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		board:    board,
		history:  history,
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start renders every registered card in registration order, then runs one
// bulk update sweep in the background so cards show data without waiting a
// full interval. Render errors are collected and returned after every card
// had its turn; the sweep starts regardless.
func (s *Service) Start(ctx context.Context) error {
	var firstErr error
	for _, id := range s.registry.IDs() {
		if err := s.registry.Render(id); err != nil {
			log.Printf("dashboard: render %s: %v", id, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("render card %q: %w", id, err)
			}
		}
	}
	go s.registry.UpdateAll(ctx)
	return firstErr
}

// Uptime reports how long the service has been running.
func (s *Service) Uptime() time.Duration {
	return time.Since(s.started)
}

// CardCount returns the number of registered cards.
func (s *Service) CardCount() int {
	return s.registry.Len()
}

func (s *Service) view(info card.Info) model.CardView {
	v := model.CardView{
		ID:        info.ID,
		Title:     info.Title,
		Interval:  info.Interval,
		Scheduled: info.Scheduled,
		HasRender: info.HasRender,
		HasUpdate: info.HasUpdate,
		Status:    info.Status,
	}
	if p, ok := s.board.Lookup(info.ID); ok {
		pv := p.View()
		v.Pane = &pv
	}
	return v
}

func (s *Service) ListCards() ([]model.CardView, error) {
	infos := s.registry.List()
	out := make([]model.CardView, 0, len(infos))
	for _, info := range infos {
		out = append(out, s.view(info))
	}
	return out, nil
}

func (s *Service) GetCard(id string) (model.CardView, bool, error) {
	info, ok := s.registry.Info(id)
	if !ok {
		return model.CardView{}, false, nil
	}
	return s.view(info), true, nil
}

// RefreshCard runs the card's update and returns its view afterwards. A
// failed update is reflected in the view's status, not returned.
func (s *Service) RefreshCard(ctx context.Context, id string) (model.CardView, bool, error) {
	if _, ok := s.registry.Info(id); !ok {
		return model.CardView{}, false, nil
	}
	s.registry.Update(ctx, id)
	return s.GetCard(id)
}

func (s *Service) RefreshAll(ctx context.Context) error {
	s.registry.UpdateAll(ctx)
	return ctx.Err()
}

// RemoveCard unregisters the card, unmounts its pane and runs the OnRemove
// hooks. Stored outcomes are kept.
func (s *Service) RemoveCard(id string) (bool, error) {
	if !s.registry.Unregister(id) {
		return false, nil
	}
	s.board.Unmount(id)
	for _, fn := range s.onRemove {
		fn(id)
	}
	return true, nil
}

func (s *Service) History(cardID string, limit int) ([]model.Outcome, error) {
	if s.history == nil {
		return []model.Outcome{}, nil
	}
	out, err := s.history.RecentOutcomes(cardID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent outcomes: %w", err)
	}
	if out == nil {
		out = []model.Outcome{}
	}
	return out, nil
}

func (s *Service) OutcomeSummary() ([]model.CardSummary, error) {
	if s.history == nil {
		return []model.CardSummary{}, nil
	}
	out, err := s.history.OutcomeSummary()
	if err != nil {
		return nil, fmt.Errorf("outcome summary: %w", err)
	}
	if out == nil {
		out = []model.CardSummary{}
	}
	return out, nil
}

// OutcomeCount returns how many outcomes are stored, or 0 without a store.
func (s *Service) OutcomeCount() (int64, error) {
	if s.history == nil {
		return 0, nil
	}
	n, err := s.history.TotalOutcomes()
	if err != nil {
		return 0, fmt.Errorf("count outcomes: %w", err)
	}
	return n, nil
}

var _ model.Dashboard = (*Service)(nil)
