// Package surface provides the render surface cards draw into: a board of
// panes, one per card, found by card id.
package surface

import (
	"sync"
	"time"

	"github.com/tinytelemetry/cardwall/internal/model"
)

// Board is a goroutine-safe set of mounted panes kept in mount order.
type Board struct {
	mu    sync.RWMutex
	panes map[string]*Pane
	order []string
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{panes: make(map[string]*Pane)}
}

// Mount returns the pane for id, creating it when absent. The pane header is
// (re)set to title and subtitle; an existing body is kept.
func (b *Board) Mount(id, title, subtitle string) *Pane {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.panes[id]
	if !ok {
		p = &Pane{id: id}
		b.panes[id] = p
		b.order = append(b.order, id)
	}
	p.setHeader(title, subtitle)
	return p
}

// Lookup finds the pane mounted for id.
func (b *Board) Lookup(id string) (*Pane, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.panes[id]
	return p, ok
}

// Unmount removes the pane for id.
func (b *Board) Unmount(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.panes[id]; !ok {
		return false
	}
	delete(b.panes, id)
	for i, oid := range b.order {
		if oid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

// Snapshot copies every pane in mount order.
func (b *Board) Snapshot() []model.PaneView {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.PaneView, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.panes[id].View())
	}
	return out
}

// Pane is one card's mount point.
type Pane struct {
	mu        sync.Mutex
	id        string
	title     string
	subtitle  string
	body      string
	version   uint64
	updatedAt time.Time
}

func (p *Pane) setHeader(title, subtitle string) {
	p.mu.Lock()
	p.title = title
	p.subtitle = subtitle
	p.mu.Unlock()
}

// SetBody replaces the pane content.
func (p *Pane) SetBody(body string) {
	p.mu.Lock()
	p.body = body
	p.version++
	p.updatedAt = time.Now()
	p.mu.Unlock()
}

// Body returns the current content.
func (p *Pane) Body() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.body
}

// View returns a copy of the pane state.
func (p *Pane) View() model.PaneView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return model.PaneView{
		CardID:    p.id,
		Title:     p.title,
		Subtitle:  p.subtitle,
		Body:      p.body,
		Version:   p.version,
		UpdatedAt: p.updatedAt,
	}
}
