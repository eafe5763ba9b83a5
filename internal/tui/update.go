package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/cardwall/internal/model"
)

// TickMsg drives periodic polling.
type TickMsg time.Time

type cardsLoadedMsg struct {
	cards []model.CardView
	err   error
}

type refreshDoneMsg struct {
	id    string
	card  model.CardView
	found bool
	err   error
}

type refreshAllDoneMsg struct {
	cards []model.CardView
	err   error
}

type removeDoneMsg struct {
	id      string
	removed bool
	err     error
}

// Update handles messages
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			// The grid starts below the one-line header.
			if idx, ok := m.cardAt(m.width, m.gridHeight(), msg.X, msg.Y-1); ok {
				m.activeIdx = idx
			}
		}
		return m, nil

	case TickMsg:
		if m.paused || m.fetchInFlight {
			return m, m.tickCmd()
		}
		m.fetchInFlight = true
		return m, tea.Batch(m.fetchCardsCmd(), m.tickCmd())

	case cardsLoadedMsg:
		m.fetchInFlight = false
		m.loaded = true
		m.setError(msg.err)
		if msg.err == nil {
			m.applyCards(msg.cards)
		}
		return m, nil

	case refreshDoneMsg:
		delete(m.refreshing, msg.id)
		switch {
		case msg.err != nil:
			m.setError(fmt.Errorf("refresh %s: %w", msg.id, msg.err))
		case !msg.found:
			m.notice = fmt.Sprintf("%s is no longer registered", msg.id)
		default:
			m.replaceCard(msg.card)
			m.notice = refreshNotice(msg.card)
		}
		return m, nil

	case refreshAllDoneMsg:
		delete(m.refreshing, allCardsKey)
		m.setError(msg.err)
		if msg.err == nil {
			m.applyCards(msg.cards)
			m.notice = fmt.Sprintf("refreshed %d cards", len(msg.cards))
		}
		return m, nil

	case removeDoneMsg:
		switch {
		case msg.err != nil:
			m.setError(fmt.Errorf("remove %s: %w", msg.id, msg.err))
		case msg.removed:
			m.dropCard(msg.id)
			m.notice = fmt.Sprintf("removed %s", msg.id)
		}
		return m, nil

	case SpinnerTickMsg:
		return m, m.startSpinnerIfNeeded()
	}

	return m, nil
}

func (m *DashboardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit), key.Matches(msg, k.ForceQuit):
		return m, tea.Quit

	case key.Matches(msg, k.Escape):
		m.notice = ""
		m.lastError = ""

	case key.Matches(msg, k.NextCard):
		if len(m.cards) > 0 {
			m.activeIdx = (m.activeIdx + 1) % len(m.cards)
		}
	case key.Matches(msg, k.PrevCard):
		if len(m.cards) > 0 {
			m.activeIdx = (m.activeIdx - 1 + len(m.cards)) % len(m.cards)
		}
	case key.Matches(msg, k.Up):
		m.moveSelection(-m.columnCount())
	case key.Matches(msg, k.Down):
		m.moveSelection(m.columnCount())
	case key.Matches(msg, k.Left):
		if m.activeIdx%m.columnCount() > 0 {
			m.moveSelection(-1)
		}
	case key.Matches(msg, k.Right):
		if m.activeIdx%m.columnCount() < m.columnCount()-1 {
			m.moveSelection(1)
		}

	case key.Matches(msg, k.Refresh):
		c, ok := m.activeCard()
		if !ok || m.refreshing[c.ID] {
			return m, nil
		}
		m.refreshing[c.ID] = true
		return m, tea.Batch(m.refreshCardCmd(c.ID), m.startSpinnerIfNeeded())

	case key.Matches(msg, k.RefreshAll):
		if m.refreshing[allCardsKey] {
			return m, nil
		}
		m.refreshing[allCardsKey] = true
		return m, tea.Batch(m.refreshAllCmd(), m.startSpinnerIfNeeded())

	case key.Matches(msg, k.Remove):
		c, ok := m.activeCard()
		if !ok {
			return m, nil
		}
		return m, m.removeCardCmd(c.ID)

	case key.Matches(msg, k.IntervalUp):
		m.pollInterval = clampInterval(m.pollInterval / 2)
		m.notice = fmt.Sprintf("polling every %s", m.pollInterval)
	case key.Matches(msg, k.IntervalDown):
		m.pollInterval = clampInterval(m.pollInterval * 2)
		m.notice = fmt.Sprintf("polling every %s", m.pollInterval)

	case key.Matches(msg, k.Pause):
		m.paused = !m.paused
		if m.paused {
			m.notice = "polling paused"
		} else {
			m.notice = "polling resumed"
		}
	}
	return m, nil
}

func (m *DashboardModel) moveSelection(delta int) {
	next := m.activeIdx + delta
	if next < 0 || next >= len(m.cards) {
		return
	}
	m.activeIdx = next
}

// applyCards replaces the card list, keeping the selection on the same id
// when it survives.
func (m *DashboardModel) applyCards(cards []model.CardView) {
	var selected string
	if c, ok := m.activeCard(); ok {
		selected = c.ID
	}
	m.cards = cards
	m.activeIdx = 0
	for i, c := range cards {
		if c.ID == selected {
			m.activeIdx = i
			break
		}
	}
}

func (m *DashboardModel) replaceCard(v model.CardView) {
	for i := range m.cards {
		if m.cards[i].ID == v.ID {
			m.cards[i] = v
			return
		}
	}
}

func (m *DashboardModel) dropCard(id string) {
	for i := range m.cards {
		if m.cards[i].ID == id {
			m.cards = append(m.cards[:i], m.cards[i+1:]...)
			break
		}
	}
	if m.activeIdx >= len(m.cards) {
		m.activeIdx = max(0, len(m.cards)-1)
	}
}

func refreshNotice(c model.CardView) string {
	if c.Status.LastError != "" {
		return fmt.Sprintf("%s failed: %s", c.ID, c.Status.LastError)
	}
	return fmt.Sprintf("%s refreshed in %s", c.ID, c.Status.LastDuration.Round(time.Millisecond))
}

func (m *DashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.pollInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m *DashboardModel) fetchCardsCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		if client == nil {
			return cardsLoadedMsg{}
		}
		cards, err := client.ListCards()
		return cardsLoadedMsg{cards: cards, err: err}
	}
}

func (m *DashboardModel) refreshCardCmd(id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		v, ok, err := client.RefreshCard(context.Background(), id)
		return refreshDoneMsg{id: id, card: v, found: ok, err: err}
	}
}

func (m *DashboardModel) refreshAllCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		if err := client.RefreshAll(context.Background()); err != nil {
			return refreshAllDoneMsg{err: err}
		}
		cards, err := client.ListCards()
		return refreshAllDoneMsg{cards: cards, err: err}
	}
}

func (m *DashboardModel) removeCardCmd(id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ok, err := client.RemoveCard(id)
		return removeDoneMsg{id: id, removed: ok, err: err}
	}
}
