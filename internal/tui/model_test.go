package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/cardwall/internal/model"
)

type stubDashboard struct {
	cards        []model.CardView
	listCalls    int
	refreshCalls []string
	refreshAll   int
	removed      []string
	listErr      error
}

func (s *stubDashboard) ListCards() ([]model.CardView, error) {
	s.listCalls++
	return append([]model.CardView(nil), s.cards...), s.listErr
}
func (s *stubDashboard) GetCard(id string) (model.CardView, bool, error) {
	for _, c := range s.cards {
		if c.ID == id {
			return c, true, nil
		}
	}
	return model.CardView{}, false, nil
}
func (s *stubDashboard) RefreshCard(_ context.Context, id string) (model.CardView, bool, error) {
	s.refreshCalls = append(s.refreshCalls, id)
	for i := range s.cards {
		if s.cards[i].ID == id {
			s.cards[i].Status.Runs++
			return s.cards[i], true, nil
		}
	}
	return model.CardView{}, false, nil
}
func (s *stubDashboard) RefreshAll(context.Context) error { s.refreshAll++; return nil }
func (s *stubDashboard) RemoveCard(id string) (bool, error) {
	for i := range s.cards {
		if s.cards[i].ID == id {
			s.cards = append(s.cards[:i], s.cards[i+1:]...)
			s.removed = append(s.removed, id)
			return true, nil
		}
	}
	return false, nil
}
func (s *stubDashboard) History(string, int) ([]model.Outcome, error)  { return nil, nil }
func (s *stubDashboard) OutcomeSummary() ([]model.CardSummary, error) { return nil, nil }
func (s *stubDashboard) OutcomeCount() (int64, error)                 { return 0, nil }

func threeCards() *stubDashboard {
	return &stubDashboard{cards: []model.CardView{
		{ID: "news", Title: "News", Pane: &model.PaneView{CardID: "news", Title: "News", Subtitle: "today", Body: "headline one"}},
		{ID: "clock", Title: "Clock", Scheduled: true, Interval: time.Second},
		{ID: "flaky", Title: "Flaky", Status: model.CardStatus{Runs: 2, Failures: 2, LastError: "upstream 503"}},
	}}
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// loadedModel returns a model that already applied one ListCards result.
func loadedModel(t *testing.T, client *stubDashboard) *DashboardModel {
	t.Helper()
	m := NewDashboardModel(client, time.Second, "test")
	m.width, m.height = 120, 40
	m.Update(m.fetchCardsCmd()())
	if !m.loaded || len(m.cards) != len(client.cards) {
		t.Fatalf("model not loaded: %d cards", len(m.cards))
	}
	return m
}

func TestNewDashboardModel_ClampsInterval(t *testing.T) {
	t.Parallel()

	if got := NewDashboardModel(nil, 0, "").pollInterval; got != model.DefaultPollInterval {
		t.Errorf("default interval = %v", got)
	}
	if got := NewDashboardModel(nil, time.Millisecond, "").pollInterval; got != minPollInterval {
		t.Errorf("tiny interval = %v, want %v", got, minPollInterval)
	}
	if got := NewDashboardModel(nil, time.Hour, "").pollInterval; got != maxPollInterval {
		t.Errorf("huge interval = %v, want %v", got, maxPollInterval)
	}
}

func TestTick_FetchesWhenIdle(t *testing.T) {
	t.Parallel()

	client := threeCards()
	m := NewDashboardModel(client, time.Second, "")

	m.Update(TickMsg(time.Now()))
	if !m.fetchInFlight {
		t.Fatal("expected fetch in flight after tick")
	}

	// A second tick while the fetch runs does not start another.
	_, cmd := m.Update(TickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick chain stopped")
	}

	m.Update(m.fetchCardsCmd()())
	if m.fetchInFlight || !m.loaded {
		t.Fatalf("fetchInFlight=%v loaded=%v after load", m.fetchInFlight, m.loaded)
	}
	if len(m.cards) != 3 {
		t.Errorf("cards = %d, want 3", len(m.cards))
	}
}

func TestTick_PausedSkipsFetch(t *testing.T) {
	t.Parallel()

	m := NewDashboardModel(threeCards(), time.Second, "")
	m.Update(keyPress(" "))
	if !m.paused {
		t.Fatal("space did not pause")
	}

	m.Update(TickMsg(time.Now()))
	if m.fetchInFlight {
		t.Fatal("fetch started while paused")
	}

	m.Update(keyPress(" "))
	m.Update(TickMsg(time.Now()))
	if !m.fetchInFlight {
		t.Fatal("fetch did not resume")
	}
}

func TestFetchError_KeepsCards(t *testing.T) {
	t.Parallel()

	client := threeCards()
	m := loadedModel(t, client)

	m.Update(cardsLoadedMsg{err: errors.New("socketrpc: connection closed")})
	if len(m.cards) != 3 {
		t.Errorf("cards dropped on error: %d", len(m.cards))
	}
	if m.lastError == "" {
		t.Error("lastError not set")
	}

	m.Update(keyPress("esc"))
	if m.lastError != "" {
		t.Error("esc did not clear the error")
	}
}

func TestNavigation_Grid(t *testing.T) {
	t.Parallel()

	m := loadedModel(t, threeCards())
	// Layout (two columns):
	//   0 news   1 clock
	//   2 flaky

	steps := []struct {
		key  string
		want int
	}{
		{"right", 1},
		{"right", 1},
		{"down", 1}, // nothing below clock
		{"left", 0},
		{"down", 2},
		{"up", 0},
		{"tab", 1},
		{"tab", 2},
		{"tab", 0},
		{"shift+tab", 2},
	}
	for i, s := range steps {
		m.Update(keyPress(s.key))
		if m.activeIdx != s.want {
			t.Fatalf("step %d (%s): activeIdx = %d, want %d", i, s.key, m.activeIdx, s.want)
		}
	}
}

func TestRefreshSelected(t *testing.T) {
	t.Parallel()

	client := threeCards()
	m := loadedModel(t, client)

	_, cmd := m.Update(keyPress("r"))
	if !m.refreshing["news"] {
		t.Fatal("news not marked refreshing")
	}
	// A second press while in flight is ignored.
	if _, again := m.Update(keyPress("r")); again != nil {
		t.Error("duplicate refresh issued a command")
	}
	if cmd == nil {
		t.Fatal("no refresh command")
	}

	m.Update(m.refreshCardCmd("news")())
	if m.refreshing["news"] {
		t.Error("refreshing flag not cleared")
	}
	if m.cards[0].Status.Runs != 1 {
		t.Errorf("card not replaced: %+v", m.cards[0].Status)
	}
	if len(client.refreshCalls) != 1 || client.refreshCalls[0] != "news" {
		t.Errorf("refresh calls = %v", client.refreshCalls)
	}
}

func TestRefreshAll(t *testing.T) {
	t.Parallel()

	client := threeCards()
	m := loadedModel(t, client)

	m.Update(keyPress("R"))
	if !m.refreshing[allCardsKey] {
		t.Fatal("refresh-all not marked")
	}
	m.Update(m.refreshAllCmd()())
	if m.refreshing[allCardsKey] {
		t.Error("refresh-all flag not cleared")
	}
	if client.refreshAll != 1 {
		t.Errorf("RefreshAll calls = %d", client.refreshAll)
	}
	if !strings.Contains(m.notice, "refreshed 3 cards") {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestRemoveSelected(t *testing.T) {
	t.Parallel()

	client := threeCards()
	m := loadedModel(t, client)
	m.activeIdx = 2

	_, cmd := m.Update(keyPress("x"))
	if cmd == nil {
		t.Fatal("no remove command")
	}
	m.Update(cmd())

	if len(m.cards) != 2 {
		t.Fatalf("cards = %d, want 2", len(m.cards))
	}
	if m.activeIdx != 1 {
		t.Errorf("activeIdx = %d, want clamped to 1", m.activeIdx)
	}
	if len(client.removed) != 1 || client.removed[0] != "flaky" {
		t.Errorf("removed = %v", client.removed)
	}
}

func TestApplyCards_KeepsSelection(t *testing.T) {
	t.Parallel()

	m := loadedModel(t, threeCards())
	m.activeIdx = 1 // clock

	m.applyCards([]model.CardView{{ID: "clock"}, {ID: "news"}})
	if m.activeIdx != 0 {
		t.Errorf("activeIdx = %d, want 0 (clock moved)", m.activeIdx)
	}
}

func TestIntervalKeys(t *testing.T) {
	t.Parallel()

	m := NewDashboardModel(nil, time.Second, "")
	m.Update(keyPress("+"))
	if m.pollInterval != 500*time.Millisecond {
		t.Errorf("after + interval = %v", m.pollInterval)
	}
	for i := 0; i < 10; i++ {
		m.Update(keyPress("+"))
	}
	if m.pollInterval != minPollInterval {
		t.Errorf("interval = %v, want floor %v", m.pollInterval, minPollInterval)
	}
	for i := 0; i < 20; i++ {
		m.Update(keyPress("-"))
	}
	if m.pollInterval != maxPollInterval {
		t.Errorf("interval = %v, want ceiling %v", m.pollInterval, maxPollInterval)
	}
}

func TestQuitKeys(t *testing.T) {
	t.Parallel()

	m := NewDashboardModel(nil, time.Second, "")
	for _, k := range []tea.KeyMsg{keyPress("q"), {Type: tea.KeyCtrlC}} {
		_, cmd := m.Update(k)
		if cmd == nil {
			t.Fatalf("%s: no command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: command did not quit", k)
		}
	}
}

func TestMouseClickSelectsCard(t *testing.T) {
	t.Parallel()

	m := loadedModel(t, threeCards())
	// Right column, first row (y=1 is the first grid line).
	m.Update(tea.MouseMsg{X: 100, Y: 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if m.activeIdx != 1 {
		t.Errorf("activeIdx = %d, want 1", m.activeIdx)
	}
}
