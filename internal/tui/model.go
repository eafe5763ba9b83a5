package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/cardwall/internal/model"
)

const (
	minPollInterval = 250 * time.Millisecond
	maxPollInterval = time.Minute
)

// DashboardModel renders the service's cards as a grid and forwards
// refresh/remove actions to it.
type DashboardModel struct {
	client     model.Dashboard
	dataSource string
	keys       KeyMap

	cards     []model.CardView
	activeIdx int

	width  int
	height int

	pollInterval  time.Duration
	paused        bool
	fetchInFlight bool
	loaded        bool // first fetch completed
	lastError     string
	lastErrorAt   time.Time
	notice        string

	// refreshing holds card ids with a refresh request in flight; allCardsKey
	// marks a refresh-all sweep.
	refreshing map[string]bool
}

const allCardsKey = "*"

// NewDashboardModel creates the card grid model. A non-positive poll
// interval falls back to model.DefaultPollInterval.
func NewDashboardModel(client model.Dashboard, pollInterval time.Duration, dataSource string) *DashboardModel {
	if pollInterval <= 0 {
		pollInterval = model.DefaultPollInterval
	}
	return &DashboardModel{
		client:       client,
		dataSource:   dataSource,
		keys:         DefaultKeyMap(),
		pollInterval: clampInterval(pollInterval),
		refreshing:   make(map[string]bool),
	}
}

func clampInterval(d time.Duration) time.Duration {
	return min(max(d, minPollInterval), maxPollInterval)
}

// Init starts the first fetch and the poll tick chain.
func (m *DashboardModel) Init() tea.Cmd {
	m.fetchInFlight = true
	return tea.Batch(m.fetchCardsCmd(), m.tickCmd(), m.startSpinnerIfNeeded())
}

func (m *DashboardModel) activeCard() (model.CardView, bool) {
	if m.activeIdx < 0 || m.activeIdx >= len(m.cards) {
		return model.CardView{}, false
	}
	return m.cards[m.activeIdx], true
}

func (m *DashboardModel) setError(err error) {
	if err == nil {
		m.lastError = ""
		return
	}
	m.lastError = err.Error()
	m.lastErrorAt = time.Now()
}

// DashboardPage adapts DashboardModel to the Page interface.
type DashboardPage struct {
	m *DashboardModel
}

// NewDashboardPage wraps a dashboard model as the default page.
func NewDashboardPage(m *DashboardModel) *DashboardPage {
	return &DashboardPage{m: m}
}

func (p *DashboardPage) ID() string { return dashboardPageID }

// Init only starts polling once; returning from help does not restart it.
func (p *DashboardPage) Init() tea.Cmd {
	if p.m.loaded || p.m.fetchInFlight {
		return nil
	}
	return p.m.Init()
}

func (p *DashboardPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	if km, ok := msg.(tea.KeyMsg); ok && key.Matches(km, p.m.keys.Help) {
		return nil, &PageNav{PageID: helpPageID}
	}
	_, cmd := p.m.Update(msg)
	return cmd, nil
}

func (p *DashboardPage) View(width, height int) string {
	p.m.width = width
	p.m.height = height
	return p.m.View()
}
