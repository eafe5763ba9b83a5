package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/tinytelemetry/cardwall/internal/card"
	"github.com/tinytelemetry/cardwall/internal/duckdb"
	"github.com/tinytelemetry/cardwall/internal/metrics"
	"github.com/tinytelemetry/cardwall/internal/model"
	"github.com/tinytelemetry/cardwall/internal/surface"
)

type fixture struct {
	svc   *Service
	reg   *card.Registry
	board *surface.Board
	store *duckdb.Store
	buf   *duckdb.OutcomeBuffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := duckdb.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	buf := duckdb.NewOutcomeBuffer(store, duckdb.OutcomeBufferConfig{FlushInterval: 10 * time.Millisecond})
	logger, _ := test.NewNullLogger()
	reg := card.NewRegistry(card.WithLogger(logger), card.WithRecorder(buf))
	board := surface.NewBoard()
	t.Cleanup(func() {
		reg.Close()
		buf.Stop()
		store.Close()
	})
	return &fixture{svc: New(reg, board, store), reg: reg, board: board, store: store, buf: buf}
}

// paneCard registers a card that mounts a pane on render and writes the
// update count into it.
func (f *fixture) paneCard(t *testing.T, id string, fail bool) *atomic.Int64 {
	t.Helper()
	var n atomic.Int64
	err := f.reg.Register(id, card.Config{
		Title: "Card " + id,
		Render: func() error {
			f.board.Mount(id, "Card "+id, "")
			return nil
		},
		Update: func(context.Context) error {
			c := n.Add(1)
			if fail {
				return errors.New("boom")
			}
			if p, ok := f.board.Lookup(id); ok {
				p.SetBody(time.Duration(c).String())
			}
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return &n
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestStart_RendersThenSweeps(t *testing.T) {
	f := newFixture(t)
	a := f.paneCard(t, "a", false)
	b := f.paneCard(t, "b", false)

	if err := f.svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(f.board.Snapshot()) != 2 {
		t.Fatalf("panes mounted = %d, want 2", len(f.board.Snapshot()))
	}
	if !waitFor(t, func() bool { return a.Load() == 1 && b.Load() == 1 }) {
		t.Fatalf("initial sweep: a=%d b=%d", a.Load(), b.Load())
	}
}

func TestStart_RenderErrorReturned(t *testing.T) {
	f := newFixture(t)
	f.reg.Register("broken", card.Config{Render: func() error { return errors.New("no surface") }})
	ok := f.paneCard(t, "ok", false)

	err := f.svc.Start(context.Background())
	if err == nil {
		t.Fatal("expected render error")
	}
	if _, mounted := f.board.Lookup("ok"); !mounted {
		t.Error("render error stopped later cards from rendering")
	}
	if !waitFor(t, func() bool { return ok.Load() == 1 }) {
		t.Error("sweep did not run after render error")
	}
}

func TestListAndGetCard(t *testing.T) {
	f := newFixture(t)
	f.paneCard(t, "a", false)
	f.reg.Register("bare", card.Config{Title: "Bare", Interval: time.Hour})
	f.reg.Render("a")

	views, err := f.svc.ListCards()
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 || views[0].ID != "a" || views[1].ID != "bare" {
		t.Fatalf("views = %+v", views)
	}
	if views[0].Pane == nil || views[0].Pane.Title != "Card a" {
		t.Errorf("a pane = %+v", views[0].Pane)
	}
	if views[1].Pane != nil || !views[1].Scheduled || views[1].HasUpdate {
		t.Errorf("bare view = %+v", views[1])
	}

	if _, ok, _ := f.svc.GetCard("missing"); ok {
		t.Error("GetCard(missing) ok = true")
	}
}

func TestRefreshCard(t *testing.T) {
	f := newFixture(t)
	f.paneCard(t, "good", false)
	f.paneCard(t, "bad", true)
	f.reg.Render("good")

	v, ok, err := f.svc.RefreshCard(context.Background(), "good")
	if err != nil || !ok {
		t.Fatalf("RefreshCard(good) = %v, %v", ok, err)
	}
	if v.Status.Runs != 1 || !v.Status.LastOK || v.Pane.Version != 1 {
		t.Errorf("good view = %+v", v)
	}

	v, ok, err = f.svc.RefreshCard(context.Background(), "bad")
	if err != nil || !ok {
		t.Fatalf("RefreshCard(bad) = %v, %v", ok, err)
	}
	if v.Status.LastOK || v.Status.LastError != "boom" || v.Status.Failures != 1 {
		t.Errorf("bad status = %+v", v.Status)
	}

	if _, ok, _ := f.svc.RefreshCard(context.Background(), "missing"); ok {
		t.Error("RefreshCard(missing) ok = true")
	}
}

func TestRefreshAll(t *testing.T) {
	f := newFixture(t)
	a := f.paneCard(t, "a", false)
	b := f.paneCard(t, "b", true)

	if err := f.svc.RefreshAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if a.Load() != 1 || b.Load() != 1 {
		t.Errorf("a=%d b=%d, want 1 each", a.Load(), b.Load())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.svc.RefreshAll(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled RefreshAll = %v", err)
	}
}

func TestRemoveCard(t *testing.T) {
	f := newFixture(t)
	f.paneCard(t, "a", false)
	f.reg.Render("a")

	ok, err := f.svc.RemoveCard("a")
	if err != nil || !ok {
		t.Fatalf("RemoveCard(a) = %v, %v", ok, err)
	}
	if _, mounted := f.board.Lookup("a"); mounted {
		t.Error("pane still mounted")
	}
	if f.svc.CardCount() != 0 {
		t.Errorf("CardCount = %d", f.svc.CardCount())
	}
	if ok, _ := f.svc.RemoveCard("a"); ok {
		t.Error("second RemoveCard = true")
	}
}

func TestHistoryAndSummary(t *testing.T) {
	f := newFixture(t)
	f.paneCard(t, "a", false)
	f.paneCard(t, "b", true)
	f.svc.RefreshAll(context.Background())
	f.svc.RefreshCard(context.Background(), "a")

	if !waitFor(t, func() bool { n, _ := f.store.TotalOutcomes(); return n == 3 }) {
		t.Fatal("outcomes never reached the store")
	}

	hist, err := f.svc.History("a", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 || hist[0].Trigger != model.TriggerManual {
		t.Errorf("history(a) = %+v", hist)
	}

	sum, err := f.svc.OutcomeSummary()
	if err != nil {
		t.Fatal(err)
	}
	if len(sum) != 2 || sum[1].CardID != "b" || sum[1].Failures != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestHistory_NoStore(t *testing.T) {
	logger, _ := test.NewNullLogger()
	reg := card.NewRegistry(card.WithLogger(logger))
	defer reg.Close()
	svc := New(reg, surface.NewBoard(), nil)

	hist, err := svc.History("", 10)
	if err != nil || hist == nil || len(hist) != 0 {
		t.Errorf("History = %v, %v", hist, err)
	}
	sum, err := svc.OutcomeSummary()
	if err != nil || sum == nil || len(sum) != 0 {
		t.Errorf("OutcomeSummary = %v, %v", sum, err)
	}
}

func TestRemoveCard_InFlightUpdateKeepsMetricsGone(t *testing.T) {
	logger, _ := test.NewNullLogger()
	rec := metrics.NewRecorder()
	reg := card.NewRegistry(card.WithLogger(logger), card.WithRecorder(rec))
	defer reg.Close()
	svc := New(reg, surface.NewBoard(), nil, OnRemove(rec.Forget))

	entered := make(chan struct{})
	release := make(chan struct{})
	_ = reg.Register("slow", card.Config{Update: func(context.Context) error {
		close(entered)
		<-release
		return nil
	}})

	done := make(chan struct{})
	go func() {
		defer close(done)
		reg.Update(context.Background(), "slow")
	}()
	<-entered

	if ok, _ := svc.RemoveCard("slow"); !ok {
		t.Fatal("RemoveCard(slow) = false")
	}
	close(release)
	<-done

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if strings.Contains(w.Body.String(), `card="slow"`) {
		t.Error("update finishing after removal recreated the card's metric series")
	}
}

func TestOutcomeCount(t *testing.T) {
	f := newFixture(t)
	f.paneCard(t, "a", false)
	f.svc.RefreshAll(context.Background())
	f.svc.RefreshCard(context.Background(), "a")

	if !waitFor(t, func() bool { n, _ := f.svc.OutcomeCount(); return n == 2 }) {
		n, err := f.svc.OutcomeCount()
		t.Fatalf("OutcomeCount = %d, %v, want 2", n, err)
	}

	logger, _ := test.NewNullLogger()
	reg := card.NewRegistry(card.WithLogger(logger))
	defer reg.Close()
	if n, err := New(reg, surface.NewBoard(), nil).OutcomeCount(); n != 0 || err != nil {
		t.Errorf("OutcomeCount without store = %d, %v", n, err)
	}
}

func TestRemoveCard_RunsHooks(t *testing.T) {
	logger, _ := test.NewNullLogger()
	reg := card.NewRegistry(card.WithLogger(logger))
	defer reg.Close()

	var removed []string
	svc := New(reg, surface.NewBoard(), nil,
		OnRemove(func(id string) { removed = append(removed, id) }),
		OnRemove(nil),
	)
	_ = reg.Register("a", card.Config{})

	if ok, _ := svc.RemoveCard("missing"); ok {
		t.Fatal("RemoveCard(missing) = true")
	}
	if ok, _ := svc.RemoveCard("a"); !ok {
		t.Fatal("RemoveCard(a) = false")
	}
	if len(removed) != 1 || removed[0] != "a" {
		t.Errorf("hook calls = %v, want [a]", removed)
	}
}
