// Package card implements the card registry: an insertion-ordered set of
// independently rendering and refreshing dashboard cards, each with an
// optional repeating refresh timer.
package card

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tinytelemetry/cardwall/internal/model"
)

// Recorder receives one outcome per completed card update.
type Recorder interface {
	RecordOutcome(o model.Outcome)
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for per-update diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithRecorder adds a sink for update outcomes. Sinks are called in the
// order they were added.
func WithRecorder(rec Recorder) Option {
	return func(r *Registry) {
		if rec != nil {
			r.recs = append(r.recs, rec)
		}
	}
}

type entry struct {
	desc   *Descriptor
	timer  *ticker
	status Status
}

// Registry holds registered cards and owns their refresh timers.
//
// Bookkeeping is guarded by a single mutex that is never held while card
// hooks run, so hooks may call back into the registry. A hook that wants to
// shut the registry down calls Shutdown with its own ctx, not Close.
type Registry struct {
	mu     sync.Mutex
	order  []string
	cards  map[string]*entry
	closed bool

	log  logrus.FieldLogger
	recs []Recorder

	// ctx is handed to tick-triggered updates and cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc
	loops  sync.WaitGroup // tick loops
	ticks  sync.WaitGroup // updates spawned by tick loops
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		cards:  make(map[string]*entry),
		log:    logrus.StandardLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores a card under id, replacing any previous card with the same
// id in place (its position in the iteration order is kept). A previous timer
// for id is cancelled; a new one is armed when cfg.Interval > 0, first firing
// one interval from now.
func (r *Registry) Register(id string, cfg Config) error {
	d, err := newDescriptor(id, cfg)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	e, exists := r.cards[id]
	if !exists {
		e = &entry{}
		r.cards[id] = e
		r.order = append(r.order, id)
	}
	if e.timer != nil {
		e.timer.stop()
		e.timer = nil
	}
	e.desc = d
	if d.Interval > 0 {
		e.timer = r.arm(id, d.Interval)
	}
	return nil
}

// Unregister cancels the card's timer and removes it. Updates already running
// for the card are left to finish. It reports whether the id was registered.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	e, ok := r.cards[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.cards, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	t := e.timer
	e.timer = nil
	r.mu.Unlock()

	if t != nil {
		t.stop()
		<-t.done
	}
	return true
}

// Render invokes the card's render hook synchronously and returns its error
// unchanged. Unknown ids and cards without a render hook are ignored.
func (r *Registry) Render(id string) error {
	r.mu.Lock()
	var render func() error
	if e, ok := r.cards[id]; ok {
		render = e.desc.Render
	}
	r.mu.Unlock()

	if render == nil {
		return nil
	}
	return render()
}

// Update runs the card's update hook and waits for it. Failures (errors and
// panics) are logged and recorded, never returned. Unknown ids and cards
// without an update hook are ignored.
func (r *Registry) Update(ctx context.Context, id string) {
	r.update(ctx, id, model.TriggerManual, nil)
}

// UpdateAll updates every registered card one at a time in registration
// order, each update finishing before the next starts. The id set is taken
// when the sweep begins. A cancelled ctx ends the sweep before the next card.
func (r *Registry) UpdateAll(ctx context.Context) {
	for _, id := range r.IDs() {
		if ctx.Err() != nil {
			return
		}
		r.update(ctx, id, model.TriggerBulk, nil)
	}
}

// update is the failure-isolation boundary shared by manual, bulk and tick
// updates. When owner is set the update is skipped unless owner is still the
// card's live timer.
func (r *Registry) update(ctx context.Context, id string, trigger model.Trigger, owner *ticker) {
	r.mu.Lock()
	e, ok := r.cards[id]
	if !ok || e.desc.Update == nil || (owner != nil && e.timer != owner) {
		r.mu.Unlock()
		return
	}
	desc := e.desc
	e.status.InFlight++
	r.mu.Unlock()

	started := time.Now()
	err := invoke(ctx, desc.Update)
	took := time.Since(started)

	r.mu.Lock()
	recordRun(&e.status, started, took, err)
	r.mu.Unlock()

	fields := logrus.Fields{"card": desc.Title, "id": desc.ID, "trigger": string(trigger)}
	if err != nil {
		r.log.WithFields(fields).WithError(err).Error("card update failed")
	} else {
		r.log.WithFields(fields).Info("card updated")
	}

	if len(r.recs) > 0 {
		o := model.Outcome{
			CardID:    desc.ID,
			Title:     desc.Title,
			OK:        err == nil,
			Trigger:   trigger,
			StartedAt: started,
			Duration:  took,
		}
		if err != nil {
			o.Error = err.Error()
		}
		for _, rec := range r.recs {
			rec.RecordOutcome(o)
		}
	}
}

func invoke(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return fn(ctx)
}

// IDs returns registered ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered cards.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Info returns a snapshot of one card.
func (r *Registry) Info(id string) (Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.cards[id]
	if !ok {
		return Info{}, false
	}
	return e.info(), true
}

// List returns snapshots of every card in registration order.
func (r *Registry) List() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.cards[id].info())
	}
	return out
}

func (e *entry) info() Info {
	return Info{
		ID:        e.desc.ID,
		Title:     e.desc.Title,
		Interval:  e.desc.Interval,
		Scheduled: e.timer != nil,
		HasRender: e.desc.Render != nil,
		HasUpdate: e.desc.Update != nil,
		Status:    e.status,
	}
}

// Close stops every timer, cancels the context passed to tick-triggered
// updates and waits for those updates to return. Cards stay registered and
// can still be rendered and updated manually. Close is idempotent.
//
// Close must not be called from an update hook started by a tick, since it
// would wait for that hook; use Shutdown with the hook's ctx there.
func (r *Registry) Close() {
	r.Shutdown(context.Background())
}

// Shutdown is Close for callers that may be running inside a tick-triggered
// update. When ctx is the one this registry handed to such an update, the
// wait skips that update and covers every other one.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		for _, e := range r.cards {
			if e.timer != nil {
				e.timer.stop()
				e.timer = nil
			}
		}
		r.cancel()
	}
	r.mu.Unlock()

	// Loops must be gone before waiting on ticks: they are the only ones
	// adding to it.
	r.loops.Wait()
	if run, ok := ctx.Value(tickRunKey{}).(*tickRun); ok && run.reg == r {
		run.release()
	}
	r.ticks.Wait()
}
