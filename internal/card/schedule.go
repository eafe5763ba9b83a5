package card

import (
	"context"
	"sync"
	"time"

	"github.com/tinytelemetry/cardwall/internal/model"
)

// ticker is the cancellable handle for one card's repeating update.
type ticker struct {
	cancel context.CancelFunc
	done   chan struct{} // closed when the tick loop exits
}

func (t *ticker) stop() { t.cancel() }

// arm starts a tick loop for id. Callers hold r.mu.
func (r *Registry) arm(id string, interval time.Duration) *ticker {
	ctx, cancel := context.WithCancel(r.ctx)
	t := &ticker{cancel: cancel, done: make(chan struct{})}

	r.loops.Add(1)
	go r.tickLoop(ctx, id, interval, t)
	return t
}

// tickLoop fires an update every interval until ctx is cancelled. Each tick
// runs in its own goroutine: a slow update does not delay or suppress the
// next tick, so updates of the same card may overlap.
func (r *Registry) tickLoop(ctx context.Context, id string, interval time.Duration, t *ticker) {
	defer r.loops.Done()
	defer close(t.done)

	tk := time.NewTicker(interval)
	defer tk.Stop()

	for {
		select {
		case <-tk.C:
			r.ticks.Add(1)
			run := &tickRun{reg: r}
			go func() {
				defer run.release()
				r.update(context.WithValue(r.ctx, tickRunKey{}, run), id, model.TriggerTick, t)
			}()
		case <-ctx.Done():
			return
		}
	}
}

type tickRunKey struct{}

// tickRun marks the ctx of one tick-triggered update so Shutdown can tell
// when it is called from inside that update.
type tickRun struct {
	reg  *Registry
	once sync.Once
}

// release marks the update as finished for Shutdown. Safe to call twice.
func (t *tickRun) release() {
	t.once.Do(t.reg.ticks.Done)
}
