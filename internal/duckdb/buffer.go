package duckdb

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinytelemetry/cardwall/internal/model"
)

// DefaultFlushQueueSize is the number of batches that can be queued for async flushing.
const DefaultFlushQueueSize = 16

// OutcomeBuffer batches card update outcomes and flushes them to DuckDB
// asynchronously. RecordOutcome never blocks on DuckDB writes, so it is safe
// to use as the registry's outcome recorder on the update path.
type OutcomeBuffer struct {
	writer        model.OutcomeWriter
	mu            sync.Mutex
	pending       []*model.Outcome
	flushChan     chan []*model.Outcome
	maxBatch      int
	flushInterval time.Duration
	closed        bool // set under mu by Stop; no outcome is accepted after
	done          chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
	tickWg        sync.WaitGroup // separate WaitGroup for tickLoop
	enqueueWg     sync.WaitGroup // full batches handed off outside mu

	dropped           atomic.Int64 // outcomes recorded after Stop began
	backpressureCount atomic.Int64
	lastBPLog         atomic.Int64 // unix timestamp of last backpressure log
}

// OutcomeBufferConfig holds tunable parameters for the outcome buffer.
type OutcomeBufferConfig struct {
	BatchSize      int
	FlushInterval  time.Duration
	FlushQueueSize int
}

// NewOutcomeBuffer creates a buffer that flushes to writer.
func NewOutcomeBuffer(writer model.OutcomeWriter, conf ...OutcomeBufferConfig) *OutcomeBuffer {
	batchSize := 256
	flushInterval := 500 * time.Millisecond
	flushQueueSize := DefaultFlushQueueSize
	if len(conf) > 0 {
		if conf[0].BatchSize > 0 {
			batchSize = conf[0].BatchSize
		}
		if conf[0].FlushInterval > 0 {
			flushInterval = conf[0].FlushInterval
		}
		if conf[0].FlushQueueSize > 0 {
			flushQueueSize = conf[0].FlushQueueSize
		}
	}

	b := &OutcomeBuffer{
		writer:        writer,
		pending:       make([]*model.Outcome, 0, batchSize),
		flushChan:     make(chan []*model.Outcome, flushQueueSize),
		maxBatch:      batchSize,
		flushInterval: flushInterval,
		done:          make(chan struct{}),
	}

	b.wg.Add(1)
	go b.flushWorker()

	b.wg.Add(1)
	b.tickWg.Add(1)
	go b.tickLoop()

	return b
}

// tickLoop periodically drains the pending buffer.
func (b *OutcomeBuffer) tickLoop() {
	defer b.wg.Done()
	defer b.tickWg.Done()
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.drainPending()
		case <-b.done:
			b.drainPending() // final drain
			return
		}
	}
}

// logBackpressure emits a throttled warning (at most once per 10 seconds) when
// the flush channel is full and an inline flush is triggered.
func (b *OutcomeBuffer) logBackpressure() {
	count := b.backpressureCount.Add(1)
	now := time.Now().Unix()
	last := b.lastBPLog.Load()
	if now-last >= 10 && b.lastBPLog.CompareAndSwap(last, now) {
		log.Printf("duckdb: backpressure: %d inline outcome flushes (flush channel full)", count)
	}
}

func (b *OutcomeBuffer) drainPending() {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.pending
	b.pending = make([]*model.Outcome, 0, b.maxBatch)
	b.mu.Unlock()

	b.enqueue(batch)
}

// enqueue hands a batch to the flush worker, flushing inline when the queue is full.
func (b *OutcomeBuffer) enqueue(batch []*model.Outcome) {
	select {
	case b.flushChan <- batch:
	default:
		b.logBackpressure()
		if err := b.writer.InsertOutcomeBatch(batch); err != nil {
			log.Printf("duckdb: outcome flush error (inline): %v", err)
		}
	}
}

func (b *OutcomeBuffer) flushWorker() {
	defer b.wg.Done()
	for batch := range b.flushChan {
		if err := b.writer.InsertOutcomeBatch(batch); err != nil {
			log.Printf("duckdb: outcome flush error: %v", err)
		}
	}
}

// RecordOutcome queues an outcome for batch insertion. Outcomes recorded
// once Stop has begun are dropped and counted.
func (b *OutcomeBuffer) RecordOutcome(o model.Outcome) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.dropped.Add(1)
		return
	}
	b.pending = append(b.pending, &o)
	var batch []*model.Outcome
	if len(b.pending) >= b.maxBatch {
		batch = b.pending
		b.pending = make([]*model.Outcome, 0, b.maxBatch)
		b.enqueueWg.Add(1)
	}
	b.mu.Unlock()

	if batch != nil {
		defer b.enqueueWg.Done()
		b.enqueue(batch)
	}
}

// Dropped returns how many outcomes arrived after Stop and were discarded.
func (b *OutcomeBuffer) Dropped() int64 {
	return b.dropped.Load()
}

// Stop flushes remaining outcomes and waits for all writes to complete.
// Every outcome accepted before Stop is written. It is safe to call more
// than once.
func (b *OutcomeBuffer) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()

		// Batches already taken by recorders go out while flushChan is open.
		b.enqueueWg.Wait()
		close(b.done)
		// Wait for tickLoop's final drain before closing flushChan.
		b.tickWg.Wait()
		close(b.flushChan)
		b.wg.Wait()
	})
}
