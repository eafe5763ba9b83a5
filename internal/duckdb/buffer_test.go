package duckdb

import (
	"sync"
	"testing"
	"time"

	"github.com/tinytelemetry/cardwall/internal/model"
)

func testOutcome(id string) model.Outcome {
	return model.Outcome{
		CardID:    id,
		Title:     "Test",
		OK:        true,
		Trigger:   model.TriggerTick,
		StartedAt: time.Now(),
		Duration:  time.Millisecond,
	}
}

func TestOutcomeBuffer_RecordAndStop(t *testing.T) {
	store := newTestStore(t)
	buf := NewOutcomeBuffer(store)

	for i := 0; i < 10; i++ {
		buf.RecordOutcome(testOutcome("a"))
	}

	// Stop should flush all pending outcomes
	buf.Stop()

	count, err := store.TotalOutcomes()
	if err != nil {
		t.Fatalf("TotalOutcomes: %v", err)
	}
	if count != 10 {
		t.Errorf("after Stop, TotalOutcomes = %d, want 10", count)
	}
}

func TestOutcomeBuffer_BatchThreshold(t *testing.T) {
	store := newTestStore(t)
	buf := NewOutcomeBuffer(store, OutcomeBufferConfig{BatchSize: 8, FlushInterval: time.Hour})

	for i := 0; i < 20; i++ {
		buf.RecordOutcome(testOutcome("a"))
	}

	// Two full batches flush without waiting for the interval.
	deadline := time.Now().Add(2 * time.Second)
	for {
		count, _ := store.TotalOutcomes()
		if count >= 16 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("TotalOutcomes = %d before Stop, want >= 16", count)
		}
		time.Sleep(5 * time.Millisecond)
	}

	buf.Stop()
	count, _ := store.TotalOutcomes()
	if count != 20 {
		t.Errorf("after Stop, TotalOutcomes = %d, want 20", count)
	}
}

func TestOutcomeBuffer_FlushInterval(t *testing.T) {
	store := newTestStore(t)
	buf := NewOutcomeBuffer(store, OutcomeBufferConfig{FlushInterval: 10 * time.Millisecond})
	defer buf.Stop()

	buf.RecordOutcome(testOutcome("a"))

	deadline := time.Now().Add(2 * time.Second)
	for {
		if count, _ := store.TotalOutcomes(); count == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("outcome never flushed by the interval tick")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestOutcomeBuffer_ConcurrentRecord(t *testing.T) {
	store := newTestStore(t)
	buf := NewOutcomeBuffer(store, OutcomeBufferConfig{BatchSize: 16, FlushQueueSize: 1})

	var wg sync.WaitGroup
	numGoroutines := 10
	perGoroutine := 50

	for g := 0; g < numGoroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				buf.RecordOutcome(testOutcome("a"))
			}
		}()
	}
	wg.Wait()
	buf.Stop()

	count, err := store.TotalOutcomes()
	if err != nil {
		t.Fatalf("TotalOutcomes: %v", err)
	}
	if want := int64(numGoroutines * perGoroutine); count != want {
		t.Errorf("TotalOutcomes = %d, want %d", count, want)
	}
}

func TestOutcomeBuffer_RecordAfterStopDropped(t *testing.T) {
	store := newTestStore(t)
	buf := NewOutcomeBuffer(store)
	buf.Stop()
	buf.Stop()

	buf.RecordOutcome(testOutcome("late"))

	count, _ := store.TotalOutcomes()
	if count != 0 {
		t.Errorf("TotalOutcomes = %d, want 0", count)
	}
	if got := buf.Dropped(); got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
}

func TestOutcomeBuffer_StopRacingRecorders(t *testing.T) {
	store := newTestStore(t)

	const (
		rounds    = 20
		writers   = 8
		perWriter = 200
	)
	var want int64
	for round := 0; round < rounds; round++ {
		// Small batches and a one-slot queue push recorders through the
		// full-batch and inline-flush paths while Stop runs.
		buf := NewOutcomeBuffer(store, OutcomeBufferConfig{BatchSize: 3, FlushQueueSize: 1})

		var wg sync.WaitGroup
		start := make(chan struct{})
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for i := 0; i < perWriter; i++ {
					buf.RecordOutcome(testOutcome("race"))
				}
			}()
		}
		close(start)
		time.Sleep(time.Duration(round%4) * time.Millisecond)
		buf.Stop()
		wg.Wait()

		want += writers*perWriter - buf.Dropped()
	}

	count, err := store.TotalOutcomes()
	if err != nil {
		t.Fatalf("TotalOutcomes: %v", err)
	}
	if count != want {
		t.Errorf("TotalOutcomes = %d, want %d accepted outcomes", count, want)
	}
}
