package progress

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSink_PublishAndPoll(t *testing.T) {
	sink := NewSink(zap.NewNop())

	sink.Publish("run-1", 10, 100, "first")
	sink.Publish("run-1", 20, 100, "second")
	sink.Publish("run-2", 5, 100, "other run")

	events, cursor := sink.Poll("run-1", 0)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Message != "first" || events[1].Message != "second" {
		t.Errorf("unexpected event order: %+v", events)
	}
	if cursor != 2 {
		t.Errorf("expected cursor 2, got %d", cursor)
	}

	// Nothing new after the cursor.
	events, cursor = sink.Poll("run-1", cursor)
	if len(events) != 0 || cursor != 2 {
		t.Errorf("expected empty poll, got %d events cursor %d", len(events), cursor)
	}

	// New events appear after the cursor.
	sink.Publish("run-1", 30, 100, "third")
	events, _ = sink.Poll("run-1", cursor)
	if len(events) != 1 || events[0].Message != "third" {
		t.Errorf("expected only the new event, got %+v", events)
	}
}

func TestSink_ConcurrentProducers(t *testing.T) {
	sink := NewSink(zap.NewNop())

	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				sink.Publish("run-1", i, 100, fmt.Sprintf("producer %d event %d", p, i))
			}
		}(p)
	}
	wg.Wait()

	if got := sink.Len("run-1"); got != producers*perProducer {
		t.Fatalf("expected %d events, got %d", producers*perProducer, got)
	}
}

func TestSink_DisposeBoundsMemory(t *testing.T) {
	sink := NewSink(zap.NewNop())

	sink.Publish("run-1", 50, 100, "halfway")
	sink.Dispose("run-1")

	if got := sink.Len("run-1"); got != 0 {
		t.Errorf("expected disposed run to hold no events, got %d", got)
	}

	// Late events from stragglers are dropped, not resurrected.
	sink.Publish("run-1", 60, 100, "late")
	if got := sink.Len("run-1"); got != 0 {
		t.Errorf("expected late publish to be dropped, got %d events", got)
	}
}

// Tombstones of disposed runs must not pile up forever on a long-lived
// sink: once the straggler window has passed, the next Dispose sweeps
// them.
func TestSink_DisposeSweepsExpiredTombstones(t *testing.T) {
	sink := NewSink(zap.NewNop())
	clock := time.Unix(1700000000, 0)
	sink.now = func() time.Time { return clock }

	sink.Publish("run-1", 50, 100, "halfway")
	sink.Dispose("run-1")

	// Within the window the tombstone still drops stragglers.
	clock = clock.Add(closedRetention / 2)
	sink.Publish("run-1", 60, 100, "late")
	if got := sink.Len("run-1"); got != 0 {
		t.Fatalf("expected straggler to be dropped inside the window, got %d events", got)
	}

	clock = clock.Add(closedRetention)
	sink.Publish("run-2", 10, 100, "next run")
	sink.Dispose("run-2")

	sink.mu.RLock()
	_, run1Kept := sink.closed["run-1"]
	_, run2Kept := sink.closed["run-2"]
	tombstones := len(sink.closed)
	sink.mu.RUnlock()

	if run1Kept {
		t.Error("expected the expired tombstone to be swept")
	}
	if !run2Kept {
		t.Error("expected the fresh tombstone to remain")
	}
	if tombstones != 1 {
		t.Errorf("expected exactly 1 tombstone, got %d", tombstones)
	}
}

func TestSink_CallbackAdapts(t *testing.T) {
	sink := NewSink(zap.NewNop())

	cb := sink.Callback("run-9")
	cb(15, 100, "via callback")

	events, _ := sink.Poll("run-9", 0)
	if len(events) != 1 || events[0].Current != 15 {
		t.Fatalf("expected callback event, got %+v", events)
	}
}
