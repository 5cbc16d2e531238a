package progress

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/docflow/types"
)

// Event is one progress update. Current is scaled against Total
// (normalized to 100). Within a single stage's own reporting Current is
// non-decreasing; events from concurrent workers interleave and carry no
// global ordering guarantee beyond append order.
type Event struct {
	Current   int       `json:"current"`
	Total     int       `json:"total"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// closedRetention is how long a disposed run keeps dropping straggler
// events. Expired tombstones are swept on the next Dispose so a
// long-lived sink stays bounded.
const closedRetention = time.Minute

// Sink is an append-only event log keyed by run ID. It is safe for
// concurrent producers; consumption is cursor-based so a single consumer
// can poll or stream without coordination with producers.
type Sink struct {
	mu     sync.RWMutex
	events map[string][]Event
	closed map[string]time.Time
	logger *zap.Logger
	now    func() time.Time
}

// NewSink creates an empty sink.
func NewSink(logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		events: make(map[string][]Event),
		closed: make(map[string]time.Time),
		logger: logger.With(zap.String("component", "progress_sink")),
		now:    time.Now,
	}
}

// Publish appends an event to the run's log. Events published within
// the retention window after the run's log has been disposed are
// dropped.
func (s *Sink) Publish(runID string, current, total int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if closedAt, ok := s.closed[runID]; ok {
		if s.now().Sub(closedAt) < closedRetention {
			s.logger.Debug("event dropped after dispose",
				zap.String("run_id", runID),
				zap.String("message", message),
			)
			return
		}
		delete(s.closed, runID)
	}

	s.events[runID] = append(s.events[runID], Event{
		Current:   current,
		Total:     total,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// Callback adapts the sink to the engine's progress function contract
// for one run.
func (s *Sink) Callback(runID string) types.ProgressFunc {
	return func(current, total int, message string) {
		s.Publish(runID, current, total, message)
	}
}

// Poll returns events appended after the cursor position, along with the
// new cursor. A consumer starts at cursor 0 and passes back the returned
// cursor on each call. Duplicate delivery never occurs through a single
// cursor; consumers sharing a cursor must tolerate interleaved worker
// ordering within the returned slice.
func (s *Sink) Poll(runID string, cursor int) ([]Event, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.events[runID]
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(log) {
		return nil, cursor
	}

	batch := make([]Event, len(log)-cursor)
	copy(batch, log[cursor:])
	return batch, len(log)
}

// Len returns the number of events logged for a run.
func (s *Sink) Len(runID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events[runID])
}

// Dispose drops the run's log and marks it closed for the retention
// window. Called once the run reaches a terminal state. Tombstones of
// earlier runs that have aged past the window are swept here.
func (s *Sink) Dispose(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.events, runID)
	now := s.now()
	for id, closedAt := range s.closed {
		if now.Sub(closedAt) >= closedRetention {
			delete(s.closed, id)
		}
	}
	s.closed[runID] = now
}

// Forget removes all trace of a run, including the closed marker.
// Intended for long-lived sinks recycling run IDs.
func (s *Sink) Forget(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.events, runID)
	delete(s.closed, runID)
}
