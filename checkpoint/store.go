package checkpoint

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/docflow/types"
)

// Checkpoint associates a run with its latest state. Stage names the
// stage that had completed when the checkpoint was taken; a resumed run
// re-enters the graph at the edge following it.
type Checkpoint struct {
	RunID     string               `json:"run_id"`
	Stage     string               `json:"stage"`
	LoopCount int                  `json:"loop_count"`
	State     *types.WorkflowState `json:"state"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Store persists checkpoints keyed by run ID. At most one writer per run
// ID; Load by a different goroutine is safe.
type Store interface {
	// Save persists the checkpoint, replacing any previous one for the run.
	Save(ctx context.Context, cp *Checkpoint) error
	// Load returns the latest checkpoint for the run, or a RUN_NOT_FOUND
	// error when absent.
	Load(ctx context.Context, runID string) (*Checkpoint, error)
	// Delete removes the run's checkpoint. Deleting an absent run is a no-op.
	Delete(ctx context.Context, runID string) error
}

// MemoryStore is an in-process Store for tests and single-shot CLI runs.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*Checkpoint
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*Checkpoint)}
}

func (s *MemoryStore) Save(_ context.Context, cp *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[cp.RunID] = cp
	return nil
}

func (s *MemoryStore) Load(_ context.Context, runID string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.runs[runID]
	if !ok {
		return nil, types.NewError(types.ErrRunNotFound, "no checkpoint for run "+runID)
	}
	return cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}
