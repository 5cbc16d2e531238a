package checkpoint

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/docflow/types"
)

// Manager wraps a Store with logging and timestamping. The engine calls
// Save after every stage transition; a failed checkpoint is reported but
// must not fail the run, so Save surfaces the error and leaves the
// policy to the caller.
type Manager struct {
	store  Store
	logger *zap.Logger
}

// NewManager creates a checkpoint manager.
func NewManager(store Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:  store,
		logger: logger.With(zap.String("component", "checkpoint_manager")),
	}
}

// Save records the state after stage completed, with the current loop
// counter.
func (m *Manager) Save(ctx context.Context, runID, stage string, loopCount int, state *types.WorkflowState) error {
	cp := &Checkpoint{
		RunID:     runID,
		Stage:     stage,
		LoopCount: loopCount,
		State:     state,
		UpdatedAt: time.Now(),
	}
	if err := m.store.Save(ctx, cp); err != nil {
		m.logger.Error("checkpoint save failed",
			zap.String("run_id", runID),
			zap.String("stage", stage),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Load returns the latest checkpoint for the run.
func (m *Manager) Load(ctx context.Context, runID string) (*Checkpoint, error) {
	return m.store.Load(ctx, runID)
}

// Delete removes the run's checkpoint, typically once the run's artifact
// has been persisted elsewhere.
func (m *Manager) Delete(ctx context.Context, runID string) error {
	return m.store.Delete(ctx, runID)
}
