package types

import "github.com/google/uuid"

// ProgressTotal is the normalized progress scale reported to consumers.
const ProgressTotal = 100

// ProgressFunc receives progress updates for a run. It may be invoked
// from concurrent fan-out workers; implementations must be safe for
// concurrent use. Within a single stage's own reporting, current values
// are non-decreasing; across concurrent workers the consumer must
// tolerate interleaving.
type ProgressFunc func(current, total int, message string)

// RunContext identifies one pipeline run. It is created at run start and
// immutable thereafter.
type RunContext struct {
	runID      string
	loopBudget int
	progress   ProgressFunc
}

// NewRunContext creates a run context. An empty runID is replaced with a
// fresh UUID. loopBudget bounds the one permitted cycle in the stage
// graph; values below zero are treated as zero (no retries allowed).
func NewRunContext(runID string, loopBudget int, progress ProgressFunc) *RunContext {
	if runID == "" {
		runID = uuid.NewString()
	}
	if loopBudget < 0 {
		loopBudget = 0
	}
	return &RunContext{
		runID:      runID,
		loopBudget: loopBudget,
		progress:   progress,
	}
}

// RunID returns the opaque run identifier.
func (rc *RunContext) RunID() string { return rc.runID }

// LoopBudget returns the loop-iteration ceiling for this run.
func (rc *RunContext) LoopBudget() int { return rc.loopBudget }

// Report emits a progress event if a reporter is attached.
func (rc *RunContext) Report(current int, message string) {
	if rc.progress != nil {
		rc.progress(current, ProgressTotal, message)
	}
}
