package workflow

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/docflow/checkpoint"
	"github.com/BaSui01/docflow/internal/metrics"
	"github.com/BaSui01/docflow/types"
)

const (
	runCompleted     = "completed"
	runFailed        = "failed"
	runLoopExhausted = "loop_exhausted"
)

// Engine executes a StageGraph sequentially in the caller's goroutine.
// After every stage it persists a checkpoint (when a manager is
// configured), so a crashed run can be resumed at the edge following
// the last completed stage.
type Engine struct {
	graph       *StageGraph
	checkpoints *checkpoint.Manager
	collector   *metrics.Collector
	tracer      trace.Tracer
	logger      *zap.Logger
	runTimeout  time.Duration
}

type EngineOption func(*Engine)

// WithCheckpoints enables checkpoint persistence after each stage.
func WithCheckpoints(m *checkpoint.Manager) EngineOption {
	return func(e *Engine) { e.checkpoints = m }
}

// WithMetrics wires a collector for run/stage/loop instrumentation.
func WithMetrics(c *metrics.Collector) EngineOption {
	return func(e *Engine) { e.collector = c }
}

func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithRunTimeout bounds the wall-clock duration of a whole run.
// Zero disables the bound.
func WithRunTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.runTimeout = d }
}

func NewEngine(graph *StageGraph, opts ...EngineOption) *Engine {
	e := &Engine{
		graph:  graph,
		tracer: otel.Tracer("github.com/BaSui01/docflow/workflow"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "workflow_engine"))
	return e
}

// Run validates the graph and state, then executes stages from the
// entry until the terminal stage completes or a failure halts the run.
// The returned state is always usable for inspection even on failure;
// the error mirrors state.Err.
func (e *Engine) Run(ctx context.Context, rc *types.RunContext, state *types.WorkflowState) (*types.WorkflowState, error) {
	if err := e.graph.Validate(); err != nil {
		return state, err
	}
	if err := state.Validate(); err != nil {
		return state, err
	}
	return e.execute(ctx, rc, state, e.graph.entry, rc.LoopBudget())
}

// Resume continues a run from its last checkpoint: the persisted state
// is re-entered at the edge following the last completed stage, with
// the loop budget reduced by the retries already consumed.
func (e *Engine) Resume(ctx context.Context, rc *types.RunContext) (*types.WorkflowState, error) {
	if e.checkpoints == nil {
		return nil, types.NewError(types.ErrCheckpointFailed, "resume requires a checkpoint manager")
	}
	if err := e.graph.Validate(); err != nil {
		return nil, err
	}
	cp, err := e.checkpoints.Load(ctx, rc.RunID())
	if err != nil {
		return nil, err
	}
	state := cp.State
	if state == nil {
		return nil, types.NewError(types.ErrCheckpointFailed, "checkpoint carries no state").WithStage(cp.Stage)
	}
	if state.Err != nil {
		return state, state.Err
	}
	remaining := rc.LoopBudget() - cp.LoopCount
	if remaining < 0 {
		remaining = 0
	}
	if cp.Stage == e.graph.terminal {
		return state, nil
	}
	next, retry, err := e.resolveNext(cp.Stage, state)
	if err != nil {
		state.Fail(err.(*types.Error))
		return state, state.Err
	}
	if retry {
		if remaining == 0 {
			return e.exhaust(rc, state, cp.Stage)
		}
		remaining--
	}
	e.logger.Info("resuming run",
		zap.String("run_id", rc.RunID()),
		zap.String("after_stage", cp.Stage),
		zap.String("next_stage", next))
	return e.execute(ctx, rc, state, next, remaining)
}

func (e *Engine) execute(ctx context.Context, rc *types.RunContext, state *types.WorkflowState, start string, remaining int) (*types.WorkflowState, error) {
	if e.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.runTimeout)
		defer cancel()
	}

	ctx, runSpan := e.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(attribute.String("run.id", rc.RunID())))
	defer runSpan.End()

	current := start
	loops := rc.LoopBudget() - remaining

	for {
		if err := ctx.Err(); err != nil {
			state.Fail(types.NewError(types.ErrStageFailed, "run aborted: "+err.Error()).
				WithStage(current).WithCause(err))
			e.recordRun(runFailed)
			return state, state.Err
		}

		s := e.graph.stages[current]
		if err := e.runStage(ctx, rc, state, s); err != nil {
			fail, ok := err.(*types.Error)
			if !ok {
				fail = types.NewError(types.ErrStageFailed, err.Error()).WithCause(err)
			}
			state.Fail(fail.WithStage(current))
		}

		e.saveCheckpoint(ctx, rc, current, loops, state)

		if state.Err != nil {
			e.logger.Error("run halted",
				zap.String("run_id", rc.RunID()),
				zap.String("stage", current),
				zap.Error(state.Err))
			e.recordRun(runFailed)
			return state, state.Err
		}
		if current == e.graph.terminal {
			e.logger.Info("run completed", zap.String("run_id", rc.RunID()))
			e.recordRun(runCompleted)
			return state, nil
		}

		next, retry, err := e.resolveNext(current, state)
		if err != nil {
			state.Fail(err.(*types.Error))
			e.recordRun(runFailed)
			return state, state.Err
		}
		if retry {
			if remaining == 0 {
				return e.exhaust(rc, state, current)
			}
			remaining--
			loops++
			if e.collector != nil {
				e.collector.RecordLoopRetry()
			}
			e.logger.Info("retry branch taken",
				zap.String("run_id", rc.RunID()),
				zap.String("from", current),
				zap.String("to", next),
				zap.Int("budget_remaining", remaining))
		}
		current = next
	}
}

func (e *Engine) runStage(ctx context.Context, rc *types.RunContext, state *types.WorkflowState, s *stage) error {
	ctx, span := e.tracer.Start(ctx, "workflow.stage."+s.id,
		trace.WithAttributes(attribute.String("stage.id", s.id)))
	defer span.End()

	start := time.Now()
	err := s.run(ctx, rc, state)
	if e.collector != nil {
		e.collector.RecordStage(s.id, time.Since(start))
	}
	e.logger.Debug("stage finished",
		zap.String("run_id", rc.RunID()),
		zap.String("stage", s.id),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("failed", err != nil || state.Err != nil))
	return err
}

// resolveNext picks the transition out of a completed stage. The retry
// flag is true when a gate chose the loop branch. The id may come from
// a persisted checkpoint, so an unknown stage is an error, not a panic.
func (e *Engine) resolveNext(id string, state *types.WorkflowState) (string, bool, error) {
	s, ok := e.graph.stages[id]
	if !ok {
		return "", false, types.NewError(types.ErrCheckpointFailed,
			fmt.Sprintf("checkpointed stage %q is not in the graph", id)).WithStage(id)
	}
	if s.gate == nil {
		return s.next, false, nil
	}
	outcome := s.gate(state)
	target, ok := s.routes[outcome]
	if !ok {
		return "", false, types.NewError(types.ErrInvalidGraph,
			fmt.Sprintf("gate at %q produced unrouted outcome %s", id, outcome)).WithStage(id)
	}
	return target, outcome == OutcomeRetry, nil
}

func (e *Engine) exhaust(rc *types.RunContext, state *types.WorkflowState, stageID string) (*types.WorkflowState, error) {
	state.Fail(types.NewError(types.ErrLoopBudgetExhausted,
		fmt.Sprintf("loop budget of %d exhausted", rc.LoopBudget())).WithStage(stageID))
	e.logger.Error("loop budget exhausted",
		zap.String("run_id", rc.RunID()),
		zap.String("stage", stageID),
		zap.Int("budget", rc.LoopBudget()))
	e.recordRun(runLoopExhausted)
	return state, state.Err
}

func (e *Engine) saveCheckpoint(ctx context.Context, rc *types.RunContext, stageID string, loops int, state *types.WorkflowState) {
	if e.checkpoints == nil {
		return
	}
	err := e.checkpoints.Save(ctx, rc.RunID(), stageID, loops, state)
	if e.collector != nil {
		e.collector.RecordCheckpoint(err == nil)
	}
	// Persistence problems must not kill a healthy run.
	if err != nil {
		e.logger.Warn("checkpoint save failed",
			zap.String("run_id", rc.RunID()),
			zap.String("stage", stageID),
			zap.Error(err))
	}
}

func (e *Engine) recordRun(outcome string) {
	if e.collector != nil {
		e.collector.RecordRun(outcome)
	}
}
