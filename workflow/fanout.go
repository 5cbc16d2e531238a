package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/docflow/internal/metrics"
	"github.com/BaSui01/docflow/types"
)

// FailureMarker prefixes worker output that represents a failure
// instead of generated content. Downstream stages treat marked
// sections as degraded, not fatal.
const FailureMarker = "ERROR:"

// IsFailure reports whether worker content carries the failure marker.
func IsFailure(content string) bool {
	return strings.HasPrefix(content, FailureMarker)
}

// WorkerInputs is the read-only snapshot handed to each worker task.
// Tasks never see the live state; copies keep the join loop the only
// writer.
type WorkerInputs struct {
	Code          string
	Language      string
	ProjectName   string
	DocStyle      string
	Terminology   map[string]string
	ChangeContext string
	Feedback      string
}

// WorkerTask produces one named output section from the shared inputs.
// A returned error is converted into marked content; it never aborts
// the join.
type WorkerTask struct {
	Key string
	Run func(ctx context.Context, in WorkerInputs) (string, error)
}

type workerResult struct {
	key     string
	content string
	failed  bool
}

// Band is the slice of the run's progress range a fan-out stage owns.
type Band struct {
	Start int
	End   int
}

// FanOutJoin runs tasks on a bounded pool and applies results to the
// state from the calling goroutine only. One progress event is emitted
// per completion, evenly dividing the band, plus a closing event at
// the band's end. Individual task failures are isolated: the section
// holds marked content and the join still completes with
// AllWorkersDone set.
type FanOutJoin struct {
	tasks      []WorkerTask
	maxWorkers int
	band       Band
	collector  *metrics.Collector
	logger     *zap.Logger
}

func NewFanOutJoin(tasks []WorkerTask, maxWorkers int, band Band, collector *metrics.Collector, logger *zap.Logger) *FanOutJoin {
	if maxWorkers <= 0 {
		maxWorkers = len(tasks)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FanOutJoin{
		tasks:      tasks,
		maxWorkers: maxWorkers,
		band:       band,
		collector:  collector,
		logger:     logger.With(zap.String("component", "fanout_join")),
	}
}

// Execute fans the tasks out and joins their results into state.
func (f *FanOutJoin) Execute(ctx context.Context, rc *types.RunContext, state *types.WorkflowState, in WorkerInputs) error {
	if len(f.tasks) == 0 {
		state.AllWorkersDone = true
		return nil
	}

	results := make(chan workerResult, len(f.tasks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.maxWorkers)

	for _, task := range f.tasks {
		task := task
		g.Go(func() error {
			results <- f.runTask(ctx, task, in)
			return nil
		})
	}
	go func() {
		g.Wait() //nolint:errcheck // workers never return errors
		close(results)
	}()

	// Join loop: the sole writer of state during the fan-out.
	completed := 0
	span := f.band.End - f.band.Start
	var joinErr error
	for res := range results {
		completed++
		if res.failed {
			if f.collector != nil {
				f.collector.RecordWorkerFailure(res.key)
			}
			f.logger.Warn("worker failed",
				zap.String("run_id", rc.RunID()),
				zap.String("worker", res.key),
				zap.String("content", res.content))
		}
		if err := state.SetOutput(res.key, res.content); err != nil {
			joinErr = err
			continue
		}
		state.WorkersCompleted = append(state.WorkersCompleted, res.key)
		pct := f.band.Start + completed*span/len(f.tasks)
		msg := fmt.Sprintf("Worker %s finished (%d/%d)", res.key, completed, len(f.tasks))
		state.AddProgressMessage(msg)
		rc.Report(pct, msg)
	}

	state.AllWorkersDone = true
	rc.Report(f.band.End, "All workers completed")
	return joinErr
}

// runTask executes one task, converting errors and panics into marked
// content so a single misbehaving worker cannot sink the stage.
func (f *FanOutJoin) runTask(ctx context.Context, task WorkerTask, in WorkerInputs) (res workerResult) {
	defer func() {
		if r := recover(); r != nil {
			res = workerResult{
				key:     task.Key,
				content: fmt.Sprintf("%s worker %s panicked: %v", FailureMarker, task.Key, r),
				failed:  true,
			}
		}
	}()

	content, err := task.Run(ctx, in)
	if err != nil {
		return workerResult{
			key:     task.Key,
			content: fmt.Sprintf("%s %v", FailureMarker, err),
			failed:  true,
		}
	}
	return workerResult{key: task.Key, content: content}
}
