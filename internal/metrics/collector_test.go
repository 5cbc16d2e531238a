package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestCollector_RecordsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("docflow", reg, zap.NewNop())

	c.RecordRun("completed")
	c.RecordRun("completed")
	c.RecordRun("failed")
	c.RecordWorkerFailure("docstrings")
	c.RecordLoopRetry()
	c.RecordCheckpoint(true)
	c.RecordCheckpoint(false)
	c.RecordStage("validator", 120*time.Millisecond)
	c.RecordLLMRequest("code_analysis", 2*time.Second)

	if got := testutil.ToFloat64(c.runsTotal.WithLabelValues("completed")); got != 2 {
		t.Errorf("expected 2 completed runs, got %v", got)
	}
	if got := testutil.ToFloat64(c.runsTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("expected 1 failed run, got %v", got)
	}
	if got := testutil.ToFloat64(c.workerFailures.WithLabelValues("docstrings")); got != 1 {
		t.Errorf("expected 1 worker failure, got %v", got)
	}
	if got := testutil.ToFloat64(c.loopRetries); got != 1 {
		t.Errorf("expected 1 loop retry, got %v", got)
	}
	if got := testutil.ToFloat64(c.checkpointSaves); got != 1 {
		t.Errorf("expected 1 checkpoint save, got %v", got)
	}
	if got := testutil.ToFloat64(c.checkpointFailures); got != 1 {
		t.Errorf("expected 1 checkpoint failure, got %v", got)
	}
}

func TestCollector_SeparateRegistries(t *testing.T) {
	// Two collectors must be able to coexist on distinct registries
	// (every test gets its own).
	a := NewCollector("docflow", prometheus.NewRegistry(), zap.NewNop())
	b := NewCollector("docflow", prometheus.NewRegistry(), zap.NewNop())

	a.RecordRun("completed")
	if got := testutil.ToFloat64(b.runsTotal.WithLabelValues("completed")); got != 0 {
		t.Errorf("registries must be isolated, got %v", got)
	}
}
