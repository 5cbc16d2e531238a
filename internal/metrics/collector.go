package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector aggregates the pipeline's prometheus metrics.
type Collector struct {
	// Engine metrics
	runsTotal     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	loopRetries   prometheus.Counter

	// Fan-out metrics
	workerFailures *prometheus.CounterVec

	// Checkpoint metrics
	checkpointSaves    prometheus.Counter
	checkpointFailures prometheus.Counter

	// LLM metrics
	llmRequestDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector creates a collector registered on reg. A nil reg uses the
// default registry.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.runsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by terminal outcome",
		},
		[]string{"outcome"},
	)

	c.stageDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Stage execution duration",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	c.loopRetries = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_retries_total",
			Help:      "Review-gate retry branches taken",
		},
	)

	c.workerFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_failures_total",
			Help:      "Fan-out worker failures by worker key",
		},
		[]string{"worker"},
	)

	c.checkpointSaves = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_saves_total",
			Help:      "Successful checkpoint saves",
		},
	)

	c.checkpointFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_failures_total",
			Help:      "Failed checkpoint saves",
		},
	)

	c.llmRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Text capability call duration",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	return c
}

// RecordRun counts a terminal run outcome ("completed", "failed",
// "loop_exhausted").
func (c *Collector) RecordRun(outcome string) {
	c.runsTotal.WithLabelValues(outcome).Inc()
}

// RecordStage observes one stage execution.
func (c *Collector) RecordStage(stage string, d time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordLoopRetry counts a retry branch taken at the review gate.
func (c *Collector) RecordLoopRetry() {
	c.loopRetries.Inc()
}

// RecordWorkerFailure counts a failed fan-out worker.
func (c *Collector) RecordWorkerFailure(worker string) {
	c.workerFailures.WithLabelValues(worker).Inc()
}

// RecordCheckpoint counts a checkpoint save attempt.
func (c *Collector) RecordCheckpoint(ok bool) {
	if ok {
		c.checkpointSaves.Inc()
	} else {
		c.checkpointFailures.Inc()
	}
}

// RecordLLMRequest observes one capability call.
func (c *Collector) RecordLLMRequest(worker string, d time.Duration) {
	c.llmRequestDuration.WithLabelValues(worker).Observe(d.Seconds())
}
