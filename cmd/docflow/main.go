// docflow generates documentation for a source file through the staged
// pipeline: change detection, three concurrent generation workers,
// diagrams, validation, a bounded review loop, and final compilation.
//
// Usage:
//
//	docflow -in service.py -project billing
//	docflow -in service.py -project billing -prev service_v1.py -out docs.md
//	docflow -config docflow.yaml -in service.py -project billing
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/docflow/checkpoint"
	"github.com/BaSui01/docflow/config"
	"github.com/BaSui01/docflow/internal/metrics"
	"github.com/BaSui01/docflow/llm"
	"github.com/BaSui01/docflow/loader"
	"github.com/BaSui01/docflow/progress"
	"github.com/BaSui01/docflow/store"
	"github.com/BaSui01/docflow/types"
	"github.com/BaSui01/docflow/workflow"
)

const stuckProjectAge = time.Hour

func main() {
	var (
		configPath  = flag.String("config", "", "path to docflow.yaml")
		inPath      = flag.String("in", "", "source file to document (required)")
		projectName = flag.String("project", "", "project name (required)")
		prevPath    = flag.String("prev", "", "previous version of the source; defaults to the stored project code")
		outPath     = flag.String("out", "", "write the final document here instead of stdout")
		feedback    = flag.String("feedback", "", "pre-recorded review feedback; suppresses the automatic revision pass")
	)
	flag.Parse()

	if *inPath == "" || *projectName == "" {
		fmt.Fprintln(os.Stderr, "usage: docflow -in <source file> -project <name> [-prev file] [-out file] [-feedback text] [-config file]")
		os.Exit(2)
	}

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "docflow: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger, runOptions{
		inPath:      *inPath,
		projectName: *projectName,
		prevPath:    *prevPath,
		outPath:     *outPath,
		feedback:    *feedback,
	}); err != nil {
		var typed *types.Error
		if errors.As(err, &typed) {
			fmt.Fprintf(os.Stderr, "docflow: %s: %s\n", typed.Code, typed.Message)
		} else {
			fmt.Fprintf(os.Stderr, "docflow: %v\n", err)
		}
		os.Exit(1)
	}
}

// runOptions carries the per-invocation inputs from the flags.
type runOptions struct {
	inPath      string
	projectName string
	prevPath    string
	outPath     string
	feedback    string
}

func run(cfg *config.Config, logger *zap.Logger, opts runOptions) error {
	ctx := context.Background()

	src, err := loader.LoadFile(opts.inPath)
	if err != nil {
		return err
	}
	stats := src.Stats()
	logger.Info("source loaded",
		zap.String("path", opts.inPath),
		zap.String("language", src.Language),
		zap.Int("lines", stats.Lines))

	projects, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		return err
	}
	if _, err := projects.ResetStuck(ctx, stuckProjectAge); err != nil {
		logger.Warn("stuck project reset failed", zap.Error(err))
	}

	state := types.NewWorkflowState(src.Content, src.Language, opts.projectName)
	state.HumanFeedback = opts.feedback
	if err := seedPreviousVersion(ctx, state, projects, opts.projectName, opts.prevPath); err != nil {
		return err
	}

	cpStore, err := buildCheckpointStore(cfg.Checkpoint, logger)
	if err != nil {
		return err
	}

	capability := llm.NewResilient(
		llm.NewClient(llm.ClientConfig{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
		}, logger),
		llm.ResilientConfig{
			Timeout:           cfg.LLM.Timeout,
			MaxRetries:        cfg.LLM.MaxRetries,
			RetryBackoff:      time.Second,
			RequestsPerSecond: cfg.LLM.RateLimit,
		}, logger)

	collector := metrics.NewCollector("docflow", nil, logger)
	pipeline := workflow.NewPipeline(capability,
		workflow.PipelineConfig{WorkerPool: cfg.Engine.WorkerPool}, collector, logger)
	engine := workflow.NewEngine(pipeline.Graph(),
		workflow.WithCheckpoints(checkpoint.NewManager(cpStore, logger)),
		workflow.WithMetrics(collector),
		workflow.WithLogger(logger),
		workflow.WithRunTimeout(cfg.Engine.RunTimeout))

	runID := uuid.NewString()
	sink := progress.NewSink(logger)
	defer sink.Dispose(runID)
	stopProgress := streamProgress(sink, runID)

	rc := types.NewRunContext(runID, cfg.Engine.LoopBudget, sink.Callback(runID))

	if err := projects.Put(ctx, &store.Project{
		Name:     opts.projectName,
		Language: src.Language,
		Status:   store.StatusProcessing,
		Code:     state.PreviousCode,
	}); err != nil {
		return err
	}

	final, runErr := engine.Run(ctx, rc, state)
	stopProgress()

	if runErr != nil {
		if err := projects.SetStatus(ctx, opts.projectName, store.StatusError); err != nil {
			logger.Warn("project status update failed", zap.Error(err))
		}
		return runErr
	}

	doc, _ := final.Output(types.OutputFinalDocument)
	record := &store.Project{
		Name:          opts.projectName,
		Language:      src.Language,
		Status:        store.StatusCompleted,
		Code:          src.Content,
		Documentation: doc,
	}
	record.SetTerminology(final.PreviousTerminology)
	if err := projects.Put(ctx, record); err != nil {
		logger.Warn("project save failed", zap.Error(err))
	}

	if opts.outPath != "" {
		if err := os.WriteFile(opts.outPath, []byte(doc), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		logger.Info("documentation written", zap.String("path", opts.outPath))
		return nil
	}
	fmt.Println(doc)
	return nil
}

// seedPreviousVersion fills PreviousCode and terminology, preferring an
// explicit -prev file over the stored project record.
func seedPreviousVersion(ctx context.Context, state *types.WorkflowState, projects *store.ProjectStore, projectName, prevPath string) error {
	if prevPath != "" {
		prev, err := loader.LoadFile(prevPath)
		if err != nil {
			return err
		}
		state.PreviousCode = prev.Content
		return nil
	}
	record, err := projects.Get(ctx, projectName)
	if err != nil {
		if types.GetErrorCode(err) == types.ErrProjectNotFound {
			return nil // first run for this project
		}
		return err
	}
	state.PreviousCode = record.Code
	state.PreviousTerminology = record.TerminologyMap()
	return nil
}

func buildCheckpointStore(cfg config.CheckpointConfig, logger *zap.Logger) (checkpoint.Store, error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		return checkpoint.NewRedisStore(client, cfg.KeyPrefix, cfg.TTL, logger), nil
	case "sqlite":
		return checkpoint.OpenSQLStore(cfg.SQLitePath, logger)
	default:
		return checkpoint.NewMemoryStore(), nil
	}
}

// streamProgress drains the sink to stderr while the run executes.
func streamProgress(sink *progress.Sink, runID string) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		cursor := 0
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		drain := func() {
			var events []progress.Event
			events, cursor = sink.Poll(runID, cursor)
			for _, ev := range events {
				fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", ev.Current, ev.Message)
			}
		}
		for {
			select {
			case <-ticker.C:
				drain()
			case <-done:
				drain()
				return
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	logger, err := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
