package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/docflow/detect"
	"github.com/BaSui01/docflow/internal/metrics"
	"github.com/BaSui01/docflow/llm"
	"github.com/BaSui01/docflow/types"
)

// Stage IDs of the built-in documentation pipeline.
const (
	StageChangeDetector = "change_detector"
	StageWorkers        = "parallel_workers"
	StageDiagrams       = "diagram_generator"
	StageValidator      = "validator"
	StageReview         = "human_review"
	StageCompiler       = "compiler"
)

const defaultWorkerPool = 3

// PipelineConfig tunes the built-in pipeline.
type PipelineConfig struct {
	// WorkerPool caps concurrent generation workers. Zero means 3.
	WorkerPool int
}

// Pipeline assembles the documentation stage graph around a text
// generation capability.
type Pipeline struct {
	capability llm.Capability
	collector  *metrics.Collector
	logger     *zap.Logger
	workerPool int
}

func NewPipeline(capability llm.Capability, cfg PipelineConfig, collector *metrics.Collector, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool := cfg.WorkerPool
	if pool <= 0 {
		pool = defaultWorkerPool
	}
	return &Pipeline{
		capability: capability,
		collector:  collector,
		logger:     logger.With(zap.String("component", "pipeline")),
		workerPool: pool,
	}
}

// Graph wires the six stages:
//
//	change_detector -> parallel_workers -> diagram_generator ->
//	validator -> human_review -(Retry)-> parallel_workers
//	                          -(Proceed)-> compiler
func (p *Pipeline) Graph() *StageGraph {
	g := NewStageGraph()
	g.AddStage(StageChangeDetector, p.changeDetectorStage)
	g.AddStage(StageWorkers, p.workersStage)
	g.AddStage(StageDiagrams, p.diagramStage)
	g.AddStage(StageValidator, p.validatorStage)
	g.AddStage(StageReview, p.reviewStage)
	g.AddStage(StageCompiler, p.compilerStage)

	g.AddEdge(StageChangeDetector, StageWorkers)
	g.AddEdge(StageWorkers, StageDiagrams)
	g.AddEdge(StageDiagrams, StageValidator)
	g.AddEdge(StageValidator, StageReview)
	g.AddConditionalEdge(StageReview, reviewGate, map[BranchOutcome]string{
		OutcomeRetry:   StageWorkers,
		OutcomeProceed: StageCompiler,
	})

	g.SetEntry(StageChangeDetector)
	g.SetTerminal(StageCompiler)
	return g
}

// changeDetectorStage compares the incoming code against the previous
// version, when one exists. It degrades rather than fails: a run on
// unrecognized input simply reports no changes.
func (p *Pipeline) changeDetectorStage(ctx context.Context, rc *types.RunContext, state *types.WorkflowState) error {
	rc.Report(5, "Analyzing code changes")

	msg := "Processing new code (no previous version)"
	if state.PreviousCode != "" {
		report := detect.NewDetectorForLanguage(state.Language).Compare(state.PreviousCode, state.CodeContent)
		state.Changes = report
		state.IsUpdate = !report.Empty()
		msg = "Change detection: " + report.Summary
	} else {
		state.Changes = nil
		state.IsUpdate = false
	}

	state.AddProgressMessage(msg)
	rc.Report(8, msg)
	return nil
}

// workersStage fans out the three generation workers. A revision pass
// resets the join bookkeeping so WorkersCompleted reflects the latest
// pass only.
func (p *Pipeline) workersStage(ctx context.Context, rc *types.RunContext, state *types.WorkflowState) error {
	rc.Report(10, "Starting documentation workers")
	state.WorkersCompleted = nil
	state.AllWorkersDone = false

	if state.DocumentationStyle == "" {
		if state.Preferences.Style != "" {
			state.DocumentationStyle = state.Preferences.Style
		} else {
			state.DocumentationStyle = docStyleFor(state.Language)
		}
	}

	in := WorkerInputs{
		Code:          state.CodeContent,
		Language:      state.Language,
		ProjectName:   state.ProjectName,
		DocStyle:      state.DocumentationStyle,
		Terminology:   state.PreviousTerminology,
		ChangeContext: changeContext(state),
		Feedback:      state.HumanFeedback,
	}

	tasks := []WorkerTask{
		{Key: types.OutputCodeAnalysis, Run: p.analysisWorker},
		{Key: types.OutputDocstrings, Run: p.docstringWorker},
		{Key: types.OutputMarkdownDocs, Run: p.markdownWorker},
	}
	join := NewFanOutJoin(tasks, p.workerPool, Band{Start: 10, End: 40}, p.collector, p.logger)
	return join.Execute(ctx, rc, state, in)
}

func (p *Pipeline) analysisWorker(ctx context.Context, in WorkerInputs) (string, error) {
	role := analyzerPrompt + in.ChangeContext
	return p.generate(ctx, types.OutputCodeAnalysis, role, promptPayload(in))
}

func (p *Pipeline) docstringWorker(ctx context.Context, in WorkerInputs) (string, error) {
	role := docstringPrompt + styleGuide(in.DocStyle) + in.ChangeContext
	return p.generate(ctx, types.OutputDocstrings, role, promptPayload(in))
}

func (p *Pipeline) markdownWorker(ctx context.Context, in WorkerInputs) (string, error) {
	role := markdownPrompt + styleGuide(in.DocStyle) + in.ChangeContext
	if len(in.Terminology) > 0 {
		terms := make([]string, 0, len(in.Terminology))
		for k, v := range in.Terminology {
			terms = append(terms, fmt.Sprintf("%s = %s", k, v))
		}
		role += "\n\nProject terminology to keep: " + strings.Join(terms, "; ")
	}
	return p.generate(ctx, types.OutputMarkdownDocs, role, promptPayload(in))
}

// diagramStage turns the analysis into mermaid diagrams. Generation
// problems degrade to a placeholder section; the run continues.
func (p *Pipeline) diagramStage(ctx context.Context, rc *types.RunContext, state *types.WorkflowState) error {
	rc.Report(50, "Generating architecture diagrams")

	source := state.CodeAnalysis
	if source == "" || IsFailure(source) {
		source = state.CodeContent
	}
	out, err := p.generate(ctx, "diagrams", diagramPrompt, clip(source, 3000))
	if err != nil {
		p.logger.Warn("diagram generation degraded", zap.Error(err))
		out = "# Architecture Diagrams\n\n*Diagram generation was unavailable for this run.*"
	}
	if err := state.SetOutput(types.OutputDiagrams, out); err != nil {
		return err
	}

	state.AddProgressMessage("Diagrams ready")
	rc.Report(60, "Diagrams ready")
	return nil
}

// validatorStage reviews the generated sections and fills NeedsReview
// with findings for the review gate.
func (p *Pipeline) validatorStage(ctx context.Context, rc *types.RunContext, state *types.WorkflowState) error {
	rc.Report(70, "Validating documentation")

	payload := fmt.Sprintf("## Analysis\n%s\n\n## Docstrings\n%s\n\n## Markdown\n%s",
		clip(state.CodeAnalysis, 2000),
		clip(state.Docstrings, 2000),
		clip(state.MarkdownDocs, 2000))
	out, err := p.generate(ctx, "validator", validatorPrompt, payload)
	if err != nil {
		out = fmt.Sprintf("Validation error: %v", err)
	}
	if err := state.SetOutput(types.OutputValidation, out); err != nil {
		return err
	}
	state.NeedsReview = reviewFindings(out, state)

	msg := "Validation passed"
	if len(state.NeedsReview) > 0 {
		msg = fmt.Sprintf("Validation flagged %d item(s) for review", len(state.NeedsReview))
	}
	state.AddProgressMessage(msg)
	rc.Report(80, msg)
	return nil
}

// reviewStage is the gate's source of truth. Without recorded feedback
// a non-empty findings list requests exactly one revision pass; the
// recorded auto-approval makes the second visit proceed.
func (p *Pipeline) reviewStage(ctx context.Context, rc *types.RunContext, state *types.WorkflowState) error {
	if len(state.NeedsReview) > 0 && state.HumanFeedback == "" {
		state.RevisionRequested = true
		state.HumanFeedback = "Auto-approved: address review findings in one revision pass"
		msg := fmt.Sprintf("Review requested a revision pass (%d finding(s))", len(state.NeedsReview))
		state.AddProgressMessage(msg)
		rc.Report(85, msg)
		return nil
	}

	state.RevisionRequested = false
	state.ApprovedSections = []string{"all"}
	state.NeedsReview = nil
	state.AddProgressMessage("Documentation approved")
	rc.Report(85, "Documentation approved")
	return nil
}

// reviewGate picks the branch after human_review. Pure over state so
// the engine can re-evaluate it on resume.
func reviewGate(state *types.WorkflowState) BranchOutcome {
	if state.RevisionRequested {
		return OutcomeRetry
	}
	return OutcomeProceed
}

// compilerStage assembles the final document from whatever sections
// survived, substituting placeholders for failed workers.
func (p *Pipeline) compilerStage(ctx context.Context, rc *types.RunContext, state *types.WorkflowState) error {
	rc.Report(90, "Compiling final documentation")

	if err := state.SetOutput(types.OutputFinalDocument, compileDocument(state)); err != nil {
		return err
	}
	state.AddProgressMessage("Final documentation compiled")
	rc.Report(types.ProgressTotal, "Documentation complete")
	return nil
}

func (p *Pipeline) generate(ctx context.Context, worker, role, content string) (string, error) {
	start := time.Now()
	out, err := p.capability.Generate(ctx, role, content)
	if p.collector != nil {
		p.collector.RecordLLMRequest(worker, time.Since(start))
	}
	return out, err
}

func promptPayload(in WorkerInputs) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\nLanguage: %s\n\n", in.ProjectName, in.Language)
	if in.Feedback != "" {
		fmt.Fprintf(&b, "Reviewer feedback to address: %s\n\n", in.Feedback)
	}
	b.WriteString("```")
	b.WriteString(in.Language)
	b.WriteString("\n")
	b.WriteString(clip(in.Code, 24000))
	b.WriteString("\n```")
	return b.String()
}

func changeContext(state *types.WorkflowState) string {
	if !state.IsUpdate || state.Changes == nil {
		return ""
	}
	return "\n\nThis code updates a previously documented version. " +
		state.Changes.Summary +
		". Focus on the changed symbols and keep unchanged documentation stable."
}

// reviewFindings derives the needs-review list from the validation
// report text and from failed worker sections.
func reviewFindings(report string, state *types.WorkflowState) []string {
	var findings []string
	if strings.Contains(report, "Missing:") || strings.Contains(report, "⚠") {
		findings = append(findings, "Incomplete documentation detected")
	}
	for _, key := range []string{types.OutputCodeAnalysis, types.OutputDocstrings, types.OutputMarkdownDocs} {
		if content, ok := state.Output(key); ok && IsFailure(content) {
			findings = append(findings, "Section unavailable: "+key)
		}
	}
	return findings
}

func compileDocument(state *types.WorkflowState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Documentation\n\n", state.ProjectName)
	fmt.Fprintf(&b, "*Generated %s*\n\n", time.Now().Format("2006-01-02 15:04"))

	b.WriteString("## Table of Contents\n\n")
	b.WriteString("1. [Overview](#overview)\n")
	if state.IsUpdate && state.Changes != nil {
		b.WriteString("2. [Code Changes](#code-changes)\n")
	}
	b.WriteString("- [API Reference](#api-reference)\n")
	b.WriteString("- [Usage Guide](#usage-guide)\n")
	b.WriteString("- [Architecture Diagrams](#architecture-diagrams)\n")
	b.WriteString("- [Validation Report](#validation-report)\n\n")

	b.WriteString("## Overview\n\n")
	b.WriteString(sectionOr(state.CodeAnalysis, "*Code analysis unavailable.*"))
	b.WriteString("\n\n")

	if state.IsUpdate && state.Changes != nil {
		b.WriteString(state.Changes.Render())
		b.WriteString("\n\n")
	}

	b.WriteString("## API Reference\n\n")
	b.WriteString(sectionOr(state.Docstrings, "*Docstring generation unavailable.*"))
	b.WriteString("\n\n")

	b.WriteString("## Usage Guide\n\n")
	b.WriteString(sectionOr(state.MarkdownDocs, "*Usage documentation unavailable.*"))
	b.WriteString("\n\n")

	b.WriteString("## Architecture Diagrams\n\n")
	b.WriteString(sectionOr(state.MermaidDiagrams, "*No diagrams generated.*"))
	b.WriteString("\n\n")

	b.WriteString("## Validation Report\n\n")
	b.WriteString(sectionOr(state.ValidationReport, "*No validation report.*"))
	b.WriteString("\n\n")

	if state.HumanFeedback != "" {
		fmt.Fprintf(&b, "**Review:** %s\n", state.HumanFeedback)
	}
	if len(state.ApprovedSections) > 0 {
		fmt.Fprintf(&b, "**Approved sections:** %s\n", strings.Join(state.ApprovedSections, ", "))
	}
	return b.String()
}

func sectionOr(content, fallback string) string {
	if content == "" || IsFailure(content) {
		return fallback
	}
	return content
}
