package types

import (
	"fmt"

	"github.com/BaSui01/docflow/detect"
)

// Output keys name the state slots the documentation stages write into.
// Each fan-out worker owns exactly one key; the disjoint ownership is what
// makes the concurrent join safe.
const (
	OutputCodeAnalysis  = "code_analysis"
	OutputDocstrings    = "docstrings"
	OutputMarkdownDocs  = "markdown_docs"
	OutputDiagrams      = "mermaid_diagrams"
	OutputValidation    = "validation_report"
	OutputFinalDocument = "final_documentation"
)

// Preferences carries caller-supplied documentation preferences for a run.
type Preferences struct {
	Style           string `json:"style,omitempty" yaml:"style,omitempty"`
	IncludeExamples bool   `json:"include_examples" yaml:"include_examples"`
	IncludeDiagrams bool   `json:"include_diagrams" yaml:"include_diagrams"`
}

// WorkflowState is the mutable record threaded through the stage graph.
// It is created once per run, owned by the engine's calling goroutine, and
// only written concurrently during the fan-out join window — where each
// worker owns a disjoint output slot and all writes go through the single
// coordinating goroutine.
type WorkflowState struct {
	// Input
	CodeContent string `json:"code_content"`
	Language    string `json:"language"`
	ProjectName string `json:"project_name"`

	// Worker and stage outputs
	CodeAnalysis       string `json:"code_analysis,omitempty"`
	Docstrings         string `json:"docstrings,omitempty"`
	MarkdownDocs       string `json:"markdown_docs,omitempty"`
	ValidationReport   string `json:"validation_report,omitempty"`
	MermaidDiagrams    string `json:"mermaid_diagrams,omitempty"`
	FinalDocumentation string `json:"final_documentation,omitempty"`

	// Review
	HumanFeedback    string   `json:"human_feedback,omitempty"`
	ApprovedSections []string `json:"approved_sections,omitempty"`
	NeedsReview      []string `json:"needs_review,omitempty"`

	// Context carried across runs of the same project
	DocumentationStyle  string            `json:"documentation_style,omitempty"`
	PreviousTerminology map[string]string `json:"previous_terminology,omitempty"`
	Preferences         Preferences       `json:"preferences"`

	// Change tracking
	PreviousCode string               `json:"previous_code,omitempty"`
	Changes      *detect.ChangeReport `json:"changes,omitempty"`
	IsUpdate     bool                 `json:"is_update"`

	// Control
	WorkersCompleted  []string `json:"workers_completed,omitempty"`
	AllWorkersDone    bool     `json:"all_workers_done"`
	RevisionRequested bool     `json:"revision_requested"`
	Err               *Error   `json:"error,omitempty"`

	ProgressMessages []string `json:"progress_messages,omitempty"`
}

// NewWorkflowState creates the state for a fresh run from caller input.
func NewWorkflowState(codeContent, language, projectName string) *WorkflowState {
	return &WorkflowState{
		CodeContent:         codeContent,
		Language:            language,
		ProjectName:         projectName,
		PreviousTerminology: make(map[string]string),
	}
}

// Validate checks the invariants every stage may assume on entry.
// A state that fails validation is a programming error upstream, not a
// recoverable condition.
func (s *WorkflowState) Validate() error {
	if s == nil {
		return NewError(ErrInvalidState, "state is nil")
	}
	if s.CodeContent == "" {
		return NewError(ErrInvalidState, "state has no code content")
	}
	if s.Language == "" {
		return NewError(ErrInvalidState, "state has no language")
	}
	return nil
}

// SetOutput writes a worker output into the slot named by key.
// Unknown keys are rejected rather than silently dropped.
func (s *WorkflowState) SetOutput(key, content string) error {
	switch key {
	case OutputCodeAnalysis:
		s.CodeAnalysis = content
	case OutputDocstrings:
		s.Docstrings = content
	case OutputMarkdownDocs:
		s.MarkdownDocs = content
	case OutputDiagrams:
		s.MermaidDiagrams = content
	case OutputValidation:
		s.ValidationReport = content
	case OutputFinalDocument:
		s.FinalDocumentation = content
	default:
		return fmt.Errorf("unknown output key: %s", key)
	}
	return nil
}

// Output reads the slot named by key.
func (s *WorkflowState) Output(key string) (string, bool) {
	switch key {
	case OutputCodeAnalysis:
		return s.CodeAnalysis, true
	case OutputDocstrings:
		return s.Docstrings, true
	case OutputMarkdownDocs:
		return s.MarkdownDocs, true
	case OutputDiagrams:
		return s.MermaidDiagrams, true
	case OutputValidation:
		return s.ValidationReport, true
	case OutputFinalDocument:
		return s.FinalDocumentation, true
	}
	return "", false
}

// AddProgressMessage appends to the state's progress log.
func (s *WorkflowState) AddProgressMessage(msg string) {
	s.ProgressMessages = append(s.ProgressMessages, msg)
}

// Fail records a fatal stage failure. The engine halts after the stage
// that set it.
func (s *WorkflowState) Fail(err *Error) {
	s.Err = err
}
