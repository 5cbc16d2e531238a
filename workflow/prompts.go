package workflow

import "fmt"

// System prompts for the generation workers. Kept terse on purpose:
// the change context and style guide are appended per run.

const analyzerPrompt = `You are a senior code analyst. Produce a structured analysis of the
given source code in markdown: purpose, key components, public API
surface, data flow, and notable design decisions. Be precise and avoid
speculation about code you cannot see.`

const docstringPrompt = `You are a documentation engineer. Write docstrings for every public
function, class, and method in the given source code, following the
requested documentation style exactly. Return only the documented
signatures with their docstrings, in source order.`

const markdownPrompt = `You are a technical writer. Produce user-facing markdown documentation
for the given source code: an overview, installation or usage notes
where applicable, and a reference section per public symbol with a
short example. Use the project's terminology consistently.`

const diagramPrompt = `You are a software architect. From the code analysis below, produce
mermaid diagrams (flowchart or classDiagram) illustrating the main
components and their relationships. Return only fenced mermaid blocks
with one-line captions.`

const validatorPrompt = `You are a documentation reviewer. Check the documentation below for
completeness, accuracy against the analysis, and style consistency.
Report problems as a markdown list; prefix missing coverage with
"Missing:" and quality concerns with a warning symbol. End with an
overall verdict line.`

// docStyleFor maps a source language to its conventional documentation
// style, used when the caller expressed no preference.
func docStyleFor(language string) string {
	switch language {
	case "python":
		return "Google Style"
	case "javascript":
		return "JSDoc"
	case "typescript":
		return "TSDoc"
	case "java":
		return "Javadoc"
	case "c#":
		return "XML Documentation"
	case "go":
		return "GoDoc"
	case "rust":
		return "Rustdoc"
	default:
		return "Standard"
	}
}

func styleGuide(style string) string {
	return fmt.Sprintf("\n\nDocumentation style: %s. Follow its conventions for parameter, return and example sections.", style)
}

// clip bounds prompt payloads so a huge input file cannot blow the
// provider's context window.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n... (truncated)"
}
