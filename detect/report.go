package detect

import (
	"fmt"
	"strings"
)

// Kind classifies a named code entity.
type Kind string

const (
	KindFunction Kind = "function"
	KindClass    Kind = "class"
	KindMethod   Kind = "method"
)

// Item is one named entity extracted from source text.
type Item struct {
	Kind      Kind   `json:"kind"`
	Name      string `json:"name"`
	Signature string `json:"signature"`
}

// Key returns the index key for the item. Kind is part of the key, so a
// class and a free function sharing a name are distinct entities.
func (it Item) Key() string {
	return fmt.Sprintf("%s:%s", it.Kind, it.Name)
}

// ChangeReport is the structured diff between two versions of source
// text. Additions and deletions preserve first-seen order from the
// respective source. Modifications are a reserved capability: computed,
// carried, but not counted when empty.
type ChangeReport struct {
	Summary       string `json:"summary"`
	Additions     []Item `json:"additions"`
	Deletions     []Item `json:"deletions"`
	Modifications []Item `json:"modifications"`
}

// Empty reports whether no changes were detected.
func (r *ChangeReport) Empty() bool {
	return len(r.Additions) == 0 && len(r.Deletions) == 0 && len(r.Modifications) == 0
}

// summarize builds the human summary line counting non-empty categories.
func summarize(additions, deletions, modifications []Item) string {
	var parts []string
	if len(additions) > 0 {
		parts = append(parts, fmt.Sprintf("%d addition(s)", len(additions)))
	}
	if len(deletions) > 0 {
		parts = append(parts, fmt.Sprintf("%d deletion(s)", len(deletions)))
	}
	if len(modifications) > 0 {
		parts = append(parts, fmt.Sprintf("%d modification(s)", len(modifications)))
	}
	if len(parts) == 0 {
		return "No changes detected"
	}
	return strings.Join(parts, ", ")
}

// Render formats the report as a markdown section suitable for embedding
// in the compiled documentation.
func (r *ChangeReport) Render() string {
	var b strings.Builder
	b.WriteString("## Code Changes Detected\n\n")
	fmt.Fprintf(&b, "**Summary:** %s\n\n", r.Summary)

	if len(r.Additions) > 0 {
		b.WriteString("### Additions\n")
		for _, item := range r.Additions {
			fmt.Fprintf(&b, "- **%s**: `%s`\n", titleKind(item.Kind), item.Name)
		}
		b.WriteString("\n")
	}

	if len(r.Deletions) > 0 {
		b.WriteString("### Deletions\n")
		for _, item := range r.Deletions {
			fmt.Fprintf(&b, "- **%s**: `%s`\n", titleKind(item.Kind), item.Name)
		}
		b.WriteString("\n")
	}

	if len(r.Modifications) > 0 {
		b.WriteString("### Modifications\n")
		for _, item := range r.Modifications {
			fmt.Fprintf(&b, "- **%s**: `%s`\n", titleKind(item.Kind), item.Name)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func titleKind(k Kind) string {
	s := string(k)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
