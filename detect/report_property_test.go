package detect

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// Compare(x, x) must be empty for any text whatsoever.
func TestCompare_SelfCompareAlwaysEmpty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")

		report := Compare(text, text)

		if !report.Empty() {
			t.Fatalf("self-compare not empty for %q: %+v", text, report)
		}
		if report.Summary != "No changes detected" {
			t.Fatalf("unexpected summary for self-compare: %q", report.Summary)
		}
	})
}

// Compare must be deterministic for a given (old, new) pair.
func TestCompare_Deterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		oldText := rapid.String().Draw(t, "old")
		newText := rapid.String().Draw(t, "new")

		first := Compare(oldText, newText)
		second := Compare(oldText, newText)

		if first.Summary != second.Summary {
			t.Fatalf("summary not deterministic: %q vs %q", first.Summary, second.Summary)
		}
		if len(first.Additions) != len(second.Additions) ||
			len(first.Deletions) != len(second.Deletions) ||
			len(first.Modifications) != len(second.Modifications) {
			t.Fatalf("report shape not deterministic: %+v vs %+v", first, second)
		}
	})
}

// Appending distinct functions to an empty base yields exactly those
// functions as additions, in first-seen order.
func TestCompare_GeneratedAdditionsPreserveOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(1, 8).Draw(t, "count")

		var b strings.Builder
		names := make([]string, count)
		for i := 0; i < count; i++ {
			names[i] = fmt.Sprintf("fn_%c_%d", rune('a'+i), i)
			fmt.Fprintf(&b, "def %s(x):\n    return x\n\n", names[i])
		}

		report := Compare("", b.String())

		if len(report.Additions) != count {
			t.Fatalf("expected %d additions, got %d", count, len(report.Additions))
		}
		for i, item := range report.Additions {
			if item.Name != names[i] {
				t.Fatalf("order violated at %d: want %s, got %s", i, names[i], item.Name)
			}
		}
	})
}

var summaryCountRe = regexp.MustCompile(`(\d+) (addition|deletion|modification)\(s\)`)

// Rendering a report and re-parsing the counts in its summary reproduces
// the original category lengths.
func TestRender_RoundTripCounts(t *testing.T) {
	oldCode := "def foo(a):\n    pass\n\ndef gone(b):\n    pass\n"
	newCode := "def foo(a):\n    pass\n\ndef baz():\n    pass\n\ndef qux():\n    pass\n"

	report := Compare(oldCode, newCode)
	rendered := report.Render()

	counts := map[string]int{}
	for _, m := range summaryCountRe.FindAllStringSubmatch(rendered, -1) {
		var n int
		fmt.Sscanf(m[1], "%d", &n)
		counts[m[2]] = n
	}

	if counts["addition"] != len(report.Additions) {
		t.Errorf("addition count mismatch: summary %d, report %d", counts["addition"], len(report.Additions))
	}
	if counts["deletion"] != len(report.Deletions) {
		t.Errorf("deletion count mismatch: summary %d, report %d", counts["deletion"], len(report.Deletions))
	}
	if counts["modification"] != len(report.Modifications) {
		t.Errorf("modification count mismatch: summary %d, report %d", counts["modification"], len(report.Modifications))
	}
}

func TestRender_EmptyReport(t *testing.T) {
	report := Compare("x", "x")
	rendered := report.Render()

	if !strings.Contains(rendered, "No changes detected") {
		t.Errorf("expected empty summary in render, got %q", rendered)
	}
	if strings.Contains(rendered, "### Additions") {
		t.Errorf("empty report must not render an additions section")
	}
}
