package detect

import (
	"strings"
	"testing"
)

const oldPython = `def foo(a, b):
    return a + b

class Bar:
    def method_one(self, x):
        return x
`

func TestCompare_Identical(t *testing.T) {
	report := Compare(oldPython, oldPython)

	if !report.Empty() {
		t.Fatalf("expected empty report, got %+v", report)
	}
	if report.Summary != "No changes detected" {
		t.Errorf("expected %q summary, got %q", "No changes detected", report.Summary)
	}
}

func TestCompare_Addition(t *testing.T) {
	newCode := oldPython + `
def baz():
    pass
`
	report := Compare(oldPython, newCode)

	if len(report.Additions) != 1 {
		t.Fatalf("expected 1 addition, got %d: %+v", len(report.Additions), report.Additions)
	}
	if report.Additions[0].Kind != KindFunction || report.Additions[0].Name != "baz" {
		t.Errorf("expected function baz, got %+v", report.Additions[0])
	}
	if len(report.Deletions) != 0 {
		t.Errorf("expected no deletions, got %+v", report.Deletions)
	}
}

func TestCompare_AddAndRemove(t *testing.T) {
	oldCode := "def foo(a,b): ...\nclass Bar: ...\n"
	newCode := "class Bar: ...\ndef baz(): ...\n"

	report := Compare(oldCode, newCode)

	if len(report.Deletions) != 1 || report.Deletions[0].Kind != KindFunction || report.Deletions[0].Name != "foo" {
		t.Errorf("expected deletion of function foo, got %+v", report.Deletions)
	}
	if len(report.Additions) != 1 || report.Additions[0].Kind != KindFunction || report.Additions[0].Name != "baz" {
		t.Errorf("expected addition of function baz, got %+v", report.Additions)
	}
	if len(report.Modifications) != 0 {
		t.Errorf("expected no modifications, got %+v", report.Modifications)
	}
	if report.Summary != "1 addition(s), 1 deletion(s)" {
		t.Errorf("unexpected summary: %q", report.Summary)
	}
}

func TestCompare_EmptyOldTreatsEverythingAsAddition(t *testing.T) {
	report := Compare("", oldPython)

	if len(report.Deletions) != 0 {
		t.Errorf("expected no deletions, got %+v", report.Deletions)
	}
	if len(report.Additions) == 0 {
		t.Fatal("expected additions for every item in new text")
	}
	// First-seen order: foo before Bar before Bar.method_one.
	if report.Additions[0].Name != "foo" {
		t.Errorf("expected foo first, got %s", report.Additions[0].Name)
	}
}

func TestCompare_ClassAndFunctionSameNameAreDistinct(t *testing.T) {
	oldCode := "def Thing():\n    pass\n"
	newCode := "def Thing():\n    pass\n\nclass Thing:\n    pass\n"

	report := Compare(oldCode, newCode)

	if len(report.Additions) != 1 || report.Additions[0].Kind != KindClass {
		t.Fatalf("expected class Thing as the only addition, got %+v", report.Additions)
	}
	if len(report.Deletions) != 0 {
		t.Errorf("expected no deletions, got %+v", report.Deletions)
	}
}

func TestCompare_MethodsTrackedUnderClass(t *testing.T) {
	newCode := strings.Replace(oldPython, "def method_one(self, x):\n        return x",
		"def method_one(self, x):\n        return x\n\n    def method_two(self):\n        pass", 1)

	report := Compare(oldPython, newCode)

	var found bool
	for _, item := range report.Additions {
		if item.Kind == KindMethod && item.Name == "Bar.method_two" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected method Bar.method_two among additions, got %+v", report.Additions)
	}
}

func TestCompare_ModificationDetected(t *testing.T) {
	oldCode := "def foo(a, b):\n    pass\n"
	newCode := "def foo(a, b, c):\n    pass\n"

	report := Compare(oldCode, newCode)

	if len(report.Modifications) != 1 || report.Modifications[0].Name != "foo" {
		t.Fatalf("expected modification of foo, got %+v", report.Modifications)
	}
	if report.Summary != "1 modification(s)" {
		t.Errorf("unexpected summary: %q", report.Summary)
	}
}

func TestCompare_ConstructorCosmeticChangeIgnored(t *testing.T) {
	oldCode := "class Bar:\n    def __init__(self, name, size):\n        pass\n"
	newCode := "class Bar:\n    def __init__(self, name,  size):\n        pass\n"

	report := Compare(oldCode, newCode)

	if len(report.Modifications) != 0 {
		t.Errorf("expected constructor whitespace change to be ignored, got %+v", report.Modifications)
	}
}

func TestCompare_ConstructorParamChangeReported(t *testing.T) {
	oldCode := "class Bar:\n    def __init__(self, name):\n        pass\n"
	newCode := "class Bar:\n    def __init__(self, name, size):\n        pass\n"

	report := Compare(oldCode, newCode)

	// The indented def is indexed both as function:__init__ and as
	// method:Bar.__init__; both entries must flag the param change.
	if len(report.Modifications) == 0 {
		t.Fatal("expected constructor param addition to be reported")
	}
	for _, item := range report.Modifications {
		if !strings.HasSuffix(item.Name, "__init__") {
			t.Errorf("unexpected modification: %+v", item)
		}
	}
}

func TestCompare_MalformedInputNeverFails(t *testing.T) {
	malformed := "def (((\nclass \x00\n}{)(" // recognizers must skip, not fail

	report := Compare(malformed, oldPython)
	if report == nil {
		t.Fatal("expected a report for malformed input")
	}

	report = Compare(oldPython, malformed)
	if report == nil {
		t.Fatal("expected a report for malformed new input")
	}
}

func TestCompare_LanguageSubsetPython(t *testing.T) {
	d := NewDetectorForLanguage("Python")

	report := d.Compare("", "def foo():\n    pass\n")
	if len(report.Additions) != 1 || report.Additions[0].Name != "foo" {
		t.Fatalf("expected foo addition, got %+v", report.Additions)
	}
}

func TestCompare_JavaScriptFunctions(t *testing.T) {
	oldCode := "function greet(name) {\n  return name;\n}\n"
	newCode := oldCode + "const shout = function(name) {\n  return name;\n};\n"

	report := NewDetectorForLanguage("JavaScript").Compare(oldCode, newCode)

	if len(report.Additions) != 1 || report.Additions[0].Name != "shout" {
		t.Fatalf("expected shout addition, got %+v", report.Additions)
	}
}

func TestCompare_CFamilyControlFlowNotMatched(t *testing.T) {
	code := "public class A {\n    public int sum(int a) {\n        if (a > 0) {\n            return a;\n        }\n        return 0;\n    }\n}\n"

	report := NewDetectorForLanguage("Java").Compare("", code)

	for _, item := range report.Additions {
		if controlKeywords[item.Name] {
			t.Errorf("control-flow keyword leaked into report: %+v", item)
		}
	}
	var foundSum bool
	for _, item := range report.Additions {
		if item.Name == "sum" {
			foundSum = true
		}
	}
	if !foundSum {
		t.Errorf("expected method sum among additions, got %+v", report.Additions)
	}
}
