package detect

import (
	"regexp"
	"strings"
)

// Match is one recognized declaration, positioned by its byte offset in
// the source so the detector can restore first-seen order across
// recognizer families.
type Match struct {
	Offset    int
	Kind      Kind
	Name      string
	Signature string
}

// Recognizer extracts declaration matches for one syntax family. A
// recognizer must never fail: input it cannot parse yields no matches.
type Recognizer interface {
	// Name returns the recognizer's identifier, used in logs and tests.
	Name() string
	// Extract scans src and returns all matches with byte offsets.
	Extract(src string) []Match
}

// controlKeywords are identifiers the generic method-shaped patterns
// over-match on. Anything here is never reported as a declaration.
var controlKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true,
	"catch": true, "return": true, "else": true, "do": true,
	"new": true, "func": true, "def": true, "class": true,
}

// ---------------------------------------------------------------------------
// Python free functions
// ---------------------------------------------------------------------------

var pythonFuncRe = regexp.MustCompile(`(?m)^[ \t]*(def\s+(\w+)\s*\([^)]*\).*?):`)

type pythonFunctionRecognizer struct{}

func (pythonFunctionRecognizer) Name() string { return "python_functions" }

func (pythonFunctionRecognizer) Extract(src string) []Match {
	var matches []Match
	for _, m := range pythonFuncRe.FindAllStringSubmatchIndex(src, -1) {
		sig := strings.TrimSpace(src[m[2]:m[3]])
		name := src[m[4]:m[5]]
		matches = append(matches, Match{
			Offset:    m[0],
			Kind:      KindFunction,
			Name:      name,
			Signature: sig,
		})
	}
	return matches
}

// ---------------------------------------------------------------------------
// JavaScript / TypeScript functions
// ---------------------------------------------------------------------------

var jsFuncRe = regexp.MustCompile(
	`function\s+(\w+)|(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?function|\s(\w+)\s*\([^)]*\)\s*(?:=>|\{)`)

type jsFunctionRecognizer struct{}

func (jsFunctionRecognizer) Name() string { return "js_functions" }

func (jsFunctionRecognizer) Extract(src string) []Match {
	var matches []Match
	for _, m := range jsFuncRe.FindAllStringSubmatchIndex(src, -1) {
		name := firstGroup(src, m, 1, 2, 3)
		if name == "" || controlKeywords[name] {
			continue
		}
		matches = append(matches, Match{
			Offset:    m[0],
			Kind:      KindFunction,
			Name:      name,
			Signature: strings.TrimSpace(src[m[0]:m[1]]),
		})
	}
	return matches
}

// ---------------------------------------------------------------------------
// Java / C# style methods
// ---------------------------------------------------------------------------

var cFamilyMethodRe = regexp.MustCompile(
	`(?m)^[ \t]*(?:(?:public|private|protected|static|final|abstract|override|virtual|async)\s+)+[\w<>\[\],\s]*?(\w+)\s*\([^)]*\)`)

type cFamilyMethodRecognizer struct{}

func (cFamilyMethodRecognizer) Name() string { return "cfamily_methods" }

func (cFamilyMethodRecognizer) Extract(src string) []Match {
	var matches []Match
	for _, m := range cFamilyMethodRe.FindAllStringSubmatchIndex(src, -1) {
		name := src[m[2]:m[3]]
		if controlKeywords[name] {
			continue
		}
		matches = append(matches, Match{
			Offset:    m[0],
			Kind:      KindFunction,
			Name:      name,
			Signature: strings.TrimSpace(src[m[0]:m[1]]),
		})
	}
	return matches
}

// ---------------------------------------------------------------------------
// Class declarations
// ---------------------------------------------------------------------------

var classRe = regexp.MustCompile(`(?m)^[ \t]*(class\s+(\w+)(?:\([^)]*\))?)`)

type classRecognizer struct{}

func (classRecognizer) Name() string { return "classes" }

func (classRecognizer) Extract(src string) []Match {
	var matches []Match
	for _, m := range classRe.FindAllStringSubmatchIndex(src, -1) {
		matches = append(matches, Match{
			Offset:    m[0],
			Kind:      KindClass,
			Name:      src[m[4]:m[5]],
			Signature: strings.TrimSpace(src[m[2]:m[3]]),
		})
	}
	return matches
}

// ---------------------------------------------------------------------------
// Methods nested under a class block (indentation tracked)
// ---------------------------------------------------------------------------

var (
	classLineRe  = regexp.MustCompile(`^(\s*)class\s+(\w+)`)
	methodLineRe = regexp.MustCompile(`^(\s+)def\s+(\w+)\s*\([^)]*\)`)
)

type classMethodRecognizer struct{}

func (classMethodRecognizer) Name() string { return "class_methods" }

func (classMethodRecognizer) Extract(src string) []Match {
	var matches []Match

	currentClass := ""
	classIndent := 0
	offset := 0

	for _, line := range strings.SplitAfter(src, "\n") {
		lineStart := offset
		offset += len(line)
		trimmedNL := strings.TrimRight(line, "\n")

		if cm := classLineRe.FindStringSubmatch(trimmedNL); cm != nil {
			currentClass = cm[2]
			classIndent = len(cm[1])
			continue
		}
		if currentClass == "" {
			continue
		}

		if mm := methodLineRe.FindStringSubmatch(trimmedNL); mm != nil {
			if len(mm[1]) > classIndent {
				matches = append(matches, Match{
					Offset:    lineStart,
					Kind:      KindMethod,
					Name:      currentClass + "." + mm[2],
					Signature: strings.TrimSpace(trimmedNL),
				})
			}
			continue
		}

		// A non-empty line back at or before the class indent closes the
		// class block.
		if strings.TrimSpace(trimmedNL) != "" {
			indent := len(trimmedNL) - len(strings.TrimLeft(trimmedNL, " \t"))
			if indent <= classIndent {
				currentClass = ""
			}
		}
	}

	return matches
}

// firstGroup returns the first non-empty capture group among the given
// group numbers in a FindAllStringSubmatchIndex result row.
func firstGroup(src string, m []int, groups ...int) string {
	for _, g := range groups {
		lo, hi := m[2*g], m[2*g+1]
		if lo >= 0 && hi >= 0 {
			return src[lo:hi]
		}
	}
	return ""
}

// DefaultRecognizers returns the full recognizer set, applied when the
// source language is unknown or has no dedicated subset.
func DefaultRecognizers() []Recognizer {
	return []Recognizer{
		pythonFunctionRecognizer{},
		jsFunctionRecognizer{},
		cFamilyMethodRecognizer{},
		classRecognizer{},
		classMethodRecognizer{},
	}
}

// RecognizersForLanguage selects the recognizer subset for a detected
// language. Unknown languages fall back to the full set.
func RecognizersForLanguage(language string) []Recognizer {
	switch strings.ToLower(language) {
	case "python":
		return []Recognizer{
			pythonFunctionRecognizer{},
			classRecognizer{},
			classMethodRecognizer{},
		}
	case "javascript", "typescript":
		return []Recognizer{
			jsFunctionRecognizer{},
			classRecognizer{},
		}
	case "java", "c#":
		return []Recognizer{
			cFamilyMethodRecognizer{},
			classRecognizer{},
		}
	default:
		return DefaultRecognizers()
	}
}
