package detect

import (
	"regexp"
	"sort"
	"strings"
)

// Index is a NamedItemIndex: items keyed by "kind:name", remembering
// first-seen order in the source text. It is internal to the comparison.
type Index struct {
	keys  []string
	items map[string]Item
}

// newIndex builds an index from src by applying every recognizer and
// merging matches in source order. The first occurrence of a key wins.
func newIndex(src string, recognizers []Recognizer) *Index {
	var all []Match
	for _, r := range recognizers {
		all = append(all, r.Extract(src)...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Offset < all[j].Offset })

	idx := &Index{items: make(map[string]Item, len(all))}
	for _, m := range all {
		item := Item{Kind: m.Kind, Name: m.Name, Signature: m.Signature}
		key := item.Key()
		if _, seen := idx.items[key]; seen {
			continue
		}
		idx.items[key] = item
		idx.keys = append(idx.keys, key)
	}
	return idx
}

// Detector compares two versions of source text using a fixed recognizer
// set. The zero-cost constructors return detectors safe for concurrent
// use; a Detector holds no mutable state across calls.
type Detector struct {
	recognizers []Recognizer
}

// NewDetector creates a detector with the full recognizer set.
func NewDetector() *Detector {
	return &Detector{recognizers: DefaultRecognizers()}
}

// NewDetectorForLanguage creates a detector with the recognizer subset
// for the given language.
func NewDetectorForLanguage(language string) *Detector {
	return &Detector{recognizers: RecognizersForLanguage(language)}
}

// Compare produces the structured diff between oldSrc and newSrc. It is
// deterministic, side-effect-free, and never fails: malformed input
// degrades to fewer recognized items, identical inputs yield an empty
// report.
func (d *Detector) Compare(oldSrc, newSrc string) *ChangeReport {
	if oldSrc == newSrc {
		return &ChangeReport{Summary: summarize(nil, nil, nil)}
	}

	oldIdx := newIndex(oldSrc, d.recognizers)
	newIdx := newIndex(newSrc, d.recognizers)

	var additions, deletions, modifications []Item

	for _, key := range newIdx.keys {
		if _, ok := oldIdx.items[key]; !ok {
			additions = append(additions, newIdx.items[key])
		}
	}
	for _, key := range oldIdx.keys {
		if _, ok := newIdx.items[key]; !ok {
			deletions = append(deletions, oldIdx.items[key])
		}
	}
	for _, key := range oldIdx.keys {
		newItem, ok := newIdx.items[key]
		if !ok {
			continue
		}
		oldItem := oldIdx.items[key]
		if isModified(oldItem, newItem) {
			modifications = append(modifications, newItem)
		}
	}

	return &ChangeReport{
		Summary:       summarize(additions, deletions, modifications),
		Additions:     additions,
		Deletions:     deletions,
		Modifications: modifications,
	}
}

// Compare runs the full-recognizer detector. Convenience for callers
// that have no language context.
func Compare(oldSrc, newSrc string) *ChangeReport {
	return NewDetector().Compare(oldSrc, newSrc)
}

// isModified reports whether an item present in both versions changed
// signature. Constructor items whose parameter names are unchanged are
// exempt, so purely cosmetic refactors are not flagged.
func isModified(oldItem, newItem Item) bool {
	oldSig := normalizeSignature(oldItem.Signature)
	newSig := normalizeSignature(newItem.Signature)
	if oldSig == newSig {
		return false
	}
	if isConstructor(oldItem.Name) && paramNamesEqual(oldSig, newSig) {
		return false
	}
	return true
}

func isConstructor(name string) bool {
	base := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		base = name[i+1:]
	}
	return base == "__init__" || base == "constructor"
}

// normalizeSignature collapses whitespace and strips a leading self/cls
// receiver parameter so formatting-only differences compare equal.
func normalizeSignature(sig string) string {
	sig = strings.Join(strings.Fields(sig), " ")
	sig = strings.ReplaceAll(sig, " (", "(")
	sig = strings.ReplaceAll(sig, " )", ")")
	sig = strings.ReplaceAll(sig, " ,", ",")
	sig = strings.ReplaceAll(sig, ", ", ",")
	sig = strings.ReplaceAll(sig, " :", ":")
	sig = strings.ReplaceAll(sig, ": ", ":")
	sig = strings.ReplaceAll(sig, " ->", "->")
	sig = strings.ReplaceAll(sig, "(self,", "(")
	sig = strings.ReplaceAll(sig, "(self)", "()")
	sig = strings.ReplaceAll(sig, "(cls,", "(")
	sig = strings.ReplaceAll(sig, "(cls)", "()")
	return strings.TrimSpace(sig)
}

var paramListRe = regexp.MustCompile(`\((.*?)\)`)

// paramNamesEqual compares the parameter name sets of two signatures,
// ignoring types and default values.
func paramNamesEqual(oldSig, newSig string) bool {
	oldParams := extractParamNames(oldSig)
	newParams := extractParamNames(newSig)
	if len(oldParams) != len(newParams) {
		return false
	}
	for name := range oldParams {
		if !newParams[name] {
			return false
		}
	}
	return true
}

func extractParamNames(sig string) map[string]bool {
	names := make(map[string]bool)
	m := paramListRe.FindStringSubmatch(sig)
	if m == nil {
		return names
	}
	for _, param := range strings.Split(m[1], ",") {
		param = strings.TrimSpace(param)
		if param == "" || param == "self" || param == "cls" {
			continue
		}
		parts := splitAny(param, ":=")
		if len(parts) == 0 {
			continue
		}
		if name := strings.TrimSpace(parts[0]); name != "" {
			names[name] = true
		}
	}
	return names
}

func splitAny(s, chars string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(chars, r)
	})
}
