// Package detect compares two versions of source text and produces a
// structured report of added, deleted, and modified named entities
// (functions, classes, methods).
//
// Extraction is heuristic: a set of per-syntax recognizers scans the text
// for declaration patterns and builds an index keyed by "kind:name". An
// unmatched or malformed construct is simply absent from the index; the
// comparison itself never fails. The detector is deterministic and runs
// in time linear in the input size.
package detect
