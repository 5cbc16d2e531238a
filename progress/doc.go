// Package progress provides a concurrency-safe, append-only progress
// event log keyed by run identifier. Fan-out workers publish
// concurrently; one external consumer polls with a read cursor. A run's
// log is disposed once the run reaches a terminal state to bound memory.
package progress
