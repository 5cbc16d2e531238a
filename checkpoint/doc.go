// Package checkpoint persists the latest workflow state per run so a run
// can be resumed at the stage following the last completed one, or
// audited after the fact. Stores are pluggable: in-memory, Redis, and
// SQLite implementations are provided. One writer per run ID.
package checkpoint
