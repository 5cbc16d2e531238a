// Package types defines the shared data model of the docflow pipeline:
// the workflow state threaded through every stage, the immutable run
// context, structured errors, and the progress reporting contract.
package types
