// Package workflow implements the documentation pipeline: a validated
// stage graph executed sequentially by Engine, with one bounded retry
// cycle, a message-passing fan-out/join for the concurrent worker
// stage, and checkpointing after every stage transition.
//
// The six built-in stages mirror the generation pipeline:
//
//	change_detector -> parallel_workers -> diagram_generator ->
//	validator -> human_review -(Retry|Proceed)-> compiler
//
// Stages mutate a single *types.WorkflowState owned by the engine
// goroutine. Worker tasks never touch the state directly; they send
// results over a channel and the join loop applies them.
package workflow
