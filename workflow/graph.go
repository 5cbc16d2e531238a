package workflow

import (
	"context"
	"fmt"

	"github.com/BaSui01/docflow/types"
)

// BranchOutcome is the closed set of decisions a gate can return.
// OutcomeRetry is the loop branch: every traversal of a Retry route
// consumes one unit of the run's loop budget.
type BranchOutcome int

const (
	OutcomeProceed BranchOutcome = iota
	OutcomeRetry
)

func (o BranchOutcome) String() string {
	switch o {
	case OutcomeProceed:
		return "proceed"
	case OutcomeRetry:
		return "retry"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// StageFunc runs one pipeline stage against the shared run state.
// A returned error halts the run; recoverable problems should instead
// degrade (record a placeholder output) and return nil.
type StageFunc func(ctx context.Context, rc *types.RunContext, state *types.WorkflowState) error

// GateFunc inspects post-stage state and picks a branch. It must be a
// pure function of the state: the engine may re-evaluate it on resume.
type GateFunc func(state *types.WorkflowState) BranchOutcome

type stage struct {
	id     string
	run    StageFunc
	next   string                   // unconditional edge, "" when gated or terminal
	gate   GateFunc                 // conditional edge, nil when unconditional
	routes map[BranchOutcome]string // targets per outcome, gated stages only
}

// StageGraph is a directed graph of named stages with exactly one
// entry and one terminal stage. Edges are either unconditional or
// gated on a BranchOutcome; Validate enforces that gated stages route
// every member of the closed outcome set.
type StageGraph struct {
	stages   map[string]*stage
	order    []string
	entry    string
	terminal string
}

func NewStageGraph() *StageGraph {
	return &StageGraph{stages: make(map[string]*stage)}
}

// AddStage registers a stage. Re-registering an ID replaces its
// function but keeps its edges.
func (g *StageGraph) AddStage(id string, fn StageFunc) *StageGraph {
	if s, ok := g.stages[id]; ok {
		s.run = fn
		return g
	}
	g.stages[id] = &stage{id: id, run: fn}
	g.order = append(g.order, id)
	return g
}

// AddEdge wires an unconditional transition from -> to.
func (g *StageGraph) AddEdge(from, to string) *StageGraph {
	if s, ok := g.stages[from]; ok {
		s.next = to
		s.gate = nil
		s.routes = nil
	}
	return g
}

// AddConditionalEdge wires a gated transition: after from completes,
// gate picks the outcome and routes maps it to the next stage.
func (g *StageGraph) AddConditionalEdge(from string, gate GateFunc, routes map[BranchOutcome]string) *StageGraph {
	if s, ok := g.stages[from]; ok {
		s.next = ""
		s.gate = gate
		s.routes = routes
	}
	return g
}

func (g *StageGraph) SetEntry(id string) *StageGraph    { g.entry = id; return g }
func (g *StageGraph) SetTerminal(id string) *StageGraph { g.terminal = id; return g }

// Stages returns stage IDs in registration order.
func (g *StageGraph) Stages() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Validate checks the graph is runnable: entry and terminal exist,
// every edge targets a registered stage, every non-terminal stage has
// an outgoing edge, and every gate routes both Proceed and Retry.
func (g *StageGraph) Validate() error {
	if len(g.stages) == 0 {
		return types.NewError(types.ErrInvalidGraph, "graph has no stages")
	}
	if _, ok := g.stages[g.entry]; !ok {
		return types.NewError(types.ErrInvalidGraph, fmt.Sprintf("entry stage %q not registered", g.entry))
	}
	if _, ok := g.stages[g.terminal]; !ok {
		return types.NewError(types.ErrInvalidGraph, fmt.Sprintf("terminal stage %q not registered", g.terminal))
	}
	for _, id := range g.order {
		s := g.stages[id]
		if s.run == nil {
			return types.NewError(types.ErrInvalidGraph, fmt.Sprintf("stage %q has no function", id))
		}
		if id == g.terminal {
			continue
		}
		switch {
		case s.gate != nil:
			for _, outcome := range []BranchOutcome{OutcomeProceed, OutcomeRetry} {
				target, ok := s.routes[outcome]
				if !ok {
					return types.NewError(types.ErrInvalidGraph,
						fmt.Sprintf("stage %q gate does not route outcome %s", id, outcome))
				}
				if _, ok := g.stages[target]; !ok {
					return types.NewError(types.ErrInvalidGraph,
						fmt.Sprintf("stage %q routes %s to unknown stage %q", id, outcome, target))
				}
			}
		case s.next != "":
			if _, ok := g.stages[s.next]; !ok {
				return types.NewError(types.ErrInvalidGraph,
					fmt.Sprintf("stage %q points to unknown stage %q", id, s.next))
			}
		default:
			return types.NewError(types.ErrInvalidGraph, fmt.Sprintf("stage %q has no outgoing edge", id))
		}
	}
	return nil
}
