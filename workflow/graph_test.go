package workflow

import (
	"context"
	"testing"

	"github.com/BaSui01/docflow/types"
)

func noopStage(ctx context.Context, rc *types.RunContext, state *types.WorkflowState) error {
	return nil
}

func TestGraph_ValidPipeline(t *testing.T) {
	g := NewStageGraph().
		AddStage("a", noopStage).
		AddStage("b", noopStage).
		AddStage("c", noopStage).
		AddEdge("a", "b").
		AddConditionalEdge("b", func(*types.WorkflowState) BranchOutcome { return OutcomeProceed },
			map[BranchOutcome]string{OutcomeProceed: "c", OutcomeRetry: "a"}).
		SetEntry("a").
		SetTerminal("c")

	if err := g.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestGraph_EmptyGraphRejected(t *testing.T) {
	if err := NewStageGraph().Validate(); err == nil {
		t.Fatal("expected error for empty graph")
	}
}

func TestGraph_MissingEntryRejected(t *testing.T) {
	g := NewStageGraph().AddStage("a", noopStage).SetTerminal("a")
	err := g.Validate()
	if types.GetErrorCode(err) != types.ErrInvalidGraph {
		t.Fatalf("error code = %v, want %v", types.GetErrorCode(err), types.ErrInvalidGraph)
	}
}

func TestGraph_UnknownEdgeTargetRejected(t *testing.T) {
	g := NewStageGraph().
		AddStage("a", noopStage).
		AddStage("b", noopStage).
		AddEdge("a", "nowhere").
		SetEntry("a").
		SetTerminal("b")
	if err := g.Validate(); err == nil {
		t.Fatal("expected error for edge to unregistered stage")
	}
}

func TestGraph_DanglingStageRejected(t *testing.T) {
	g := NewStageGraph().
		AddStage("a", noopStage).
		AddStage("b", noopStage).
		SetEntry("a").
		SetTerminal("b")
	if err := g.Validate(); err == nil {
		t.Fatal("expected error for non-terminal stage without an edge")
	}
}

func TestGraph_GateMustRouteEveryOutcome(t *testing.T) {
	g := NewStageGraph().
		AddStage("a", noopStage).
		AddStage("b", noopStage).
		AddConditionalEdge("a", func(*types.WorkflowState) BranchOutcome { return OutcomeProceed },
			map[BranchOutcome]string{OutcomeProceed: "b"}).
		SetEntry("a").
		SetTerminal("b")
	if err := g.Validate(); err == nil {
		t.Fatal("expected error for gate missing the retry route")
	}
}

func TestGraph_StagesReturnsRegistrationOrder(t *testing.T) {
	g := NewStageGraph().AddStage("x", noopStage).AddStage("y", noopStage).AddStage("z", noopStage)
	got := g.Stages()
	want := []string{"x", "y", "z"}
	if len(got) != len(want) {
		t.Fatalf("Stages() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Stages()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
