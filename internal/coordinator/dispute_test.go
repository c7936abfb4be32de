package coordinator

import (
	"testing"

	"agentcore/internal/store"
)

func TestHasDisagreementRequiresTwoDistinctPositions(t *testing.T) {
	same := []store.Position{{Position: "A"}, {Position: "A"}}
	if HasDisagreement(same) {
		t.Fatal("expected no disagreement among identical positions")
	}
	diff := []store.Position{{Position: "A"}, {Position: "B"}}
	if !HasDisagreement(diff) {
		t.Fatal("expected disagreement among distinct positions")
	}
}

func TestInferDisagreementTypeKeywordHeuristics(t *testing.T) {
	cases := []struct {
		reasoning string
		want      store.DisagreementType
	}{
		{"I think this approach and method are wrong", store.DisagreementMethodological},
		{"this is urgent and a top priority", store.DisagreementPriority},
		{"I believe this conflicts with our goal", store.DisagreementPhilosophical},
		{"the data is missing and insufficient", store.DisagreementIncompleteInfo},
		{"the numbers simply don't match", store.DisagreementFactual},
	}
	for _, c := range cases {
		positions := []store.Position{{Position: "A", Reasoning: c.reasoning}}
		if got := InferDisagreementType(positions); got != c.want {
			t.Fatalf("reasoning %q: expected %s, got %s", c.reasoning, c.want, got)
		}
	}
}

func TestFindCommonGroundRequiresSharedKeyword(t *testing.T) {
	positions := []store.Position{
		{AgentID: "a", Position: "A", Reasoning: "this is important for our goal"},
		{AgentID: "b", Position: "B", Reasoning: "the goal is important here too"},
	}
	if got := FindCommonGround(positions); got == "" {
		t.Fatal("expected shared keywords to be found")
	}

	noShared := []store.Position{
		{AgentID: "a", Position: "A", Reasoning: "completely unrelated text"},
		{AgentID: "b", Position: "B", Reasoning: "another unrelated sentence"},
	}
	if got := FindCommonGround(noShared); got != "" {
		t.Fatalf("expected no common ground, got %q", got)
	}
}

func TestResolveDisputeFallsBackToMostExpertBot(t *testing.T) {
	positions := []store.Position{
		{AgentID: "a", Position: "A", Confidence: 0.6, ExpertiseScore: 0.9, Reasoning: "unrelated"},
		{AgentID: "b", Position: "B", Confidence: 0.9, ExpertiseScore: 0.2, Reasoning: "also unrelated"},
	}
	decision := ResolveDispute(positions, 0.8)
	if decision.Type != store.DecisionExpertiseBased {
		t.Fatalf("expected expertise-based decision, got %s", decision.Type)
	}
	if decision.FinalDecision != "A" {
		t.Fatalf("expected most expert bot's position A, got %s", decision.FinalDecision)
	}
	if !approxEqual(decision.Confidence, 0.6*0.9, 0.001) {
		t.Fatalf("expected confidence = confidence*expertise, got %f", decision.Confidence)
	}
	if decision.DissentSummary == "" {
		t.Fatal("expected dissent summary to list the non-chosen position")
	}
}

func TestResolveDisputeUsesCommonGroundConsensus(t *testing.T) {
	positions := []store.Position{
		{AgentID: "a", Position: "ship now", Confidence: 0.5, ExpertiseScore: 0.5, Reasoning: "this is important for the goal"},
		{AgentID: "b", Position: "ship now", Confidence: 0.5, ExpertiseScore: 0.5, Reasoning: "goal alignment is important"},
		{AgentID: "c", Position: "wait", Confidence: 0.5, ExpertiseScore: 0.5, Reasoning: "the goal is important but risky"},
	}
	decision := ResolveDispute(positions, 0.6)
	if decision.Type != store.DecisionDisputeResolved {
		t.Fatalf("expected dispute_resolution decision, got %s", decision.Type)
	}
	if decision.FinalDecision != "ship now" {
		t.Fatalf("expected consensus position 'ship now', got %s", decision.FinalDecision)
	}
}
