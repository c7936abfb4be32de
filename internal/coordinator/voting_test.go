package coordinator

import (
	"math"
	"testing"

	"agentcore/internal/store"
)

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func TestWeightedVoteScenarioB(t *testing.T) {
	positions := []store.Position{
		{AgentID: "bot1", Position: "A", Confidence: 0.9, ExpertiseScore: 0.9},
		{AgentID: "bot2", Position: "B", Confidence: 0.8, ExpertiseScore: 0.4},
		{AgentID: "bot3", Position: "A", Confidence: 0.6, ExpertiseScore: 0.3},
	}
	result := Vote(VoteWeighted, positions)
	if result.Winner != "A" {
		t.Fatalf("expected winner A, got %s", result.Winner)
	}
	if !approxEqual(result.Confidence, 0.756, 0.001) {
		t.Fatalf("expected confidence ~0.756, got %f", result.Confidence)
	}
}

func TestUnanimousFallsBackWhenNotUnanimous(t *testing.T) {
	positions := []store.Position{
		{AgentID: "b1", Position: "A", Confidence: 0.9, ExpertiseScore: 0.9},
		{AgentID: "b2", Position: "B", Confidence: 0.8, ExpertiseScore: 0.4},
	}
	result := Vote(VoteUnanimous, positions)
	if result.Winner != "A" {
		t.Fatalf("expected weighted fallback to pick A, got %s", result.Winner)
	}
}

func TestUnanimousAcceptsMatchingPositions(t *testing.T) {
	positions := []store.Position{
		{AgentID: "b1", Position: "A", Confidence: 0.9, ExpertiseScore: 0.9},
		{AgentID: "b2", Position: "A", Confidence: 0.7, ExpertiseScore: 0.2},
	}
	result := Vote(VoteUnanimous, positions)
	if result.Winner != "A" {
		t.Fatalf("expected unanimous winner A, got %s", result.Winner)
	}
}

func TestMajorityAcceptsStrictMajority(t *testing.T) {
	positions := []store.Position{
		{AgentID: "b1", Position: "A", Confidence: 0.9, ExpertiseScore: 0.5},
		{AgentID: "b2", Position: "A", Confidence: 0.7, ExpertiseScore: 0.5},
		{AgentID: "b3", Position: "B", Confidence: 0.6, ExpertiseScore: 0.5},
	}
	result := Vote(VoteMajority, positions)
	if result.Winner != "A" {
		t.Fatalf("expected majority winner A, got %s", result.Winner)
	}
}

func TestPluralityPicksMostRawVotes(t *testing.T) {
	positions := []store.Position{
		{AgentID: "b1", Position: "A", Confidence: 0.5, ExpertiseScore: 0.1},
		{AgentID: "b2", Position: "A", Confidence: 0.5, ExpertiseScore: 0.1},
		{AgentID: "b3", Position: "B", Confidence: 0.99, ExpertiseScore: 0.99},
	}
	result := Vote(VotePlurality, positions)
	if result.Winner != "A" {
		t.Fatalf("expected plurality to favor raw vote count A, got %s", result.Winner)
	}
}

func TestExtractConsensusMeetsThreshold(t *testing.T) {
	positions := []store.Position{
		{AgentID: "b1", Position: "yes"},
		{AgentID: "b2", Position: "yes"},
		{AgentID: "b3", Position: "yes"},
		{AgentID: "b4", Position: "no"},
	}
	option, share, ok := ExtractConsensus(positions, 0.7)
	if !ok || option != "yes" || !approxEqual(share, 0.75, 0.001) {
		t.Fatalf("expected consensus yes at 0.75, got %s %f %v", option, share, ok)
	}
}

func TestExtractConsensusBelowThresholdFails(t *testing.T) {
	positions := []store.Position{
		{AgentID: "b1", Position: "yes"},
		{AgentID: "b2", Position: "no"},
	}
	_, _, ok := ExtractConsensus(positions, 0.8)
	if ok {
		t.Fatal("expected no consensus below threshold")
	}
}
