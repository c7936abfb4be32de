package coordinator

import (
	"strings"
	"testing"
)

func TestExplainBotSelectionFormatsAtEachDetailLevel(t *testing.T) {
	exp := ExplainBotSelectionResult("coding", "coder", map[string]float64{"coder": 0.9, "researcher": 0.3})
	brief := exp.Format(DetailBrief)
	if !strings.Contains(brief, "coder") {
		t.Fatalf("expected brief summary to mention the chosen agent, got %q", brief)
	}
	full := exp.Format(DetailFull)
	if !strings.Contains(full, "evidence") || !strings.Contains(full, "alternatives considered") {
		t.Fatalf("expected full explanation to include evidence and alternatives, got %q", full)
	}
}

func TestExplainVoteResultCarriesReasoning(t *testing.T) {
	result := Vote(VoteWeighted, nil)
	exp := ExplainVoteResult(VoteWeighted, result)
	if exp.Reasoning[0] == "" {
		t.Fatal("expected non-empty reasoning")
	}
}

func TestExplainDisputeAndFailure(t *testing.T) {
	d := ExplainDisputeResult("dispute_resolution", "ship now", "consensus found", "a: wait", 0.7)
	detailed := d.Format(DetailDetailed)
	if !strings.Contains(detailed, "dissent") {
		t.Fatalf("expected dissent in detailed output, got %q", detailed)
	}

	f := ExplainFailureResult("t1", "coder", "timeout")
	if !strings.Contains(f.Format(DetailBrief), "t1") {
		t.Fatal("expected task id in failure summary")
	}
}
