package router

import (
	"testing"

	"agentcore/internal/store"
)

func TestClassifyObviousSimpleMessage(t *testing.T) {
	c := NewClassifier(nil)
	tier, confidence, scores := c.Classify("thanks, by the way what time is it?")
	if tier != store.TierSimple {
		t.Fatalf("expected simple tier, got %s", tier)
	}
	if confidence < 0.7 {
		t.Fatalf("expected high confidence for obvious simple message, got %f", confidence)
	}
	if scores.SimpleIndicators <= 0 {
		t.Fatalf("expected nonzero simple indicator density, got %f", scores.SimpleIndicators)
	}
}

func TestClassifyCodingMessage(t *testing.T) {
	c := NewClassifier(nil)
	tier, _, scores := c.Classify("please debug this function, here's the stack trace")
	if tier != store.TierCoding {
		t.Fatalf("expected coding tier, got %s", tier)
	}
	if scores.ActionType != ActionFix {
		t.Fatalf("expected fix action type, got %s", scores.ActionType)
	}
}

func TestStoredPatternTakesPriorityOverBuiltins(t *testing.T) {
	patterns := []store.RoutingPattern{
		{ID: "p1", Regex: `\bhello\b`, TargetTier: store.TierReasoning, BaseConfidence: 0.99},
	}
	c := NewClassifier(patterns)
	tier, confidence, _ := c.Classify("hello there")
	if tier != store.TierReasoning || confidence != 0.99 {
		t.Fatalf("expected stored pattern to win, got %s %f", tier, confidence)
	}
}

func TestInvalidStoredPatternIsSkipped(t *testing.T) {
	patterns := []store.RoutingPattern{
		{ID: "bad", Regex: `(unterminated`, TargetTier: store.TierReasoning, BaseConfidence: 0.99},
	}
	c := NewClassifier(patterns)
	if len(c.patterns) != 0 {
		t.Fatalf("expected invalid regex to be skipped, got %d compiled patterns", len(c.patterns))
	}
}

func TestScoreContentDetectsNegationsAndCode(t *testing.T) {
	scores := ScoreContent("this isn't working, here's the code: ```go\nfunc f() {}\n```")
	if len(scores.Negations) == 0 {
		t.Fatal("expected negation markers to be detected")
	}
	if scores.CodePresence != 1.0 {
		t.Fatalf("expected code presence 1.0, got %f", scores.CodePresence)
	}
}

func TestQuestionTypeClassification(t *testing.T) {
	if got := classifyQuestion("what is the capital of france?"); got != QuestionWh {
		t.Fatalf("expected wh_question, got %s", got)
	}
	if got := classifyQuestion("is this correct?"); got != QuestionYesNo {
		t.Fatalf("expected yes_no, got %s", got)
	}
	if got := classifyQuestion("tell me about your day"); got != QuestionOpen {
		t.Fatalf("expected open, got %s", got)
	}
}
