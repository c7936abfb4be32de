package router

import (
	"testing"

	"agentcore/internal/store"
)

// TestTierDowngradeCostInterrupt is spec.md §8 scenario A: a
// conversation sitting at sticky tier complex receives an unambiguous
// simple message and the returned tier is simple while the persisted
// sticky tier is untouched.
func TestTierDowngradeCostInterrupt(t *testing.T) {
	conv := &store.Conversation{
		StickyTier:       "complex",
		RecentTierWindow: []string{"complex", "complex", "complex", "complex"},
	}
	scores := ScoreContent("thanks, by the way what time is it?")
	result := ApplySticky(conv, "thanks, by the way what time is it?", store.TierSimple, 0.95, scores)

	if result.ReturnTier != store.TierSimple {
		t.Fatalf("expected returned tier simple, got %s", result.ReturnTier)
	}
	if result.PersistTier != store.TierComplex {
		t.Fatalf("expected sticky tier to remain complex, got %s", result.PersistTier)
	}
}

func TestStickyAdoptsFreshDecisionWhenNoRecentComplexity(t *testing.T) {
	conv := &store.Conversation{RecentTierWindow: []string{"simple", "medium"}}
	result := ApplySticky(conv, "explain goroutines", store.TierMedium, 0.7, ScoreContent("explain goroutines"))
	if result.ReturnTier != store.TierMedium || result.PersistTier != store.TierMedium {
		t.Fatalf("expected medium adopted on both axes, got %+v", result)
	}
}

func TestStickyHoldsElevatedTierWithoutDowngradeSignals(t *testing.T) {
	conv := &store.Conversation{
		StickyTier:       "complex",
		RecentTierWindow: []string{"complex", "complex"},
	}
	content := "can you also review the concurrency design of this distributed cache migration in depth with technical detail about mutex contention"
	scores := ScoreContent(content)
	result := ApplySticky(conv, content, store.TierSimple, 0.5, scores)
	if result.ReturnTier != store.TierComplex {
		t.Fatalf("expected held at complex, got %s", result.ReturnTier)
	}
}

func TestStickyDowngradeRequiresTwoOfThreeSignals(t *testing.T) {
	conv := &store.Conversation{
		StickyTier:       "complex",
		RecentTierWindow: []string{"complex", "complex"},
	}
	// "one more thing" marker + short + low technical terms => 2+ signals.
	content := "one more thing, is the meeting still on?"
	scores := ScoreContent(content)
	if !shouldDowngrade(content, scores) {
		t.Fatal("expected downgrade to be allowed with marker + short message")
	}
	result := ApplySticky(conv, content, store.TierSimple, 0.5, scores)
	if result.ReturnTier != store.TierSimple || !result.Downgraded {
		t.Fatalf("expected explicit downgrade to simple, got %+v", result)
	}
}

func TestStickyWindowIsBoundedToRecentTierWindow(t *testing.T) {
	conv := &store.Conversation{RecentTierWindow: []string{"simple", "simple", "simple", "simple", "simple"}}
	result := ApplySticky(conv, "hi", store.TierSimple, 0.5, ScoreContent("hi"))
	if len(result.Window) != recentTierWindow {
		t.Fatalf("expected window bounded to %d, got %d", recentTierWindow, len(result.Window))
	}
}
