package router

import (
	"strings"

	"agentcore/internal/store"
)

// recentTierWindow is how many past tier decisions a conversation
// remembers when deciding whether recent traffic was complex.
const recentTierWindow = 5

var simpleMarkers = []string{
	"quick question", "just wondering", "simple question",
	"one more thing", "by the way", "unrelated",
}

var complexTiers = map[store.RoutingTier]bool{
	store.TierComplex:   true,
	store.TierReasoning: true,
}

// StickyResult is the outcome of applying sticky-routing logic on top
// of a raw tier decision. ReturnTier is what the caller should use for
// this message; PersistTier is what should be written back as the
// conversation's sticky tier — the two diverge for the cost-interrupt
// case, where an unambiguous-simple message routes simple without
// disturbing the conversation's elevated sticky state.
type StickyResult struct {
	ReturnTier  store.RoutingTier
	PersistTier store.RoutingTier
	Downgraded  bool
	Window      []string
}

// ApplySticky reconciles a freshly classified tier against a
// conversation's recent routing history. Ported from the original
// router's _apply_sticky_logic: unambiguous-simple traffic always
// routes simple as a non-sticky-mutating cost interrupt; otherwise, if
// none of the last N decisions were complex/reasoning, the fresh
// decision is adopted and becomes the new sticky state; otherwise the
// fresh decision may only downgrade an elevated sticky tier to simple
// when at least two of three downgrade signals hold, and is held at
// the elevated tier otherwise.
func ApplySticky(conv *store.Conversation, content string, tier store.RoutingTier, confidence float64, scores ClassificationScores) StickyResult {
	// The window records every message's own resolved tier, win or
	// lose against stickiness — it is what _get_recent_tiers reads
	// from per-message metadata in the original, not the held sticky
	// value itself.
	window := append([]string(nil), conv.RecentTierWindow...)
	sticky := store.RoutingTier(conv.StickyTier)

	if tier == store.TierSimple && confidence >= 0.90 {
		return StickyResult{
			ReturnTier:  store.TierSimple,
			PersistTier: sticky,
			Window:      pushWindow(window, string(store.TierSimple)),
		}
	}

	if !recentWasComplex(window) {
		return StickyResult{
			ReturnTier:  tier,
			PersistTier: tier,
			Window:      pushWindow(window, string(tier)),
		}
	}

	if sticky == "" {
		sticky = tier
	}

	if tier == store.TierSimple && shouldDowngrade(content, scores) {
		return StickyResult{
			ReturnTier:  store.TierSimple,
			PersistTier: store.TierSimple,
			Downgraded:  true,
			Window:      pushWindow(window, string(store.TierSimple)),
		}
	}

	return StickyResult{
		ReturnTier:  sticky,
		PersistTier: sticky,
		Window:      pushWindow(window, string(sticky)),
	}
}

func recentWasComplex(window []string) bool {
	for _, t := range window {
		if complexTiers[store.RoutingTier(t)] {
			return true
		}
	}
	return false
}

// shouldDowngrade applies the 2-of-3 rule: an explicit simple marker
// substring, a short low-technical message, or high simple-indicator
// density with low technical density.
func shouldDowngrade(content string, scores ClassificationScores) bool {
	lower := strings.ToLower(content)
	signals := 0

	for _, marker := range simpleMarkers {
		if strings.Contains(lower, marker) {
			signals++
			break
		}
	}

	wordCount := len(wordPattern.FindAllString(content, -1))
	if wordCount < 20 && scores.TechnicalTerms < 0.2 {
		signals++
	}

	if scores.SimpleIndicators > 0.7 && scores.TechnicalTerms < 0.2 {
		signals++
	}

	return signals >= 2
}

func pushWindow(window []string, tier string) []string {
	window = append(window, tier)
	if len(window) > recentTierWindow {
		window = window[len(window)-recentTierWindow:]
	}
	return window
}

// PersistSticky writes the resolved sticky tier and window back to
// the conversation's durable record.
func PersistSticky(s *store.Store, conversationID string, result StickyResult) error {
	return s.SetStickyTier(conversationID, string(result.PersistTier), result.Window)
}
