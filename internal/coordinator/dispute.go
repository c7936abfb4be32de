package coordinator

import (
	"fmt"
	"sort"
	"strings"

	"agentcore/internal/store"
)

// commonGroundKeywords is the fixed, closed set of themes checked for
// shared ground between disputing positions.
var commonGroundKeywords = []string{"goal", "objective", "aim", "need", "important", "critical"}

// HasDisagreement reports whether two or more distinct position texts
// are present.
func HasDisagreement(positions []store.Position) bool {
	distinct := map[string]bool{}
	for _, p := range positions {
		distinct[p.Position] = true
		if len(distinct) >= 2 {
			return true
		}
	}
	return false
}

// InferDisagreementType applies keyword heuristics over the combined
// reasoning texts to classify why positions diverge.
func InferDisagreementType(positions []store.Position) store.DisagreementType {
	combined := strings.ToLower(joinReasoning(positions))
	switch {
	case containsAny(combined, "how", "approach", "method"):
		return store.DisagreementMethodological
	case containsAny(combined, "urgent", "priority", "critical"):
		return store.DisagreementPriority
	case containsAny(combined, "believe", "value", "goal"):
		return store.DisagreementPhilosophical
	case containsAny(combined, "missing", "lack", "insufficient"):
		return store.DisagreementIncompleteInfo
	default:
		return store.DisagreementFactual
	}
}

// FindCommonGround looks for co-occurring keywords (from the fixed
// commonGroundKeywords set) across every position's reasoning text and
// returns a description of the shared themes found, or "" if none.
func FindCommonGround(positions []store.Position) string {
	if len(positions) == 0 {
		return ""
	}
	var shared []string
	for _, kw := range commonGroundKeywords {
		inAll := true
		for _, p := range positions {
			if !strings.Contains(strings.ToLower(p.Reasoning), kw) {
				inAll = false
				break
			}
		}
		if inAll {
			shared = append(shared, kw)
		}
	}
	if len(shared) == 0 {
		return ""
	}
	return "shared themes: " + strings.Join(shared, ", ")
}

// ResolveDispute implements §4.4's two-step resolution: consensus
// around common ground first, falling back to the most expert bot's
// position (tie-broken on confidence).
func ResolveDispute(positions []store.Position, consensusThreshold float64) store.Decision {
	commonGround := FindCommonGround(positions)
	if commonGround != "" {
		if option, share, ok := ExtractConsensus(positions, consensusThreshold); ok {
			return store.Decision{
				Type:           store.DecisionDisputeResolved,
				Participants:   participantIDs(positions),
				Positions:      positions,
				FinalDecision:  option,
				Confidence:     share,
				Reasoning:      fmt.Sprintf("dispute resolved via common ground (%s), consensus share %.2f", commonGround, share),
				DissentSummary: dissentSummary(positions, option),
			}
		}
	}

	expert := mostExpertBot(positions)
	return store.Decision{
		Type:           store.DecisionExpertiseBased,
		Participants:   participantIDs(positions),
		Positions:      positions,
		FinalDecision:  expert.Position,
		Confidence:     expert.Confidence * expert.ExpertiseScore,
		Reasoning:      fmt.Sprintf("no common ground found; deferred to most expert participant %s (expertise %.2f)", expert.AgentID, expert.ExpertiseScore),
		DissentSummary: dissentSummary(positions, expert.Position),
	}
}

// mostExpertBot returns the position with the highest ExpertiseScore,
// tie-broken by Confidence, then by first appearance.
func mostExpertBot(positions []store.Position) store.Position {
	best := positions[0]
	for _, p := range positions[1:] {
		if p.ExpertiseScore > best.ExpertiseScore ||
			(p.ExpertiseScore == best.ExpertiseScore && p.Confidence > best.Confidence) {
			best = p
		}
	}
	return best
}

func dissentSummary(positions []store.Position, chosen string) string {
	var parts []string
	for _, p := range positions {
		if p.Position == chosen {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s (conf=%.2f)", p.AgentID, p.Position, p.Confidence))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func participantIDs(positions []store.Position) []string {
	ids := make([]string, 0, len(positions))
	for _, p := range positions {
		ids = append(ids, p.AgentID)
	}
	return ids
}

func joinReasoning(positions []store.Position) string {
	parts := make([]string, 0, len(positions))
	for _, p := range positions {
		parts = append(parts, p.Reasoning)
	}
	return strings.Join(parts, " ")
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
