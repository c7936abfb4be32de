package coordinator

import (
	"fmt"
	"sort"
	"strings"
)

// ExplanationKind identifies what a coordinator action is explaining.
type ExplanationKind string

const (
	ExplainBotSelection ExplanationKind = "bot_selection"
	ExplainConsensus    ExplanationKind = "consensus"
	ExplainFailure      ExplanationKind = "failure"
	ExplainDissent      ExplanationKind = "dissent"
	ExplainRouting      ExplanationKind = "routing"
)

// DetailLevel controls how much of an Explanation gets rendered.
type DetailLevel string

const (
	DetailBrief    DetailLevel = "brief"
	DetailDetailed DetailLevel = "detailed"
	DetailFull     DetailLevel = "full"
)

// Explanation is the structured result of the explanation engine.
type Explanation struct {
	Kind         ExplanationKind
	Summary      string
	Details      []string
	Reasoning    []string // numbered chain, rendered 1. 2. 3. ...
	Evidence     map[string]string
	Confidence   float64
	Alternatives []string
	WhyChosen    string
}

// Format renders an Explanation at the requested detail level.
func (e Explanation) Format(level DetailLevel) string {
	var sb strings.Builder
	sb.WriteString(e.Summary)

	if level == DetailBrief {
		return sb.String()
	}

	if len(e.Details) > 0 {
		sb.WriteString("\n")
		for _, d := range e.Details {
			fmt.Fprintf(&sb, "- %s\n", d)
		}
	}
	fmt.Fprintf(&sb, "confidence: %.2f\n", e.Confidence)
	if e.WhyChosen != "" {
		fmt.Fprintf(&sb, "why: %s\n", e.WhyChosen)
	}

	if level == DetailDetailed {
		return strings.TrimRight(sb.String(), "\n")
	}

	if len(e.Reasoning) > 0 {
		sb.WriteString("reasoning:\n")
		for i, r := range e.Reasoning {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, r)
		}
	}
	if len(e.Evidence) > 0 {
		sb.WriteString("evidence:\n")
		keys := sortedStringKeys(e.Evidence)
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %s\n", k, e.Evidence[k])
		}
	}
	if len(e.Alternatives) > 0 {
		fmt.Fprintf(&sb, "alternatives considered: %s\n", strings.Join(e.Alternatives, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func sortedStringKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ExplainBotSelectionResult builds an Explanation for a bot-selection
// decision from its full score map.
func ExplainBotSelectionResult(domain, chosen string, scores map[string]float64) Explanation {
	alts := make([]string, 0, len(scores))
	evidence := make(map[string]string, len(scores))
	for agent, score := range scores {
		evidence[agent] = fmt.Sprintf("%.2f", score)
		if agent != chosen {
			alts = append(alts, agent)
		}
	}
	sort.Strings(alts)
	return Explanation{
		Kind:         ExplainBotSelection,
		Summary:      fmt.Sprintf("selected %s for domain %q", chosen, domain),
		Details:      []string{fmt.Sprintf("%d candidate(s) scored", len(scores))},
		Reasoning:    []string{fmt.Sprintf("%s has the highest expertise score (%.2f) for %q", chosen, scores[chosen], domain)},
		Evidence:     evidence,
		Confidence:   scores[chosen],
		Alternatives: alts,
		WhyChosen:    fmt.Sprintf("%s scored highest among %d candidate(s)", chosen, len(scores)),
	}
}

// ExplainVoteResult builds an Explanation for a voting decision.
func ExplainVoteResult(strategy VotingStrategy, result VoteResult) Explanation {
	return Explanation{
		Kind:       ExplainConsensus,
		Summary:    fmt.Sprintf("%s strategy chose %q", strategy, result.Winner),
		Reasoning:  []string{result.Reasoning},
		Confidence: result.Confidence,
		WhyChosen:  result.Reasoning,
	}
}

// ExplainDisputeResult builds an Explanation for a dispute resolution.
func ExplainDisputeResult(decisionType, finalDecision, reasoning, dissent string, confidence float64) Explanation {
	var details []string
	if dissent != "" {
		details = append(details, "dissent: "+dissent)
	}
	return Explanation{
		Kind:       ExplainDissent,
		Summary:    fmt.Sprintf("%s resolved to %q", decisionType, finalDecision),
		Details:    details,
		Reasoning:  []string{reasoning},
		Confidence: confidence,
		WhyChosen:  reasoning,
	}
}

// ExplainFailureResult builds an Explanation for a task failure.
func ExplainFailureResult(taskID, agentID, reason string) Explanation {
	return Explanation{
		Kind:      ExplainFailure,
		Summary:   fmt.Sprintf("task %s failed under %s", taskID, agentID),
		Details:   []string{reason},
		Reasoning: []string{reason},
		WhyChosen: reason,
	}
}
