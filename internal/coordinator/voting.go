package coordinator

import (
	"fmt"
	"sort"
	"strings"

	"agentcore/internal/store"
)

// VotingStrategy selects how a Decision's winning option is derived
// from a set of participant Positions.
type VotingStrategy string

const (
	VoteUnanimous VotingStrategy = "unanimous"
	VoteMajority  VotingStrategy = "majority"
	VoteWeighted  VotingStrategy = "weighted"
	VotePlurality VotingStrategy = "plurality"
)

// VoteResult is the outcome of applying a voting strategy to a
// position set: the winning option text, the decision's aggregate
// confidence, and a human-readable reasoning trail.
type VoteResult struct {
	Winner     string
	Confidence float64
	Reasoning  string
}

// Vote applies strategy to positions and returns the winning option.
func Vote(strategy VotingStrategy, positions []store.Position) VoteResult {
	switch strategy {
	case VoteUnanimous:
		return voteUnanimous(positions)
	case VoteMajority:
		return voteMajority(positions)
	case VotePlurality:
		return votePlurality(positions)
	case VoteWeighted:
		fallthrough
	default:
		return voteWeighted(positions)
	}
}

func voteUnanimous(positions []store.Position) VoteResult {
	if len(positions) == 0 {
		return VoteResult{Reasoning: "no positions submitted"}
	}
	first := positions[0].Position
	for _, p := range positions[1:] {
		if p.Position != first {
			res := voteWeighted(positions)
			res.Reasoning = "not unanimous, fell back to weighted strategy: " + res.Reasoning
			return res
		}
	}
	res := voteWeighted(positions)
	res.Reasoning = "unanimous agreement on " + quote(first) + "; " + res.Reasoning
	res.Winner = first
	return res
}

func voteMajority(positions []store.Position) VoteResult {
	counts := countVotes(positions)
	total := len(positions)
	for option, n := range counts {
		if n*2 > total {
			res := voteWeighted(positions)
			res.Winner = option
			res.Reasoning = fmt.Sprintf("%s holds a strict majority (%d/%d); %s", quote(option), n, total, res.Reasoning)
			return res
		}
	}
	res := voteWeighted(positions)
	res.Reasoning = "no strict majority, fell back to weighted strategy: " + res.Reasoning
	return res
}

func votePlurality(positions []store.Position) VoteResult {
	counts := countVotes(positions)
	option, _ := maxByCount(counts)
	weights := weightedScores(positions)
	total := sumWeights(weights)
	conf := 0.0
	if total > 0 {
		conf = weights[option] / total
	}
	return VoteResult{
		Winner:     option,
		Confidence: conf,
		Reasoning:  reasoningTrail(positions, option, "plurality"),
	}
}

func voteWeighted(positions []store.Position) VoteResult {
	weights := weightedScores(positions)
	option, _ := maxByWeight(weights)
	total := sumWeights(weights)
	conf := 0.0
	if total > 0 {
		conf = weights[option] / total
	}
	return VoteResult{
		Winner:     option,
		Confidence: conf,
		Reasoning:  reasoningTrail(positions, option, "weighted"),
	}
}

// weightedScores sums confidence*expertiseScore per distinct option
// text. The map keeps no order; maxByWeight breaks ties by picking the
// alphabetically first option.
func weightedScores(positions []store.Position) map[string]float64 {
	scores := make(map[string]float64, len(positions))
	for _, p := range positions {
		scores[p.Position] += p.Confidence * p.ExpertiseScore
	}
	return scores
}

func countVotes(positions []store.Position) map[string]int {
	counts := make(map[string]int, len(positions))
	for _, p := range positions {
		counts[p.Position]++
	}
	return counts
}

func sumWeights(weights map[string]float64) float64 {
	var total float64
	for _, w := range weights {
		total += w
	}
	return total
}

func maxByWeight(weights map[string]float64) (string, float64) {
	options := sortedKeys(weights)
	best, bestScore := "", -1.0
	for _, o := range options {
		if weights[o] > bestScore {
			best, bestScore = o, weights[o]
		}
	}
	return best, bestScore
}

func maxByCount(counts map[string]int) (string, int) {
	options := make([]string, 0, len(counts))
	for o := range counts {
		options = append(options, o)
	}
	sort.Strings(options)
	best, bestCount := "", -1
	for _, o := range options {
		if counts[o] > bestCount {
			best, bestCount = o, counts[o]
		}
	}
	return best, bestCount
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func reasoningTrail(positions []store.Position, winner, strategy string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s strategy selected %s from %d position(s): ", strategy, quote(winner), len(positions))
	parts := make([]string, 0, len(positions))
	for _, p := range positions {
		parts = append(parts, fmt.Sprintf("%s=%s(conf=%.2f)", p.AgentID, quote(p.Position), p.Confidence))
	}
	sb.WriteString(strings.Join(parts, ", "))
	return sb.String()
}

func quote(s string) string {
	return "\"" + s + "\""
}

// ExtractConsensus buckets positions by exact text and returns the
// first position (by first appearance) whose share of the pool meets
// threshold, along with that share. Returns ok=false when no option
// clears the threshold.
func ExtractConsensus(positions []store.Position, threshold float64) (option string, share float64, ok bool) {
	if len(positions) == 0 {
		return "", 0, false
	}
	order := make([]string, 0, len(positions))
	seen := make(map[string]bool, len(positions))
	counts := make(map[string]int, len(positions))
	for _, p := range positions {
		counts[p.Position]++
		if !seen[p.Position] {
			seen[p.Position] = true
			order = append(order, p.Position)
		}
	}
	total := float64(len(positions))
	for _, opt := range order {
		s := float64(counts[opt]) / total
		if s >= threshold {
			return opt, s, true
		}
	}
	return "", 0, false
}
