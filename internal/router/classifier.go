package router

import (
	"regexp"
	"strings"

	"agentcore/internal/store"
)

// builtinPattern is a compiled, always-present fallback rule consulted
// when no stored RoutingPattern matches. Mirrors classifyTaskType's
// ordered keyword-bucket shape, generalized from 4 task-type buckets
// to the 5 routing tiers.
type builtinPattern struct {
	tier       store.RoutingTier
	confidence float64
	keywords   []string
}

var builtinPatterns = []builtinPattern{
	{store.TierReasoning, 0.85, []string{"prove", "proof", "theorem", "derive", "optimal solution", "np-hard", "step by step logic"}},
	{store.TierCoding, 0.82, []string{"write code", "implement", "refactor", "debug", "function", "class method", "api endpoint", "stack trace", "compile error"}},
	{store.TierComplex, 0.75, []string{"architecture", "design a system", "multi-step", "migrate", "trade-off", "compare approaches"}},
	{store.TierSimple, 0.95, []string{"hi", "hello", "thanks", "thank you", "what time", "what is the capital", "yes or no"}},
	{store.TierMedium, 0.6, []string{"explain", "how does", "what is", "search for", "summarize", "find"}},
}

var negationMarkers = []string{"not", "n't", "never", "without", "isn't", "don't", "doesn't", "can't", "won't"}

var simpleIndicatorWords = []string{"quick", "simple", "just", "brief", "short", "thanks", "hi", "hello", "ok", "sure"}

var technicalTermWords = []string{
	"function", "class", "api", "database", "algorithm", "architecture", "kubernetes", "docker",
	"compile", "runtime", "concurrency", "mutex", "goroutine", "regex", "schema", "endpoint",
	"async", "thread", "pointer", "recursion", "complexity",
}

var codeFencePattern = regexp.MustCompile("```|`[^`]+`|\\bfunc\\s+\\w+\\(|\\bdef\\s+\\w+\\(|\\bclass\\s+\\w+")

var wordPattern = regexp.MustCompile(`[A-Za-z']+`)

var whWords = map[string]bool{"what": true, "why": true, "who": true, "where": true, "when": true, "which": true, "how": true}

var yesNoStarters = []string{"is ", "are ", "do ", "does ", "did ", "can ", "could ", "should ", "will ", "would ", "has ", "have "}

// Classifier is the Layer 1 deterministic classifier. It consults
// stored RoutingPatterns in insertion order before falling back to
// the builtin keyword buckets, and always produces the full score
// bundle used by Layer 2 and the sticky router.
type Classifier struct {
	patterns []compiledPattern
}

type compiledPattern struct {
	store.RoutingPattern
	re *regexp.Regexp
}

// NewClassifier compiles a classifier from stored patterns. Patterns
// with an invalid regex are skipped, matching the teacher's
// compile-and-skip-on-error behavior.
func NewClassifier(patterns []store.RoutingPattern) *Classifier {
	c := &Classifier{}
	for _, p := range patterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			continue
		}
		c.patterns = append(c.patterns, compiledPattern{RoutingPattern: p, re: re})
	}
	return c
}

// Classify runs Layer 1 over content, returning a tier, confidence,
// and the full score bundle. Stored patterns are tried first, in
// order; the first match wins. If none match, the builtin buckets are
// consulted the same way. If nothing matches at all, the tier
// defaults to medium with a low confidence so Layer 2 is consulted.
func (c *Classifier) Classify(content string) (store.RoutingTier, float64, ClassificationScores) {
	scores := ScoreContent(content)

	for i := range c.patterns {
		p := &c.patterns[i]
		if p.re.MatchString(content) {
			return p.TargetTier, p.BaseConfidence, scores
		}
	}

	lower := strings.ToLower(content)
	for _, bp := range builtinPatterns {
		for _, kw := range bp.keywords {
			if strings.Contains(lower, kw) {
				return bp.tier, bp.confidence, scores
			}
		}
	}

	return store.TierMedium, 0.4, scores
}

// Threshold returns the confidence floor below which Layer 2 should
// be consulted for the given tier.
func Threshold(tier store.RoutingTier) float64 {
	if t, ok := defaultThresholds[tier]; ok {
		return t
	}
	return 0.5
}

// EstimatedTokens returns the canonical token bucket for a tier.
func EstimatedTokens(tier store.RoutingTier) int {
	return estimatedTokensByTier[tier]
}

// ScoreContent computes the full deterministic score bundle for a
// message, independent of tier assignment.
func ScoreContent(content string) ClassificationScores {
	lower := strings.ToLower(content)
	words := wordPattern.FindAllString(content, -1)
	wordCount := len(words)

	var scores ClassificationScores

	if codeFencePattern.MatchString(content) {
		scores.CodePresence = 1.0
	} else {
		scores.CodePresence = 0.0
	}

	scores.SimpleIndicators = densityOf(lower, simpleIndicatorWords, wordCount)
	scores.TechnicalTerms = densityOf(lower, technicalTermWords, wordCount)
	scores.SocialInteraction = densityOf(lower, []string{"thanks", "please", "hi", "hello", "appreciate", "sorry"}, wordCount)

	for _, marker := range negationMarkers {
		if idx := strings.Index(lower, marker); idx >= 0 {
			scores.Negations = append(scores.Negations, Negation{Marker: marker, Index: idx})
		}
	}

	scores.ActionType = classifyAction(lower)
	scores.QuestionType = classifyQuestion(lower)

	for _, u := range []string{"urgent", "asap", "immediately", "right now", "emergency"} {
		if strings.Contains(lower, u) {
			scores.UrgencyMarkers = append(scores.UrgencyMarkers, u)
		}
	}

	return scores
}

func densityOf(lower string, vocabulary []string, wordCount int) float64 {
	if wordCount == 0 {
		return 0
	}
	hits := 0
	for _, w := range vocabulary {
		hits += strings.Count(lower, w)
	}
	density := float64(hits) / float64(wordCount)
	if density > 1 {
		density = 1
	}
	return density
}

func classifyAction(lower string) ActionType {
	switch {
	case strings.Contains(lower, "write") || strings.Contains(lower, "create") || strings.Contains(lower, "generate") || strings.Contains(lower, "implement"):
		return ActionWrite
	case strings.Contains(lower, "explain") || strings.Contains(lower, "what is") || strings.Contains(lower, "how does") || strings.Contains(lower, "why"):
		return ActionExplain
	case strings.Contains(lower, "analyze") || strings.Contains(lower, "review") || strings.Contains(lower, "compare") || strings.Contains(lower, "evaluate"):
		return ActionAnalyze
	case strings.Contains(lower, "fix") || strings.Contains(lower, "debug") || strings.Contains(lower, "broken") || strings.Contains(lower, "error"):
		return ActionFix
	default:
		return ActionGeneral
	}
}

func classifyQuestion(lower string) QuestionType {
	trimmed := strings.TrimSpace(lower)
	if !strings.Contains(trimmed, "?") {
		return QuestionOpen
	}
	firstWord := trimmed
	if idx := strings.IndexAny(trimmed, " \t"); idx >= 0 {
		firstWord = trimmed[:idx]
	}
	if whWords[firstWord] {
		return QuestionWh
	}
	for _, starter := range yesNoStarters {
		if strings.HasPrefix(trimmed, starter) {
			return QuestionYesNo
		}
	}
	return QuestionOpen
}
