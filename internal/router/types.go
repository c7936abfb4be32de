// Package router implements the two-layer tier classifier: a
// deterministic Layer 1 over regex/keyword scores and pattern
// matching, an assisted Layer 2 with an on-device -> primary ->
// secondary fallback chain, sticky per-conversation state, rolling
// feedback capture, and periodic auto-calibration of patterns and
// thresholds.
package router

import (
	"time"

	"agentcore/internal/store"
)

// ActionType classifies the verb of a user request.
type ActionType string

const (
	ActionWrite   ActionType = "write"
	ActionExplain ActionType = "explain"
	ActionAnalyze ActionType = "analyze"
	ActionFix     ActionType = "fix"
	ActionGeneral ActionType = "general"
)

// QuestionType classifies the grammatical shape of a question.
type QuestionType string

const (
	QuestionYesNo QuestionType = "yes_no"
	QuestionWh    QuestionType = "wh_question"
	QuestionOpen  QuestionType = "open"
)

// Negation is one detected negation marker in the source content.
type Negation struct {
	Marker string
	Index  int
}

// ClassificationScores is the full score bundle produced by Layer 1,
// carried forward as context for Layer 2 and recorded for feedback.
type ClassificationScores struct {
	CodePresence      float64
	SimpleIndicators  float64
	TechnicalTerms    float64
	SocialInteraction float64
	Negations         []Negation
	ActionType        ActionType
	QuestionType      QuestionType
	UrgencyMarkers    []string
}

// defaultThresholds are the tier-specific confidence thresholds below
// which Layer 2 assisted classification is invoked.
var defaultThresholds = map[store.RoutingTier]float64{
	store.TierSimple:    0.0,
	store.TierMedium:    0.5,
	store.TierComplex:   0.85,
	store.TierCoding:    0.90,
	store.TierReasoning: 0.97,
}

// estimatedTokensByTier is the fixed token-bucket per tier.
var estimatedTokensByTier = map[store.RoutingTier]int{
	store.TierSimple:    50,
	store.TierMedium:    200,
	store.TierComplex:   1000,
	store.TierCoding:    800,
	store.TierReasoning: 2000,
}

// QuantizeTokens rounds an estimate to the five canonical buckets.
func QuantizeTokens(n int) int {
	switch {
	case n <= 100:
		return 50
	case n <= 500:
		return 200
	case n <= 900:
		return 800
	case n <= 1500:
		return 1000
	default:
		return 2000
	}
}

// FeedbackRecord captures one classified message for calibration.
type FeedbackRecord struct {
	ContentPreview     string
	ClientTier         store.RoutingTier
	ClientConfidence   float64
	AssistedTier       store.RoutingTier
	AssistedConfidence float64
	FinalTier          store.RoutingTier
	Layer              store.RoutingLayer
	ActionType         ActionType
	HasNegations       bool
	CodePresence       float64
	SimpleIndicators   float64
	TechnicalTerms     float64
	SocialInteraction  float64
	Timestamp          time.Time
}
