package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"agentcore/internal/store"
)

// Router is the top-level orchestrator: Layer 1 deterministic
// classification, conditional Layer 2 assistance, sticky
// per-conversation routing, and feedback capture for calibration.
type Router struct {
	store       *store.Store
	classifier  *Classifier
	assisted    *AssistedRouter
	calibration *CalibrationManager
}

// New constructs a Router backed by s. assisted may be nil, in which
// case messages below a tier's confidence threshold are routed at
// Layer 1's tier anyway rather than blocking on a classifier that
// does not exist.
func New(s *store.Store, assisted *AssistedRouter) (*Router, error) {
	patterns, err := s.ListRoutingPatterns()
	if err != nil {
		return nil, fmt.Errorf("router: load patterns: %w", err)
	}
	return &Router{
		store:       s,
		classifier:  NewClassifier(patterns),
		assisted:    assisted,
		calibration: NewCalibrationManager(s),
	}, nil
}

// Route classifies one message end to end: Layer 1 scoring, Layer 2
// assistance if confidence is below threshold, sticky reconciliation
// against the conversation's recent history, and feedback recording.
func (r *Router) Route(ctx context.Context, conversationID, content string) (store.RoutingDecision, error) {
	tier, confidence, scores := r.classifier.Classify(content)

	decision := store.RoutingDecision{
		Tier:            tier,
		Confidence:      confidence,
		Layer:           store.LayerClient,
		Reasoning:       "layer 1 deterministic classification",
		EstimatedTokens: EstimatedTokens(tier),
		NeedsTools:      tier != store.TierSimple,
	}

	if confidence < r.calibration.ThresholdFor(tier) && r.assisted != nil {
		assistedDecision := r.assisted.Classify(ctx, content, scores)
		decision = assistedDecision
	}

	conv, err := r.conversationOrEmpty(conversationID)
	if err != nil {
		return store.RoutingDecision{}, err
	}

	sticky := ApplySticky(conv, content, decision.Tier, decision.Confidence, scores)
	finalTier := sticky.ReturnTier
	if sticky.Downgraded {
		decision.Reasoning = appendReason(decision.Reasoning, "sticky router downgraded to simple on explicit signal")
	} else if finalTier != decision.Tier {
		decision.Reasoning = appendReason(decision.Reasoning, fmt.Sprintf("sticky router held elevated tier %s", finalTier))
	}
	decision.Tier = finalTier
	decision.EstimatedTokens = EstimatedTokens(finalTier)

	if conversationID != "" {
		if err := PersistSticky(r.store, conversationID, sticky); err != nil {
			return store.RoutingDecision{}, fmt.Errorf("router: persist sticky state: %w", err)
		}
	}

	r.calibration.RecordClassification(FeedbackRecord{
		ContentPreview:     previewOf(content),
		ClientTier:         tier,
		ClientConfidence:   confidence,
		AssistedTier:       decision.Tier,
		AssistedConfidence: decision.Confidence,
		FinalTier:          finalTier,
		Layer:              decision.Layer,
		ActionType:         scores.ActionType,
		HasNegations:       len(scores.Negations) > 0,
		CodePresence:       scores.CodePresence,
		SimpleIndicators:   scores.SimpleIndicators,
		TechnicalTerms:     scores.TechnicalTerms,
		SocialInteraction:  scores.SocialInteraction,
		Timestamp:          time.Now(),
	})

	return decision, nil
}

func (r *Router) conversationOrEmpty(conversationID string) (*store.Conversation, error) {
	if conversationID == "" {
		return &store.Conversation{}, nil
	}
	conv, _, err := r.store.GetConversation(conversationID)
	if err != nil {
		return nil, fmt.Errorf("router: load conversation: %w", err)
	}
	if conv == nil {
		return &store.Conversation{ID: conversationID}, nil
	}
	return conv, nil
}

func previewOf(content string) string {
	const maxPreview = 200
	content = strings.TrimSpace(content)
	if len(content) <= maxPreview {
		return content
	}
	return content[:maxPreview]
}

// MaybeCalibrate runs a calibration pass when enough feedback has
// accumulated since the last run, logging the result.
func (r *Router) MaybeCalibrate(minClassifications int) (*CalibrationResult, error) {
	fresh := 0
	for _, rec := range r.calibration.history {
		if r.calibration.lastCalibration.IsZero() || rec.Timestamp.After(r.calibration.lastCalibration) {
			fresh++
		}
	}
	if fresh < minClassifications {
		return nil, nil
	}
	result, err := r.calibration.Calibrate()
	if err != nil {
		return nil, err
	}
	slog.Info("router: calibration complete",
		"classifications", result.ClassificationsAnalyzed,
		"accuracy", result.Accuracy,
		"patterns_added", result.PatternsAdded,
		"patterns_removed", result.PatternsRemoved,
		"total_patterns", result.TotalPatterns,
	)
	if len(result.ThresholdAdjustments) > 0 {
		patterns, err := r.store.ListRoutingPatterns()
		if err != nil {
			return &result, err
		}
		r.classifier = NewClassifier(patterns)
	}
	return &result, nil
}
