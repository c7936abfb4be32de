package router

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"agentcore/internal/store"
)

// DefaultAssistedTimeout is the hard ceiling on the whole Layer 2
// fallback chain, regardless of which hop answers.
const DefaultAssistedTimeout = 500 * time.Millisecond

// LocalModel is the on-device hop of the fallback chain. Classify
// returns (nil, nil) when the model is unavailable or its output
// could not be trusted, signalling the caller to fall through to the
// primary remote classifier rather than treating it as an error.
type LocalModel interface {
	IsAvailable() bool
	Classify(ctx context.Context, content string) (*store.RoutingDecision, error)
}

// AssistedClassifier is a remote (primary or secondary) Layer 2 hop.
type AssistedClassifier interface {
	Classify(ctx context.Context, content string, scores ClassificationScores) (*store.RoutingDecision, error)
}

// AssistedRouter drives the on-device -> primary -> secondary fallback
// chain and applies the context-consistency adjustment rules to
// whichever hop answers.
type AssistedRouter struct {
	Local     LocalModel
	Primary   AssistedClassifier
	Secondary AssistedClassifier
	Timeout   time.Duration
}

// NewAssistedRouter builds a router with the default timeout. Local
// may be nil when no on-device model is configured.
func NewAssistedRouter(local LocalModel, primary, secondary AssistedClassifier) *AssistedRouter {
	return &AssistedRouter{Local: local, Primary: primary, Secondary: secondary, Timeout: DefaultAssistedTimeout}
}

// Classify runs the fallback chain under a hard timeout and applies
// the context-consistency rules to the winning decision. If every hop
// fails, it returns a medium-tier decision at low confidence rather
// than an error, matching the original router's "never block the
// user on a classifier outage" behavior.
func (a *AssistedRouter) Classify(ctx context.Context, content string, scores ClassificationScores) store.RoutingDecision {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultAssistedTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	decision := a.runChain(ctx, content, scores)
	applyContextConsistency(&decision, scores)
	return decision
}

func (a *AssistedRouter) runChain(ctx context.Context, content string, scores ClassificationScores) store.RoutingDecision {
	if a.Local != nil && a.Local.IsAvailable() {
		d, err := a.Local.Classify(ctx, content)
		if err != nil {
			slog.Warn("router: local model classification failed", "error", err)
		} else if d != nil {
			d.Layer = store.LayerLocal
			return *d
		}
	}

	if a.Primary != nil {
		d, err := a.Primary.Classify(ctx, content, scores)
		if err == nil && d != nil {
			d.Layer = store.LayerLLM
			return *d
		}
		if err != nil {
			slog.Warn("router: primary assisted classifier failed", "error", err)
		}
	}

	if a.Secondary != nil {
		d, err := a.Secondary.Classify(ctx, content, scores)
		if err == nil && d != nil {
			d.Layer = store.LayerLLM
			return *d
		}
		if err != nil {
			slog.Warn("router: secondary assisted classifier failed", "error", err)
		}
	}

	return store.RoutingDecision{
		Tier:            store.TierMedium,
		ResolvedModel:   "",
		Confidence:      0.5,
		Layer:           store.LayerLLM,
		Reasoning:       "all assisted classifiers unavailable, defaulted to medium tier",
		EstimatedTokens: EstimatedTokens(store.TierMedium),
		NeedsTools:      true,
	}
}

// ErrAllHopsFailed is returned by AssistedClassifier implementations
// that want to signal total failure distinctly from "unavailable".
var ErrAllHopsFailed = errors.New("router: assisted classification chain exhausted")

// applyContextConsistency applies the three fixed rules that reconcile
// an assisted tier decision against the action-type and code-presence
// scores already computed by Layer 1.
func applyContextConsistency(d *store.RoutingDecision, scores ClassificationScores) {
	const adjust = 0.1
	const confidenceCap = 0.95

	if scores.ActionType == ActionExplain && d.Tier == store.TierCoding {
		d.Tier = store.TierMedium
		d.Confidence = minF(d.Confidence+adjust, confidenceCap)
		d.Reasoning = appendReason(d.Reasoning, "downgraded coding to medium: explanation requests rarely need a coding-tier model")
	}

	if scores.ActionType == ActionWrite && d.Tier == store.TierMedium && scores.CodePresence > 0 {
		d.Tier = store.TierCoding
		d.Confidence = minF(d.Confidence+adjust, confidenceCap)
		d.Reasoning = appendReason(d.Reasoning, "upgraded medium to coding: write action carries code content")
	}

	if len(scores.Negations) > 0 && d.Confidence > 0.9 {
		d.Confidence *= 0.95
		d.Reasoning = appendReason(d.Reasoning, "dampened confidence for negation markers in content")
	}
}

func appendReason(existing, addition string) string {
	if existing == "" {
		return addition
	}
	return strings.TrimSuffix(existing, "; ") + "; " + addition
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
