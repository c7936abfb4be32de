package router

import (
	"context"
	"testing"

	"agentcore/internal/store"
)

func TestRouteWithoutAssistedUsesLayer1Directly(t *testing.T) {
	s := newTestStore(t)
	r, err := New(s, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	decision, err := r.Route(context.Background(), "", "please debug this crashing function")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if decision.Tier != store.TierCoding {
		t.Fatalf("expected coding tier, got %s", decision.Tier)
	}
	if decision.Layer != store.LayerClient {
		t.Fatalf("expected client layer with no assisted router wired, got %s", decision.Layer)
	}
}

func TestRouteConsultsAssistedBelowThreshold(t *testing.T) {
	s := newTestStore(t)
	primary := &stubAssisted{decision: &store.RoutingDecision{Tier: store.TierReasoning, Confidence: 0.97}}
	r, err := New(s, NewAssistedRouter(nil, primary, nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// An unmatched, ambiguous message falls through to the medium
	// default at confidence 0.4, below the medium threshold of 0.5, so Layer 2
	// must be consulted.
	decision, err := r.Route(context.Background(), "", "xyz qqq zzz")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if decision.Tier != store.TierReasoning {
		t.Fatalf("expected assisted decision to override layer 1, got %s", decision.Tier)
	}
}

func TestRoutePersistsStickyStateAcrossMessages(t *testing.T) {
	s := newTestStore(t)
	conv := &store.Conversation{ID: "c1", Initiator: "u1", Subject: "s"}
	if err := s.SaveMessage(&store.Message{ConversationID: conv.ID, Sender: "u1", Recipient: "bot", Content: "architect a distributed cache migration plan"}); err != nil {
		t.Fatalf("seed message: %v", err)
	}

	r, err := New(s, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 4; i++ {
		if err := s.SetStickyTier(conv.ID, string(store.TierComplex), []string{"complex", "complex", "complex", "complex"}); err != nil {
			t.Fatalf("seed sticky state: %v", err)
		}
	}

	decision, err := r.Route(context.Background(), conv.ID, "thanks, by the way what time is it?")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if decision.Tier != store.TierSimple {
		t.Fatalf("expected simple tier for unambiguous simple message, got %s", decision.Tier)
	}

	got, _, err := s.GetConversation(conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got.StickyTier != string(store.TierComplex) {
		t.Fatalf("expected sticky tier preserved at complex after the cost interrupt, got %s", got.StickyTier)
	}
}
