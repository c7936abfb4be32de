package bus

import (
	"testing"

	"agentcore/internal/store"
)

func newTestBus() *Bus {
	b := New(nil, 1000, 256)
	for _, id := range []string{"b1", "b2", "b3", "b4", "b5"} {
		b.Register(id, id, "general")
	}
	return b
}

func TestBroadcastFanOutExcludesSender(t *testing.T) {
	b := newTestBus()
	_, err := b.Publish(store.Message{Sender: "b2", Recipient: store.TeamRecipient, Type: store.MessageBroadcast, Content: "standup", ConversationID: "conv-standup"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for _, id := range []string{"b1", "b3", "b4", "b5"} {
		inbox := b.Inbox(id)
		if len(inbox) != 1 {
			t.Fatalf("expected %s to receive exactly one message, got %d", id, len(inbox))
		}
	}
	if len(b.Inbox("b2")) != 0 {
		t.Fatal("expected sender's own inbox to remain unchanged")
	}

	conv := b.Conversation("conv-standup")
	if conv == nil {
		t.Fatal("expected conversation to be created")
	}
	want := map[string]bool{"b1": true, "b2": true, "b3": true, "b4": true, "b5": true}
	for _, p := range conv.Participants {
		delete(want, p)
	}
	if len(want) != 0 {
		t.Fatalf("missing participants from conversation: %+v", want)
	}
}

func TestDirectMessageOnlyInRecipientInbox(t *testing.T) {
	b := newTestBus()
	_, err := b.Publish(store.Message{Sender: "b1", Recipient: "b3", Type: store.MessageRequest, Content: "ping", ConversationID: "conv-direct"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(b.Inbox("b3")) != 1 {
		t.Fatal("expected recipient to have exactly one message")
	}
	for _, id := range []string{"b1", "b2", "b4", "b5"} {
		if len(b.Inbox(id)) != 0 {
			t.Fatalf("expected %s inbox to remain empty, got %d", id, len(b.Inbox(id)))
		}
	}
}

func TestGlobalLogBoundedOldestDrops(t *testing.T) {
	b := New(nil, 3, 256)
	b.Register("a", "A", "general")
	b.Register("c", "C", "general")
	for i := 0; i < 5; i++ {
		if _, err := b.Publish(store.Message{Sender: "a", Recipient: "c", Type: store.MessageRequest, Content: "m", ConversationID: "conv"}); err != nil {
			t.Fatal(err)
		}
	}
	if got := b.GlobalLogSize(); got != 3 {
		t.Fatalf("expected bounded log size 3, got %d", got)
	}
}

func TestInboxCapacityBoundedOldestDrops(t *testing.T) {
	b := New(nil, 1000, 2)
	b.Register("a", "A", "general")
	b.Register("c", "C", "general")
	for i := 0; i < 4; i++ {
		if _, err := b.Publish(store.Message{Sender: "a", Recipient: "c", Type: store.MessageRequest, Content: "m", ConversationID: "conv"}); err != nil {
			t.Fatal(err)
		}
	}
	if got := len(b.Inbox("c")); got != 2 {
		t.Fatalf("expected inbox capped at 2, got %d", got)
	}
}

func TestSearchFiltersBySenderAndType(t *testing.T) {
	b := newTestBus()
	if _, err := b.Publish(store.Message{Sender: "b1", Recipient: "b2", Type: store.MessageRequest, Content: "please review the plan", ConversationID: "c1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Publish(store.Message{Sender: "b3", Recipient: "b4", Type: store.MessageReport, Content: "review complete", ConversationID: "c2"}); err != nil {
		t.Fatal(err)
	}

	results := b.Search("review", "b1", "")
	if len(results) != 1 || results[0].Sender != "b1" {
		t.Fatalf("expected exactly one match from b1, got %+v", results)
	}

	byType := b.Search("review", "", store.MessageReport)
	if len(byType) != 1 || byType[0].Sender != "b3" {
		t.Fatalf("expected exactly one report-typed match, got %+v", byType)
	}
}

func TestConversationsForAgentSortedByLastMessageDesc(t *testing.T) {
	b := newTestBus()
	if _, err := b.Publish(store.Message{Sender: "b1", Recipient: "b2", Type: store.MessageRequest, Content: "first", ConversationID: "early"}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Publish(store.Message{Sender: "b1", Recipient: "b3", Type: store.MessageRequest, Content: "second", ConversationID: "late"}); err != nil {
		t.Fatal(err)
	}

	convs := b.ConversationsForAgent("b1")
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if convs[0].ID != "late" {
		t.Fatalf("expected most recent conversation first, got %s", convs[0].ID)
	}
}

func TestConversationSummaryFormatsLastMessages(t *testing.T) {
	b := newTestBus()
	if _, err := b.Publish(store.Message{Sender: "b1", Recipient: "b2", Type: store.MessageRequest, Content: "hello", ConversationID: "c1"}); err != nil {
		t.Fatal(err)
	}
	summary := b.ConversationSummary("c1", 10)
	if summary == "" {
		t.Fatal("expected non-empty summary")
	}
}

func TestUnregisteredSenderStillDelivered(t *testing.T) {
	b := newTestBus()
	_, err := b.Publish(store.Message{Sender: "ghost", Recipient: "b1", Type: store.MessageRequest, Content: "hi", ConversationID: "c-ghost"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(b.Inbox("b1")) != 1 {
		t.Fatal("expected message from unregistered sender still delivered to recipient")
	}
}
