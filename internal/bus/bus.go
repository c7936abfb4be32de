// Package bus implements the inter-agent message bus: agent registration,
// fan-out/direct publish into per-agent inboxes, a bounded global log,
// conversation threading, and full-text search.
package bus

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"agentcore/internal/store"
)

// Agent describes a registered bus participant.
type Agent struct {
	ID          string
	DisplayName string
	Domain      string
}

// Bus is the in-process inter-agent message bus. Registration, publish,
// and read operations are each individually atomic; delivery is
// synchronous in-process (Publish returns after every inbox is updated).
type Bus struct {
	mu sync.RWMutex

	agents map[string]Agent
	inbox  map[string][]store.Message

	globalLog   []store.Message
	logCapacity int
	inboxCap    int

	conversations map[string]*store.Conversation

	persist *store.Store // optional durable backing; nil is allowed for pure in-memory use
}

// New constructs a Bus. persist may be nil, in which case messages are
// kept only in memory (global log + inboxes).
func New(persist *store.Store, logCapacity, inboxCapacity int) *Bus {
	if logCapacity <= 0 {
		logCapacity = 1000
	}
	if inboxCapacity <= 0 {
		inboxCapacity = 256
	}
	return &Bus{
		agents:        make(map[string]Agent),
		inbox:         make(map[string][]store.Message),
		logCapacity:   logCapacity,
		inboxCap:      inboxCapacity,
		conversations: make(map[string]*store.Conversation),
		persist:       persist,
	}
}

// Register adds an agent to the bus.
func (b *Bus) Register(id, displayName, domain string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.agents[id] = Agent{ID: id, DisplayName: displayName, Domain: domain}
	if _, ok := b.inbox[id]; !ok {
		b.inbox[id] = nil
	}
}

// IsRegistered reports whether id is a known agent.
func (b *Bus) IsRegistered(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.agents[id]
	return ok
}

// Agents returns a snapshot of all registered agents.
func (b *Bus) Agents() []Agent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Agent, 0, len(b.agents))
	for _, a := range b.agents {
		out = append(out, a)
	}
	return out
}

// Publish sends a message. recipient == store.TeamRecipient fans the
// message into every registered agent's inbox except the sender's;
// otherwise it enqueues into the named agent's inbox. The message is
// always appended to the bounded global log and threaded into its
// conversation (created on first sight).
func (b *Bus) Publish(m store.Message) (store.Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}

	b.mu.Lock()
	if !b.knownLocked(m.Sender) {
		slog.Warn("bus: message from unregistered sender", "sender", m.Sender, "message_id", m.ID)
	}

	if m.Recipient == store.TeamRecipient {
		for id := range b.agents {
			if id == m.Sender {
				continue
			}
			b.enqueueLocked(id, m)
		}
	} else {
		b.enqueueLocked(m.Recipient, m)
	}

	b.appendGlobalLogLocked(m)
	b.threadLocked(m)
	b.mu.Unlock()

	if b.persist != nil {
		if err := b.persist.SaveMessage(&m); err != nil {
			return m, fmt.Errorf("bus: persist message: %w", err)
		}
	}
	return m, nil
}

func (b *Bus) knownLocked(id string) bool {
	_, ok := b.agents[id]
	return ok
}

func (b *Bus) enqueueLocked(agentID string, m store.Message) {
	q := append(b.inbox[agentID], m)
	if len(q) > b.inboxCap {
		q = q[len(q)-b.inboxCap:]
	}
	b.inbox[agentID] = q
}

func (b *Bus) appendGlobalLogLocked(m store.Message) {
	b.globalLog = append(b.globalLog, m)
	if len(b.globalLog) > b.logCapacity {
		b.globalLog = b.globalLog[len(b.globalLog)-b.logCapacity:]
	}
}

func (b *Bus) threadLocked(m store.Message) {
	conv, ok := b.conversations[m.ConversationID]
	if !ok {
		conv = &store.Conversation{
			ID:            m.ConversationID,
			Initiator:     m.Sender,
			CreatedAt:     m.Timestamp,
			LastMessageAt: m.Timestamp,
		}
		b.conversations[m.ConversationID] = conv
	}
	if m.Timestamp.After(conv.LastMessageAt) {
		conv.LastMessageAt = m.Timestamp
	}
	conv.Participants = addParticipant(conv.Participants, m.Sender)
	if m.Recipient != store.TeamRecipient {
		conv.Participants = addParticipant(conv.Participants, m.Recipient)
	}
}

func addParticipant(existing []string, id string) []string {
	if id == "" {
		return existing
	}
	for _, p := range existing {
		if p == id {
			return existing
		}
	}
	return append(existing, id)
}

// Inbox returns a copy of an agent's pending messages.
func (b *Bus) Inbox(agentID string) []store.Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]store.Message(nil), b.inbox[agentID]...)
}

// ClearInbox empties an agent's inbox.
func (b *Bus) ClearInbox(agentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inbox[agentID] = nil
}

// Conversation returns a conversation snapshot by id, or nil.
func (b *Bus) Conversation(id string) *store.Conversation {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.conversations[id]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

// ConversationsForAgent lists the conversations an agent participates in,
// sorted by last-message time descending.
func (b *Bus) ConversationsForAgent(agentID string) []store.Conversation {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []store.Conversation
	for _, c := range b.conversations {
		for _, p := range c.Participants {
			if p == agentID {
				out = append(out, *c)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	return out
}

// Search performs a substring search over the global log with optional
// sender/type filters.
func (b *Bus) Search(substr, sender string, typ store.MessageType) []store.Message {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []store.Message
	for _, m := range b.globalLog {
		if substr != "" && !strings.Contains(strings.ToLower(m.Content), strings.ToLower(substr)) {
			continue
		}
		if sender != "" && m.Sender != sender {
			continue
		}
		if typ != "" && m.Type != typ {
			continue
		}
		out = append(out, m)
	}
	return out
}

// ConversationSummary returns a human-readable summary of the last n
// messages of a conversation (n defaults to 10 when <= 0).
func (b *Bus) ConversationSummary(conversationID string, n int) string {
	if n <= 0 {
		n = 10
	}
	b.mu.RLock()
	var msgs []store.Message
	for _, m := range b.globalLog {
		if m.ConversationID == conversationID {
			msgs = append(msgs, m)
		}
	}
	b.mu.RUnlock()

	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}

	var sb strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&sb, "[%s] %s -> %s: %s\n", m.Timestamp.Format(time.Kitchen), m.Sender, m.Recipient, m.Content)
	}
	return sb.String()
}

// GlobalLogSize returns the current length of the bounded global log.
func (b *Bus) GlobalLogSize() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.globalLog)
}
