// Package store provides durable persistence for the coordination core:
// messages, conversations, tasks, decisions, audit events, routing
// analytics, and tool-output blobs, fronted by a TTL+LRU read-through
// cache.
package store

import "time"

// MessageType classifies the intent of a bus message.
type MessageType string

const (
	MessageRequest       MessageType = "request"
	MessageResponse      MessageType = "response"
	MessageReport        MessageType = "report"
	MessageDiscussion    MessageType = "discussion"
	MessageBroadcast     MessageType = "broadcast"
	MessageClarification MessageType = "clarification"
	MessageAgreement     MessageType = "agreement"
	MessageDisagreement  MessageType = "disagreement"
)

// TeamRecipient is the reserved recipient value meaning "broadcast to
// every registered agent except the sender".
const TeamRecipient = "team"

// Message is a single unit of inter-agent communication.
type Message struct {
	ID             string            `json:"id"`
	Sender         string            `json:"sender"`
	Recipient      string            `json:"recipient"`
	Type           MessageType       `json:"type"`
	Content        string            `json:"content"`
	ConversationID string            `json:"conversation_id"`
	Context        map[string]string `json:"context,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
	ResponseTo     string            `json:"response_to,omitempty"`
}

// Conversation threads a set of messages together.
type Conversation struct {
	ID                 string    `json:"id"`
	Initiator          string    `json:"initiator"`
	Subject            string    `json:"subject"`
	Participants       []string  `json:"participants"`
	CreatedAt          time.Time `json:"created_at"`
	LastMessageAt      time.Time `json:"last_message_at"`
	StickyTier         string    `json:"sticky_tier,omitempty"`
	StickySetAt        time.Time `json:"sticky_set_at,omitempty"`
	RecentTierWindow   []string  `json:"recent_tier_window,omitempty"`
}

// TaskStatus is the task lifecycle state.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskAssigned   TaskStatus = "assigned"
	TaskInProgress TaskStatus = "in_progress"
	TaskBlocked    TaskStatus = "blocked"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
	TaskTimeout    TaskStatus = "timeout"
)

// Priority levels, matching spec.md's fixed low/medium/high scale.
const (
	PriorityLow    = 1
	PriorityMedium = 3
	PriorityHigh   = 5
)

// Task is a unit of work tracked by the Coordinator.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Domain       string     `json:"domain"`
	Priority     int        `json:"priority"`
	AssignedTo   string     `json:"assigned_to,omitempty"`
	CreatorID    string     `json:"creator_id"`
	Status       TaskStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	DueAt        *time.Time `json:"due_at,omitempty"`
	Requirements []string   `json:"requirements,omitempty"`
	Result       string     `json:"result,omitempty"`
	Confidence   float64    `json:"confidence"`
	ParentTaskID string     `json:"parent_task_id,omitempty"`
	Learnings    []string   `json:"learnings,omitempty"`
	FollowUps    []string   `json:"follow_ups,omitempty"`
}

// DecisionType classifies how a Decision was reached.
type DecisionType string

const (
	DecisionConsensus       DecisionType = "consensus"
	DecisionDisputeResolved DecisionType = "dispute_resolution"
	DecisionExpertiseBased  DecisionType = "expertise_based"
	DecisionWeightedVote    DecisionType = "weighted_vote"
)

// Position is one participant's stance in a decision.
type Position struct {
	AgentID        string  `json:"agent_id"`
	Position       string  `json:"position"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	ExpertiseScore float64 `json:"expertise_score,omitempty"`
}

// Decision records a coordinator decision and its provenance.
type Decision struct {
	ID               string       `json:"id"`
	TaskID           string       `json:"task_id,omitempty"`
	Type             DecisionType `json:"type"`
	Participants     []string     `json:"participants"`
	Positions        []Position   `json:"positions"`
	FinalDecision    string       `json:"final_decision"`
	Confidence       float64      `json:"confidence"`
	Reasoning        string       `json:"reasoning"`
	DissentSummary   string       `json:"dissent_summary,omitempty"`
	Escalated        bool         `json:"escalated"`
	Timestamp        time.Time    `json:"timestamp"`
}

// DisagreementType classifies why positions diverge.
type DisagreementType string

const (
	DisagreementFactual       DisagreementType = "factual"
	DisagreementMethodological DisagreementType = "methodological"
	DisagreementPriority      DisagreementType = "priority"
	DisagreementPhilosophical DisagreementType = "philosophical"
	DisagreementIncompleteInfo DisagreementType = "incomplete_info"
)

// Disagreement records a detected dispute before resolution.
type Disagreement struct {
	ID          string           `json:"id"`
	TaskID      string           `json:"task_id,omitempty"`
	Type        DisagreementType `json:"type"`
	Positions   []Position       `json:"positions"`
	CommonGround string          `json:"common_ground,omitempty"`
	Severity    float64          `json:"severity"`
	Timestamp   time.Time        `json:"timestamp"`
}

// AuditEventType enumerates the kinds of coordinator actions that get audited.
type AuditEventType string

const (
	AuditDecisionMade      AuditEventType = "decision_made"
	AuditBotSelection      AuditEventType = "bot_selection"
	AuditConsensusReached  AuditEventType = "consensus_reached"
	AuditDisputeDetected   AuditEventType = "dispute_detected"
	AuditDisputeResolved   AuditEventType = "dispute_resolved"
	AuditTaskAssigned      AuditEventType = "task_assigned"
	AuditTaskCompleted     AuditEventType = "task_completed"
	AuditTaskFailed        AuditEventType = "task_failed"
	AuditEscalation        AuditEventType = "escalation"
	AuditMessageSent       AuditEventType = "message_sent"
	AuditVoting            AuditEventType = "voting"
	AuditReasoning         AuditEventType = "reasoning"
)

// Severity is the audit event's level.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// AuditEvent is an immutable, append-only record of a coordinator action.
type AuditEvent struct {
	ID             string         `json:"id"`
	EventType      AuditEventType `json:"event_type"`
	Timestamp      time.Time      `json:"timestamp"`
	TaskID         string         `json:"task_id,omitempty"`
	AgentIDs       []string       `json:"agent_ids,omitempty"`
	Description    string         `json:"description"`
	Reasoning      string         `json:"reasoning,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
	Severity       Severity       `json:"severity"`
	Confidence     float64        `json:"confidence,omitempty"`
	RelatedEventIDs []string      `json:"related_event_ids,omitempty"`
	Escalated      bool           `json:"escalated"`
}

// RoutingTier is the cost/latency class assigned to a message.
type RoutingTier string

const (
	TierSimple    RoutingTier = "simple"
	TierMedium    RoutingTier = "medium"
	TierComplex   RoutingTier = "complex"
	TierCoding    RoutingTier = "coding"
	TierReasoning RoutingTier = "reasoning"
)

// PatternProvenance records how a routing pattern came to exist.
type PatternProvenance string

const (
	ProvenanceManual         PatternProvenance = "manual"
	ProvenanceAutoCalibration PatternProvenance = "auto_calibration"
)

// RoutingPattern is one deterministic-classifier rule.
type RoutingPattern struct {
	ID             string            `json:"id"`
	Regex          string            `json:"regex"`
	TargetTier     RoutingTier       `json:"target_tier"`
	BaseConfidence float64           `json:"base_confidence"`
	TimesUsed      int               `json:"times_used"`
	TimesMatched   int               `json:"times_matched"`
	TimesCorrect   int               `json:"times_correct"`
	Examples       []string          `json:"examples,omitempty"`
	Provenance     PatternProvenance `json:"provenance"`
	ActionContext  string            `json:"action_context,omitempty"`
}

// RoutingLayer identifies which classifier layer produced a decision.
type RoutingLayer string

const (
	LayerClient RoutingLayer = "client"
	LayerLocal  RoutingLayer = "local"
	LayerLLM    RoutingLayer = "llm"
)

// RoutingDecision is the outcome of classifying one message.
type RoutingDecision struct {
	Tier             RoutingTier    `json:"tier"`
	ResolvedModel    string         `json:"resolved_model"`
	Confidence       float64        `json:"confidence"`
	Layer            RoutingLayer   `json:"layer"`
	Reasoning        string         `json:"reasoning"`
	EstimatedTokens  int            `json:"estimated_tokens"`
	NeedsTools       bool           `json:"needs_tools"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// ToolOutputBlob holds a large tool result out of the conversational
// context window, referenced by an opaque ref://<id> token.
type ToolOutputBlob struct {
	ID             string    `json:"id"`
	ToolName       string    `json:"tool_name"`
	FullOutput     string    `json:"full_output"`
	ContextSummary string    `json:"context_summary"`
	CreatedAt      time.Time `json:"created_at"`
	SessionKey     string    `json:"session_key"`
	AccessCount    int       `json:"access_count"`
	CharCount      int       `json:"char_count"`
}

// BotTaskStats summarizes one agent's task history.
type BotTaskStats struct {
	AgentID         string  `json:"agent_id"`
	Count           int     `json:"count"`
	SuccessRate     float64 `json:"success_rate"`
	AverageConfidence float64 `json:"average_confidence"`
	Recent10        []Task  `json:"recent_10"`
}
