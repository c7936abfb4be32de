package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"agentcore/internal/store"
)

// Publisher delivers an inter-agent message. Implemented by *bus.Bus;
// kept as an interface so the coordinator depends on the shape it
// needs rather than importing the bus package directly.
type Publisher interface {
	Publish(m store.Message) (store.Message, error)
}

// Coordinator wires the task state machine, voting/dispute logic, and
// the audit trail to the durable store. It also depends on a Publisher
// to announce assignments and results over the inter-agent bus.
type Coordinator struct {
	store              *store.Store
	heartbeatTimeout   time.Duration
	monitorInterval    time.Duration
	gcAfter            time.Duration
	consensusThreshold float64
	expertise          ExpertiseLookup
	bus                Publisher
}

// New constructs a Coordinator. expertise scores a candidate agent's
// fitness for a domain; a nil expertise scores every candidate 0, so the
// first candidate wins. bus may be nil, in which case
// assignments and results are persisted and audited but never
// announced over the inter-agent bus.
func New(s *store.Store, heartbeatTimeout, monitorInterval, gcAfter time.Duration, consensusThreshold float64, expertise ExpertiseLookup, bus Publisher) *Coordinator {
	if expertise == nil {
		expertise = func(string, string) float64 { return 0 }
	}
	return &Coordinator{
		store:              s,
		heartbeatTimeout:   heartbeatTimeout,
		monitorInterval:    monitorInterval,
		gcAfter:            gcAfter,
		consensusThreshold: consensusThreshold,
		expertise:          expertise,
		bus:                bus,
	}
}

// publish announces a message over the bus if one is configured,
// logging rather than failing the caller on delivery trouble — a
// missing or unreachable bus participant should never block task
// state transitions.
func (c *Coordinator) publish(m store.Message) {
	if c.bus == nil {
		return
	}
	if _, err := c.bus.Publish(m); err != nil {
		slog.Warn("coordinator: bus publish failed", "recipient", m.Recipient, "type", m.Type, "error", err)
	}
}

// AssignTask selects the best-fit agent for a task's domain among
// candidates, claims it on their behalf, persists the assignment, and
// logs a bot_selection audit event carrying the full score map.
func (c *Coordinator) AssignTask(t *store.Task, candidates []string) error {
	agentID, scores := SelectBot(t.Domain, candidates, c.expertise)
	if agentID == "" {
		return fmt.Errorf("coordinator: no candidate available for domain %q", t.Domain)
	}
	Claim(t, agentID)
	if err := c.store.SaveTask(t); err != nil {
		return fmt.Errorf("coordinator: save assigned task: %w", err)
	}
	c.publish(store.Message{
		Sender:         "coordinator",
		Recipient:      agentID,
		Type:           store.MessageRequest,
		Content:        fmt.Sprintf("assigned task %s: %s", t.ID, t.Title),
		ConversationID: t.ID,
		Context:        map[string]string{"task_id": t.ID, "domain": t.Domain},
	})
	return c.audit(store.AuditEvent{
		EventType: store.AuditBotSelection,
		TaskID:    t.ID,
		AgentIDs:  []string{agentID},
		Description: fmt.Sprintf("assigned task %s (%s) to %s", t.ID, t.Domain, agentID),
		Details:   map[string]any{"scores": scores},
		Severity:  store.SeverityInfo,
		Confidence: scores[agentID],
	})
}

// StartTask transitions a task to in_progress and records a heartbeat.
func (c *Coordinator) StartTask(taskID, agentID string) error {
	t, err := c.store.GetTask(taskID)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("coordinator: task %s not found", taskID)
	}
	now := time.Now()
	if err := Start(t, agentID, now); err != nil {
		return err
	}
	if err := c.store.SaveTask(t); err != nil {
		return err
	}
	return c.store.TouchHeartbeat(taskID, now)
}

// CompleteTask transitions a task to completed and audits it.
func (c *Coordinator) CompleteTask(taskID, agentID, result string, confidence float64) error {
	t, err := c.store.GetTask(taskID)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("coordinator: task %s not found", taskID)
	}
	now := time.Now()
	if err := Complete(t, agentID, result, confidence, now); err != nil {
		return err
	}
	if err := c.store.SaveTask(t); err != nil {
		return err
	}
	c.publish(store.Message{
		Sender:         agentID,
		Recipient:      store.TeamRecipient,
		Type:           store.MessageReport,
		Content:        result,
		ConversationID: taskID,
		Context:        map[string]string{"task_id": taskID},
	})
	return c.audit(store.AuditEvent{
		EventType:   store.AuditTaskCompleted,
		TaskID:      taskID,
		AgentIDs:    []string{agentID},
		Description: fmt.Sprintf("task %s completed by %s", taskID, agentID),
		Severity:    store.SeverityInfo,
		Confidence:  confidence,
	})
}

// FailTask transitions a task to failed and audits it.
func (c *Coordinator) FailTask(taskID, agentID, reason string) error {
	t, err := c.store.GetTask(taskID)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("coordinator: task %s not found", taskID)
	}
	now := time.Now()
	if err := Fail(t, agentID, reason, now); err != nil {
		return err
	}
	if err := c.store.SaveTask(t); err != nil {
		return err
	}
	c.publish(store.Message{
		Sender:         agentID,
		Recipient:      store.TeamRecipient,
		Type:           store.MessageReport,
		Content:        fmt.Sprintf("task %s failed: %s", taskID, reason),
		ConversationID: taskID,
		Context:        map[string]string{"task_id": taskID},
	})
	return c.audit(store.AuditEvent{
		EventType:   store.AuditTaskFailed,
		TaskID:      taskID,
		AgentIDs:    []string{agentID},
		Description: fmt.Sprintf("task %s failed under %s: %s", taskID, agentID, reason),
		Severity:    store.SeverityError,
	})
}

// Heartbeat records liveness for every task currently owned by agentID.
func (c *Coordinator) Heartbeat(agentID string) error {
	owned, err := c.store.ListTasksByAssignee(agentID)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, t := range owned {
		if t.Status != store.TaskAssigned && t.Status != store.TaskInProgress {
			continue
		}
		if err := c.store.TouchHeartbeat(t.ID, now); err != nil {
			return err
		}
	}
	return nil
}

// RunLivenessMonitor blocks, reclaiming timed-out tasks at a fixed
// cadence until ctx is cancelled.
func (c *Coordinator) RunLivenessMonitor(ctx context.Context) error {
	ticker := time.NewTicker(c.monitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.sweepTimeouts(); err != nil {
				slog.Error("coordinator: liveness sweep failed", "error", err)
			}
			if err := c.gcCompletedTasks(); err != nil {
				slog.Error("coordinator: completed-task gc failed", "error", err)
			}
		}
	}
}

func (c *Coordinator) sweepTimeouts() error {
	cutoff := time.Now().Add(-c.heartbeatTimeout)
	stale, err := c.store.ListTasksWithHeartbeatBefore(cutoff)
	if err != nil {
		return err
	}
	for i := range stale {
		t := &stale[i]
		owner := t.AssignedTo
		ReclaimOnTimeout(t)
		if err := c.store.SaveTask(t); err != nil {
			return err
		}
		if err := c.audit(store.AuditEvent{
			EventType:   store.AuditTaskAssigned,
			TaskID:      t.ID,
			AgentIDs:    []string{owner},
			Description: fmt.Sprintf("task %s reclaimed from %s after heartbeat timeout", t.ID, owner),
			Severity:    store.SeverityWarning,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) gcCompletedTasks() error {
	cutoff := time.Now().Add(-c.gcAfter)
	_, err := c.store.DeleteCompletedBefore(cutoff)
	return err
}

// Decide applies a voting strategy to a position set, persists the
// resulting Decision, and logs the matching audit events.
func (c *Coordinator) Decide(taskID string, strategy VotingStrategy, positions []store.Position) (*store.Decision, error) {
	result := Vote(strategy, positions)
	decision := &store.Decision{
		ID:            uuid.NewString(),
		TaskID:        taskID,
		Type:          voteStrategyDecisionType(strategy),
		Participants:  participantIDs(positions),
		Positions:     positions,
		FinalDecision: result.Winner,
		Confidence:    result.Confidence,
		Reasoning:     result.Reasoning,
		Timestamp:     time.Now(),
	}
	if err := c.store.SaveDecision(decision); err != nil {
		return nil, err
	}
	if err := c.audit(store.AuditEvent{
		EventType:   store.AuditVoting,
		TaskID:      taskID,
		AgentIDs:    decision.Participants,
		Description: fmt.Sprintf("%s vote on task %s chose %q", strategy, taskID, result.Winner),
		Severity:    store.SeverityInfo,
		Confidence:  result.Confidence,
	}); err != nil {
		return nil, err
	}
	return decision, nil
}

func voteStrategyDecisionType(s VotingStrategy) store.DecisionType {
	if s == VoteWeighted {
		return store.DecisionWeightedVote
	}
	return store.DecisionConsensus
}

// HandleDispute detects and, if present, resolves a disagreement among
// positions, persisting both the Disagreement and the resulting
// Decision and auditing each step.
func (c *Coordinator) HandleDispute(taskID string, positions []store.Position) (*store.Decision, error) {
	if !HasDisagreement(positions) {
		return nil, nil
	}

	disagreement := &store.Disagreement{
		ID:           uuid.NewString(),
		TaskID:       taskID,
		Type:         InferDisagreementType(positions),
		Positions:    positions,
		CommonGround: FindCommonGround(positions),
		Severity:     disagreementSeverity(positions),
		Timestamp:    time.Now(),
	}
	if err := c.store.SaveDisagreement(disagreement); err != nil {
		return nil, err
	}
	if err := c.audit(store.AuditEvent{
		EventType:   store.AuditDisputeDetected,
		TaskID:      taskID,
		AgentIDs:    participantIDs(positions),
		Description: fmt.Sprintf("dispute detected on task %s (%s)", taskID, disagreement.Type),
		Severity:    store.SeverityWarning,
	}); err != nil {
		return nil, err
	}

	decision := ResolveDispute(positions, c.consensusThreshold)
	decision.ID = uuid.NewString()
	decision.TaskID = taskID
	decision.Timestamp = time.Now()
	if err := c.store.SaveDecision(&decision); err != nil {
		return nil, err
	}
	if err := c.audit(store.AuditEvent{
		EventType:   store.AuditDisputeResolved,
		TaskID:      taskID,
		AgentIDs:    decision.Participants,
		Description: fmt.Sprintf("dispute on task %s resolved to %q", taskID, decision.FinalDecision),
		Severity:    store.SeverityInfo,
		Confidence:  decision.Confidence,
	}); err != nil {
		return nil, err
	}
	return &decision, nil
}

// Escalate marks a decision escalated and logs a warning-severity
// audit event.
func (c *Coordinator) Escalate(decision *store.Decision, reason string) error {
	decision.Escalated = true
	if err := c.store.SaveDecision(decision); err != nil {
		return err
	}
	return c.audit(store.AuditEvent{
		EventType:   store.AuditEscalation,
		TaskID:      decision.TaskID,
		AgentIDs:    decision.Participants,
		Description: fmt.Sprintf("decision %s escalated: %s", decision.ID, reason),
		Reasoning:   reason,
		Severity:    store.SeverityWarning,
		Escalated:   true,
	})
}

func (c *Coordinator) audit(e store.AuditEvent) error {
	e.ID = uuid.NewString()
	e.Timestamp = time.Now()
	return c.store.AppendAudit(&e)
}

func disagreementSeverity(positions []store.Position) float64 {
	distinct := map[string]bool{}
	for _, p := range positions {
		distinct[p.Position] = true
	}
	if len(positions) == 0 {
		return 0
	}
	return float64(len(distinct)) / float64(len(positions))
}
