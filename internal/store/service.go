package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is the durable persistence layer over the entities in the data
// model, fronted by Cache for read-heavy paths.
type Store struct {
	db    *sql.DB
	cache *Cache
}

// Open opens (creating if necessary) the sqlite database at dbPath and
// applies the schema. cacheTTL/cacheCapacity configure the read-through
// cache in front of it.
func Open(dbPath string, cacheTTL time.Duration, cacheCapacity int) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	// Best-effort migration: older databases may predate the heartbeat column.
	_, _ = db.Exec(`ALTER TABLE tasks ADD COLUMN last_heartbeat DATETIME`)

	return &Store{
		db:    db,
		cache: NewCache(cacheTTL, cacheCapacity),
	}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Cache exposes the read-through cache for observability (hit/miss/eviction
// counters).
func (s *Store) Cache() *Cache { return s.cache }

func marshalStrings(v []string) string {
	if len(v) == 0 {
		return ""
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func unmarshalStrings(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(v), &out)
	return out
}

func marshalAny(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// ---------------------------------------------------------------------
// Messages & conversations
// ---------------------------------------------------------------------

// SaveMessage inserts a message and threads it into its conversation,
// creating the conversation on first sight.
func (s *Store) SaveMessage(m *Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}

	ctx := marshalAny(m.Context)
	_, err := s.db.Exec(`INSERT INTO messages (id, sender, recipient, type, content, conversation_id, context, timestamp, response_to)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Sender, m.Recipient, string(m.Type), m.Content, m.ConversationID, ctx, m.Timestamp, m.ResponseTo)
	if err != nil {
		return fmt.Errorf("store: save message: %w", err)
	}

	if err := s.threadMessage(m); err != nil {
		slog.Warn("store: failed to thread message into conversation", "message_id", m.ID, "error", err)
	}

	s.cache.Invalidate("message:" + m.ID)
	s.cache.InvalidatePrefix("conversation:" + m.ConversationID)
	return nil
}

func (s *Store) threadMessage(m *Message) error {
	conv, err := s.getConversationRaw(m.ConversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		conv = &Conversation{
			ID:            m.ConversationID,
			Initiator:     m.Sender,
			CreatedAt:     m.Timestamp,
			LastMessageAt: m.Timestamp,
		}
	}
	if m.Timestamp.After(conv.LastMessageAt) {
		conv.LastMessageAt = m.Timestamp
	}
	conv.Participants = addParticipant(conv.Participants, m.Sender)
	if m.Recipient != TeamRecipient {
		conv.Participants = addParticipant(conv.Participants, m.Recipient)
	}
	return s.upsertConversation(conv)
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

func (s *Store) upsertConversation(c *Conversation) error {
	_, err := s.db.Exec(`INSERT INTO conversations (id, initiator, subject, participants, created_at, last_message_at, sticky_tier, sticky_set_at, recent_tier_window)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject=excluded.subject, participants=excluded.participants,
			last_message_at=excluded.last_message_at, sticky_tier=excluded.sticky_tier,
			sticky_set_at=excluded.sticky_set_at, recent_tier_window=excluded.recent_tier_window`,
		c.ID, c.Initiator, c.Subject, marshalStrings(c.Participants), c.CreatedAt, c.LastMessageAt,
		c.StickyTier, nullableTime(c.StickySetAt), marshalStrings(c.RecentTierWindow))
	if err != nil {
		return err
	}
	s.cache.Invalidate("conversation:" + c.ID)
	return nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// GetMessage fetches a message by id.
func (s *Store) GetMessage(id string) (*Message, error) {
	if v, ok := s.cache.Get("message:" + id); ok {
		return v.(*Message), nil
	}
	row := s.db.QueryRow(`SELECT id, sender, recipient, type, content, conversation_id, context, timestamp, response_to
		FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if err != nil {
		return nil, err
	}
	if m != nil {
		s.cache.Set("message:"+id, m)
	}
	return m, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*Message, error) {
	var m Message
	var typ, ctx string
	var responseTo sql.NullString
	err := row.Scan(&m.ID, &m.Sender, &m.Recipient, &typ, &m.Content, &m.ConversationID, &ctx, &m.Timestamp, &responseTo)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Warn("store: corrupt message row", "error", err)
		return &Message{}, nil
	}
	m.Type = MessageType(typ)
	m.ResponseTo = responseTo.String
	if ctx != "" {
		_ = json.Unmarshal([]byte(ctx), &m.Context)
	}
	return &m, nil
}

func (s *Store) getConversationRaw(id string) (*Conversation, error) {
	row := s.db.QueryRow(`SELECT id, initiator, subject, participants, created_at, last_message_at, sticky_tier, sticky_set_at, recent_tier_window
		FROM conversations WHERE id = ?`, id)
	var c Conversation
	var participants, window string
	var stickyTier, stickySetAt sql.NullString
	err := row.Scan(&c.ID, &c.Initiator, &c.Subject, &participants, &c.CreatedAt, &c.LastMessageAt, &stickyTier, &stickySetAt, &window)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Participants = unmarshalStrings(participants)
	c.RecentTierWindow = unmarshalStrings(window)
	c.StickyTier = stickyTier.String
	if stickySetAt.Valid {
		t, _ := time.Parse(time.RFC3339, stickySetAt.String)
		c.StickySetAt = t
	}
	return &c, nil
}

// GetConversation returns the conversation and its messages in ascending
// timestamp order.
func (s *Store) GetConversation(id string) (*Conversation, []Message, error) {
	cacheKey := "conversation:" + id
	var conv *Conversation
	if v, ok := s.cache.Get(cacheKey); ok {
		conv = v.(*Conversation)
	} else {
		var err error
		conv, err = s.getConversationRaw(id)
		if err != nil {
			return nil, nil, fmt.Errorf("store: get conversation: %w", err)
		}
		if conv != nil {
			s.cache.Set(cacheKey, conv)
		}
	}
	if conv == nil {
		return nil, nil, nil
	}

	rows, err := s.db.Query(`SELECT id, sender, recipient, type, content, conversation_id, context, timestamp, response_to
		FROM messages WHERE conversation_id = ? ORDER BY timestamp ASC`, id)
	if err != nil {
		return conv, nil, fmt.Errorf("store: list conversation messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return conv, msgs, err
		}
		if m != nil {
			msgs = append(msgs, *m)
		}
	}
	return conv, msgs, nil
}

// SetStickyTier updates a conversation's sticky routing state.
func (s *Store) SetStickyTier(conversationID, tier string, window []string) error {
	conv, err := s.getConversationRaw(conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		conv = &Conversation{ID: conversationID, CreatedAt: time.Now(), LastMessageAt: time.Now()}
	}
	conv.StickyTier = tier
	conv.StickySetAt = time.Now()
	conv.RecentTierWindow = window
	return s.upsertConversation(conv)
}

// SearchMessages performs a substring search over content with optional
// sender/type filters.
func (s *Store) SearchMessages(substr, sender string, typ MessageType, limit int) ([]Message, error) {
	query := `SELECT id, sender, recipient, type, content, conversation_id, context, timestamp, response_to FROM messages WHERE content LIKE ?`
	args := []any{"%" + substr + "%"}
	if sender != "" {
		query += " AND sender = ?"
		args = append(args, sender)
	}
	if typ != "" {
		query += " AND type = ?"
		args = append(args, string(typ))
	}
	query += " ORDER BY timestamp DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: search messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return out, err
		}
		if m != nil {
			out = append(out, *m)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------

// SaveTask inserts or replaces a task.
func (s *Store) SaveTask(t *Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO tasks (id, title, description, domain, priority, assigned_to, creator_id, status, created_at, started_at, completed_at, due_at, requirements, result, confidence, parent_task_id, learnings, follow_ups)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, description=excluded.description, domain=excluded.domain,
			priority=excluded.priority, assigned_to=excluded.assigned_to, status=excluded.status,
			started_at=excluded.started_at, completed_at=excluded.completed_at, due_at=excluded.due_at,
			requirements=excluded.requirements, result=excluded.result, confidence=excluded.confidence,
			learnings=excluded.learnings, follow_ups=excluded.follow_ups`,
		t.ID, t.Title, t.Description, t.Domain, t.Priority, t.AssignedTo, t.CreatorID, string(t.Status),
		t.CreatedAt, nullableTimePtr(t.StartedAt), nullableTimePtr(t.CompletedAt), nullableTimePtr(t.DueAt),
		marshalStrings(t.Requirements), t.Result, t.Confidence, t.ParentTaskID,
		marshalStrings(t.Learnings), marshalStrings(t.FollowUps))
	if err != nil {
		return fmt.Errorf("store: save task: %w", err)
	}
	s.invalidateTask(t)
	return nil
}

func (s *Store) invalidateTask(t *Task) {
	s.cache.Invalidate("task:" + t.ID)
	if t.AssignedTo != "" {
		s.cache.InvalidatePrefix("bot_tasks:" + t.AssignedTo)
	}
	s.cache.InvalidatePrefix("tasks_by_status:")
}

func nullableTimePtr(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return *t
}

// TouchHeartbeat records a liveness heartbeat for the agent owning a task.
func (s *Store) TouchHeartbeat(taskID string, at time.Time) error {
	_, err := s.db.Exec(`UPDATE tasks SET last_heartbeat = ? WHERE id = ?`, at, taskID)
	if err != nil {
		return fmt.Errorf("store: touch heartbeat: %w", err)
	}
	s.cache.Invalidate("task:" + taskID)
	return nil
}

// GetTask fetches a task by id.
func (s *Store) GetTask(id string) (*Task, error) {
	if v, ok := s.cache.Get("task:" + id); ok {
		return v.(*Task), nil
	}
	row := s.db.QueryRow(taskSelectQuery()+" WHERE id = ?", id)
	t, _, err := scanTask(row)
	if err != nil {
		return nil, err
	}
	if t != nil {
		s.cache.Set("task:"+id, t)
	}
	return t, nil
}

func taskSelectQuery() string {
	return `SELECT id, title, description, domain, priority, assigned_to, creator_id, status, created_at, started_at, completed_at, due_at, requirements, result, confidence, parent_task_id, learnings, follow_ups, last_heartbeat FROM tasks`
}

func scanTask(row rowScanner) (*Task, *time.Time, error) {
	var t Task
	var status string
	var assignedTo, creatorID, parentID sql.NullString
	var startedAt, completedAt, dueAt, lastHeartbeat sql.NullTime
	var requirements, learnings, followUps string
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Domain, &t.Priority, &assignedTo, &creatorID, &status,
		&t.CreatedAt, &startedAt, &completedAt, &dueAt, &requirements, &t.Result, &t.Confidence, &parentID,
		&learnings, &followUps, &lastHeartbeat)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		slog.Warn("store: corrupt task row", "error", err)
		return &Task{}, nil, nil
	}
	t.Status = TaskStatus(status)
	t.AssignedTo = assignedTo.String
	t.CreatorID = creatorID.String
	t.ParentTaskID = parentID.String
	t.Requirements = unmarshalStrings(requirements)
	t.Learnings = unmarshalStrings(learnings)
	t.FollowUps = unmarshalStrings(followUps)
	if startedAt.Valid {
		t.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if dueAt.Valid {
		t.DueAt = &dueAt.Time
	}
	var hb *time.Time
	if lastHeartbeat.Valid {
		hb = &lastHeartbeat.Time
	}
	return &t, hb, nil
}

// ListTasksByStatus fetches tasks in a given status.
func (s *Store) ListTasksByStatus(status TaskStatus) ([]Task, error) {
	rows, err := s.db.Query(taskSelectQuery()+" WHERE status = ? ORDER BY created_at ASC", string(status))
	if err != nil {
		return nil, fmt.Errorf("store: list tasks by status: %w", err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// ListTasksByAssignee fetches tasks assigned to a given agent.
func (s *Store) ListTasksByAssignee(agentID string) ([]Task, error) {
	rows, err := s.db.Query(taskSelectQuery()+" WHERE assigned_to = ? ORDER BY created_at ASC", agentID)
	if err != nil {
		return nil, fmt.Errorf("store: list tasks by assignee: %w", err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// ListTasksWithHeartbeatBefore returns assigned/in_progress tasks whose
// last heartbeat predates cutoff (or was never recorded).
func (s *Store) ListTasksWithHeartbeatBefore(cutoff time.Time) ([]Task, error) {
	rows, err := s.db.Query(taskSelectQuery()+` WHERE status IN ('assigned','in_progress')
		AND (last_heartbeat IS NULL OR last_heartbeat < ?)`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("store: list stale tasks: %w", err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// DeleteCompletedBefore garbage-collects completed/failed/cancelled/timeout
// tasks older than cutoff.
func (s *Store) DeleteCompletedBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE status IN ('completed','failed','cancelled','timeout') AND completed_at IS NOT NULL AND completed_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: gc tasks: %w", err)
	}
	s.cache.InvalidatePrefix("task:")
	s.cache.InvalidatePrefix("bot_tasks:")
	s.cache.InvalidatePrefix("tasks_by_status:")
	n, _ := res.RowsAffected()
	return n, nil
}

func scanTaskRows(rows *sql.Rows) ([]Task, error) {
	var out []Task
	for rows.Next() {
		t, _, err := scanTask(rows)
		if err != nil {
			return out, err
		}
		if t != nil {
			out = append(out, *t)
		}
	}
	return out, nil
}

// BotStats computes per-bot task statistics: count, success rate, average
// confidence, and the 10 most recent tasks.
func (s *Store) BotStats(agentID string) (*BotTaskStats, error) {
	cacheKey := "bot_tasks:" + agentID
	if v, ok := s.cache.Get(cacheKey); ok {
		return v.(*BotTaskStats), nil
	}

	tasks, err := s.ListTasksByAssignee(agentID)
	if err != nil {
		return nil, err
	}
	stats := &BotTaskStats{AgentID: agentID}
	var confidenceSum float64
	var terminal, succeeded int
	for _, t := range tasks {
		stats.Count++
		switch t.Status {
		case TaskCompleted, TaskFailed, TaskCancelled, TaskTimeout:
			terminal++
			confidenceSum += t.Confidence
			if t.Status == TaskCompleted {
				succeeded++
			}
		}
	}
	if terminal > 0 {
		stats.SuccessRate = float64(succeeded) / float64(terminal)
		stats.AverageConfidence = confidenceSum / float64(terminal)
	}
	if n := len(tasks); n > 10 {
		stats.Recent10 = tasks[n-10:]
	} else {
		stats.Recent10 = tasks
	}
	s.cache.Set(cacheKey, stats)
	return stats, nil
}

// ---------------------------------------------------------------------
// Decisions & disagreements
// ---------------------------------------------------------------------

// SaveDecision persists a coordinator decision.
func (s *Store) SaveDecision(d *Decision) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO decisions (id, task_id, type, participants, positions, final_decision, confidence, reasoning, dissent_summary, escalated, timestamp)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.TaskID, string(d.Type), marshalStrings(d.Participants), marshalAny(d.Positions),
		d.FinalDecision, d.Confidence, d.Reasoning, d.DissentSummary, d.Escalated, d.Timestamp)
	if err != nil {
		return fmt.Errorf("store: save decision: %w", err)
	}
	s.cache.InvalidatePrefix("decisions_by_task:" + d.TaskID)
	return nil
}

// DecisionsByTask fetches all decisions recorded for a task.
func (s *Store) DecisionsByTask(taskID string) ([]Decision, error) {
	cacheKey := "decisions_by_task:" + taskID
	if v, ok := s.cache.Get(cacheKey); ok {
		return v.([]Decision), nil
	}
	rows, err := s.db.Query(`SELECT id, task_id, type, participants, positions, final_decision, confidence, reasoning, dissent_summary, escalated, timestamp
		FROM decisions WHERE task_id = ? ORDER BY timestamp ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("store: decisions by task: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		var typ, participants, positions, taskIDCol sql.NullString
		if err := rows.Scan(&d.ID, &taskIDCol, &typ, &participants, &positions, &d.FinalDecision, &d.Confidence,
			&d.Reasoning, &d.DissentSummary, &d.Escalated, &d.Timestamp); err != nil {
			slog.Warn("store: corrupt decision row", "error", err)
			continue
		}
		d.TaskID = taskIDCol.String
		d.Type = DecisionType(typ.String)
		d.Participants = unmarshalStrings(participants.String)
		_ = json.Unmarshal([]byte(positions.String), &d.Positions)
		out = append(out, d)
	}
	s.cache.Set(cacheKey, out)
	return out, nil
}

// SaveDisagreement persists a detected dispute.
func (s *Store) SaveDisagreement(d *Disagreement) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO disagreements (id, task_id, type, positions, common_ground, severity, timestamp)
		VALUES (?,?,?,?,?,?,?)`,
		d.ID, d.TaskID, string(d.Type), marshalAny(d.Positions), d.CommonGround, d.Severity, d.Timestamp)
	if err != nil {
		return fmt.Errorf("store: save disagreement: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------
// Audit events
// ---------------------------------------------------------------------

// AppendAudit appends an immutable audit event.
func (s *Store) AppendAudit(e *AuditEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO audit_events (id, event_type, timestamp, task_id, agent_ids, description, reasoning, details, severity, confidence, related_event_ids, escalated)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, string(e.EventType), e.Timestamp, e.TaskID, marshalStrings(e.AgentIDs), e.Description, e.Reasoning,
		marshalAny(e.Details), string(e.Severity), e.Confidence, marshalStrings(e.RelatedEventIDs), e.Escalated)
	if err != nil {
		return fmt.Errorf("store: append audit: %w", err)
	}
	return nil
}

// AuditFilter narrows AuditEvents queries.
type AuditFilter struct {
	TaskID  string
	AgentID string
	Since   time.Time
	Until   time.Time
}

// AuditEvents returns audit events matching the filter, newest first.
func (s *Store) AuditEvents(filter AuditFilter) ([]AuditEvent, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, event_type, timestamp, task_id, agent_ids, description, reasoning, details, severity, confidence, related_event_ids, escalated FROM audit_events WHERE 1=1`)
	var args []any
	if filter.TaskID != "" {
		query.WriteString(" AND task_id = ?")
		args = append(args, filter.TaskID)
	}
	if !filter.Since.IsZero() {
		query.WriteString(" AND timestamp >= ?")
		args = append(args, filter.Since)
	}
	if !filter.Until.IsZero() {
		query.WriteString(" AND timestamp <= ?")
		args = append(args, filter.Until)
	}
	query.WriteString(" ORDER BY timestamp DESC")

	rows, err := s.db.Query(query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("store: audit events: %w", err)
	}
	defer rows.Close()

	var out []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var typ, severity string
		var taskID, agentIDs, details, related sql.NullString
		if err := rows.Scan(&e.ID, &typ, &e.Timestamp, &taskID, &agentIDs, &e.Description, &e.Reasoning, &details,
			&severity, &e.Confidence, &related, &e.Escalated); err != nil {
			slog.Warn("store: corrupt audit row", "error", err)
			continue
		}
		e.EventType = AuditEventType(typ)
		e.Severity = Severity(severity)
		e.TaskID = taskID.String
		e.AgentIDs = unmarshalStrings(agentIDs.String)
		e.RelatedEventIDs = unmarshalStrings(related.String)
		if details.String != "" {
			_ = json.Unmarshal([]byte(details.String), &e.Details)
		}
		if filter.AgentID != "" && !containsAgent(e.AgentIDs, filter.AgentID) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func containsAgent(ids []string, id string) bool {
	for _, a := range ids {
		if a == id {
			return true
		}
	}
	return false
}

// AuditStats summarizes the audit trail: totals by type, totals by
// severity, escalation count, and high-confidence (>=0.8) count.
type AuditStats struct {
	TotalsByType     map[AuditEventType]int `json:"totals_by_type"`
	TotalsBySeverity map[Severity]int       `json:"totals_by_severity"`
	EscalationCount  int                    `json:"escalation_count"`
	HighConfidence   int                    `json:"high_confidence_count"`
}

// ComputeAuditStats aggregates statistics over all recorded audit events.
func (s *Store) ComputeAuditStats() (*AuditStats, error) {
	events, err := s.AuditEvents(AuditFilter{})
	if err != nil {
		return nil, err
	}
	stats := &AuditStats{
		TotalsByType:     map[AuditEventType]int{},
		TotalsBySeverity: map[Severity]int{},
	}
	for _, e := range events {
		stats.TotalsByType[e.EventType]++
		stats.TotalsBySeverity[e.Severity]++
		if e.Escalated {
			stats.EscalationCount++
		}
		if e.Confidence >= 0.8 {
			stats.HighConfidence++
		}
	}
	return stats, nil
}

// ---------------------------------------------------------------------
// Routing patterns
// ---------------------------------------------------------------------

// SaveRoutingPattern inserts or replaces a routing pattern.
func (s *Store) SaveRoutingPattern(p *RoutingPattern) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`INSERT INTO routing_patterns (id, regex, target_tier, base_confidence, times_used, times_matched, times_correct, examples, provenance, action_context)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			regex=excluded.regex, target_tier=excluded.target_tier, base_confidence=excluded.base_confidence,
			times_used=excluded.times_used, times_matched=excluded.times_matched, times_correct=excluded.times_correct,
			examples=excluded.examples, action_context=excluded.action_context`,
		p.ID, p.Regex, string(p.TargetTier), p.BaseConfidence, p.TimesUsed, p.TimesMatched, p.TimesCorrect,
		marshalStrings(p.Examples), string(p.Provenance), p.ActionContext)
	if err != nil {
		return fmt.Errorf("store: save routing pattern: %w", err)
	}
	return nil
}

// DeleteRoutingPattern removes a routing pattern by id.
func (s *Store) DeleteRoutingPattern(id string) error {
	_, err := s.db.Exec(`DELETE FROM routing_patterns WHERE id = ?`, id)
	return err
}

// ListRoutingPatterns returns all stored routing patterns.
func (s *Store) ListRoutingPatterns() ([]RoutingPattern, error) {
	rows, err := s.db.Query(`SELECT id, regex, target_tier, base_confidence, times_used, times_matched, times_correct, examples, provenance, action_context FROM routing_patterns`)
	if err != nil {
		return nil, fmt.Errorf("store: list routing patterns: %w", err)
	}
	defer rows.Close()

	var out []RoutingPattern
	for rows.Next() {
		var p RoutingPattern
		var tier, provenance, examples, actionContext sql.NullString
		if err := rows.Scan(&p.ID, &p.Regex, &tier, &p.BaseConfidence, &p.TimesUsed, &p.TimesMatched, &p.TimesCorrect,
			&examples, &provenance, &actionContext); err != nil {
			slog.Warn("store: corrupt routing pattern row", "error", err)
			continue
		}
		p.TargetTier = RoutingTier(tier.String)
		p.Provenance = PatternProvenance(provenance.String)
		p.Examples = unmarshalStrings(examples.String)
		p.ActionContext = actionContext.String
		out = append(out, p)
	}
	return out, nil
}

// ---------------------------------------------------------------------
// Tool output blobs
// ---------------------------------------------------------------------

// SaveToolOutputBlob stores a tool's full output, assigning a new id to
// b.ID when it is empty and setting b.CharCount.
func (s *Store) SaveToolOutputBlob(b *ToolOutputBlob) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	b.CharCount = len(b.FullOutput)
	_, err := s.db.Exec(`INSERT INTO tool_output_blobs (id, tool_name, full_output, context_summary, created_at, session_key, access_count, char_count)
		VALUES (?,?,?,?,?,?,?,?)`,
		b.ID, b.ToolName, b.FullOutput, b.ContextSummary, b.CreatedAt, b.SessionKey, b.AccessCount, b.CharCount)
	if err != nil {
		return fmt.Errorf("store: save tool blob: %w", err)
	}
	return nil
}

// GetToolOutputBlob fetches a blob by id and increments its access counter.
func (s *Store) GetToolOutputBlob(id string) (*ToolOutputBlob, error) {
	row := s.db.QueryRow(`SELECT id, tool_name, full_output, context_summary, created_at, session_key, access_count, char_count
		FROM tool_output_blobs WHERE id = ?`, id)
	var b ToolOutputBlob
	err := row.Scan(&b.ID, &b.ToolName, &b.FullOutput, &b.ContextSummary, &b.CreatedAt, &b.SessionKey, &b.AccessCount, &b.CharCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get tool blob: %w", err)
	}
	if _, err := s.db.Exec(`UPDATE tool_output_blobs SET access_count = access_count + 1 WHERE id = ?`, id); err != nil {
		slog.Warn("store: failed to increment blob access count", "id", id, "error", err)
	}
	b.AccessCount++
	return &b, nil
}

// CleanupToolOutputBlobs deletes blobs created before cutoff (default
// operator-set age is 24h per the caller's policy).
func (s *Store) CleanupToolOutputBlobs(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM tool_output_blobs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: cleanup tool blobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
