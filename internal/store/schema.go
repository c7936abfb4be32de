package store

// schema is applied on every open; each statement is idempotent so it is
// safe to re-run against an existing database. New columns are added via
// best-effort ALTER TABLE in Open, matching the teacher's migration style.
const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	sender TEXT NOT NULL,
	recipient TEXT NOT NULL,
	type TEXT NOT NULL,
	content TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	context TEXT,
	timestamp DATETIME NOT NULL,
	response_to TEXT
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender);

CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	initiator TEXT NOT NULL,
	subject TEXT,
	participants TEXT,
	created_at DATETIME NOT NULL,
	last_message_at DATETIME NOT NULL,
	sticky_tier TEXT,
	sticky_set_at DATETIME,
	recent_tier_window TEXT
);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT,
	domain TEXT,
	priority INTEGER NOT NULL DEFAULT 3,
	assigned_to TEXT,
	creator_id TEXT,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	started_at DATETIME,
	completed_at DATETIME,
	due_at DATETIME,
	requirements TEXT,
	result TEXT,
	confidence REAL NOT NULL DEFAULT 0,
	parent_task_id TEXT,
	learnings TEXT,
	follow_ups TEXT,
	last_heartbeat DATETIME
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assigned_to);

CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	task_id TEXT,
	type TEXT NOT NULL,
	participants TEXT,
	positions TEXT,
	final_decision TEXT,
	confidence REAL NOT NULL DEFAULT 0,
	reasoning TEXT,
	dissent_summary TEXT,
	escalated BOOLEAN NOT NULL DEFAULT 0,
	timestamp DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_task ON decisions(task_id);

CREATE TABLE IF NOT EXISTS disagreements (
	id TEXT PRIMARY KEY,
	task_id TEXT,
	type TEXT NOT NULL,
	positions TEXT,
	common_ground TEXT,
	severity REAL NOT NULL DEFAULT 0,
	timestamp DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	task_id TEXT,
	agent_ids TEXT,
	description TEXT,
	reasoning TEXT,
	details TEXT,
	severity TEXT NOT NULL,
	confidence REAL NOT NULL DEFAULT 0,
	related_event_ids TEXT,
	escalated BOOLEAN NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_audit_task ON audit_events(task_id);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp);

CREATE TABLE IF NOT EXISTS routing_patterns (
	id TEXT PRIMARY KEY,
	regex TEXT NOT NULL,
	target_tier TEXT NOT NULL,
	base_confidence REAL NOT NULL,
	times_used INTEGER NOT NULL DEFAULT 0,
	times_matched INTEGER NOT NULL DEFAULT 0,
	times_correct INTEGER NOT NULL DEFAULT 0,
	examples TEXT,
	provenance TEXT NOT NULL,
	action_context TEXT
);

CREATE TABLE IF NOT EXISTS tool_output_blobs (
	id TEXT PRIMARY KEY,
	tool_name TEXT NOT NULL,
	full_output TEXT NOT NULL,
	context_summary TEXT,
	created_at DATETIME NOT NULL,
	session_key TEXT,
	access_count INTEGER NOT NULL DEFAULT 0,
	char_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_blobs_session ON tool_output_blobs(session_key);
`
