// Package executor runs scheduled routine jobs — fixed-interval,
// cron+timezone, and one-shot — through a single dispatch entry point,
// isolating each job's failure from the tick loop and from every
// other job.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"agentcore/internal/router"
	"agentcore/internal/tools"
)

// Calibrator is the router's gated calibration entry point.
type Calibrator interface {
	MaybeCalibrate(minClassifications int) (*router.CalibrationResult, error)
}

// HeartbeatRunner records liveness for an agent's owned tasks.
type HeartbeatRunner interface {
	Heartbeat(agentID string) error
}

// AgentRunner is the generic "run this message through the assistant"
// entry point shared by system and user-scoped jobs.
type AgentRunner interface {
	Process(ctx context.Context, sessionKey, channel, chatID, message string) (string, error)
}

// OutboundPublisher delivers a user-routine's response to an external
// channel/chat when the job payload requests it.
type OutboundPublisher interface {
	PublishOutbound(channel, chatID, content string) error
}

// RoomResolver maps a (channel, chatID) pair onto the room a routine's
// conversation belongs to, binding it into a default room on first use.
type RoomResolver interface {
	RoomForChannel(channel, chatID string) string
	BindChannel(channel, chatID, roomID string) error
}

// OutputCompactor keeps an oversized routine response out of the
// returned result, storing the full text for later retrieval.
type OutputCompactor interface {
	ProcessToolResult(toolName, result, sessionKey string) (tools.CompactResult, error)
}

// defaultRoomID is where a routine's conversation lands when its
// channel/chat pair has never been bound to a room before.
const defaultRoomID = "general"

// Config holds executor tuning knobs.
type Config struct {
	TickInterval          time.Duration `envconfig:"TICK_INTERVAL"`
	MaxConcLLM            int           `envconfig:"MAX_CONC_LLM"`
	MaxConcShell          int           `envconfig:"MAX_CONC_SHELL"`
	MaxConcDefault        int           `envconfig:"MAX_CONC_DEFAULT"`
	LockPath              string        `envconfig:"LOCK_PATH"`
	CalibrationMinRecords int           `envconfig:"CALIBRATION_MIN_RECORDS"`
}

// DefaultConfig returns sensible executor defaults.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		TickInterval:          time.Second,
		MaxConcLLM:            3,
		MaxConcShell:          1,
		MaxConcDefault:        5,
		LockPath:              filepath.Join(home, ".agentcore", "executor.lock"),
		CalibrationMinRecords: 50,
	}
}

// Executor manages job registration, tick dispatch, and per-category
// concurrency limits.
type Executor struct {
	cfg Config

	calibrator Calibrator
	heartbeats HeartbeatRunner
	agent      AgentRunner
	outbound   OutboundPublisher
	rooms      RoomResolver
	compactor  OutputCompactor

	mu         sync.Mutex
	jobs       map[string]*Job
	semaphores map[JobCategory]*Semaphore
	lock       *FileLock
}

// New constructs an Executor. Any of calibrator, heartbeats, agent,
// outbound, rooms, or compactor may be nil; jobs that need a missing
// dependency fail with a descriptive error rather than panicking (or,
// for rooms/compactor, simply skip that enrichment), and that failure
// never halts the dispatch loop.
func New(cfg Config, calibrator Calibrator, heartbeats HeartbeatRunner, agent AgentRunner, outbound OutboundPublisher, rooms RoomResolver, compactor OutputCompactor) *Executor {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	if cfg.MaxConcLLM <= 0 {
		cfg.MaxConcLLM = DefaultConfig().MaxConcLLM
	}
	if cfg.MaxConcShell <= 0 {
		cfg.MaxConcShell = DefaultConfig().MaxConcShell
	}
	if cfg.MaxConcDefault <= 0 {
		cfg.MaxConcDefault = DefaultConfig().MaxConcDefault
	}
	if cfg.LockPath == "" {
		cfg.LockPath = DefaultConfig().LockPath
	}
	if cfg.CalibrationMinRecords <= 0 {
		cfg.CalibrationMinRecords = DefaultConfig().CalibrationMinRecords
	}

	return &Executor{
		cfg:        cfg,
		calibrator: calibrator,
		heartbeats: heartbeats,
		agent:      agent,
		outbound:   outbound,
		rooms:      rooms,
		compactor:  compactor,
		jobs:       make(map[string]*Job),
		semaphores: map[JobCategory]*Semaphore{
			CategoryLLM:     NewSemaphore(cfg.MaxConcLLM),
			CategoryShell:   NewSemaphore(cfg.MaxConcShell),
			CategoryDefault: NewSemaphore(cfg.MaxConcDefault),
		},
		lock: NewFileLock(cfg.LockPath),
	}
}

// Register adds or replaces a job.
func (e *Executor) Register(job *Job) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jobs[job.ID] = job
	slog.Info("executor: job registered", "id", job.ID, "name", job.Name, "scope", job.Scope)
}

// Unregister removes a job by id.
func (e *Executor) Unregister(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.jobs, id)
}

// Jobs returns a snapshot of registered jobs.
func (e *Executor) Jobs() []*Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Job, 0, len(e.jobs))
	for _, j := range e.jobs {
		out = append(out, j)
	}
	return out
}

// Run blocks, ticking at cfg.TickInterval until ctx is cancelled.
func (e *Executor) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			e.tick(ctx, now)
		}
	}
}

func (e *Executor) tick(ctx context.Context, now time.Time) {
	acquired, err := e.lock.TryLock()
	if err != nil {
		slog.Warn("executor: lock error", "error", err)
		return
	}
	if !acquired {
		return
	}
	defer e.lock.Unlock()

	e.mu.Lock()
	due := make([]*Job, 0)
	var autoDelete []string
	for _, job := range e.jobs {
		if !job.Schedule.Due(now, job.LastFiredAt) {
			continue
		}
		due = append(due, job)
		job.LastFiredAt = now
		job.Fired = true
		if job.AutoDeletes() {
			autoDelete = append(autoDelete, job.ID)
		}
	}
	for _, id := range autoDelete {
		delete(e.jobs, id)
	}
	e.mu.Unlock()

	for _, job := range due {
		e.dispatch(ctx, job, now)
	}
}

func (e *Executor) dispatch(ctx context.Context, job *Job, now time.Time) {
	sem := e.semaphores[job.Category]
	if sem == nil {
		sem = e.semaphores[CategoryDefault]
	}
	if !sem.TryAcquire() {
		slog.Warn("executor: job skipped, concurrency limit reached", "job", job.Name, "category", job.Category)
		return
	}

	go func() {
		defer sem.Release()
		result, err := e.handleJob(ctx, job)
		if err != nil {
			slog.Error("executor: job failed", "job", job.Name, "error", err)
			return
		}
		slog.Info("executor: job completed", "job", job.Name, "result", result)
	}()
}

// handleJob is the single dispatch entry point: calibration jobs,
// then team heartbeat ticks, then system-scoped routines, then
// ordinary user routines with optional outbound delivery. Every
// branch returns its own error rather than panicking so one job's
// failure never stops the tick loop or any other job.
func (e *Executor) handleJob(ctx context.Context, job *Job) (string, error) {
	switch {
	case job.Tag == TagCalibration:
		return e.runCalibration()
	case job.Tag == TagTeamHeartbeatTick:
		return e.runHeartbeatTick(job)
	case job.Scope == ScopeSystem:
		return e.runSystemRoutine(ctx, job)
	default:
		return e.runUserRoutine(ctx, job)
	}
}

func (e *Executor) runCalibration() (string, error) {
	if e.calibrator == nil {
		return "", fmt.Errorf("executor: no calibrator configured for job tagged calibration")
	}
	result, err := e.calibrator.MaybeCalibrate(e.cfg.CalibrationMinRecords)
	if err != nil {
		return "", fmt.Errorf("executor: calibration failed: %w", err)
	}
	if result == nil {
		return "calibration not needed yet (insufficient data or too soon)", nil
	}
	return fmt.Sprintf("calibration completed: %d patterns added, %d removed", result.PatternsAdded, result.PatternsRemoved), nil
}

func (e *Executor) runHeartbeatTick(job *Job) (string, error) {
	if e.heartbeats == nil {
		return "", fmt.Errorf("executor: no heartbeat runner configured")
	}
	if job.TargetAgent == "" {
		return "", fmt.Errorf("executor: team heartbeat tick job %s missing target agent", job.Name)
	}
	if err := e.heartbeats.Heartbeat(job.TargetAgent); err != nil {
		return "", fmt.Errorf("executor: heartbeat tick failed for %s: %w", job.TargetAgent, err)
	}
	return fmt.Sprintf("heartbeat tick completed for %s", job.TargetAgent), nil
}

func (e *Executor) runSystemRoutine(ctx context.Context, job *Job) (string, error) {
	if e.agent == nil {
		return "", fmt.Errorf("executor: no agent runner configured for system job %s", job.Name)
	}
	sessionKey := "routine_" + job.ID
	channel := job.Channel
	if channel == "" {
		channel = "internal"
	}
	chatID := job.To
	if chatID == "" {
		chatID = "team"
	}
	e.resolveRoom(channel, chatID)
	response, err := e.agent.Process(ctx, sessionKey, channel, chatID, job.Message)
	if err != nil {
		return "", err
	}
	return e.compact(job.Name, sessionKey, response), nil
}

func (e *Executor) runUserRoutine(ctx context.Context, job *Job) (string, error) {
	if e.agent == nil {
		return "", fmt.Errorf("executor: no agent runner configured for job %s", job.Name)
	}
	sessionKey := "routine_" + job.ID
	channel := job.Channel
	if channel == "" {
		channel = "cli"
	}
	chatID := job.To
	if chatID == "" {
		chatID = "direct"
	}
	e.resolveRoom(channel, chatID)
	response, err := e.agent.Process(ctx, sessionKey, channel, chatID, job.Message)
	if err != nil {
		return "", err
	}
	response = e.compact(job.Name, sessionKey, response)
	if job.Deliver && job.To != "" {
		if e.outbound == nil {
			return response, fmt.Errorf("executor: job %s requested delivery but no outbound publisher is configured", job.Name)
		}
		if err := e.outbound.PublishOutbound(channel, job.To, response); err != nil {
			return response, fmt.Errorf("executor: outbound delivery failed: %w", err)
		}
	}
	return response, nil
}

// resolveRoom looks up the room bound to channel/chatID, binding it
// into the default room on first contact. A missing RoomResolver is
// not an error: room membership is an enrichment, not a precondition
// for running the routine.
func (e *Executor) resolveRoom(channel, chatID string) string {
	if e.rooms == nil {
		return ""
	}
	if room := e.rooms.RoomForChannel(channel, chatID); room != "" {
		return room
	}
	if err := e.rooms.BindChannel(channel, chatID, defaultRoomID); err != nil {
		slog.Warn("executor: room binding failed", "channel", channel, "chat_id", chatID, "error", err)
		return ""
	}
	return defaultRoomID
}

// compact runs an agent response through the configured compactor,
// falling back to the raw response when no compactor is wired or
// compaction fails outright.
func (e *Executor) compact(toolName, sessionKey, response string) string {
	if e.compactor == nil {
		return response
	}
	result, err := e.compactor.ProcessToolResult(toolName, response, sessionKey)
	if err != nil {
		slog.Warn("executor: output compaction failed", "job", toolName, "error", err)
		return response
	}
	return result.ContextVersion
}
