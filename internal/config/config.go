// Package config provides configuration types and loading for the
// coordination core.
package config

import (
	"time"
)

// Config is the root configuration struct. Each field groups the
// settings for one package under internal/.
type Config struct {
	Paths       PathsConfig       `json:"paths"`
	Store       StoreConfig       `json:"store"`
	Router      RouterConfig      `json:"router"`
	Bus         BusConfig         `json:"bus"`
	Coordinator CoordinatorConfig `json:"coordinator"`
	Executor    ExecutorConfig    `json:"executor"`
}

// PathsConfig groups filesystem path settings.
type PathsConfig struct {
	Workspace string `json:"workspace" envconfig:"WORKSPACE"`
	RoomsDir  string `json:"roomsDir" envconfig:"ROOMS_DIR"`
}

// StoreConfig groups persistent-store and cache settings.
type StoreConfig struct {
	DBPath        string        `json:"dbPath" envconfig:"DB_PATH"`
	CacheTTL      time.Duration `json:"cacheTtl" envconfig:"CACHE_TTL"`
	CacheCapacity int           `json:"cacheCapacity" envconfig:"CACHE_CAPACITY"`
}

// RouterConfig groups tier-routing and calibration settings.
type RouterConfig struct {
	StickyWindow          int           `json:"stickyWindow" envconfig:"STICKY_WINDOW"`
	AssistedTimeout       time.Duration `json:"assistedTimeout" envconfig:"ASSISTED_TIMEOUT"`
	OnDeviceTimeout       time.Duration `json:"onDeviceTimeout" envconfig:"ON_DEVICE_TIMEOUT"`
	FeedbackWindow        int           `json:"feedbackWindow" envconfig:"FEEDBACK_WINDOW"`
	CalibrationMinSamples int           `json:"calibrationMinSamples" envconfig:"CALIBRATION_MIN_SAMPLES"`
}

// BusConfig groups inter-agent bus settings.
type BusConfig struct {
	GlobalLogCapacity int `json:"globalLogCapacity" envconfig:"GLOBAL_LOG_CAPACITY"`
	InboxCapacity     int `json:"inboxCapacity" envconfig:"INBOX_CAPACITY"`
}

// CoordinatorConfig groups task-coordination, voting, and liveness settings.
type CoordinatorConfig struct {
	MonitorInterval      time.Duration `json:"monitorInterval" envconfig:"MONITOR_INTERVAL"`
	HeartbeatTimeout     time.Duration `json:"heartbeatTimeout" envconfig:"HEARTBEAT_TIMEOUT"`
	CompletedTaskGCAfter time.Duration `json:"completedTaskGcAfter" envconfig:"COMPLETED_TASK_GC_AFTER"`
	EffectivenessSuccess float64       `json:"effectivenessSuccess" envconfig:"EFFECTIVENESS_SUCCESS"`
	EffectivenessUsage   float64       `json:"effectivenessUsage" envconfig:"EFFECTIVENESS_USAGE"`
	ConsensusThreshold   float64       `json:"consensusThreshold" envconfig:"CONSENSUS_THRESHOLD"`
}

// ExecutorConfig groups scheduled-job dispatch settings.
type ExecutorConfig struct {
	TickInterval   time.Duration `json:"tickInterval" envconfig:"TICK_INTERVAL"`
	MaxConcLLM     int           `json:"maxConcLlm" envconfig:"MAX_CONC_LLM"`
	MaxConcDefault int           `json:"maxConcDefault" envconfig:"MAX_CONC_DEFAULT"`
	LockPath       string        `json:"lockPath" envconfig:"LOCK_PATH"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			Workspace: "~/agentcore-workspace",
			RoomsDir:  "~/agentcore-workspace/rooms",
		},
		Store: StoreConfig{
			DBPath:        "~/agentcore-workspace/coordination.db",
			CacheTTL:      30 * time.Second,
			CacheCapacity: 100,
		},
		Router: RouterConfig{
			StickyWindow:          5,
			AssistedTimeout:       3 * time.Second,
			OnDeviceTimeout:       500 * time.Millisecond,
			FeedbackWindow:        1000,
			CalibrationMinSamples: 20,
		},
		Bus: BusConfig{
			GlobalLogCapacity: 1000,
			InboxCapacity:     256,
		},
		Coordinator: CoordinatorConfig{
			MonitorInterval:      5 * time.Second,
			HeartbeatTimeout:     15 * time.Second,
			CompletedTaskGCAfter: time.Hour,
			EffectivenessSuccess: 0.7,
			EffectivenessUsage:   0.3,
			ConsensusThreshold:   0.8,
		},
		Executor: ExecutorConfig{
			TickInterval:   60 * time.Second,
			MaxConcLLM:     3,
			MaxConcDefault: 5,
			LockPath:       "~/agentcore-workspace/executor.lock",
		},
	}
}

// Load reads environment variables over the defaults and returns the
// resulting Config. It does not consult a config file; see
// LoadFromDefaultPath for the file+env variant used by cmd/agentcore.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if err := processEnvGroups(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
