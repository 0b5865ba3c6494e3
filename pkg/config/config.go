package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

// Config global configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Redis        RedisConfig        `yaml:"redis"`
	MySQL        MySQLConfig        `yaml:"mysql"`
	Dispatch     DispatchConfig     `yaml:"dispatch"`
	Coordinator  CoordinatorConfig  `yaml:"coordinator"`
	Scaling      ScalingConfig      `yaml:"scaling"`
	Resource     ResourceConfig     `yaml:"resource"`
	Logger       LoggerConfig       `yaml:"logger"`
	Notification NotificationConfig `yaml:"notification"`
}

// NotificationConfig notification configuration
type NotificationConfig struct {
	FeishuWebhookURL string `yaml:"feishu_webhook_url"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Port   int    `yaml:"port"`
	Mode   string `yaml:"mode"`    // debug, release
	APIKey string `yaml:"api_key"` // API key for agent authentication (optional, empty disables auth)
}

// RedisConfig Redis configuration (agent mirror and asynq dispatch)
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MySQLConfig MySQL configuration (audit store, optional)
type MySQLConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// DispatchConfig assignment transport configuration
type DispatchConfig struct {
	Provider string `yaml:"provider"` // direct, asynq
}

// CoordinatorConfig coordinator configuration
type CoordinatorConfig struct {
	Strategy           string `yaml:"strategy"`             // round_robin, least_loaded, resource_based, capability_based, weighted
	HeartbeatInterval  int    `yaml:"heartbeat_interval"`   // Expected heartbeat period (seconds)
	MissedThreshold    int    `yaml:"missed_threshold"`     // Missed heartbeats before UNRESPONSIVE
	UnresponsiveGrace  int    `yaml:"unresponsive_grace"`   // Seconds UNRESPONSIVE persists before auto-retire
	TaskTimeout        int    `yaml:"task_timeout"`         // Running task timeout (seconds)
	DefaultMaxAttempts int    `yaml:"default_max_attempts"` // Max attempts when submission omits one
	RetentionWindow    int    `yaml:"retention_window"`     // Terminal task retention (seconds)
	MaxConcurrentTasks int    `yaml:"max_concurrent_tasks"` // Default agent concurrency when omitted
}

// HeartbeatIntervalDuration returns the heartbeat interval as a duration
func (c CoordinatorConfig) HeartbeatIntervalDuration() time.Duration {
	return time.Duration(c.HeartbeatInterval) * time.Second
}

// TaskTimeoutDuration returns the task timeout as a duration
func (c CoordinatorConfig) TaskTimeoutDuration() time.Duration {
	return time.Duration(c.TaskTimeout) * time.Second
}

// RetentionWindowDuration returns the retention window as a duration
func (c CoordinatorConfig) RetentionWindowDuration() time.Duration {
	return time.Duration(c.RetentionWindow) * time.Second
}

// ScalingConfig scaling configuration
type ScalingConfig struct {
	MinAgents             int     `yaml:"min_agents"`
	MaxAgents             int     `yaml:"max_agents"`
	CooldownPeriod        int     `yaml:"cooldown_period"` // Seconds between scaling actions
	ScaleUpQueueThreshold int     `yaml:"scale_up_queue_threshold"`
	ScaleUpLatency        int     `yaml:"scale_up_latency"` // Trailing latency trigger (seconds, 0 disables)
	ScaleUpUtilization    float64 `yaml:"scale_up_utilization"`
	ScaleDownUtilization  float64 `yaml:"scale_down_utilization"`
	StabilityWindow       int     `yaml:"stability_window"`  // Consecutive low samples before scale-down
	EvaluateInterval      int     `yaml:"evaluate_interval"` // Background evaluation period (seconds)
}

// ResourceConfig resource manager configuration
type ResourceConfig struct {
	WindowSize    int     `yaml:"window_size"`
	HighWaterMark float64 `yaml:"high_water_mark"`
	LowWaterMark  float64 `yaml:"low_water_mark"`
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path string `yaml:"path"`
}

// Init initializes configuration
func Init() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	applyDefaults(&cfg)
	GlobalConfig = &cfg
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Coordinator.Strategy == "" {
		cfg.Coordinator.Strategy = "least_loaded"
	}
	if cfg.Coordinator.HeartbeatInterval <= 0 {
		cfg.Coordinator.HeartbeatInterval = 15
	}
	if cfg.Coordinator.MissedThreshold <= 0 {
		cfg.Coordinator.MissedThreshold = 3
	}
	if cfg.Coordinator.UnresponsiveGrace <= 0 {
		cfg.Coordinator.UnresponsiveGrace = 300
	}
	if cfg.Coordinator.TaskTimeout <= 0 {
		cfg.Coordinator.TaskTimeout = 600
	}
	if cfg.Coordinator.DefaultMaxAttempts <= 0 {
		cfg.Coordinator.DefaultMaxAttempts = 3
	}
	if cfg.Coordinator.RetentionWindow <= 0 {
		cfg.Coordinator.RetentionWindow = 3600
	}
	if cfg.Coordinator.MaxConcurrentTasks <= 0 {
		cfg.Coordinator.MaxConcurrentTasks = 1
	}
	if cfg.Scaling.MaxAgents <= 0 {
		cfg.Scaling.MaxAgents = 10
	}
	if cfg.Scaling.EvaluateInterval <= 0 {
		cfg.Scaling.EvaluateInterval = 30
	}
	if cfg.Dispatch.Provider == "" {
		cfg.Dispatch.Provider = "direct"
	}
}
