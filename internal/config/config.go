// Package config loads the engine's tunables from a YAML file plus
// environment overrides, the way the teacher's config/utils package reads
// app/db/redis settings with viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds every tunable the engine recognizes (see spec §6
// "Configuration options").
type Config struct {
	Engine *Engine `mapstructure:"engine"`
	Logger *Logger `mapstructure:"logger"`
}

// Engine contains the engine's own tunables.
type Engine struct {
	// CPUTimeSlice is the Dispatcher's slice in simulated seconds. Zero or
	// negative means no slicing (effectively infinite).
	CPUTimeSlice int `mapstructure:"cpuTimeSlice"`
	// SchedulerTickMs is how often the Scheduler checks needsSort.
	SchedulerTickMs int `mapstructure:"schedulerTickMs"`
	// DispatcherIdleMs is the Dispatcher's empty-queue backoff.
	DispatcherIdleMs int `mapstructure:"dispatcherIdleMs"`
	// Policy is the initial scheduling policy name: "fcfs", "sjf", or "priority".
	Policy string `mapstructure:"policy"`
}

// Logger contains the zap-backed EventSink's tunables.
type Logger struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

// SchedulerTick returns the configured scheduler tick as a Duration,
// defaulting to 500ms per spec §6.
func (e *Engine) SchedulerTick() time.Duration {
	if e.SchedulerTickMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(e.SchedulerTickMs) * time.Millisecond
}

// DispatcherIdle returns the configured dispatcher idle backoff,
// defaulting to 100ms per spec §6.
func (e *Engine) DispatcherIdle() time.Duration {
	if e.DispatcherIdleMs <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(e.DispatcherIdleMs) * time.Millisecond
}

func defaults() *Config {
	return &Config{
		Engine: &Engine{
			CPUTimeSlice:     0,
			SchedulerTickMs:  500,
			DispatcherIdleMs: 100,
			Policy:           "fcfs",
		},
		Logger: &Logger{
			Level:       "info",
			Encoding:    "console",
			Development: false,
		},
	}
}

// Load reads config.yaml (if present) from the given path plus CSUBATCH_
// environment overrides, the way the teacher's config.New binds APP_NAME/PG_HOST/etc.
// A missing file is not an error — the engine falls back to defaults. The
// returned *viper.Viper is handed to WatchLevel by callers that want live
// log-level reload.
func Load(path string) (*Config, *viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvPrefix("CSUBATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := defaults()
	v.SetDefault("engine.cpuTimeSlice", cfg.Engine.CPUTimeSlice)
	v.SetDefault("engine.schedulerTickMs", cfg.Engine.SchedulerTickMs)
	v.SetDefault("engine.dispatcherIdleMs", cfg.Engine.DispatcherIdleMs)
	v.SetDefault("engine.policy", cfg.Engine.Policy)
	v.SetDefault("logger.level", cfg.Logger.Level)
	v.SetDefault("logger.encoding", cfg.Logger.Encoding)
	v.SetDefault("logger.development", cfg.Logger.Development)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("decoding config: %w", err)
	}

	return cfg, v, nil
}

// WatchLevel invokes onChange with the new logger level whenever
// config.yaml changes on disk, the way the teacher's logger.Build wires
// viper.OnConfigChange to SetLevel.
func WatchLevel(v *viper.Viper, onChange func(level string)) {
	v.OnConfigChange(func(in fsnotify.Event) {
		if in.Op&fsnotify.Write != 0 {
			onChange(v.GetString("logger.level"))
		}
	})
	v.WatchConfig()
}
