package config

import (
	"testing"
	"time"
)

func TestLoadWithoutConfigFileFallsBackToDefaults(t *testing.T) {
	cfg, v, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v == nil {
		t.Fatalf("Load returned a nil *viper.Viper")
	}
	if cfg.Engine.Policy != "fcfs" {
		t.Errorf("default policy = %q, want fcfs", cfg.Engine.Policy)
	}
	if cfg.Logger.Level != "info" {
		t.Errorf("default logger level = %q, want info", cfg.Logger.Level)
	}
	if cfg.Engine.SchedulerTick() != 500*time.Millisecond {
		t.Errorf("default scheduler tick = %v, want 500ms", cfg.Engine.SchedulerTick())
	}
	if cfg.Engine.DispatcherIdle() != 100*time.Millisecond {
		t.Errorf("default dispatcher idle = %v, want 100ms", cfg.Engine.DispatcherIdle())
	}
}

func TestEngineDurationHelpersUseConfiguredValues(t *testing.T) {
	e := &Engine{SchedulerTickMs: 250, DispatcherIdleMs: 50}
	if e.SchedulerTick() != 250*time.Millisecond {
		t.Errorf("SchedulerTick() = %v, want 250ms", e.SchedulerTick())
	}
	if e.DispatcherIdle() != 50*time.Millisecond {
		t.Errorf("DispatcherIdle() = %v, want 50ms", e.DispatcherIdle())
	}
}

func TestEngineDurationHelpersFallBackOnNonPositive(t *testing.T) {
	e := &Engine{SchedulerTickMs: 0, DispatcherIdleMs: -5}
	if e.SchedulerTick() != 500*time.Millisecond {
		t.Errorf("SchedulerTick() with zero config = %v, want 500ms default", e.SchedulerTick())
	}
	if e.DispatcherIdle() != 100*time.Millisecond {
		t.Errorf("DispatcherIdle() with negative config = %v, want 100ms default", e.DispatcherIdle())
	}
}
