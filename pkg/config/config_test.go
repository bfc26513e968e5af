package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"ROTATION_INTERVAL_SECS", "KILL_SWITCH_THRESHOLD", "KILL_SWITCH_WINDOW_SECS",
		"MONITOR_INTERVAL_SECS", "OMEGA_THRESHOLD", "CHAIN_LOG_PATH", "MASTER_KEY_PATH",
		"XI_REPLAY_DB_PATH", "XI_METRICS_ADDR", "XI_LOG_LEVEL", "XI_LOG_JSON",
	}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RotationInterval != 300*time.Second {
		t.Errorf("RotationInterval = %v, want 300s", cfg.RotationInterval)
	}
	if cfg.KillSwitchThreshold != 3 {
		t.Errorf("KillSwitchThreshold = %d, want 3", cfg.KillSwitchThreshold)
	}
	if cfg.MonitorInterval != 5*time.Second {
		t.Errorf("MonitorInterval = %v, want 5s", cfg.MonitorInterval)
	}
	if cfg.OmegaThreshold != 0.90 {
		t.Errorf("OmegaThreshold = %v, want 0.90", cfg.OmegaThreshold)
	}
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROTATION_INTERVAL_SECS", "60")
	t.Setenv("KILL_SWITCH_THRESHOLD", "5")
	t.Setenv("OMEGA_THRESHOLD", "0.95")
	t.Setenv("XI_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RotationInterval != 60*time.Second {
		t.Errorf("RotationInterval = %v, want 60s", cfg.RotationInterval)
	}
	if cfg.KillSwitchThreshold != 5 {
		t.Errorf("KillSwitchThreshold = %d, want 5", cfg.KillSwitchThreshold)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.OmegaThreshold != 0.95 {
		t.Errorf("OmegaThreshold = %v, want 0.95", cfg.OmegaThreshold)
	}
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("XI_LOG_LEVEL", "verbose")

	if _, err := Load(); err == nil {
		t.Fatal("Load() succeeded with an invalid log_level")
	}
}

func TestLoadRejectsOutOfRangeOmegaThreshold(t *testing.T) {
	clearEnv(t)
	t.Setenv("OMEGA_THRESHOLD", "1.5")

	if _, err := Load(); err == nil {
		t.Fatal("Load() succeeded with an out-of-range omega_threshold")
	}
}

func TestDumpProducesYAML(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	out, err := cfg.Dump()
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if out == "" {
		t.Error("Dump() returned an empty string")
	}
}
