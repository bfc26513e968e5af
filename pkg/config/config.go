package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xi-lua/sentinel/pkg/errs"
	"github.com/xi-lua/sentinel/pkg/omegagate"
)

// Config holds every tunable the core reads at startup. Fields that name
// an Ω-Gate or Stabilizer constant are absent on purpose: those formulas
// are fixed by the spec, not configuration. The admission threshold is
// the one Ω-Gate number the spec calls out as configurable.
type Config struct {
	RotationInterval    time.Duration `yaml:"rotation_interval"`
	KillSwitchThreshold int           `yaml:"kill_switch_threshold"`
	KillSwitchWindow    time.Duration `yaml:"kill_switch_window"`
	MonitorInterval     time.Duration `yaml:"monitor_interval"`
	OmegaThreshold      float64       `yaml:"omega_threshold"`

	ChainLogPath  string `yaml:"chain_log_path"`
	MasterKeyPath string `yaml:"master_key_path"`
	ReplayDBPath  string `yaml:"replay_db_path"`

	MetricsAddr string `yaml:"metrics_addr"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Load reads configuration from environment variables, applying defaults
// for anything unset, and validates the result.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("%w: resolve home dir: %v", errs.ErrConfig, err)
	}
	base := filepath.Join(home, ".xi-lua")

	cfg := &Config{
		RotationInterval:    envDuration("ROTATION_INTERVAL_SECS", 300*time.Second),
		KillSwitchThreshold: envInt("KILL_SWITCH_THRESHOLD", 3),
		KillSwitchWindow:    envDuration("KILL_SWITCH_WINDOW_SECS", 60*time.Second),
		MonitorInterval:     envDuration("MONITOR_INTERVAL_SECS", 5*time.Second),
		OmegaThreshold:      envFloat("OMEGA_THRESHOLD", omegagate.DefaultThreshold),
		ChainLogPath:        envString("CHAIN_LOG_PATH", filepath.Join(base, "autoheal.log")),
		MasterKeyPath:       envString("MASTER_KEY_PATH", filepath.Join(base, "master.key")),
		ReplayDBPath:        envString("XI_REPLAY_DB_PATH", filepath.Join(base, "replay.db")),
		MetricsAddr:         envString("XI_METRICS_ADDR", ""),
		LogLevel:            envString("XI_LOG_LEVEL", "info"),
		LogJSON:             envBool("XI_LOG_JSON", false),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.RotationInterval <= 0 {
		return fmt.Errorf("%w: rotation_interval must be positive, got %s", errs.ErrConfig, c.RotationInterval)
	}
	if c.KillSwitchThreshold <= 0 {
		return fmt.Errorf("%w: kill_switch_threshold must be positive, got %d", errs.ErrConfig, c.KillSwitchThreshold)
	}
	if c.KillSwitchWindow <= 0 {
		return fmt.Errorf("%w: kill_switch_window must be positive, got %s", errs.ErrConfig, c.KillSwitchWindow)
	}
	if c.MonitorInterval <= 0 {
		return fmt.Errorf("%w: monitor_interval must be positive, got %s", errs.ErrConfig, c.MonitorInterval)
	}
	if c.OmegaThreshold <= 0 || c.OmegaThreshold > 1 {
		return fmt.Errorf("%w: omega_threshold must be in (0,1], got %v", errs.ErrConfig, c.OmegaThreshold)
	}
	if c.ChainLogPath == "" {
		return fmt.Errorf("%w: chain_log_path must not be empty", errs.ErrConfig)
	}
	if c.MasterKeyPath == "" {
		return fmt.Errorf("%w: master_key_path must not be empty", errs.ErrConfig)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q must be one of debug/info/warn/error", errs.ErrConfig, c.LogLevel)
	}
	return nil
}

// Dump renders the configuration as YAML, for `xictl status --format
// yaml`-style introspection and for support bundles.
func (c *Config) Dump() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrSerialization, err)
	}
	return string(data), nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
