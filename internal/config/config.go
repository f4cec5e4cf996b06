// Package config provides configuration helpers for go-follow commands.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/skylarkuav/go-follow/pkg/follow"
)

// Defaults for the followd daemon.
const (
	DefaultWebPort    = "8088"
	DefaultTrackerURL = "ws://127.0.0.1:5600/tracker"
	DefaultCycleHz    = 20.0
)

// Config is the followd session configuration. Values are consumed as-is;
// schema validation and profile merging happen upstream in the dashboard
// tooling that writes this file.
type Config struct {
	LogLevel     string  `yaml:"log_level"`
	WebPort      string  `yaml:"web_port"`
	TrackerURL   string  `yaml:"tracker_url"`
	CycleHz      float64 `yaml:"cycle_hz"`
	StaleAfterMs int     `yaml:"stale_after_ms"`
	DefaultMode  string  `yaml:"default_mode"`

	Limits LimitsConfig `yaml:"limits"`

	// Parameters holds per-mode guidance parameters keyed by canonical
	// follower mode name.
	Parameters map[string]map[string]float64 `yaml:"parameters"`
}

// LimitsConfig mirrors follow.SafetyLimits for YAML decoding.
type LimitsConfig struct {
	MaxVelocityForward  float64 `yaml:"max_velocity_forward"`
	MaxVelocityLateral  float64 `yaml:"max_velocity_lateral"`
	MaxVelocityVertical float64 `yaml:"max_velocity_vertical"`
	MaxYawRate          float64 `yaml:"max_yaw_rate"`
	MaxRollRate         float64 `yaml:"max_roll_rate"`
	MaxPitchRate        float64 `yaml:"max_pitch_rate"`
	MaxThrust           float64 `yaml:"max_thrust"`
	MinAltitude         float64 `yaml:"min_altitude"`
	MaxAltitude         float64 `yaml:"max_altitude"`
}

// Load reads a session config from a YAML file and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.fillDefaults()
	return cfg
}

func (c *Config) fillDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.WebPort == "" {
		c.WebPort = DefaultWebPort
	}
	if c.TrackerURL == "" {
		c.TrackerURL = DefaultTrackerURL
	}
	if c.CycleHz <= 0 {
		c.CycleHz = DefaultCycleHz
	}
	if c.StaleAfterMs <= 0 {
		// Two cycles of grace before a silent tracker reads as lost.
		c.StaleAfterMs = int(2000.0 / c.CycleHz)
	}
	if c.Limits == (LimitsConfig{}) {
		c.Limits = LimitsConfig{
			MaxVelocityForward:  10.0,
			MaxVelocityLateral:  6.0,
			MaxVelocityVertical: 3.0,
			MaxYawRate:          1.2,
			MaxRollRate:         1.5,
			MaxPitchRate:        1.0,
			MaxThrust:           0.9,
			MinAltitude:         2.0,
			MaxAltitude:         120.0,
		}
	}
}

// CycleInterval returns the control-loop period.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.CycleHz)
}

// StaleAfter returns how long a tracker silence is tolerated before the
// manager treats the target as lost.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterMs) * time.Millisecond
}

// SafetyLimits converts the YAML limits block to follower safety limits.
func (c *Config) SafetyLimits() follow.SafetyLimits {
	return follow.SafetyLimits{
		MaxVelocityForward:  c.Limits.MaxVelocityForward,
		MaxVelocityLateral:  c.Limits.MaxVelocityLateral,
		MaxVelocityVertical: c.Limits.MaxVelocityVertical,
		MaxYawRate:          c.Limits.MaxYawRate,
		MaxRollRate:         c.Limits.MaxRollRate,
		MaxPitchRate:        c.Limits.MaxPitchRate,
		MaxThrust:           c.Limits.MaxThrust,
		MinAltitude:         c.Limits.MinAltitude,
		MaxAltitude:         c.Limits.MaxAltitude,
	}
}

// ModeParameters returns the configured parameters for a follower mode,
// or an empty set when none are configured.
func (c *Config) ModeParameters(mode string) follow.Parameters {
	params := follow.Parameters{}
	for name, value := range c.Parameters[mode] {
		params[name] = value
	}
	return params
}

// TrackerURLFromEnv returns TRACKER_URL if set, else the configured value.
func (c *Config) TrackerURLFromEnv() string {
	if url := os.Getenv("TRACKER_URL"); url != "" {
		return url
	}
	return c.TrackerURL
}

// WebPortFromEnv returns FOLLOW_WEB_PORT if set, else the configured value.
func (c *Config) WebPortFromEnv() string {
	if port := os.Getenv("FOLLOW_WEB_PORT"); port != "" {
		return port
	}
	return c.WebPort
}
