// Package config loads strand settings from layered YAML files and STRAND_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adalundhe/strand/core/budget"
	"github.com/adalundhe/strand/core/fault"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Spawn  SpawnConfig  `yaml:"spawn"`
	Faults FaultsConfig `yaml:"faults"`
	Log    LogConfig    `yaml:"log"`
}

type SpawnConfig struct {
	// MaxThreads caps live task threads. 0 derives the cap from the OS and
	// Go runtime thread limits; -1 disables it.
	MaxThreads       int64   `yaml:"max_threads"`
	SoftLimitPercent float64 `yaml:"soft_limit_percent"`
	// SharedThreads runs tasks on ordinary goroutines instead of dedicated
	// locked OS threads.
	SharedThreads bool   `yaml:"shared_threads"`
	FaultPolicy   string `yaml:"fault_policy"`
}

type FaultsConfig struct {
	RecentCapacity int    `yaml:"recent_capacity"`
	JournalEnabled bool   `yaml:"journal_enabled"`
	JournalPath    string `yaml:"journal_path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Spawn: SpawnConfig{
			SoftLimitPercent: 0.8,
			FaultPolicy:      "isolate",
		},
		Faults: FaultsConfig{
			RecentCapacity: fault.DefaultRecentCapacity,
			JournalEnabled: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := fault.ParsePolicy(c.Spawn.FaultPolicy); err != nil {
		errs = append(errs, err)
	}
	if err := c.BudgetConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Spawn.MaxThreads < -1 {
		errs = append(errs, fmt.Errorf("spawn.max_threads must be >= -1, got %d", c.Spawn.MaxThreads))
	}
	if c.Faults.RecentCapacity < 0 {
		errs = append(errs, fmt.Errorf("faults.recent_capacity must be >= 0, got %d", c.Faults.RecentCapacity))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be auto, text or json, got %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// BudgetConfig converts the spawn section to a thread budget config.
func (c *Config) BudgetConfig() budget.Config {
	return budget.Config{
		HardLimit:        c.Spawn.MaxThreads,
		SoftLimitPercent: c.Spawn.SoftLimitPercent,
	}
}

// Policy returns the parsed fault policy, defaulting to isolate.
func (c *Config) Policy() fault.Policy {
	p, _ := fault.ParsePolicy(c.Spawn.FaultPolicy)
	return p
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
