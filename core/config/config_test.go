package config

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/adalundhe/strand/core/fault"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Policy() != fault.PolicyIsolate {
		t.Errorf("Policy() = %v, want isolate", cfg.Policy())
	}
	if cfg.Spawn.SharedThreads {
		t.Error("default should use dedicated threads")
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spawn.FaultPolicy = "explode"
	cfg.Spawn.SoftLimitPercent = 1.5
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Validate() = %v, want ErrInvalidConfig", err)
	}
	for _, want := range []string{"explode", "soft_limit_percent", "xml"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestValidateMaxThreads(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spawn.MaxThreads = -1
	if err := cfg.Validate(); err != nil {
		t.Errorf("-1 should be accepted: %v", err)
	}
	cfg.Spawn.MaxThreads = -2
	if err := cfg.Validate(); err == nil {
		t.Error("-2 should be rejected")
	}
}

func TestBudgetConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spawn.MaxThreads = 42
	bc := cfg.BudgetConfig()
	if bc.HardLimit != 42 || bc.SoftLimitPercent != 0.8 {
		t.Errorf("BudgetConfig() = %+v", bc)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		err  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseLevel(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
