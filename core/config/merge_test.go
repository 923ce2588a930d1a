package config

import "testing"

func TestOverlayNonZeroFields(t *testing.T) {
	dst := DefaultConfig()
	src := &Config{
		Spawn: SpawnConfig{MaxThreads: 16, SharedThreads: true},
		Log:   LogConfig{Level: "debug"},
	}

	Overlay(dst, src)

	if dst.Spawn.MaxThreads != 16 {
		t.Errorf("MaxThreads = %d, want 16", dst.Spawn.MaxThreads)
	}
	if !dst.Spawn.SharedThreads {
		t.Error("SharedThreads not overlaid")
	}
	if dst.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", dst.Log.Level)
	}
	if dst.Log.Format != "auto" {
		t.Errorf("Format = %q, zero src field must not override", dst.Log.Format)
	}
	if dst.Spawn.FaultPolicy != "isolate" {
		t.Errorf("FaultPolicy = %q", dst.Spawn.FaultPolicy)
	}
}

func TestOverlayIgnoresMismatchedTypes(t *testing.T) {
	dst := DefaultConfig()
	Overlay(dst, &LogConfig{Level: "error"})
	Overlay(*dst, DefaultConfig())
	Overlay(dst, (*Config)(nil))
	if dst.Log.Level != "info" {
		t.Errorf("Level = %q, want unchanged", dst.Log.Level)
	}
}
