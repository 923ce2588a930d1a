// Package budget caps how many detached task threads may be alive at once.
//
// Acquisition never blocks: a spawn that finds the budget full fails at the
// call site with ErrBudgetExhausted, the same way a thread-creation syscall
// reports EAGAIN.
package budget

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/adalundhe/strand/core/osthread"
)

var (
	ErrBudgetExhausted = errors.New("thread budget exhausted")
	ErrInvalidConfig   = errors.New("invalid thread budget config")
)

const defaultSoftLimitPercent = 0.8

// WarningCallback is called when the number of live threads crosses the
// soft limit.
type WarningCallback func(active, softLimit int64)

// Config configures a ThreadBudget.
type Config struct {
	// HardLimit is the maximum number of live task threads. Zero derives the
	// limit from the process thread ceiling; a negative value disables the cap.
	HardLimit int64

	// SoftLimitPercent is the fraction of HardLimit above which OnWarning fires.
	SoftLimitPercent float64

	OnWarning WarningCallback
}

// DefaultConfig returns a config bounded by the OS thread ceiling.
func DefaultConfig() Config {
	return Config{
		SoftLimitPercent: defaultSoftLimitPercent,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.SoftLimitPercent < 0 || c.SoftLimitPercent > 1 {
		return fmt.Errorf("%w: soft_limit_percent %v out of [0,1]", ErrInvalidConfig, c.SoftLimitPercent)
	}
	return nil
}

// Stats is a point-in-time view of the budget.
type Stats struct {
	Active    int64
	Peak      int64
	SoftLimit int64
	HardLimit int64
	Rejected  int64
}

// ThreadBudget tracks live task threads against a hard limit.
type ThreadBudget struct {
	hardLimit int64
	softLimit int64
	onWarning WarningCallback

	active   atomic.Int64
	peak     atomic.Int64
	rejected atomic.Int64
}

// New creates a ThreadBudget from cfg.
func New(cfg Config) (*ThreadBudget, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.SoftLimitPercent == 0 {
		cfg.SoftLimitPercent = defaultSoftLimitPercent
	}

	hard := resolveHardLimit(cfg.HardLimit)
	b := &ThreadBudget{
		hardLimit: hard,
		onWarning: cfg.OnWarning,
	}
	if hard > 0 {
		b.softLimit = max(int64(float64(hard)*cfg.SoftLimitPercent), 1)
	}
	return b, nil
}

func resolveHardLimit(configured int64) int64 {
	switch {
	case configured > 0:
		return configured
	case configured < 0:
		return 0
	default:
		return osthread.Ceiling()
	}
}

// TryAcquire takes one thread slot or returns ErrBudgetExhausted.
func (b *ThreadBudget) TryAcquire() error {
	for {
		current := b.active.Load()
		if b.hardLimit > 0 && current >= b.hardLimit {
			b.rejected.Add(1)
			return ErrBudgetExhausted
		}
		if b.active.CompareAndSwap(current, current+1) {
			b.updatePeak(current + 1)
			b.checkSoftLimit(current + 1)
			return nil
		}
	}
}

func (b *ThreadBudget) updatePeak(active int64) {
	for {
		peak := b.peak.Load()
		if active <= peak || b.peak.CompareAndSwap(peak, active) {
			return
		}
	}
}

func (b *ThreadBudget) checkSoftLimit(active int64) {
	if b.softLimit > 0 && active > b.softLimit && b.onWarning != nil {
		b.onWarning(active, b.softLimit)
	}
}

// Release returns a slot taken by TryAcquire.
func (b *ThreadBudget) Release() {
	if b.active.Add(-1) < 0 {
		panic("budget: Release without matching TryAcquire")
	}
}

// Active returns the number of slots currently held.
func (b *ThreadBudget) Active() int64 {
	return b.active.Load()
}

// HardLimit returns the effective hard limit; zero means uncapped.
func (b *ThreadBudget) HardLimit() int64 {
	return b.hardLimit
}

// Stats returns current statistics.
func (b *ThreadBudget) Stats() Stats {
	return Stats{
		Active:    b.active.Load(),
		Peak:      b.peak.Load(),
		SoftLimit: b.softLimit,
		HardLimit: b.hardLimit,
		Rejected:  b.rejected.Load(),
	}
}
