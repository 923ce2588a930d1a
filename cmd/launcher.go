package cmd

import (
	"fmt"

	"github.com/adalundhe/strand/core/budget"
	"github.com/adalundhe/strand/core/fault"
	"github.com/adalundhe/strand/core/spawn"
)

// taskRuntime is a launcher wired from config together with the fault sinks it
// reports to.
type taskRuntime struct {
	launcher *spawn.Launcher
	recorder *fault.Recorder
	journal  *fault.Journal
}

func (r *taskRuntime) Close() error {
	if r.journal == nil {
		return nil
	}
	return r.journal.Close()
}

func newRuntime(env *environment) (*taskRuntime, error) {
	cfg := env.config
	logger := env.logger

	budgetCfg := cfg.BudgetConfig()
	budgetCfg.OnWarning = func(active, softLimit int64) {
		logger.Warn("thread budget above soft limit", "active", active, "soft_limit", softLimit)
	}
	b, err := budget.New(budgetCfg)
	if err != nil {
		return nil, err
	}

	rt := &taskRuntime{recorder: fault.NewRecorder(cfg.Faults.RecentCapacity)}
	reporters := fault.Reporters{fault.NewLogReporter(logger), rt.recorder}

	if cfg.Faults.JournalEnabled {
		path := env.manager.JournalPath()
		j, err := fault.OpenJournal(path, logger)
		if err != nil {
			return nil, fmt.Errorf("open fault journal: %w", err)
		}
		logger.Debug("fault journal opened", "path", j.Path())
		rt.journal = j
		reporters = append(reporters, j)
	}

	guard := fault.NewRecoverer(fault.RecovererConfig{
		Reporter: reporters,
		Policy:   cfg.Policy(),
		Logger:   logger,
	})

	l, err := spawn.New(spawn.Config{
		Starter: spawn.OSThreadStarter{Shared: cfg.Spawn.SharedThreads},
		Guard:   guard,
		Budget:  b,
		Logger:  logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.launcher = l
	return rt, nil
}
