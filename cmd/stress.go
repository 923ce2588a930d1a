package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/adalundhe/strand/core/budget"
	"github.com/adalundhe/strand/core/config"
	"github.com/adalundhe/strand/core/fault"
	"github.com/adalundhe/strand/core/spawn"
)

const (
	StressDefaultTasks   = 1000
	StressDefaultTimeout = 30 * time.Second

	stressPollDelay = 5 * time.Millisecond
)

var (
	stressTasks      int
	stressFaultEvery int
	stressGoexit     bool
	stressWork       time.Duration
	stressMaxThreads int64
	stressShared     bool
	stressTimeout    time.Duration
	stressJSON       bool
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Spawn many tasks and verify every descriptor is released",
	Long: `Spawn a batch of tasks, optionally injecting faults, wait until every
thread has terminated, and report launcher, budget and descriptor counters.

A launch rejected by the thread budget is retried until it succeeds.
The command fails if any descriptor is still live after the batch settles.

Examples:
  strand stress --tasks 10000
  strand stress --tasks 500 --fault-every 10
  strand stress --tasks 100 --fault-every 5 --goexit --json`,
	Args: cobra.NoArgs,
	RunE: runStress,
}

func init() {
	rootCmd.AddCommand(stressCmd)

	stressCmd.Flags().IntVarP(&stressTasks, "tasks", "n", StressDefaultTasks, "Number of tasks to spawn")
	stressCmd.Flags().IntVarP(&stressFaultEvery, "fault-every", "k", 0, "Make every k-th task fault (0 disables)")
	stressCmd.Flags().BoolVar(&stressGoexit, "goexit", false, "Inject runtime.Goexit instead of panics")
	stressCmd.Flags().DurationVar(&stressWork, "work", 0, "How long each task sleeps")
	stressCmd.Flags().Int64Var(&stressMaxThreads, "max-threads", 0, "Thread budget override (0 uses config)")
	stressCmd.Flags().BoolVar(&stressShared, "shared", false, "Run tasks on shared goroutines instead of dedicated threads")
	stressCmd.Flags().DurationVar(&stressTimeout, "timeout", StressDefaultTimeout, "How long to wait for tasks to settle")
	stressCmd.Flags().BoolVar(&stressJSON, "json", false, "Output the report as JSON")
}

// stressEnv is the environment each stress task receives.
type stressEnv struct {
	index  int
	fault  bool
	goexit bool
	work   time.Duration
}

func stressEntry(env any) {
	e := env.(stressEnv)
	if e.work > 0 {
		time.Sleep(e.work)
	}
	if !e.fault {
		return
	}
	if e.goexit {
		runtime.Goexit()
	}
	panic(fmt.Sprintf("injected fault in task %d", e.index))
}

type stressReport struct {
	Tasks         int                  `json:"tasks"`
	LaunchRetries int64                `json:"launch_retries"`
	Elapsed       time.Duration        `json:"elapsed_ns"`
	Launcher      spawn.Stats          `json:"launcher"`
	Budget        budget.Stats         `json:"budget"`
	Ledger        spawn.LedgerSnapshot `json:"ledger"`
	Faults        map[fault.Kind]int64 `json:"faults"`
}

func runStress(cmd *cobra.Command, args []string) error {
	if stressTasks < 0 {
		return fmt.Errorf("--tasks must be >= 0, got %d", stressTasks)
	}
	if stressFaultEvery < 0 {
		return fmt.Errorf("--fault-every must be >= 0, got %d", stressFaultEvery)
	}

	env, err := loadEnvironment(cmd, &config.Config{
		Spawn: config.SpawnConfig{MaxThreads: stressMaxThreads, SharedThreads: stressShared},
	})
	if err != nil {
		return err
	}
	rt, err := newRuntime(env)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), stressTimeout)
	defer cancel()

	report, err := stressRun(ctx, rt)
	if err != nil {
		return err
	}
	if err := writeStressReport(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if report.Ledger.Live != 0 || report.Ledger.DoubleReleases != 0 {
		return fmt.Errorf("descriptor leak: %d live, %d double releases",
			report.Ledger.Live, report.Ledger.DoubleReleases)
	}
	return nil
}

func stressRun(ctx context.Context, rt *taskRuntime) (*stressReport, error) {
	l := rt.launcher
	report := &stressReport{Tasks: stressTasks}
	start := time.Now()

	for i := 0; i < stressTasks; i++ {
		task := spawn.Task{
			Name:  fmt.Sprintf("stress-%d", i),
			Entry: stressEntry,
			Env: stressEnv{
				index:  i,
				fault:  stressFaultEvery > 0 && (i+1)%stressFaultEvery == 0,
				goexit: stressGoexit,
				work:   stressWork,
			},
		}
		for attempt := 0; ; attempt++ {
			err := l.Spawn(task)
			if err == nil {
				break
			}
			if !errors.Is(err, budget.ErrBudgetExhausted) {
				return nil, err
			}
			report.LaunchRetries++
			if err := sleepCtx(ctx, launchBackoff.Delay(attempt)); err != nil {
				return nil, fmt.Errorf("spawned %d of %d tasks: %w", i, stressTasks, err)
			}
		}
	}

	for l.Stats().Running > 0 || l.Ledger().Live() > 0 {
		if err := sleepCtx(ctx, stressPollDelay); err != nil {
			return nil, fmt.Errorf("waiting for tasks to settle: %w", err)
		}
	}

	report.Elapsed = time.Since(start)
	report.Launcher = l.Stats()
	report.Budget = l.Budget().Stats()
	report.Ledger = l.Ledger().Snapshot()
	report.Faults = map[fault.Kind]int64{
		fault.KindPanic:  rt.recorder.CountByKind(fault.KindPanic),
		fault.KindGoexit: rt.recorder.CountByKind(fault.KindGoexit),
	}
	return report, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func writeStressReport(out io.Writer, r *stressReport) error {
	if stressJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "tasks\t%d\n", r.Tasks)
	fmt.Fprintf(w, "elapsed\t%s\n", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "spawned\t%d\n", r.Launcher.Spawned)
	fmt.Fprintf(w, "completed\t%d\n", r.Launcher.Completed)
	fmt.Fprintf(w, "faulted\t%d (panic %d, goexit %d)\n",
		r.Launcher.Faulted, r.Faults[fault.KindPanic], r.Faults[fault.KindGoexit])
	fmt.Fprintf(w, "launch retries\t%d\n", r.LaunchRetries)
	fmt.Fprintf(w, "peak threads\t%d / %d\n", r.Budget.Peak, r.Budget.HardLimit)
	fmt.Fprintf(w, "descriptors\t%d allocated, %d released, %d live\n",
		r.Ledger.Allocated, r.Ledger.Released, r.Ledger.Live)
	return w.Flush()
}
