package spawn

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/adalundhe/strand/core/budget"
	"github.com/adalundhe/strand/core/fault"
)

// State is the lifecycle state of a spawned thread.
type State int

const (
	Running State = iota
	Terminated
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Event reports a state transition of a spawned task.
type Event struct {
	TaskID   string
	TaskName string
	State    State
	Faulted  bool
	Duration time.Duration
}

// Observer receives lifecycle events on the task's own thread. It must not
// block.
type Observer func(Event)

// Config configures a Launcher. Zero values select the defaults.
type Config struct {
	// Starter creates task threads. Default: OSThreadStarter{}.
	Starter ThreadStarter

	// Guard runs each task inside a recovery boundary. Default: a
	// fault.Recoverer that logs faults and isolates them.
	Guard fault.GuardedCaller

	// Budget caps live task threads. Default: bounded by the OS ceiling.
	Budget *budget.ThreadBudget

	// Escalate is called with every launch failure after it has been cleaned
	// up, for runtimes that treat such failures as process-fatal.
	Escalate func(err error)

	Observer Observer
	Logger   *slog.Logger

	// NewID generates task IDs. Default: uuid.NewString.
	NewID func() string
}

// Stats summarizes a Launcher's activity.
type Stats struct {
	Spawned      int64
	Completed    int64
	Faulted      int64
	LaunchFailed int64
	Running      int64
}

// Launcher starts detached tasks. It is safe for concurrent use.
type Launcher struct {
	starter  ThreadStarter
	guard    fault.GuardedCaller
	budget   *budget.ThreadBudget
	escalate func(err error)
	observer Observer
	logger   *slog.Logger
	newID    func() string

	ledger Ledger

	spawned      atomic.Int64
	completed    atomic.Int64
	faulted      atomic.Int64
	launchFailed atomic.Int64
	running      atomic.Int64
}

// New creates a Launcher.
func New(cfg Config) (*Launcher, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Starter == nil {
		cfg.Starter = OSThreadStarter{}
	}
	if cfg.Guard == nil {
		cfg.Guard = fault.NewRecoverer(fault.RecovererConfig{Logger: cfg.Logger})
	}
	if cfg.Budget == nil {
		b, err := budget.New(budget.DefaultConfig())
		if err != nil {
			return nil, err
		}
		cfg.Budget = b
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	return &Launcher{
		starter:  cfg.Starter,
		guard:    cfg.Guard,
		budget:   cfg.Budget,
		escalate: cfg.Escalate,
		observer: cfg.Observer,
		logger:   cfg.Logger.With("component", "spawn"),
		newID:    cfg.NewID,
	}, nil
}

// Spawn launches task on a new detached thread and returns without waiting
// for it. A non-nil error means the task will never run; its descriptor has
// already been released.
func (l *Launcher) Spawn(task Task) error {
	if err := task.validate(); err != nil {
		return err
	}

	b := l.ledger.newBox(l.newID(), task)

	if err := l.budget.TryAcquire(); err != nil {
		return l.abortLaunch(b, err, false)
	}

	// Counted before Start so a fast task never shows Completed > Spawned.
	l.spawned.Add(1)
	if err := l.starter.Start(func() { l.run(b) }); err != nil {
		l.spawned.Add(-1)
		return l.abortLaunch(b, err, true)
	}
	return nil
}

// Go launches fn as an anonymous task.
func (l *Launcher) Go(fn func()) error {
	return l.Spawn(Func("", fn))
}

func (l *Launcher) abortLaunch(b *box, cause error, slotHeld bool) error {
	name := b.task.Name
	b.release()
	if slotHeld {
		l.budget.Release()
	}
	l.launchFailed.Add(1)

	err := &LaunchError{TaskID: b.id, TaskName: name, Cause: cause}
	// Budget exhaustion is routine under load; real thread creation
	// failures are not.
	level := slog.LevelWarn
	if errors.Is(cause, budget.ErrBudgetExhausted) {
		level = slog.LevelDebug
	}
	l.logger.Log(context.Background(), level, "task launch failed",
		"task_id", b.id,
		"task", name,
		"error", cause,
	)
	if l.escalate != nil {
		l.escalate(err)
	}
	return err
}

// run is the body of every spawned thread.
func (l *Launcher) run(b *box) {
	task, ok := b.claim()
	if !ok {
		l.logger.Error("task box claimed twice", "task_id", b.id)
		return
	}

	start := time.Now()
	l.running.Add(1)
	l.observe(Event{TaskID: b.id, TaskName: task.Name, State: Running})

	returned := false
	// The box is released last so a Live count of zero implies every other
	// counter has settled.
	defer func() {
		if returned {
			l.completed.Add(1)
		} else {
			l.faulted.Add(1)
		}
		l.observe(Event{
			TaskID:   b.id,
			TaskName: task.Name,
			State:    Terminated,
			Faulted:  !returned,
			Duration: time.Since(start),
		})
		l.running.Add(-1)
		l.budget.Release()
		b.release()
	}()

	l.guard.GuardedCall(fault.Call{
		TaskID: b.id,
		Name:   task.Name,
		Env:    task.Env,
		Entry: func(env any) {
			task.Entry(env)
			returned = true
		},
	})
}

func (l *Launcher) observe(ev Event) {
	if l.observer == nil {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			l.logger.Error("task observer panicked",
				"task_id", ev.TaskID,
				"state", ev.State.String(),
				"observer_panic", v,
			)
		}
	}()
	l.observer(ev)
}

// Stats returns activity counters.
func (l *Launcher) Stats() Stats {
	return Stats{
		Spawned:      l.spawned.Load(),
		Completed:    l.completed.Load(),
		Faulted:      l.faulted.Load(),
		LaunchFailed: l.launchFailed.Load(),
		Running:      l.running.Load(),
	}
}

// Ledger returns the box ledger for leak accounting.
func (l *Launcher) Ledger() *Ledger {
	return &l.ledger
}

// Budget returns the thread budget in use.
func (l *Launcher) Budget() *budget.ThreadBudget {
	return l.budget
}

var (
	defaultMu       sync.Mutex
	defaultLauncher *Launcher
)

// Default returns the process-wide launcher used by Spawn and Go, creating
// it with default settings on first use.
func Default() *Launcher {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLauncher == nil {
		// The default budget config always validates.
		defaultLauncher, _ = New(Config{})
	}
	return defaultLauncher
}

// SetDefault replaces the process-wide launcher.
func SetDefault(l *Launcher) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLauncher = l
}

// Spawn launches task on the default launcher.
func Spawn(task Task) error {
	return Default().Spawn(task)
}

// Go launches fn on the default launcher.
func Go(fn func()) error {
	return Default().Go(fn)
}
