package fault

import (
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/adalundhe/strand/core/osthread"
)

// GuardedCaller runs a call inside a fault-isolation boundary. It must not
// let a panic escape and must report each fault exactly once.
type GuardedCaller interface {
	GuardedCall(call Call)
}

// GuardedCallerFunc adapts a function to GuardedCaller.
type GuardedCallerFunc func(call Call)

func (f GuardedCallerFunc) GuardedCall(call Call) {
	f(call)
}

// RecovererConfig configures a Recoverer.
type RecovererConfig struct {
	Reporter Reporter
	Policy   Policy
	Logger   *slog.Logger

	// Exit terminates the process under PolicyExit. Defaults to os.Exit.
	Exit func(code int)

	Now func() time.Time
}

// Recoverer is the default GuardedCaller. It recovers panics, notices
// runtime.Goexit, and forwards one Fault per abnormal call to its Reporter.
type Recoverer struct {
	reporter Reporter
	policy   Policy
	logger   *slog.Logger
	exit     func(code int)
	now      func() time.Time
}

// NewRecoverer creates a Recoverer. A nil Reporter logs faults through the
// configured logger.
func NewRecoverer(cfg RecovererConfig) *Recoverer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Reporter == nil {
		cfg.Reporter = NewLogReporter(cfg.Logger)
	}
	if cfg.Exit == nil {
		cfg.Exit = os.Exit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Recoverer{
		reporter: cfg.Reporter,
		policy:   cfg.Policy,
		logger:   cfg.Logger,
		exit:     cfg.Exit,
		now:      cfg.Now,
	}
}

// Policy returns the configured policy.
func (r *Recoverer) Policy() Policy {
	return r.policy
}

// GuardedCall invokes call.Entry(call.Env). A panic is recovered; a Goexit is
// reported and then allowed to continue unwinding the goroutine.
func (r *Recoverer) GuardedCall(call Call) {
	returned := false
	defer func() {
		if returned {
			return
		}
		// recover must be called directly by the deferred function.
		r.handle(call, recover())
	}()

	call.Entry(call.Env)
	returned = true
}

func (r *Recoverer) handle(call Call, value any) {
	f := Fault{
		TaskID:   call.TaskID,
		TaskName: call.Name,
		Kind:     KindPanic,
		Value:    value,
		ThreadID: osthread.ID(),
		At:       r.now(),
	}
	if value == nil {
		// Since Go 1.21 panic(nil) recovers as *runtime.PanicNilError, so a
		// nil value here can only come from runtime.Goexit.
		f.Kind = KindGoexit
	} else {
		f.Stack = string(debug.Stack())
	}

	r.report(f)

	if f.Kind == KindPanic && r.policy == PolicyExit {
		r.logger.Error("task fault is fatal under exit policy",
			"task_id", f.TaskID,
			"task", f.TaskName,
			"exit_code", ExitCode,
		)
		r.exit(ExitCode)
	}
}

func (r *Recoverer) report(f Fault) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("fault reporter panicked",
				"task_id", f.TaskID,
				"reporter_panic", v,
				"fault", f.Error(),
			)
		}
	}()
	r.reporter.Report(f)
}
