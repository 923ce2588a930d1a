package fault

import (
	"log/slog"
)

// Reporter receives faults from a GuardedCaller. Report is called on the
// faulting task's thread and may be called concurrently.
type Reporter interface {
	Report(f Fault)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(f Fault)

func (fn ReporterFunc) Report(f Fault) {
	fn(f)
}

// Reporters fans a fault out to every reporter in order. A panicking
// reporter does not stop delivery to the rest; the first such panic is
// re-raised once all reporters have run.
type Reporters []Reporter

func (rs Reporters) Report(f Fault) {
	var first any
	for _, r := range rs {
		if r == nil {
			continue
		}
		if v := reportOne(r, f); v != nil && first == nil {
			first = v
		}
	}
	if first != nil {
		panic(first)
	}
}

func reportOne(r Reporter, f Fault) (panicked any) {
	defer func() {
		panicked = recover()
	}()
	r.Report(f)
	return nil
}

// LogReporter writes each fault to a slog.Logger at error level.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates a LogReporter. A nil logger uses slog.Default().
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

func (l *LogReporter) Report(f Fault) {
	attrs := []any{
		"task_id", f.TaskID,
		"task", f.TaskName,
		"kind", string(f.Kind),
		"thread_id", f.ThreadID,
	}
	if f.Kind == KindPanic {
		attrs = append(attrs, "panic", f.Value, "stack", f.Stack)
	}
	l.logger.Error("task fault", attrs...)
}
