// Package fault is the guarded-call layer that detached tasks run inside.
//
// A GuardedCaller invokes a task's entry point inside a recovery boundary and
// turns anything that escapes it into exactly one Fault delivered to a
// Reporter. What happens to the process afterwards is decided by Policy.
package fault

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies how a guarded call ended abnormally.
type Kind string

const (
	// KindPanic means the entry point panicked.
	KindPanic Kind = "panic"
	// KindGoexit means the entry point called runtime.Goexit.
	KindGoexit Kind = "goexit"
)

// Entry is the task entry point invoked with its captured environment.
type Entry func(env any)

// Call is one guarded invocation.
type Call struct {
	TaskID string
	Name   string
	Entry  Entry
	Env    any
}

// Fault describes an unrecovered failure inside a task.
type Fault struct {
	TaskID   string
	TaskName string
	Kind     Kind
	Value    any
	Stack    string
	ThreadID int
	At       time.Time
}

func (f Fault) Error() string {
	name := f.TaskName
	if name == "" {
		name = "anonymous"
	}
	if f.Kind == KindGoexit {
		return fmt.Sprintf("task %s (%s) exited via runtime.Goexit", f.TaskID, name)
	}
	return fmt.Sprintf("task %s (%s) panicked: %v", f.TaskID, name, f.Value)
}

// Unwrap exposes the panic value when it is an error.
func (f Fault) Unwrap() error {
	if err, ok := f.Value.(error); ok {
		return err
	}
	return nil
}

// AsFault reports whether err is or wraps a Fault.
func AsFault(err error) (Fault, bool) {
	var f Fault
	if errors.As(err, &f) {
		return f, true
	}
	return Fault{}, false
}
