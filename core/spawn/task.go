// Package spawn launches tasks on detached OS threads.
//
// Spawn copies the task into a heap box, starts a new thread locked to a
// fresh goroutine, and returns without waiting. The thread runs the task
// inside a fault.GuardedCaller and releases the box when the task ends,
// whether it returned, panicked, or called runtime.Goexit. Nothing joins the
// thread: when the goroutine returns while still locked, the Go runtime
// destroys the thread.
//
// There is no handle, result, cancellation, or back-pressure. The only
// failure a caller sees is a launch failure, reported synchronously.
package spawn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/adalundhe/strand/core/fault"
)

var (
	ErrInvalidTask  = errors.New("invalid task")
	ErrThreadCreate = errors.New("thread creation failed")
)

// Entry is a task entry point. It receives the environment captured in the
// task descriptor.
type Entry = fault.Entry

// Task describes one unit of detached work. It is copied by value into the
// launcher at the call boundary; anything Env points to stays shared and is
// the caller's to synchronize.
type Task struct {
	// Name labels the task in logs and fault reports. Optional.
	Name  string
	Entry Entry
	Env   any
}

// Func wraps a closure as a Task with no environment.
func Func(name string, fn func()) Task {
	var entry Entry
	if fn != nil {
		entry = func(any) { fn() }
	}
	return Task{Name: name, Entry: entry}
}

func (t Task) validate() error {
	if t.Entry == nil {
		return fmt.Errorf("%w: nil entry point", ErrInvalidTask)
	}
	return nil
}

// LaunchError reports a task that was never started. The task's box has
// already been released when it is returned.
type LaunchError struct {
	TaskID   string
	TaskName string
	Cause    error
}

func (e *LaunchError) Error() string {
	var b strings.Builder
	b.WriteString("spawn ")
	if e.TaskName != "" {
		b.WriteString(e.TaskName)
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "(%s): %v: %v", e.TaskID, ErrThreadCreate, e.Cause)
	return b.String()
}

// Unwrap lets errors.Is match both ErrThreadCreate and the underlying cause.
func (e *LaunchError) Unwrap() []error {
	return []error{ErrThreadCreate, e.Cause}
}
