package fault

import (
	"fmt"
	"strings"
)

// Policy decides what a fault does to the rest of the process once it has
// been reported.
type Policy int

const (
	// PolicyIsolate ends only the faulting task.
	PolicyIsolate Policy = iota
	// PolicyExit terminates the process after the fault is reported.
	PolicyExit
)

// ExitCode is the status the process exits with under PolicyExit. It matches
// the status of an unrecovered Go panic.
const ExitCode = 2

var policyNames = map[Policy]string{
	PolicyIsolate: "isolate",
	PolicyExit:    "exit",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParsePolicy converts a config string to a Policy. The empty string maps to
// PolicyIsolate.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "isolate":
		return PolicyIsolate, nil
	case "exit":
		return PolicyExit, nil
	default:
		return PolicyIsolate, fmt.Errorf("unknown fault policy %q", s)
	}
}
