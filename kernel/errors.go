// Package kernel holds the small set of types shared across the memory
// subsystem's packages, plus the bring-up sequencing that ties them
// together.
package kernel

import "fmt"

// Error is a construction-time failure attributable to a specific
// subsystem. Boot uses it as its panic value when a bring-up step
// returns an error, tagging the failure with the module it came from;
// the mem and pmm packages themselves report plain error values, and
// panic directly on every other fatal condition.
type Error struct {
	Module  string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Module, e.Message)
}
