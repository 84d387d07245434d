package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidState reports a unit table or session that cannot be run:
// an undefined unit, a dependency cycle, or a unit with nothing to fetch.
var ErrInvalidState = errors.New("invalid state")

// Step names the phase of a unit run that failed.
type Step string

const (
	StepPrepare Step = "prepare"
	StepFetch   Step = "fetch"
	StepPatch   Step = "patch"
	StepInstall Step = "install"
)

// UnitError represents an error associated with a specific unit.
type UnitError struct {
	Unit string
	Step Step
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit '%s': %s: %v", e.Unit, e.Step, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// RunResult holds the outcome of a run.
type RunResult struct {
	Session string
	// Baseline is true when the manifest install ran.
	Baseline bool
	// Skipped is true when the platform gate stopped the run before any
	// unit was touched.
	Skipped bool
	// Completed lists the units installed by this call, in completion order.
	Completed []string
	// Reused lists roots that were already done earlier in the session.
	Reused []string
}

// Disk describes what a unit's local path holds.
type Disk string

const (
	DiskMissing Disk = "missing"
	DiskPresent Disk = "present"
	DiskCloned  Disk = "cloned"
)

// UnitStatus describes the current state of a unit.
type UnitStatus struct {
	ID        string
	Repo      string
	Path      string
	DependsOn []string
	Patches   int
	Disk      Disk
	// State is the session lifecycle state; "absent" outside a run.
	State string
	Err   error
}
