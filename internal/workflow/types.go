// Package workflow implements the top-level step controller for the project
// configuration flow: a three-step sequencer that gates forward progress on
// step-specific validation and composes the KPI ledger, the task authoring
// ledger and the assignment engine into a single create/update flow.
package workflow

import (
	"errors"
	"fmt"
)

// Step indexes the workflow's three steps.
type Step int

const (
	StepBasicInfo Step = iota // Project record and department selection
	StepKpiTask               // KPI criteria and task authoring
	StepAssign                // Assignment reconciliation (terminal)
)

// String names a step for logs and error messages.
func (s Step) String() string {
	switch s {
	case StepBasicInfo:
		return "basic_info"
	case StepKpiTask:
		return "kpi_task"
	case StepAssign:
		return "assign"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Mode distinguishes the create flow from the update flow.
type Mode string

const (
	ModeCreate Mode = "/create" // New project, gated forward transitions
	ModeUpdate Mode = "/update" // Persisted project, free navigation + patching
)

// ErrBusy rejects a mutating call while another submission is in flight.
// The UI disables the triggering control for the duration of a call; this is
// the data-layer backstop for the same rule.
var ErrBusy = errors.New("another submission is in flight")

// ErrNoForwardStep is returned when advancing past the terminal step.
var ErrNoForwardStep = errors.New("assign is the terminal step")

// ValidationError is a blocking, step-local failure. It is surfaced inline
// and never propagated to the network layer.
type ValidationError struct {
	Step   Step
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Step, e.Field, e.Reason)
}
