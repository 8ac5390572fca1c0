package workflow

import (
	"opsdeck/internal/authoring"
	"opsdeck/internal/kpi"
	"opsdeck/internal/types"
)

// Draft is the serializable form of an in-progress workflow, persisted by the
// draft store so an operator can resume later.
type Draft struct {
	Mode            Mode                         `json:"mode"`
	Step            Step                         `json:"step"`
	Completed       []Step                       `json:"completed,omitempty"`
	Project         types.Project                `json:"project"`
	ProjectSnapshot map[string]any               `json:"project_snapshot,omitempty"`
	Kpi             []kpi.DepartmentRows         `json:"kpi,omitempty"`
	Tasks           authoring.State              `json:"tasks"`
	Assignments     []types.Assignment           `json:"assignments,omitempty"`
	Seeded          bool                         `json:"seeded"`
	Assignable      []types.AssignableDepartment `json:"assignable,omitempty"`
}

// Snapshot captures the controller's full state for draft persistence.
func (c *Controller) Snapshot() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := Draft{
		Mode:            c.mode,
		Step:            c.step,
		Project:         c.project,
		ProjectSnapshot: c.snapshot,
		Kpi:             c.kpiLedger.Departments(),
		Tasks:           c.taskLedger.State(),
		Seeded:          c.engine.Seeded(),
		Assignable:      append([]types.AssignableDepartment{}, c.assignable...),
	}
	for s := StepBasicInfo; s <= StepAssign; s++ {
		if c.completed[s] {
			d.Completed = append(d.Completed, s)
		}
	}
	if c.engine.Seeded() {
		d.Assignments = c.engine.Working()
	}
	return d
}

// RestoreDraft rebuilds a controller from a persisted draft.
func RestoreDraft(d Draft, actor string, stores Stores) *Controller {
	c := NewCreateController(actor, stores)
	c.mode = d.Mode
	c.step = d.Step
	c.project = d.Project
	c.snapshot = d.ProjectSnapshot
	c.assignable = append([]types.AssignableDepartment{}, d.Assignable...)
	for _, s := range d.Completed {
		c.completed[s] = true
	}
	c.kpiLedger.Restore(d.Kpi)
	c.taskLedger.RestoreState(d.Tasks)
	if d.Seeded {
		c.engine.Restore(d.Assignments)
	}
	return c
}
