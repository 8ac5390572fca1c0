package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"opsdeck/internal/assign"
	"opsdeck/internal/authoring"
	"opsdeck/internal/kpi"
	"opsdeck/internal/logging"
	"opsdeck/internal/patch"
	"opsdeck/internal/types"
)

// Stores bundles the external collaborators the controller drives.
type Stores struct {
	Projects    types.ProjectStore
	Directory   types.DirectoryStore
	Kpi         types.KpiStore
	Tasks       types.TaskStore
	Assignments types.AssignmentStore
}

// Controller is the finite-state sequencer over the three workflow steps. It
// owns the three ledgers exclusively; every mutation of workflow state goes
// through a method on this type, which keeps the cross-collection invariants
// testable in one place.
type Controller struct {
	mu        sync.Mutex
	mode      Mode
	step      Step
	completed map[Step]bool
	actor     string

	project  types.Project
	snapshot map[string]any // load-time record, update mode only

	kpiLedger  *kpi.Ledger
	taskLedger *authoring.Ledger
	engine     *assign.Engine

	assignable []types.AssignableDepartment

	stores Stores

	// One mutating network call in flight at a time; epoch discards a stale
	// response that resolves after a reset made it irrelevant.
	inFlight bool
	epoch    uint64
}

// NewCreateController starts a fresh creation workflow at step 0.
func NewCreateController(actor string, stores Stores) *Controller {
	return &Controller{
		mode:       ModeCreate,
		completed:  make(map[Step]bool),
		actor:      actor,
		kpiLedger:  kpi.NewLedger(),
		taskLedger: authoring.NewLedger(),
		engine:     assign.NewEngine(actor),
		stores:     stores,
	}
}

// NewUpdateController starts an update workflow over a persisted project. All
// three steps are pre-marked complete so navigation is free in both
// directions, and the load-time snapshot anchors step 0's minimal patch.
func NewUpdateController(actor string, stores Stores, project types.Project) (*Controller, error) {
	snapshot, err := patch.FromRecord(project)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot project %s: %w", project.ID, err)
	}
	c := &Controller{
		mode:       ModeUpdate,
		completed:  map[Step]bool{StepBasicInfo: true, StepKpiTask: true, StepAssign: true},
		actor:      actor,
		project:    project,
		snapshot:   snapshot,
		kpiLedger:  kpi.NewLedger(),
		taskLedger: authoring.NewLedger(),
		engine:     assign.NewEngine(actor),
		stores:     stores,
	}
	c.kpiLedger.SeedFromSelection(project.Departments)
	logging.Workflow("Update workflow opened for project %s", project.ID)
	return c, nil
}

// Mode returns the controller's flow mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Step returns the current step.
func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Completed reports whether a step has been completed.
func (c *Controller) Completed(s Step) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed[s]
}

// Project returns the working project record.
func (c *Controller) Project() types.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.project
}

// Kpi exposes the criteria ledger for step 1 editing.
func (c *Controller) Kpi() *kpi.Ledger {
	return c.kpiLedger
}

// Tasks exposes the authoring ledger for step 1 editing.
func (c *Controller) Tasks() *authoring.Ledger {
	return c.taskLedger
}

// Assignments exposes the reconciliation engine for step 2 editing.
func (c *Controller) Assignments() *assign.Engine {
	return c.engine
}

// AssignableTasks returns the fetched assignable work items per department.
func (c *Controller) AssignableTasks() []types.AssignableDepartment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.AssignableDepartment{}, c.assignable...)
}

// SetBasicInfo sets the step-0 fields of the working record.
func (c *Controller) SetBasicInfo(name, description string, managers []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.project.Name = name
	c.project.Description = description
	c.project.Managers = managers
}

// EditProject applies an arbitrary edit to the working record under the
// controller's lock.
func (c *Controller) EditProject(edit func(p *types.Project)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	edit(&c.project)
}

// SelectAllDepartments activates the "all departments" sentinel.
func (c *Controller) SelectAllDepartments() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.project.Departments = types.AllDepartments()
}

// SelectDepartment attaches a department (with its chosen criteria) to the
// selection. If the sentinel was active the selection collapses to exactly
// this department.
func (c *Controller) SelectDepartment(d types.ProjectDepartment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.project.Departments = c.project.Departments.Select(d)
}

// DeselectDepartment removes a department from an explicit selection.
func (c *Controller) DeselectDepartment(departmentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.project.Departments = c.project.Departments.Deselect(departmentID)
}

// Goto navigates between steps. Backward transitions are always permitted
// with no validation and no effect on the completed set. Forward (or same-
// step) transitions require the current step's validation to pass, which
// marks the current step completed. In update mode all steps are pre-marked
// complete and navigation is free in both directions.
func (c *Controller) Goto(target Step) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if target > StepAssign {
		return ErrNoForwardStep
	}
	if target < StepBasicInfo {
		return fmt.Errorf("no such step: %d", int(target))
	}
	if target < c.step {
		logging.WorkflowDebug("Backward navigation %s -> %s", c.step, target)
		c.step = target
		return nil
	}
	if c.mode == ModeUpdate {
		c.step = target
		return nil
	}
	if err := c.validateStep(c.step); err != nil {
		logging.WorkflowDebug("Forward navigation blocked at %s: %v", c.step, err)
		return err
	}
	c.completed[c.step] = true
	logging.Workflow("Step %s completed, moving to %s", c.step, target)
	c.step = target
	return nil
}

// validateStep runs the gate for a step. Ledger validation never panics;
// failures come back as error values for inline display.
func (c *Controller) validateStep(s Step) error {
	switch s {
	case StepBasicInfo:
		if strings.TrimSpace(c.project.Name) == "" {
			return &ValidationError{Step: s, Field: "name", Reason: "is required"}
		}
		if c.project.Departments.IsEmpty() {
			return &ValidationError{Step: s, Field: "departments", Reason: "select at least one"}
		}
		return nil
	case StepKpiTask:
		return c.taskLedger.Validate()
	default:
		return nil
	}
}

// SubmitBasicInfo persists step 0. In create mode the full record is created
// and the returned identifiers adopted; in update mode only the minimal patch
// against the load-time snapshot is sent, and an empty patch skips the call
// entirely.
func (c *Controller) SubmitBasicInfo(ctx context.Context) error {
	epoch, err := c.begin()
	if err != nil {
		return err
	}

	c.mu.Lock()
	mode := c.mode
	project := c.project
	snapshot := c.snapshot
	c.mu.Unlock()

	if mode == ModeCreate {
		created, err := c.stores.Projects.CreateProject(ctx, project)
		if err != nil {
			c.end(epoch, nil)
			return fmt.Errorf("project creation failed: %w", err)
		}
		c.end(epoch, func() {
			c.project = created
			c.kpiLedger.SeedFromSelection(created.Departments)
		})
		logging.Workflow("Project %s created", created.ID)
		return nil
	}

	edited, err := patch.FromRecord(project)
	if err != nil {
		c.end(epoch, nil)
		return err
	}
	delta := patch.Diff(snapshot, edited)
	if len(delta) == 0 {
		c.end(epoch, nil)
		logging.WorkflowDebug("Basic info unchanged for project %s, skipping patch", project.ID)
		return nil
	}
	updated, err := c.stores.Projects.PatchProject(ctx, project.ID, delta)
	if err != nil {
		c.end(epoch, nil)
		return fmt.Errorf("project patch failed: %w", err)
	}
	c.end(epoch, func() {
		c.project = updated
		if snap, serr := patch.FromRecord(updated); serr == nil {
			c.snapshot = snap
		}
	})
	logging.Workflow("Project %s patched (%d top-level keys)", project.ID, len(delta))
	return nil
}

// SubmitKpi commits the criteria ledger and adopts the server-confirmed
// criterion identifiers into the project's department selections.
func (c *Controller) SubmitKpi(ctx context.Context) error {
	epoch, err := c.begin()
	if err != nil {
		return err
	}

	c.mu.Lock()
	projectID := c.project.ID
	c.mu.Unlock()

	result, err := c.kpiLedger.Commit(ctx, projectID, c.stores.Kpi)
	if err != nil {
		c.end(epoch, nil)
		return err
	}
	c.end(epoch, func() {
		c.applyKpiResult(result)
	})
	return nil
}

// applyKpiResult adopts server-confirmed identifiers. Called under end's
// epoch check, with the lock held.
func (c *Controller) applyKpiResult(result types.CommitKpiResult) {
	if result.Project.ID != "" {
		c.project = result.Project
		return
	}
	confirmed := make(map[string][]types.KPICriterion)
	for _, crit := range result.Kpi {
		confirmed[crit.Department] = append(confirmed[crit.Department], crit)
	}
	for i, dept := range c.project.Departments.Departments {
		if criteria, ok := confirmed[dept.DepartmentID]; ok {
			c.project.Departments.Departments[i].KpiCriteria = criteria
		}
	}
}

// SubmitTasks persists the authoring ledger: one-shot bulk creation in create
// mode, the three change buckets in update mode. The ledger is cleared only
// after a confirmed submission.
func (c *Controller) SubmitTasks(ctx context.Context) error {
	epoch, err := c.begin()
	if err != nil {
		return err
	}

	c.mu.Lock()
	mode := c.mode
	projectID := c.project.ID
	c.mu.Unlock()

	if mode == ModeCreate {
		req := c.taskLedger.CreatePayload(projectID, c.actor)
		if err := c.stores.Tasks.CreateTasksBulk(ctx, req); err != nil {
			c.end(epoch, nil)
			return fmt.Errorf("bulk task creation failed: %w", err)
		}
	} else {
		req := c.taskLedger.Snapshot()
		if err := c.stores.Tasks.UpdateTasksBulk(ctx, req); err != nil {
			c.end(epoch, nil)
			return fmt.Errorf("bulk task update failed: %w", err)
		}
	}
	c.end(epoch, func() {
		c.taskLedger.Clear()
	})
	logging.Tasks("Task submission confirmed for project %s", projectID)
	return nil
}

// SubmitAssignments commits the reconciled batch and, on success, resets the
// entire controller: the workflow is over.
func (c *Controller) SubmitAssignments(ctx context.Context) error {
	epoch, err := c.begin()
	if err != nil {
		return err
	}

	c.mu.Lock()
	projectID := c.project.ID
	c.mu.Unlock()

	if err := c.engine.Commit(ctx, projectID, c.stores.Assignments); err != nil {
		c.end(epoch, nil)
		return err
	}
	c.end(epoch, func() {
		c.resetLocked()
	})
	return nil
}

// Reset returns the controller to step 0 with all ledgers cleared. Any
// in-flight call's result is discarded when it later resolves.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.step = StepBasicInfo
	c.completed = make(map[Step]bool)
	c.project = types.Project{}
	c.snapshot = nil
	c.assignable = nil
	c.kpiLedger = kpi.NewLedger()
	c.taskLedger.Clear()
	c.engine.Clear()
	c.epoch++
	logging.Workflow("Workflow reset")
}

// begin claims the single in-flight submission slot and captures the epoch.
func (c *Controller) begin() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return 0, ErrBusy
	}
	c.inFlight = true
	return c.epoch, nil
}

// end releases the slot and applies the result only if the epoch is
// unchanged; a response landing after a reset is ignored, not applied to a
// now-irrelevant ledger.
func (c *Controller) end(epoch uint64, apply func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if apply != nil && epoch == c.epoch {
		apply()
	}
}
