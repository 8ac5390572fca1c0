// Package assign implements the assignment reconciliation engine: the working
// set of employee-to-task-set mappings per department, distinguishing
// previously persisted assignments from ones created in the current session.
package assign

import (
	"context"
	"errors"
	"fmt"

	"opsdeck/internal/logging"
	"opsdeck/internal/types"
)

var (
	// ErrNotSeeded is returned while the engine still waits for the persisted
	// assignment records. Callers render a loading placeholder and defer
	// instead of operating on partial data.
	ErrNotSeeded = errors.New("assignment engine not seeded yet")

	// ErrAlreadyAssigned rejects selecting an employee who already holds an
	// assignment in any department.
	ErrAlreadyAssigned = errors.New("employee already has an assignment")
)

// Engine maintains the working set of assignments. At most one assignment
// exists per employee: exclusivity is global across departments, not
// per-department.
type Engine struct {
	seeded     bool
	assignedBy string
	directory  []types.Employee
	working    map[string]*types.Assignment // by employee id
	order      []string                     // stable iteration order
}

// NewEngine creates an engine attributing new assignments to the given actor.
func NewEngine(assignedBy string) *Engine {
	return &Engine{
		assignedBy: assignedBy,
		working:    make(map[string]*types.Assignment),
	}
}

// SetDirectory installs the read-only employee directory.
func (e *Engine) SetDirectory(employees []types.Employee) {
	e.directory = append([]types.Employee{}, employees...)
}

// Seed materializes assignments from the persisted per-department records. An
// employee enters the working set with wasPreAssigned=true only when at least
// one of their tasks is marked assigned; employees with zero assigned tasks
// are not materialized and so remain selectable as available.
func (e *Engine) Seed(departments []types.DepartmentAssignments) {
	e.working = make(map[string]*types.Assignment)
	e.order = nil
	for _, dept := range departments {
		for _, emp := range dept.Assignments {
			taskIDs := []string{}
			for _, mark := range emp.Tasks {
				if mark.Assigned {
					taskIDs = append(taskIDs, mark.ID)
				}
			}
			if len(taskIDs) == 0 {
				continue
			}
			e.put(&types.Assignment{
				EmployeeID:     emp.EmployeeID,
				DepartmentID:   dept.DepartmentID,
				TaskIDs:        taskIDs,
				AssignedBy:     e.assignedBy,
				WasPreAssigned: true,
			})
		}
	}
	e.seeded = true
	logging.Assign("Seeded assignment engine: %d pre-assigned employees", len(e.order))
}

// SeedEmpty marks the engine seeded with no persisted records (creation flow).
func (e *Engine) SeedEmpty() {
	e.working = make(map[string]*types.Assignment)
	e.order = nil
	e.seeded = true
}

// Seeded reports whether seed data has arrived.
func (e *Engine) Seeded() bool {
	return e.seeded
}

// AvailableEmployees returns the directory employees of a department who hold
// no assignment anywhere. An employee assigned in any department is excluded
// globally. An empty department id lists across all departments.
func (e *Engine) AvailableEmployees(departmentID string) ([]types.Employee, error) {
	if !e.seeded {
		return nil, ErrNotSeeded
	}
	out := []types.Employee{}
	for _, emp := range e.directory {
		if departmentID != "" && emp.Department != departmentID {
			continue
		}
		if _, taken := e.working[emp.ID]; taken {
			continue
		}
		out = append(out, emp)
	}
	return out, nil
}

// SelectEmployee creates a fresh assignment with an empty task set for an
// unassigned employee.
func (e *Engine) SelectEmployee(departmentID string, employee types.Employee) error {
	if !e.seeded {
		return ErrNotSeeded
	}
	if _, taken := e.working[employee.ID]; taken {
		return fmt.Errorf("%w: %s", ErrAlreadyAssigned, employee.ID)
	}
	e.put(&types.Assignment{
		EmployeeID:     employee.ID,
		DepartmentID:   departmentID,
		TaskIDs:        []string{},
		AssignedBy:     e.assignedBy,
		WasPreAssigned: false,
	})
	logging.AssignDebug("Selected employee %s for department %s", employee.ID, departmentID)
	return nil
}

// ToggleTask adds or removes a task from an employee's assignment. Emptying a
// never-pre-assigned assignment deletes it from the working set (an
// accidental, never-confirmed selection); a pre-assigned assignment is
// retained with an empty task set, which is the explicitly-revoked state.
func (e *Engine) ToggleTask(employeeID, taskID string, included bool) error {
	if !e.seeded {
		return ErrNotSeeded
	}
	a, ok := e.working[employeeID]
	if !ok {
		return fmt.Errorf("employee %s has no assignment in the working set", employeeID)
	}
	if included {
		if !a.HasTask(taskID) {
			a.TaskIDs = append(a.TaskIDs, taskID)
		}
		return nil
	}
	kept := a.TaskIDs[:0]
	for _, id := range a.TaskIDs {
		if id != taskID {
			kept = append(kept, id)
		}
	}
	a.TaskIDs = kept
	if len(a.TaskIDs) == 0 && !a.WasPreAssigned {
		e.remove(employeeID)
		logging.AssignDebug("Pruned empty assignment for employee %s", employeeID)
	}
	return nil
}

// RemoveEmployee retracts an employee. A pre-assigned record keeps an emptied
// task set so the retraction is part of the working state; a session-created
// record is deleted outright.
func (e *Engine) RemoveEmployee(employeeID string) error {
	if !e.seeded {
		return ErrNotSeeded
	}
	a, ok := e.working[employeeID]
	if !ok {
		return fmt.Errorf("employee %s has no assignment in the working set", employeeID)
	}
	if a.WasPreAssigned {
		a.TaskIDs = []string{}
		return nil
	}
	e.remove(employeeID)
	return nil
}

// Assignment returns the working assignment for an employee, if present.
func (e *Engine) Assignment(employeeID string) (types.Assignment, bool) {
	a, ok := e.working[employeeID]
	if !ok {
		return types.Assignment{}, false
	}
	return *a, true
}

// Working returns a copy of the full working set in stable order, including
// retained-but-emptied pre-assigned records.
func (e *Engine) Working() []types.Assignment {
	out := make([]types.Assignment, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, *e.working[id])
	}
	return out
}

// Restore replaces the working set from a draft snapshot.
func (e *Engine) Restore(assignments []types.Assignment) {
	e.working = make(map[string]*types.Assignment)
	e.order = nil
	for i := range assignments {
		a := assignments[i]
		e.put(&a)
	}
	e.seeded = true
}

// Commit filters out assignments with empty task sets, projects the remainder
// to batch records and submits them in one call. A retained-but-emptied
// pre-assigned record is absent from the batch; whether the server reads
// absence as full unassignment is an integration contract, not decided here.
func (e *Engine) Commit(ctx context.Context, projectID string, store types.AssignmentStore) error {
	if !e.seeded {
		return ErrNotSeeded
	}
	req := types.SubmitAssignmentsRequest{
		ProjectID:  projectID,
		AssignedBy: e.assignedBy,
	}
	for _, id := range e.order {
		a := e.working[id]
		if len(a.TaskIDs) == 0 {
			continue
		}
		req.AssignmentsData = append(req.AssignmentsData, types.AssignmentRecord{
			TaskIDs:    append([]string{}, a.TaskIDs...),
			EmployeeID: a.EmployeeID,
			AssignedBy: a.AssignedBy,
		})
	}
	logging.Assign("Submitting %d assignments for project %s", len(req.AssignmentsData), projectID)
	if err := store.SubmitAssignments(ctx, req); err != nil {
		logging.AssignError("Assignment submission failed: %v", err)
		return fmt.Errorf("assignment submission failed: %w", err)
	}
	return nil
}

// Clear empties the working set and returns the engine to the unseeded state.
func (e *Engine) Clear() {
	e.working = make(map[string]*types.Assignment)
	e.order = nil
	e.seeded = false
}

func (e *Engine) put(a *types.Assignment) {
	if _, ok := e.working[a.EmployeeID]; !ok {
		e.order = append(e.order, a.EmployeeID)
	}
	e.working[a.EmployeeID] = a
}

func (e *Engine) remove(employeeID string) {
	delete(e.working, employeeID)
	for i, id := range e.order {
		if id == employeeID {
			e.order = append(e.order[:i], e.order[i+1:]...)
			return
		}
	}
}
