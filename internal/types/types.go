// Package types defines the domain records shared across the opsdeck
// orchestrator: projects, department selections, KPI criteria, work items,
// employees and assignments, plus the request/response shapes exchanged with
// the remote console API.
package types

import "time"

// SelectionKind tags the two shapes a department selection can take.
type SelectionKind string

const (
	SelectionAll    SelectionKind = "/all"    // Sentinel: every department participates
	SelectionSubset SelectionKind = "/subset" // Explicit list of departments
)

// DepartmentSelection is the tagged variant holding either the "all
// departments" sentinel or an explicit subset. The two states are mutually
// exclusive: selecting a single department while the sentinel is active
// collapses the selection to that one department.
type DepartmentSelection struct {
	Kind        SelectionKind       `json:"kind"`
	Departments []ProjectDepartment `json:"departments,omitempty"`
}

// AllDepartments returns the sentinel selection.
func AllDepartments() DepartmentSelection {
	return DepartmentSelection{Kind: SelectionAll}
}

// SubsetOf returns an explicit selection over the given departments.
func SubsetOf(departments ...ProjectDepartment) DepartmentSelection {
	return DepartmentSelection{Kind: SelectionSubset, Departments: departments}
}

// Select adds a department to the selection. If the sentinel is active the
// selection collapses to exactly the picked department.
func (s DepartmentSelection) Select(d ProjectDepartment) DepartmentSelection {
	if s.Kind == SelectionAll {
		return DepartmentSelection{Kind: SelectionSubset, Departments: []ProjectDepartment{d}}
	}
	for i, existing := range s.Departments {
		if existing.DepartmentID == d.DepartmentID {
			out := s
			out.Departments = append([]ProjectDepartment{}, s.Departments...)
			out.Departments[i] = d
			return out
		}
	}
	out := s
	out.Kind = SelectionSubset
	out.Departments = append(append([]ProjectDepartment{}, s.Departments...), d)
	return out
}

// Deselect removes a department from an explicit selection. Removing from the
// sentinel is a no-op.
func (s DepartmentSelection) Deselect(departmentID string) DepartmentSelection {
	if s.Kind != SelectionSubset {
		return s
	}
	out := DepartmentSelection{Kind: SelectionSubset}
	for _, d := range s.Departments {
		if d.DepartmentID != departmentID {
			out.Departments = append(out.Departments, d)
		}
	}
	return out
}

// IsEmpty reports whether nothing is selected. The sentinel is never empty.
func (s DepartmentSelection) IsEmpty() bool {
	return s.Kind != SelectionAll && len(s.Departments) == 0
}

// ProjectDepartment pairs a department with the subset of KPI criteria the
// operator attached to this project.
type ProjectDepartment struct {
	DepartmentID string         `json:"department_id"`
	KpiCriteria  []KPICriterion `json:"kpi_criteria,omitempty"`
}

// Project is the record created by step 0 of the workflow and patched on
// subsequent edits. It is never deleted by this subsystem.
type Project struct {
	ID          string              `json:"id,omitempty"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	StartDate   time.Time           `json:"start_date,omitempty"`
	DueDate     time.Time           `json:"due_date,omitempty"`
	Departments DepartmentSelection `json:"departments"`
	Managers    []string            `json:"managers,omitempty"`
}

// Department is a directory entry fetched from the remote store. The criteria
// attached here are templates the operator refines in the KPI ledger.
type Department struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	KpiCriteria     []KPICriterion `json:"kpi_criteria,omitempty"`
	ProjectManagers []string       `json:"project_managers,omitempty"`
}

// KPICriterion belongs to exactly one department. Value is a target
// percentage; for a department with at least one criterion the values must
// sum to exactly 100 and no individual value may be 0.
type KPICriterion struct {
	ID         string `json:"id,omitempty"`
	Criteria   string `json:"criteria"`
	Value      int    `json:"value"`
	Department string `json:"department,omitempty"`
}

// TaskOrigin distinguishes persisted work items from ones authored in the
// current session.
type TaskOrigin string

const (
	TaskExisting TaskOrigin = "/existing" // Carries a persisted id
	TaskNew      TaskOrigin = "/new"      // Carries a session-local id only
)

// Task is a work item under one (department, criterion) pair. New tasks are
// identified by a session-local id until a bulk submission persists them.
type Task struct {
	ID          string     `json:"id,omitempty"`       // Persisted id (existing tasks)
	LocalID     string     `json:"local_id,omitempty"` // Session-local id (new tasks)
	KpiID       string     `json:"kpi_id"`
	Department  string     `json:"department"`
	Description string     `json:"description"`
	Origin      TaskOrigin `json:"origin"`
}

// Ref returns the identifier valid for this task's origin.
func (t Task) Ref() TaskRef {
	if t.Origin == TaskNew {
		return TaskRef{Origin: TaskNew, ID: t.LocalID}
	}
	return TaskRef{Origin: TaskExisting, ID: t.ID}
}

// TaskRef identifies a task in the authoring ledger regardless of whether it
// has been persisted yet.
type TaskRef struct {
	Origin TaskOrigin `json:"origin"`
	ID     string     `json:"id"`
}

// Employee is a read-only directory entry.
type Employee struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Department string `json:"department"`
	Role       string `json:"role,omitempty"`
}

// FullName joins the employee's name parts for display.
func (e Employee) FullName() string {
	if e.FirstName == "" {
		return e.LastName
	}
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// Assignment is the ternary relation between a department, an employee and a
// set of task ids. WasPreAssigned marks records seeded from persisted
// assignments; it controls retention when the task set is emptied.
type Assignment struct {
	EmployeeID     string   `json:"employee_id"`
	DepartmentID   string   `json:"department_id"`
	TaskIDs        []string `json:"task_ids"`
	AssignedBy     string   `json:"assigned_by"`
	WasPreAssigned bool     `json:"was_pre_assigned"`
}

// HasTask reports whether the assignment already includes the task.
func (a *Assignment) HasTask(taskID string) bool {
	for _, id := range a.TaskIDs {
		if id == taskID {
			return true
		}
	}
	return false
}
