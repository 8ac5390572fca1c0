package types

// Request/response shapes for the remote console API. These mirror the
// client-observable contract only; the server-side schema is not defined here.

// CommitKpiRequest pushes the normalized criteria set for every department.
type CommitKpiRequest struct {
	ProjectID     string          `json:"project_id"`
	DepartmentKpi []DepartmentKpi `json:"department_kpi"`
}

// DepartmentKpi carries one department's committed criteria rows.
type DepartmentKpi struct {
	Department  string   `json:"department"`
	KpiCriteria []KpiRow `json:"kpi_criteria"`
}

// KpiRow is a single committed (criterion, value) pair.
type KpiRow struct {
	Criteria string `json:"criteria"`
	Value    int    `json:"value"`
}

// CommitKpiResult returns the updated project plus the server-confirmed
// criteria, carrying the ids the project's department selections must adopt.
type CommitKpiResult struct {
	Project Project        `json:"project"`
	Kpi     []KPICriterion `json:"kpi"`
}

// CreateTasksBulkRequest persists newly authored tasks in one transaction
// (project-creation flow).
type CreateTasksBulkRequest struct {
	ProjectID string            `json:"project_id"`
	CreatedBy string            `json:"created_by"`
	Data      []DepartmentTasks `json:"data"`
}

// DepartmentTasks groups authored descriptions per criterion for one department.
type DepartmentTasks struct {
	DepartmentID string           `json:"department_id"`
	Criteria     []CriterionTasks `json:"criteria"`
}

// CriterionTasks lists the authored descriptions under one criterion.
type CriterionTasks struct {
	Kpi     string   `json:"kpi"`
	Details []string `json:"details"`
}

// TaskUpdate is an edited existing task destined for a bulk update.
type TaskUpdate struct {
	ID      string `json:"id"`
	Details string `json:"details"`
}

// NewTask is a session-authored task destined for a bulk update.
type NewTask struct {
	KpiID      string `json:"kpi_id"`
	Details    string `json:"details"`
	Department string `json:"department"`
}

// UpdateTasksBulkRequest applies the three change buckets of the authoring
// ledger in one transaction (project-update flow).
type UpdateTasksBulkRequest struct {
	OldTasks    []TaskUpdate `json:"old_tasks"`
	NewTasks    []NewTask    `json:"new_tasks"`
	DeleteTasks []string     `json:"delete_tasks"`
}

// AssignableTask is a persisted work item an employee can be assigned to.
type AssignableTask struct {
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
}

// AssignableDepartment lists the assignable work items for one department.
type AssignableDepartment struct {
	DepartmentID   string           `json:"department_id"`
	DepartmentName string           `json:"department_name"`
	Tasks          []AssignableTask `json:"tasks"`
}

// AssignedTaskMark marks whether a task is currently assigned to an employee
// in the persisted assignment records.
type AssignedTaskMark struct {
	ID       string `json:"_id"`
	Assigned bool   `json:"assigned"`
}

// EmployeeAssignments is one employee's persisted per-task assignment state.
type EmployeeAssignments struct {
	EmployeeID   string             `json:"employee_id"`
	EmployeeName string             `json:"employee_name"`
	Tasks        []AssignedTaskMark `json:"tasks"`
}

// DepartmentAssignments is the persisted assignment picture for one department,
// used to seed the reconciliation engine.
type DepartmentAssignments struct {
	DepartmentID   string                `json:"department_id"`
	DepartmentName string                `json:"department_name"`
	Tasks          []AssignableTask      `json:"tasks"`
	Assignments    []EmployeeAssignments `json:"assignments"`
}

// AssignmentRecord is one row of the final assignment batch.
type AssignmentRecord struct {
	TaskIDs    []string `json:"task_ids"`
	EmployeeID string   `json:"employee_id"`
	AssignedBy string   `json:"assigned_by"`
}

// SubmitAssignmentsRequest submits the reconciled assignment set as one batch.
// An employee absent from the batch carries no assignments; whether the server
// treats absence as full unassignment is an integration contract.
type SubmitAssignmentsRequest struct {
	ProjectID       string             `json:"project_id"`
	AssignedBy      string             `json:"assigned_by"`
	AssignmentsData []AssignmentRecord `json:"assignments_data"`
}
