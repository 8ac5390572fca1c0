package types

import "context"

// Collaborator interfaces for the external stores the orchestrator depends
// on. Transport is out of scope here; internal/api provides the HTTP
// implementation and tests substitute mocks.

// ProjectStore creates, fetches and patches project records.
type ProjectStore interface {
	// CreateProject persists a new project and returns the stored record.
	CreateProject(ctx context.Context, record Project) (Project, error)
	// FetchProject returns the persisted record for an update workflow.
	FetchProject(ctx context.Context, id string) (Project, error)
	// PatchProject applies a minimal partial update. Keys absent from the
	// patch are left untouched server-side.
	PatchProject(ctx context.Context, id string, patch map[string]any) (Project, error)
}

// DirectoryStore looks up departments and employees.
type DirectoryStore interface {
	FetchDepartments(ctx context.Context, filters map[string]string) ([]Department, error)
	FetchEmployees(ctx context.Context, filters map[string]string) ([]Employee, error)
}

// KpiStore commits the normalized per-department criteria sets.
type KpiStore interface {
	CommitKpi(ctx context.Context, req CommitKpiRequest) (CommitKpiResult, error)
}

// TaskStore persists authored work items and lists assignable ones.
type TaskStore interface {
	CreateTasksBulk(ctx context.Context, req CreateTasksBulkRequest) error
	UpdateTasksBulk(ctx context.Context, req UpdateTasksBulkRequest) error
	FetchAssignableTasks(ctx context.Context, projectID string) ([]AssignableDepartment, error)
}

// AssignmentStore reads persisted assignments and accepts the final batch.
type AssignmentStore interface {
	FetchExistingAssignments(ctx context.Context, projectID string) ([]DepartmentAssignments, error)
	SubmitAssignments(ctx context.Context, req SubmitAssignmentsRequest) error
}
