package workflow

import (
	"context"

	"opsdeck/internal/types"
)

// mockProjectStore implements types.ProjectStore for testing.
type mockProjectStore struct {
	createFunc func(ctx context.Context, record types.Project) (types.Project, error)
	fetchFunc  func(ctx context.Context, id string) (types.Project, error)
	patchFunc  func(ctx context.Context, id string, patch map[string]any) (types.Project, error)
	patches    []map[string]any
}

func (m *mockProjectStore) FetchProject(ctx context.Context, id string) (types.Project, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, id)
	}
	return types.Project{ID: id}, nil
}

func (m *mockProjectStore) CreateProject(ctx context.Context, record types.Project) (types.Project, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, record)
	}
	record.ID = "p-created"
	return record, nil
}

func (m *mockProjectStore) PatchProject(ctx context.Context, id string, patch map[string]any) (types.Project, error) {
	m.patches = append(m.patches, patch)
	if m.patchFunc != nil {
		return m.patchFunc(ctx, id, patch)
	}
	return types.Project{ID: id}, nil
}

// mockDirectoryStore implements types.DirectoryStore for testing.
type mockDirectoryStore struct {
	departments []types.Department
	employees   []types.Employee
}

func (m *mockDirectoryStore) FetchDepartments(context.Context, map[string]string) ([]types.Department, error) {
	return m.departments, nil
}

func (m *mockDirectoryStore) FetchEmployees(context.Context, map[string]string) ([]types.Employee, error) {
	return m.employees, nil
}

// mockKpiStore implements types.KpiStore for testing.
type mockKpiStore struct {
	commitFunc func(ctx context.Context, req types.CommitKpiRequest) (types.CommitKpiResult, error)
	requests   []types.CommitKpiRequest
}

func (m *mockKpiStore) CommitKpi(ctx context.Context, req types.CommitKpiRequest) (types.CommitKpiResult, error) {
	m.requests = append(m.requests, req)
	if m.commitFunc != nil {
		return m.commitFunc(ctx, req)
	}
	return types.CommitKpiResult{}, nil
}

// mockTaskStore implements types.TaskStore for testing.
type mockTaskStore struct {
	createFunc    func(ctx context.Context, req types.CreateTasksBulkRequest) error
	updateFunc    func(ctx context.Context, req types.UpdateTasksBulkRequest) error
	assignable    []types.AssignableDepartment
	createdBulks  []types.CreateTasksBulkRequest
	updatedBulks  []types.UpdateTasksBulkRequest
	assignableErr error
}

func (m *mockTaskStore) CreateTasksBulk(ctx context.Context, req types.CreateTasksBulkRequest) error {
	m.createdBulks = append(m.createdBulks, req)
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return nil
}

func (m *mockTaskStore) UpdateTasksBulk(ctx context.Context, req types.UpdateTasksBulkRequest) error {
	m.updatedBulks = append(m.updatedBulks, req)
	if m.updateFunc != nil {
		return m.updateFunc(ctx, req)
	}
	return nil
}

func (m *mockTaskStore) FetchAssignableTasks(context.Context, string) ([]types.AssignableDepartment, error) {
	return m.assignable, m.assignableErr
}

// mockAssignmentStore implements types.AssignmentStore for testing.
type mockAssignmentStore struct {
	submitFunc func(ctx context.Context, req types.SubmitAssignmentsRequest) error
	existing   []types.DepartmentAssignments
	submitted  []types.SubmitAssignmentsRequest
}

func (m *mockAssignmentStore) FetchExistingAssignments(context.Context, string) ([]types.DepartmentAssignments, error) {
	return m.existing, nil
}

func (m *mockAssignmentStore) SubmitAssignments(ctx context.Context, req types.SubmitAssignmentsRequest) error {
	m.submitted = append(m.submitted, req)
	if m.submitFunc != nil {
		return m.submitFunc(ctx, req)
	}
	return nil
}

func testStores() (Stores, *mockProjectStore, *mockKpiStore, *mockTaskStore, *mockAssignmentStore) {
	projects := &mockProjectStore{}
	kpiStore := &mockKpiStore{}
	tasks := &mockTaskStore{}
	assignments := &mockAssignmentStore{}
	directory := &mockDirectoryStore{
		employees: []types.Employee{
			{ID: "e-1", FirstName: "Ada", LastName: "Okoro", Department: "d-eng"},
			{ID: "e-2", FirstName: "Ben", LastName: "Silva", Department: "d-ops"},
		},
	}
	stores := Stores{
		Projects:    projects,
		Directory:   directory,
		Kpi:         kpiStore,
		Tasks:       tasks,
		Assignments: assignments,
	}
	return stores, projects, kpiStore, tasks, assignments
}
