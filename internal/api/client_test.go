package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"opsdeck/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

// newTestClient spins up a server around the handler and points a client at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Token: "tok-123", Timeout: 5 * time.Second})
}

func TestCreateProjectSendsBearerToken(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/projects", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var record types.Project
		require.NoError(t, json.NewDecoder(r.Body).Decode(&record))
		record.ID = "p-1"
		json.NewEncoder(w).Encode(record)
	})

	created, err := client.CreateProject(context.Background(), types.Project{Name: "Q3 Rollout"})
	require.NoError(t, err)
	assert.Equal(t, "p-1", created.ID)
	assert.Equal(t, "Q3 Rollout", created.Name)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestFetchProject(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/projects/p-1", r.URL.Path)
		json.NewEncoder(w).Encode(types.Project{ID: "p-1", Name: "Q3 Rollout"})
	})

	record, err := client.FetchProject(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Q3 Rollout", record.Name)
}

func TestPatchProjectSendsOnlyDelta(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/projects/p-1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(types.Project{ID: "p-1", Name: "After"})
	})

	updated, err := client.PatchProject(context.Background(), "p-1", map[string]any{"name": "After"})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Name)
	assert.Equal(t, map[string]any{"name": "After"}, gotBody)
}

func TestFetchEmployeesEncodesFilters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/employees", r.URL.Path)
		assert.Equal(t, "d-eng", r.URL.Query().Get("department"))
		json.NewEncoder(w).Encode([]types.Employee{{ID: "e-1", FirstName: "Ada"}})
	})

	employees, err := client.FetchEmployees(context.Background(), map[string]string{"department": "d-eng"})
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, "e-1", employees[0].ID)
}

func TestCommitKpiRoundTrip(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/p-1/kpi", r.URL.Path)
		var req types.CommitKpiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "p-1", req.ProjectID)
		json.NewEncoder(w).Encode(types.CommitKpiResult{Kpi: []types.KPICriterion{
			{ID: "k-1", Criteria: "Throughput", Value: 100, Department: "d-eng"},
		}})
	})

	result, err := client.CommitKpi(context.Background(), types.CommitKpiRequest{
		ProjectID: "p-1",
		DepartmentKpi: []types.DepartmentKpi{
			{Department: "d-eng", KpiCriteria: []types.KpiRow{{Criteria: "Throughput", Value: 100}}},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Kpi, 1)
	assert.Equal(t, "k-1", result.Kpi[0].ID)
}

func TestTaskEndpoints(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/projects/p-1/tasks/bulk":
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPatch && r.URL.Path == "/tasks/bulk":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet && r.URL.Path == "/projects/p-1/tasks/assignable":
			json.NewEncoder(w).Encode([]types.AssignableDepartment{{DepartmentID: "d-eng"}})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	require.NoError(t, client.CreateTasksBulk(ctx, types.CreateTasksBulkRequest{ProjectID: "p-1"}))
	require.NoError(t, client.UpdateTasksBulk(ctx, types.UpdateTasksBulkRequest{DeleteTasks: []string{"t-1"}}))

	departments, err := client.FetchAssignableTasks(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, departments, 1)
	assert.Equal(t, "d-eng", departments[0].DepartmentID)
}

func TestSubmitAssignments(t *testing.T) {
	var got types.SubmitAssignmentsRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/p-1/assignments", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	err := client.SubmitAssignments(context.Background(), types.SubmitAssignmentsRequest{
		ProjectID:  "p-1",
		AssignedBy: "mgr-1",
		AssignmentsData: []types.AssignmentRecord{
			{TaskIDs: []string{"t-1"}, EmployeeID: "e-1", AssignedBy: "mgr-1"},
		},
	})
	require.NoError(t, err)
	require.Len(t, got.AssignmentsData, 1)
	assert.Equal(t, "e-1", got.AssignmentsData[0].EmployeeID)
}

func TestNon2xxBecomesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"departments must sum to 100"}`))
	})

	_, err := client.CommitKpi(context.Background(), types.CommitKpiRequest{ProjectID: "p-1"})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Body, "sum to 100")
}

func TestContextCancellationPropagates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.FetchDepartments(ctx, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
