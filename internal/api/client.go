// Package api implements the HTTP client for the remote console API. One
// client satisfies all five store interfaces the workflow controller consumes;
// the server-side schema stays behind this package.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"opsdeck/internal/logging"
	"opsdeck/internal/types"
)

// DefaultTimeout bounds a single API call when the caller's context carries no
// deadline of its own.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 2048

// APIError is a non-2xx response from the console API.
type APIError struct {
	Status int
	Method string
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Config holds the client's connection settings.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks JSON to the console API. It implements types.ProjectStore,
// types.DirectoryStore, types.KpiStore, types.TaskStore and
// types.AssignmentStore.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds a client from config, applying DefaultTimeout when none is
// set.
func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    config.BaseURL,
		token:      config.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateProject persists a new project record and returns it with
// server-issued identifiers.
func (c *Client) CreateProject(ctx context.Context, record types.Project) (types.Project, error) {
	var created types.Project
	if err := c.doJSON(ctx, http.MethodPost, "/projects", record, &created); err != nil {
		return types.Project{}, fmt.Errorf("create project: %w", err)
	}
	return created, nil
}

// FetchProject returns the persisted project record.
func (c *Client) FetchProject(ctx context.Context, id string) (types.Project, error) {
	var record types.Project
	path := "/projects/" + url.PathEscape(id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &record); err != nil {
		return types.Project{}, fmt.Errorf("fetch project %s: %w", id, err)
	}
	return record, nil
}

// PatchProject applies a minimal patch to an existing project and returns the
// updated record.
func (c *Client) PatchProject(ctx context.Context, id string, delta map[string]any) (types.Project, error) {
	var updated types.Project
	path := "/projects/" + url.PathEscape(id)
	if err := c.doJSON(ctx, http.MethodPatch, path, delta, &updated); err != nil {
		return types.Project{}, fmt.Errorf("patch project %s: %w", id, err)
	}
	return updated, nil
}

// FetchDepartments lists the department directory, optionally filtered.
func (c *Client) FetchDepartments(ctx context.Context, filters map[string]string) ([]types.Department, error) {
	var departments []types.Department
	if err := c.doJSON(ctx, http.MethodGet, withQuery("/departments", filters), nil, &departments); err != nil {
		return nil, fmt.Errorf("fetch departments: %w", err)
	}
	return departments, nil
}

// FetchEmployees lists the employee directory, optionally filtered.
func (c *Client) FetchEmployees(ctx context.Context, filters map[string]string) ([]types.Employee, error) {
	var employees []types.Employee
	if err := c.doJSON(ctx, http.MethodGet, withQuery("/employees", filters), nil, &employees); err != nil {
		return nil, fmt.Errorf("fetch employees: %w", err)
	}
	return employees, nil
}

// CommitKpi pushes the normalized criteria set for every department in one
// call.
func (c *Client) CommitKpi(ctx context.Context, req types.CommitKpiRequest) (types.CommitKpiResult, error) {
	var result types.CommitKpiResult
	path := "/projects/" + url.PathEscape(req.ProjectID) + "/kpi"
	if err := c.doJSON(ctx, http.MethodPost, path, req, &result); err != nil {
		return types.CommitKpiResult{}, fmt.Errorf("commit kpi: %w", err)
	}
	return result, nil
}

// CreateTasksBulk persists the authored task set in one transaction.
func (c *Client) CreateTasksBulk(ctx context.Context, req types.CreateTasksBulkRequest) error {
	path := "/projects/" + url.PathEscape(req.ProjectID) + "/tasks/bulk"
	if err := c.doJSON(ctx, http.MethodPost, path, req, nil); err != nil {
		return fmt.Errorf("bulk create tasks: %w", err)
	}
	return nil
}

// UpdateTasksBulk applies the three change buckets in one transaction.
func (c *Client) UpdateTasksBulk(ctx context.Context, req types.UpdateTasksBulkRequest) error {
	if err := c.doJSON(ctx, http.MethodPatch, "/tasks/bulk", req, nil); err != nil {
		return fmt.Errorf("bulk update tasks: %w", err)
	}
	return nil
}

// FetchAssignableTasks lists the persisted work items per department for a
// project.
func (c *Client) FetchAssignableTasks(ctx context.Context, projectID string) ([]types.AssignableDepartment, error) {
	var departments []types.AssignableDepartment
	path := "/projects/" + url.PathEscape(projectID) + "/tasks/assignable"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &departments); err != nil {
		return nil, fmt.Errorf("fetch assignable tasks: %w", err)
	}
	return departments, nil
}

// FetchExistingAssignments returns the persisted assignment picture per
// department.
func (c *Client) FetchExistingAssignments(ctx context.Context, projectID string) ([]types.DepartmentAssignments, error) {
	var departments []types.DepartmentAssignments
	path := "/projects/" + url.PathEscape(projectID) + "/assignments"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &departments); err != nil {
		return nil, fmt.Errorf("fetch existing assignments: %w", err)
	}
	return departments, nil
}

// SubmitAssignments pushes the reconciled assignment batch.
func (c *Client) SubmitAssignments(ctx context.Context, req types.SubmitAssignmentsRequest) error {
	path := "/projects/" + url.PathEscape(req.ProjectID) + "/assignments"
	if err := c.doJSON(ctx, http.MethodPost, path, req, nil); err != nil {
		return fmt.Errorf("submit assignments: %w", err)
	}
	return nil
}

// doJSON performs one JSON round trip. A nil body sends no payload; a nil out
// discards the response body.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	// Apply the client timeout when the caller's context has no deadline.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.APIError("%s %s failed: %v", method, path, err)
		return err
	}
	defer resp.Body.Close()
	logging.APIDebug("%s %s -> %d (%v)", method, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Status: resp.StatusCode, Method: method, Path: path, Body: string(snippet)}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// withQuery appends filters as query parameters.
func withQuery(path string, filters map[string]string) string {
	if len(filters) == 0 {
		return path
	}
	q := url.Values{}
	for k, v := range filters {
		q.Set(k, v)
	}
	return path + "?" + q.Encode()
}
