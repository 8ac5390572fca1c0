package workflow

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"opsdeck/internal/logging"
	"opsdeck/internal/types"
)

// seedData is everything step 2 needs before it can render: the employee
// directory, the assignable work items and the persisted assignments.
type seedData struct {
	employees  []types.Employee
	assignable []types.AssignableDepartment
	existing   []types.DepartmentAssignments
}

// loadSeed fetches the three seed collections concurrently. Any failure
// aborts the whole load; the assignment step must never operate on partial
// data.
func loadSeed(ctx context.Context, stores Stores, projectID string) (*seedData, error) {
	g, ctx := errgroup.WithContext(ctx)
	seed := &seedData{}

	g.Go(func() error {
		employees, err := stores.Directory.FetchEmployees(ctx, nil)
		if err != nil {
			return fmt.Errorf("employee directory fetch failed: %w", err)
		}
		seed.employees = employees
		return nil
	})
	g.Go(func() error {
		assignable, err := stores.Tasks.FetchAssignableTasks(ctx, projectID)
		if err != nil {
			return fmt.Errorf("assignable task fetch failed: %w", err)
		}
		seed.assignable = assignable
		return nil
	})
	g.Go(func() error {
		existing, err := stores.Assignments.FetchExistingAssignments(ctx, projectID)
		if err != nil {
			return fmt.Errorf("existing assignment fetch failed: %w", err)
		}
		seed.existing = existing
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return seed, nil
}

// LoadAssignments fetches the seed collections for the assignment step and
// seeds the reconciliation engine. In the creation flow the persisted
// assignment set is simply empty; the same path covers both modes.
func (c *Controller) LoadAssignments(ctx context.Context) error {
	epoch, err := c.begin()
	if err != nil {
		return err
	}

	c.mu.Lock()
	projectID := c.project.ID
	c.mu.Unlock()

	seed, err := loadSeed(ctx, c.stores, projectID)
	if err != nil {
		c.end(epoch, nil)
		return err
	}
	c.end(epoch, func() {
		c.assignable = seed.assignable
		c.engine.SetDirectory(seed.employees)
		c.engine.Seed(seed.existing)
	})
	logging.Workflow("Assignment seed loaded for project %s: %d employees, %d departments",
		projectID, len(seed.employees), len(seed.assignable))
	return nil
}

// LoadDepartments fetches the department directory, used to expand the
// all-departments sentinel into concrete selections carrying each
// department's criteria templates.
func (c *Controller) LoadDepartments(ctx context.Context) ([]types.Department, error) {
	departments, err := c.stores.Directory.FetchDepartments(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("department directory fetch failed: %w", err)
	}
	return departments, nil
}

// LoadExistingTasks pulls the persisted work items into the authoring
// ledger's visible grouping (update flow).
func (c *Controller) LoadExistingTasks(ctx context.Context) error {
	c.mu.Lock()
	projectID := c.project.ID
	c.mu.Unlock()

	assignable, err := c.stores.Tasks.FetchAssignableTasks(ctx, projectID)
	if err != nil {
		return fmt.Errorf("existing task fetch failed: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, dept := range assignable {
		// Without per-task criterion data in the fetch shape, seeded tasks
		// group under the department's first criterion.
		kpiID := ""
		for _, pd := range c.project.Departments.Departments {
			if pd.DepartmentID == dept.DepartmentID && len(pd.KpiCriteria) > 0 {
				kpiID = pd.KpiCriteria[0].ID
			}
		}
		c.taskLedger.SeedExisting(dept.DepartmentID, kpiID, dept.Tasks)
	}
	return nil
}
