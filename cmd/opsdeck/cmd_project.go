package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"opsdeck/internal/drafts"
	"opsdeck/internal/types"
	"opsdeck/internal/workflow"
)

var (
	planFile  string
	resumeID  string
	saveDraft bool
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Create or update a project configuration",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Run the full creation workflow from a plan file",
	Long: `Drives the three-step creation workflow from a declarative plan:
basic info and department selection, KPI criteria, task authoring, and
task assignment. On failure the in-progress state is saved as a draft
that --resume can pick up later.

Example plan:

  project:
    name: Q3 Rollout
    departments:
      - id: d-eng
        criteria:
          - {label: Throughput, value: 60}
          - {label: Reliability, value: 40}
  tasks:
    - department: d-eng
      criterion: Throughput
      details: ["Ship the migration"]
  assignments:
    - employee: e-1
      department: d-eng
      tasks: ["Ship the migration"]`,
	RunE: runProjectCreate,
}

var projectUpdateCmd = &cobra.Command{
	Use:   "update [project-id]",
	Short: "Patch an existing project from a plan file",
	Long: `Opens the update workflow over a persisted project. Basic-info
changes are submitted as a minimal patch against the fetched record;
tasks listed in the plan are authored on top of the existing set.`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectUpdate,
}

// plan is the declarative input for a whole workflow run.
type plan struct {
	Project     planProject      `yaml:"project"`
	Tasks       []planTaskGroup  `yaml:"tasks"`
	Assignments []planAssignment `yaml:"assignments"`
}

type planProject struct {
	Name           string           `yaml:"name"`
	Description    string           `yaml:"description"`
	Managers       []string         `yaml:"managers"`
	AllDepartments bool             `yaml:"all_departments"`
	Departments    []planDepartment `yaml:"departments"`
}

type planDepartment struct {
	ID       string          `yaml:"id"`
	Criteria []planCriterion `yaml:"criteria"`
}

type planCriterion struct {
	Label string `yaml:"label"`
	Value int    `yaml:"value"`
}

type planTaskGroup struct {
	Department string   `yaml:"department"`
	Criterion  string   `yaml:"criterion"` // Criterion label within the department
	Details    []string `yaml:"details"`
}

type planAssignment struct {
	Employee   string   `yaml:"employee"`
	Department string   `yaml:"department"`
	Tasks      []string `yaml:"tasks"` // Matched against assignable descriptions
}

func loadPlan(path string) (*plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	var p plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse plan file: %w", err)
	}
	return &p, nil
}

func openDraftStore() (*drafts.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Drafts.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create draft directory: %w", err)
	}
	return drafts.Open(cfg.Drafts.DatabasePath)
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, err := loadPlan(planFile)
	if err != nil {
		return err
	}

	stores := consoleStores()
	var ctrl *workflow.Controller
	if resumeID != "" {
		store, err := openDraftStore()
		if err != nil {
			return err
		}
		var d workflow.Draft
		loadErr := store.Load(resumeID, &d)
		store.Close()
		if loadErr != nil {
			return loadErr
		}
		ctrl = workflow.RestoreDraft(d, cfg.Defaults.Actor, stores)
		logger.Info("Resumed draft", zap.String("draft", resumeID), zap.String("step", ctrl.Step().String()))
	} else {
		ctrl = workflow.NewCreateController(cfg.Defaults.Actor, stores)
	}

	if err := runCreateStages(ctx, ctrl, p); err != nil {
		if saveDraft {
			if id, derr := persistDraft(ctrl, resumeID); derr == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Progress saved as draft %s\n", id)
			} else {
				logger.Warn("Failed to save draft", zap.Error(derr))
			}
		}
		return err
	}
	if resumeID != "" {
		if store, derr := openDraftStore(); derr == nil {
			_ = store.Delete(resumeID)
			store.Close()
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Project workflow completed")
	return nil
}

// runCreateStages executes the remaining workflow stages, starting from the
// controller's current step so a resumed draft skips finished work.
func runCreateStages(ctx context.Context, ctrl *workflow.Controller, p *plan) error {
	if ctrl.Step() == workflow.StepBasicInfo {
		if err := applyPlanBasicInfo(ctx, ctrl, &p.Project); err != nil {
			return err
		}
		if err := ctrl.SubmitBasicInfo(ctx); err != nil {
			return err
		}
		if err := ctrl.Goto(workflow.StepKpiTask); err != nil {
			return err
		}
		logger.Info("Project created", zap.String("project", ctrl.Project().ID))
	}

	if ctrl.Step() == workflow.StepKpiTask {
		if err := ctrl.SubmitKpi(ctx); err != nil {
			return err
		}
		if err := applyPlanTasks(ctrl, p.Tasks); err != nil {
			return err
		}
		if err := ctrl.Goto(workflow.StepAssign); err != nil {
			return err
		}
		if err := ctrl.SubmitTasks(ctx); err != nil {
			return err
		}
		logger.Info("KPI criteria and tasks submitted", zap.String("project", ctrl.Project().ID))
	}

	if err := ctrl.LoadAssignments(ctx); err != nil {
		return err
	}
	if err := applyPlanAssignments(ctrl, p.Assignments); err != nil {
		return err
	}
	return ctrl.SubmitAssignments(ctx)
}

// applyPlanBasicInfo fills step 0 from the plan. Department criteria become
// seed templates for the KPI ledger. The all-departments sentinel is expanded
// against the directory so each department contributes its own templates.
func applyPlanBasicInfo(ctx context.Context, ctrl *workflow.Controller, pp *planProject) error {
	ctrl.SetBasicInfo(pp.Name, pp.Description, pp.Managers)
	if pp.AllDepartments {
		ctrl.SelectAllDepartments()
		departments, err := ctrl.LoadDepartments(ctx)
		if err != nil {
			return err
		}
		ctrl.EditProject(func(pr *types.Project) {
			for _, dept := range departments {
				pr.Departments.Departments = append(pr.Departments.Departments, types.ProjectDepartment{
					DepartmentID: dept.ID,
					KpiCriteria:  dept.KpiCriteria,
				})
			}
		})
		return nil
	}
	for _, dept := range pp.Departments {
		pd := types.ProjectDepartment{DepartmentID: dept.ID}
		for _, crit := range dept.Criteria {
			pd.KpiCriteria = append(pd.KpiCriteria, types.KPICriterion{
				Criteria:   crit.Label,
				Value:      crit.Value,
				Department: dept.ID,
			})
		}
		ctrl.SelectDepartment(pd)
	}
	return nil
}

// applyPlanTasks authors the plan's tasks, resolving each criterion label to
// the server-confirmed criterion id adopted by the KPI submission.
func applyPlanTasks(ctrl *workflow.Controller, groups []planTaskGroup) error {
	for _, group := range groups {
		kpiID, err := resolveCriterion(ctrl.Project(), group.Department, group.Criterion)
		if err != nil {
			return err
		}
		for _, text := range group.Details {
			ctrl.Tasks().AddTask(group.Department, kpiID, text)
		}
	}
	return nil
}

func resolveCriterion(project types.Project, departmentID, label string) (string, error) {
	for _, dept := range project.Departments.Departments {
		if dept.DepartmentID != departmentID {
			continue
		}
		for _, crit := range dept.KpiCriteria {
			if strings.EqualFold(crit.Criteria, label) {
				return crit.ID, nil
			}
		}
		return "", fmt.Errorf("criterion %q not found in department %s", label, departmentID)
	}
	return "", fmt.Errorf("department %s not part of the project", departmentID)
}

// applyPlanAssignments selects each planned employee and toggles their tasks,
// matching plan descriptions against the assignable set.
func applyPlanAssignments(ctrl *workflow.Controller, assignments []planAssignment) error {
	assignable := ctrl.AssignableTasks()
	engine := ctrl.Assignments()
	for _, pa := range assignments {
		if err := engine.SelectEmployee(pa.Department, types.Employee{
			ID:         pa.Employee,
			Department: pa.Department,
		}); err != nil {
			return err
		}
		for _, desc := range pa.Tasks {
			taskID, err := resolveAssignableTask(assignable, pa.Department, desc)
			if err != nil {
				return err
			}
			if err := engine.ToggleTask(pa.Employee, taskID, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func resolveAssignableTask(departments []types.AssignableDepartment, departmentID, description string) (string, error) {
	for _, dept := range departments {
		if dept.DepartmentID != departmentID {
			continue
		}
		for _, task := range dept.Tasks {
			if strings.EqualFold(strings.TrimSpace(task.Description), strings.TrimSpace(description)) {
				return task.TaskID, nil
			}
		}
	}
	return "", fmt.Errorf("no assignable task %q in department %s", description, departmentID)
}

func persistDraft(ctrl *workflow.Controller, id string) (string, error) {
	store, err := openDraftStore()
	if err != nil {
		return "", err
	}
	defer store.Close()
	d := ctrl.Snapshot()
	return store.Save(id, d.Project.Name, string(d.Mode), d)
}

func runProjectUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	projectID := args[0]
	p, err := loadPlan(planFile)
	if err != nil {
		return err
	}

	stores := consoleStores()
	record, err := stores.Projects.FetchProject(ctx, projectID)
	if err != nil {
		return err
	}
	ctrl, err := workflow.NewUpdateController(cfg.Defaults.Actor, stores, record)
	if err != nil {
		return err
	}

	// Step 0: apply plan edits, submit the minimal patch.
	if p.Project.Name != "" {
		ctrl.EditProject(func(pr *types.Project) { pr.Name = p.Project.Name })
	}
	if p.Project.Description != "" {
		ctrl.EditProject(func(pr *types.Project) { pr.Description = p.Project.Description })
	}
	if len(p.Project.Managers) > 0 {
		ctrl.EditProject(func(pr *types.Project) { pr.Managers = p.Project.Managers })
	}
	if err := ctrl.SubmitBasicInfo(ctx); err != nil {
		return err
	}

	// Step 1: author any additional tasks on top of the existing set.
	if len(p.Tasks) > 0 {
		if err := ctrl.LoadExistingTasks(ctx); err != nil {
			return err
		}
		if err := applyPlanTasks(ctrl, p.Tasks); err != nil {
			return err
		}
		if err := ctrl.SubmitTasks(ctx); err != nil {
			return err
		}
	}

	// Step 2: reconcile assignments when the plan names any.
	if len(p.Assignments) > 0 {
		if err := ctrl.LoadAssignments(ctx); err != nil {
			return err
		}
		if err := applyPlanAssignments(ctrl, p.Assignments); err != nil {
			return err
		}
		if err := ctrl.SubmitAssignments(ctx); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Project %s updated\n", projectID)
	return nil
}

func init() {
	projectCreateCmd.Flags().StringVarP(&planFile, "file", "f", "", "plan file (yaml)")
	projectCreateCmd.MarkFlagRequired("file")
	projectCreateCmd.Flags().StringVar(&resumeID, "resume", "", "resume a saved draft by id")
	projectCreateCmd.Flags().BoolVar(&saveDraft, "save-draft", true, "save progress as a draft on failure")

	projectUpdateCmd.Flags().StringVarP(&planFile, "file", "f", "", "plan file (yaml)")
	projectUpdateCmd.MarkFlagRequired("file")

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectUpdateCmd)
}
