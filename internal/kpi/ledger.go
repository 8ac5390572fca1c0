// Package kpi implements the per-department criteria ledger: editable
// (criterion, target-percentage) rows with sum-to-100 validation and an
// explicit commit that pushes the normalized set to the remote store.
package kpi

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"opsdeck/internal/logging"
	"opsdeck/internal/types"
)

// Row is one editable (criterion, value) pair. Value stays text while the
// operator edits; it may be blank mid-edit but never an explicit zero.
type Row struct {
	Criteria string `json:"criteria"`
	Value    string `json:"value"`
}

// DepartmentRows holds one department's editable rows.
type DepartmentRows struct {
	Department string `json:"department"`
	Rows       []Row  `json:"rows"`
}

// Ledger owns the editable criteria rows for every participating department
// and tracks per-department validation errors. Validation never panics; errors
// are stored as values the workflow controller reads before allowing a
// transition.
type Ledger struct {
	departments []DepartmentRows
	errs        map[string]error // keyed by department id
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{errs: make(map[string]error)}
}

// SeedFromSelection prefills rows from the criteria templates attached to the
// project's department selection, replacing any previous rows.
func (l *Ledger) SeedFromSelection(selection types.DepartmentSelection) {
	l.departments = nil
	l.errs = make(map[string]error)
	for _, dept := range selection.Departments {
		rows := make([]Row, 0, len(dept.KpiCriteria))
		for _, c := range dept.KpiCriteria {
			value := ""
			if c.Value != 0 {
				value = strconv.Itoa(c.Value)
			}
			rows = append(rows, Row{Criteria: c.Criteria, Value: value})
		}
		if len(rows) == 0 {
			rows = append(rows, Row{})
		}
		l.departments = append(l.departments, DepartmentRows{Department: dept.DepartmentID, Rows: rows})
	}
	logging.Kpi("Seeded criteria ledger: %d departments", len(l.departments))
}

// Departments returns a copy of the current rows, for rendering and draft
// persistence.
func (l *Ledger) Departments() []DepartmentRows {
	out := make([]DepartmentRows, len(l.departments))
	for i, d := range l.departments {
		out[i] = DepartmentRows{Department: d.Department, Rows: append([]Row{}, d.Rows...)}
	}
	return out
}

// Restore replaces the ledger contents with a previously captured snapshot.
func (l *Ledger) Restore(departments []DepartmentRows) {
	l.departments = departments
	l.errs = make(map[string]error)
}

// Err returns the stored validation error for a department, if any.
func (l *Ledger) Err(department string) error {
	return l.errs[department]
}

// AddCriterion appends an empty row to a department. It is rejected while any
// existing row in that department has a blank label, a blank value or an
// explicit zero, so half-finished rows cannot pile up.
func (l *Ledger) AddCriterion(deptIndex int) error {
	dept, err := l.at(deptIndex)
	if err != nil {
		return err
	}
	for _, row := range dept.Rows {
		if strings.TrimSpace(row.Criteria) == "" || strings.TrimSpace(row.Value) == "" {
			return ErrIncompleteRow
		}
		if v, perr := parseValue(row.Value); perr == nil && v == 0 {
			return ErrIncompleteRow
		}
	}
	dept.Rows = append(dept.Rows, Row{})
	return nil
}

// RemoveCriterion deletes a row. The "never reduce a department to zero rows"
// rule is guarded at the UI boundary, not here.
func (l *Ledger) RemoveCriterion(deptIndex, rowIndex int) error {
	dept, err := l.at(deptIndex)
	if err != nil {
		return err
	}
	if rowIndex < 0 || rowIndex >= len(dept.Rows) {
		return fmt.Errorf("row index %d out of range for department %s", rowIndex, dept.Department)
	}
	dept.Rows = append(dept.Rows[:rowIndex], dept.Rows[rowIndex+1:]...)
	l.ValidateDepartment(deptIndex)
	return nil
}

// SetLabel mutates a row's criterion label and revalidates the department.
func (l *Ledger) SetLabel(deptIndex, rowIndex int, label string) error {
	dept, err := l.at(deptIndex)
	if err != nil {
		return err
	}
	if rowIndex < 0 || rowIndex >= len(dept.Rows) {
		return fmt.Errorf("row index %d out of range for department %s", rowIndex, dept.Department)
	}
	dept.Rows[rowIndex].Criteria = label
	l.ValidateDepartment(deptIndex)
	return nil
}

// SetValue mutates a row's target value and revalidates the department.
func (l *Ledger) SetValue(deptIndex, rowIndex int, value string) error {
	dept, err := l.at(deptIndex)
	if err != nil {
		return err
	}
	if rowIndex < 0 || rowIndex >= len(dept.Rows) {
		return fmt.Errorf("row index %d out of range for department %s", rowIndex, dept.Department)
	}
	dept.Rows[rowIndex].Value = value
	l.ValidateDepartment(deptIndex)
	return nil
}

// ValidateDepartment checks one department's rows: an explicit zero value
// fails with ZeroValueError, a sum other than exactly 100 fails with
// SumMismatchError. A passing department has its stored error cleared.
// Blank values count as 0 toward the sum without tripping the zero check.
func (l *Ledger) ValidateDepartment(deptIndex int) error {
	dept, err := l.at(deptIndex)
	if err != nil {
		return err
	}

	total := 0.0
	for i, row := range dept.Rows {
		raw := strings.TrimSpace(row.Value)
		if raw == "" {
			continue
		}
		v, perr := parseValue(raw)
		if perr != nil {
			continue // unparsable text contributes nothing; commit drops it
		}
		if v == 0 {
			verr := &ZeroValueError{Department: dept.Department, Row: i}
			l.errs[dept.Department] = verr
			return verr
		}
		total += v
	}
	if total != 100 {
		verr := &SumMismatchError{Department: dept.Department, Total: formatTotal(total)}
		l.errs[dept.Department] = verr
		return verr
	}
	delete(l.errs, dept.Department)
	return nil
}

// Commit validates every department and, when all pass, builds the submission
// payload and hands it to the external store. Rows with a blank label or a
// value at or below zero are dropped from the payload; surviving values are
// coerced to numbers. On validation failure all per-department errors are
// returned together and nothing is submitted.
func (l *Ledger) Commit(ctx context.Context, projectID string, store types.KpiStore) (types.CommitKpiResult, error) {
	failures := make(map[string]error)
	for i := range l.departments {
		if err := l.ValidateDepartment(i); err != nil {
			failures[l.departments[i].Department] = err
		}
	}
	if len(failures) > 0 {
		logging.KpiWarn("KPI commit blocked: %d departments failing validation", len(failures))
		return types.CommitKpiResult{}, &ValidationErrors{ByDepartment: failures}
	}

	req := types.CommitKpiRequest{ProjectID: projectID}
	for _, dept := range l.departments {
		entry := types.DepartmentKpi{Department: dept.Department}
		for _, row := range dept.Rows {
			label := strings.TrimSpace(row.Criteria)
			v, perr := parseValue(row.Value)
			if label == "" || perr != nil || v <= 0 {
				continue
			}
			entry.KpiCriteria = append(entry.KpiCriteria, types.KpiRow{Criteria: label, Value: int(v)})
		}
		req.DepartmentKpi = append(req.DepartmentKpi, entry)
	}
	sort.Slice(req.DepartmentKpi, func(i, j int) bool {
		return req.DepartmentKpi[i].Department < req.DepartmentKpi[j].Department
	})

	logging.Kpi("Committing KPI criteria for project %s (%d departments)", projectID, len(req.DepartmentKpi))
	result, err := store.CommitKpi(ctx, req)
	if err != nil {
		logging.KpiError("KPI commit failed: %v", err)
		return types.CommitKpiResult{}, fmt.Errorf("kpi commit failed: %w", err)
	}
	return result, nil
}

// at resolves a department index with bounds checking.
func (l *Ledger) at(deptIndex int) (*DepartmentRows, error) {
	if deptIndex < 0 || deptIndex >= len(l.departments) {
		return nil, fmt.Errorf("department index %d out of range", deptIndex)
	}
	return &l.departments[deptIndex], nil
}

func parseValue(raw string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}

// formatTotal renders a sum without trailing zeros (90, not 90.000000).
func formatTotal(total float64) string {
	return strconv.FormatFloat(total, 'f', -1, 64)
}
