package kpi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncompleteRow blocks appending a new criterion row while an existing row
// still has a blank label, a blank value or an explicit zero.
var ErrIncompleteRow = errors.New("complete the existing criteria rows before adding another")

// ZeroValueError reports a row whose value text is non-blank but parses to
// exactly 0. A blank value is tolerated while editing; an explicit zero never is.
type ZeroValueError struct {
	Department string
	Row        int
}

func (e *ZeroValueError) Error() string {
	return fmt.Sprintf("kpi criterion %d for department %s has a zero target value", e.Row, e.Department)
}

// SumMismatchError reports a department whose target values do not sum to
// exactly 100. Total carries the offending sum as text for inline display.
type SumMismatchError struct {
	Department string
	Total      string
}

func (e *SumMismatchError) Error() string {
	return fmt.Sprintf("kpi values for department %s sum to %s, expected 100", e.Department, e.Total)
}

// ValidationErrors aggregates the per-department failures found by Commit.
type ValidationErrors struct {
	ByDepartment map[string]error
}

func (e *ValidationErrors) Error() string {
	parts := make([]string, 0, len(e.ByDepartment))
	for _, err := range e.ByDepartment {
		parts = append(parts, err.Error())
	}
	return "kpi validation failed: " + strings.Join(parts, "; ")
}
