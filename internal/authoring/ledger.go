// Package authoring implements the task authoring ledger: per-criterion work
// item collections tracked as three change buckets (existing-edited,
// newly-authored, deleted) for bulk submission.
//
// Every task authored in the current session receives a session-local unique
// id at creation time; all subsequent edits and removals resolve through that
// id. Two new tasks under the same criterion with identical text therefore
// stay distinguishable.
package authoring

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"opsdeck/internal/logging"
	"opsdeck/internal/types"
)

// ErrNoTasks blocks the project-creation flow from advancing until at least
// one department has at least one authored task.
var ErrNoTasks = errors.New("author at least one task for at least one department")

// GroupKey addresses the visible grouping of tasks under one
// (department, criterion) pair.
type GroupKey struct {
	Department string `json:"department"`
	KpiID      string `json:"kpi_id"`
}

// Ledger tracks all client-side task authoring until a bulk submission
// persists it. The visible grouping drives rendering; the three buckets drive
// the update payload.
type Ledger struct {
	groups  map[GroupKey][]types.Task
	keys    []GroupKey                 // insertion order of groups
	old     map[string]types.TaskUpdate // edited existing tasks, by persisted id
	added   map[string]types.NewTask    // session-authored tasks, by local id
	deleted []string                    // persisted ids pending deletion
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		groups: make(map[GroupKey][]types.Task),
		old:    make(map[string]types.TaskUpdate),
		added:  make(map[string]types.NewTask),
	}
}

// SeedExisting loads persisted tasks into the visible grouping (update flow).
// Seeded tasks enter no change bucket until they are edited or removed.
func (l *Ledger) SeedExisting(department, kpiID string, tasks []types.AssignableTask) {
	key := GroupKey{Department: department, KpiID: kpiID}
	l.ensureGroup(key)
	for _, t := range tasks {
		l.groups[key] = append(l.groups[key], types.Task{
			ID:          t.TaskID,
			KpiID:       kpiID,
			Department:  department,
			Description: t.Description,
			Origin:      types.TaskExisting,
		})
	}
}

// AddTask authors a new task under a (department, criterion) pair. Blank text
// is a no-op. The returned ref carries the session-local id used for all
// later edits and removals.
func (l *Ledger) AddTask(department, kpiID, text string) (types.TaskRef, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.TaskRef{}, false
	}
	localID := uuid.NewString()
	key := GroupKey{Department: department, KpiID: kpiID}
	l.ensureGroup(key)
	l.groups[key] = append(l.groups[key], types.Task{
		LocalID:     localID,
		KpiID:       kpiID,
		Department:  department,
		Description: text,
		Origin:      types.TaskNew,
	})
	l.added[localID] = types.NewTask{KpiID: kpiID, Details: text, Department: department}
	logging.TasksDebug("Authored task %s under (%s, %s)", localID, department, kpiID)
	return types.TaskRef{Origin: types.TaskNew, ID: localID}, true
}

// EditTask replaces a task's description. Existing tasks are recorded in the
// edited bucket; new tasks have their pending entry rewritten.
func (l *Ledger) EditTask(ref types.TaskRef, newText string) error {
	newText = strings.TrimSpace(newText)
	task := l.find(ref)
	if task == nil {
		return fmt.Errorf("task %s not found in ledger", ref.ID)
	}
	task.Description = newText
	switch ref.Origin {
	case types.TaskExisting:
		l.old[ref.ID] = types.TaskUpdate{ID: ref.ID, Details: newText}
	case types.TaskNew:
		entry, ok := l.added[ref.ID]
		if !ok {
			return fmt.Errorf("new task %s missing from pending bucket", ref.ID)
		}
		entry.Details = newText
		l.added[ref.ID] = entry
	}
	return nil
}

// RemoveTask deletes a task from the visible grouping. An existing task's id
// moves to the deletion bucket (and leaves the edited bucket); a new task is
// simply dropped since it was never persisted.
func (l *Ledger) RemoveTask(ref types.TaskRef) error {
	if l.find(ref) == nil {
		return fmt.Errorf("task %s not found in ledger", ref.ID)
	}
	for key, tasks := range l.groups {
		for i, t := range tasks {
			if t.Ref() == ref {
				l.groups[key] = append(tasks[:i], tasks[i+1:]...)
				break
			}
		}
	}
	switch ref.Origin {
	case types.TaskExisting:
		delete(l.old, ref.ID)
		l.deleted = append(l.deleted, ref.ID)
	case types.TaskNew:
		delete(l.added, ref.ID)
	}
	return nil
}

// Tasks returns the visible tasks for a (department, criterion) pair.
func (l *Ledger) Tasks(department, kpiID string) []types.Task {
	return append([]types.Task{}, l.groups[GroupKey{Department: department, KpiID: kpiID}]...)
}

// HasAnyTask reports whether any group holds at least one task.
func (l *Ledger) HasAnyTask() bool {
	for _, tasks := range l.groups {
		if len(tasks) > 0 {
			return true
		}
	}
	return false
}

// Validate enforces the project-creation gate: at least one department must
// have at least one authored task.
func (l *Ledger) Validate() error {
	if !l.HasAnyTask() {
		return ErrNoTasks
	}
	return nil
}

// Snapshot returns the three change buckets for bulk submission, in
// deterministic order. The caller clears the ledger after a confirmed
// submission.
func (l *Ledger) Snapshot() types.UpdateTasksBulkRequest {
	req := types.UpdateTasksBulkRequest{
		DeleteTasks: append([]string{}, l.deleted...),
	}
	for _, id := range sortedKeys(l.old) {
		req.OldTasks = append(req.OldTasks, l.old[id])
	}
	// New tasks keep authoring order via the visible grouping.
	for _, key := range l.keys {
		for _, t := range l.groups[key] {
			if t.Origin == types.TaskNew {
				req.NewTasks = append(req.NewTasks, l.added[t.LocalID])
			}
		}
	}
	return req
}

// CreatePayload groups the session-authored descriptions per department and
// criterion for the one-shot creation submission.
func (l *Ledger) CreatePayload(projectID, createdBy string) types.CreateTasksBulkRequest {
	req := types.CreateTasksBulkRequest{ProjectID: projectID, CreatedBy: createdBy}
	byDept := make(map[string]*types.DepartmentTasks)
	deptOrder := []string{}
	for _, key := range l.keys {
		details := []string{}
		for _, t := range l.groups[key] {
			if t.Origin == types.TaskNew {
				details = append(details, t.Description)
			}
		}
		if len(details) == 0 {
			continue
		}
		dept, ok := byDept[key.Department]
		if !ok {
			dept = &types.DepartmentTasks{DepartmentID: key.Department}
			byDept[key.Department] = dept
			deptOrder = append(deptOrder, key.Department)
		}
		dept.Criteria = append(dept.Criteria, types.CriterionTasks{Kpi: key.KpiID, Details: details})
	}
	for _, id := range deptOrder {
		req.Data = append(req.Data, *byDept[id])
	}
	return req
}

// Clear empties all groupings and change buckets after a confirmed submission.
func (l *Ledger) Clear() {
	l.groups = make(map[GroupKey][]types.Task)
	l.keys = nil
	l.old = make(map[string]types.TaskUpdate)
	l.added = make(map[string]types.NewTask)
	l.deleted = nil
	logging.TasksDebug("Authoring ledger cleared")
}

func (l *Ledger) ensureGroup(key GroupKey) {
	if _, ok := l.groups[key]; ok {
		return
	}
	l.groups[key] = []types.Task{}
	l.keys = append(l.keys, key)
}

// find locates the visible task for a ref.
func (l *Ledger) find(ref types.TaskRef) *types.Task {
	for key := range l.groups {
		tasks := l.groups[key]
		for i := range tasks {
			if tasks[i].Ref() == ref {
				return &tasks[i]
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]types.TaskUpdate) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
