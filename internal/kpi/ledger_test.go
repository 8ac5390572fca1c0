package kpi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdeck/internal/types"
)

// fakeKpiStore records the committed payload.
type fakeKpiStore struct {
	req    types.CommitKpiRequest
	result types.CommitKpiResult
	err    error
	calls  int
}

func (f *fakeKpiStore) CommitKpi(_ context.Context, req types.CommitKpiRequest) (types.CommitKpiResult, error) {
	f.calls++
	f.req = req
	return f.result, f.err
}

func seededLedger(rows map[string][]Row) *Ledger {
	l := NewLedger()
	var selection types.DepartmentSelection
	selection.Kind = types.SelectionSubset
	for _, dept := range []string{"d-eng", "d-ops", "d-sales"} {
		if _, ok := rows[dept]; ok {
			selection.Departments = append(selection.Departments, types.ProjectDepartment{DepartmentID: dept})
		}
	}
	l.SeedFromSelection(selection)
	for i, d := range l.departments {
		l.departments[i].Rows = rows[d.Department]
	}
	return l
}

func TestValidateDepartment_SumOf100Passes(t *testing.T) {
	l := seededLedger(map[string][]Row{
		"d-eng": {{"A", "25"}, {"B", "25"}, {"C", "50"}},
	})
	require.NoError(t, l.ValidateDepartment(0))
	assert.NoError(t, l.Err("d-eng"))
}

func TestValidateDepartment_SumMismatchCarriesTotal(t *testing.T) {
	l := seededLedger(map[string][]Row{
		"d-eng": {{"A", "20"}, {"B", "30"}},
	})
	err := l.ValidateDepartment(0)
	var mismatch *SumMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "50", mismatch.Total)
	assert.Error(t, l.Err("d-eng"))
}

func TestValidateDepartment_ExplicitZeroFails(t *testing.T) {
	l := seededLedger(map[string][]Row{
		"d-eng": {{"A", "100"}, {"B", "0"}},
	})
	err := l.ValidateDepartment(0)
	var zero *ZeroValueError
	require.ErrorAs(t, err, &zero)
	assert.Equal(t, 1, zero.Row)
}

func TestValidateDepartment_BlankValueCountsAsZeroWithoutError(t *testing.T) {
	// A blank value is a mid-edit state, not an explicit zero. It contributes
	// nothing to the sum, so here the total comes out at 100 and passes.
	l := seededLedger(map[string][]Row{
		"d-eng": {{"A", "60"}, {"B", "40"}, {"C", ""}},
	})
	assert.NoError(t, l.ValidateDepartment(0))
}

func TestAddCriterion(t *testing.T) {
	cases := []struct {
		name    string
		rows    []Row
		wantErr bool
	}{
		{"all rows complete", []Row{{"A", "50"}, {"B", "50"}}, false},
		{"blank label", []Row{{"", "50"}}, true},
		{"blank value", []Row{{"A", ""}}, true},
		{"zero value", []Row{{"A", "0"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := seededLedger(map[string][]Row{"d-eng": tc.rows})
			err := l.AddCriterion(0)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrIncompleteRow)
				assert.Len(t, l.departments[0].Rows, len(tc.rows))
				return
			}
			require.NoError(t, err)
			require.Len(t, l.departments[0].Rows, len(tc.rows)+1)
			assert.Equal(t, Row{}, l.departments[0].Rows[len(tc.rows)])
		})
	}
}

func TestRemoveCriterionRevalidates(t *testing.T) {
	l := seededLedger(map[string][]Row{
		"d-eng": {{"A", "50"}, {"B", "50"}, {"C", "10"}},
	})
	require.Error(t, l.ValidateDepartment(0))

	require.NoError(t, l.RemoveCriterion(0, 2))
	assert.NoError(t, l.Err("d-eng"))
}

func TestSetValueStoresAndClearsErrors(t *testing.T) {
	l := seededLedger(map[string][]Row{
		"d-eng": {{"A", "50"}, {"B", "50"}},
	})
	require.NoError(t, l.SetValue(0, 1, "40"))
	assert.Error(t, l.Err("d-eng"))

	require.NoError(t, l.SetValue(0, 1, "50"))
	assert.NoError(t, l.Err("d-eng"))
}

func TestCommit_AbortsWithAllDepartmentErrors(t *testing.T) {
	l := seededLedger(map[string][]Row{
		"d-eng":   {{"A", "90"}},
		"d-ops":   {{"A", "100"}, {"B", "0"}},
		"d-sales": {{"A", "100"}},
	})
	store := &fakeKpiStore{}

	_, err := l.Commit(context.Background(), "p-1", store)
	var verrs *ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs.ByDepartment, 2)
	assert.Contains(t, verrs.ByDepartment, "d-eng")
	assert.Contains(t, verrs.ByDepartment, "d-ops")
	assert.Zero(t, store.calls, "nothing may be submitted on validation failure")
}

func TestCommit_DropsBlankRowsAndCoercesValues(t *testing.T) {
	l := seededLedger(map[string][]Row{
		"d-eng": {{"Quality", "60"}, {"Throughput", "40"}, {"", ""}, {"Orphan", ""}},
	})
	store := &fakeKpiStore{result: types.CommitKpiResult{}}

	_, err := l.Commit(context.Background(), "p-1", store)
	require.NoError(t, err)
	require.Equal(t, 1, store.calls)
	require.Len(t, store.req.DepartmentKpi, 1)
	assert.Equal(t, "p-1", store.req.ProjectID)
	assert.Equal(t, []types.KpiRow{
		{Criteria: "Quality", Value: 60},
		{Criteria: "Throughput", Value: 40},
	}, store.req.DepartmentKpi[0].KpiCriteria)
}

func TestCommit_StoreFailureSurfacesSubmissionError(t *testing.T) {
	l := seededLedger(map[string][]Row{
		"d-eng": {{"A", "100"}},
	})
	store := &fakeKpiStore{err: errors.New("upstream 503")}

	_, err := l.Commit(context.Background(), "p-1", store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 503")
}
