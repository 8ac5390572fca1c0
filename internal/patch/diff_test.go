package patch

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdeck/internal/types"
)

func TestDiff_IdenticalRecordsYieldEmptyPatch(t *testing.T) {
	rec := map[string]any{
		"name":        "Q3 Rollout",
		"description": "quarterly planning",
		"managers":    []any{"m-1", "m-2"},
		"dates": map[string]any{
			"start": "2026-09-01",
			"due":   "2026-12-01",
		},
	}
	assert.Empty(t, Diff(rec, rec))
}

func TestDiff_LeafChanges(t *testing.T) {
	original := map[string]any{"name": "Q3 Rollout", "description": "old"}
	updated := map[string]any{"name": "Q3 Rollout", "description": "new"}

	got := Diff(original, updated)
	assert.Equal(t, map[string]any{"description": "new"}, got)
}

func TestDiff_NestedRecordsRecurse(t *testing.T) {
	original := map[string]any{
		"name": "Q3 Rollout",
		"dates": map[string]any{
			"start": "2026-09-01",
			"due":   "2026-12-01",
		},
	}
	updated := map[string]any{
		"name": "Q3 Rollout",
		"dates": map[string]any{
			"start": "2026-09-01",
			"due":   "2027-01-15",
		},
	}

	got := Diff(original, updated)
	require.Contains(t, got, "dates")
	assert.Equal(t, map[string]any{"due": "2027-01-15"}, got["dates"])
	assert.NotContains(t, got, "name")
}

func TestDiff_ArraysReplacedWholesale(t *testing.T) {
	original := map[string]any{"managers": []any{"m-1", "m-2"}}
	updated := map[string]any{"managers": []any{"m-1", "m-3"}}

	got := Diff(original, updated)
	assert.Equal(t, []any{"m-1", "m-3"}, got["managers"])

	// Equal arrays produce nothing, even though they are distinct slices.
	same := map[string]any{"managers": []any{"m-1", "m-2"}}
	assert.Empty(t, Diff(original, same))
}

func TestDiff_MissingOriginalKeyTreatedAsZero(t *testing.T) {
	original := map[string]any{"name": "x"}

	// Zero-valued additions are not changes.
	updated := map[string]any{"name": "x", "description": "", "count": float64(0), "tags": []any{}}
	assert.Empty(t, Diff(original, updated))

	// Non-zero additions are.
	updated = map[string]any{"name": "x", "description": "added"}
	assert.Equal(t, map[string]any{"description": "added"}, Diff(original, updated))
}

func TestDiff_NewNestedRecordIncludedWhenNonEmpty(t *testing.T) {
	original := map[string]any{}
	updated := map[string]any{"dates": map[string]any{"start": "2026-09-01"}}

	got := Diff(original, updated)
	assert.Equal(t, map[string]any{"dates": map[string]any{"start": "2026-09-01"}}, got)
}

func TestDiff_MergeRestoresUpdatedProjection(t *testing.T) {
	original := map[string]any{
		"name":        "Q3 Rollout",
		"description": "old",
		"managers":    []any{"m-1"},
		"dates":       map[string]any{"start": "2026-09-01", "due": "2026-12-01"},
	}
	updated := map[string]any{
		"name":        "Q4 Rollout",
		"description": "old",
		"managers":    []any{"m-1", "m-2"},
		"dates":       map[string]any{"start": "2026-09-01", "due": "2027-01-15"},
	}

	merged := Merge(original, Diff(original, updated))
	for key, want := range updated {
		if diff := cmp.Diff(want, merged[key]); diff != "" {
			t.Errorf("merge mismatch for %q (-want +got):\n%s", key, diff)
		}
	}
}

func TestDiff_PatchNeverContainsUnchangedKeys(t *testing.T) {
	original := map[string]any{
		"a": "same",
		"b": float64(7),
		"c": map[string]any{"x": "same", "y": "old"},
	}
	updated := map[string]any{
		"a": "same",
		"b": float64(8),
		"c": map[string]any{"x": "same", "y": "new"},
	}

	got := Diff(original, updated)
	for key, val := range got {
		assert.False(t, cmp.Equal(original[key], val), "key %q equals original", key)
	}
}

func TestFromRecord_ProjectRoundTrip(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	proj := types.Project{
		ID:        "p-1",
		Name:      "Q3 Rollout",
		StartDate: start,
		Departments: types.SubsetOf(types.ProjectDepartment{
			DepartmentID: "d-1",
		}),
	}

	rec, err := FromRecord(proj)
	require.NoError(t, err)
	assert.Equal(t, "Q3 Rollout", rec["name"])

	// A record diffs empty against its own snapshot.
	again, err := FromRecord(proj)
	require.NoError(t, err)
	assert.Empty(t, Diff(rec, again))

	// Editing the typed record shows up as a minimal patch.
	proj.Name = "Q4 Rollout"
	edited, err := FromRecord(proj)
	require.NoError(t, err)
	got := Diff(rec, edited)
	assert.Equal(t, map[string]any{"name": "Q4 Rollout"}, got)
}
