// Package patch computes minimal partial-update payloads for incremental
// project edits. A patch contains only the keys whose values actually changed;
// keys absent from the patch are left untouched server-side.
package patch

import (
	"encoding/json"
	"fmt"

	"github.com/google/go-cmp/cmp"
)

// Diff computes a minimal patch between an original and an edited nested
// record. For every key present in updated: plain nested records recurse and
// are included only when the recursive diff is non-empty; all other values
// (including arrays, which are replaced wholesale, never merged element-wise)
// are included with updated's full value when not deeply equal to original's.
// Keys missing from original are treated as the zero value of their type, so
// an updated key holding a zero value over a missing original key produces no
// patch entry. Diff is pure and idempotent: Diff(x, x) is always empty.
func Diff(original, updated map[string]any) map[string]any {
	out := map[string]any{}
	for key, uv := range updated {
		ov, present := original[key]

		um, uIsRecord := uv.(map[string]any)
		if uIsRecord {
			om, _ := ov.(map[string]any)
			if om == nil {
				om = map[string]any{}
			}
			if sub := Diff(om, um); len(sub) > 0 {
				out[key] = sub
			}
			continue
		}

		if !present {
			if isZero(uv) {
				continue
			}
			out[key] = uv
			continue
		}
		if !cmp.Equal(ov, uv) {
			out[key] = uv
		}
	}
	return out
}

// Merge applies a patch on top of an original record, recursing into nested
// records the same way Diff does. Neither input is mutated.
func Merge(original, patch map[string]any) map[string]any {
	out := make(map[string]any, len(original)+len(patch))
	for k, v := range original {
		out[k] = v
	}
	for key, pv := range patch {
		pm, pIsRecord := pv.(map[string]any)
		om, oIsRecord := out[key].(map[string]any)
		if pIsRecord && oIsRecord {
			out[key] = Merge(om, pm)
			continue
		}
		out[key] = pv
	}
	return out
}

// FromRecord converts a typed record into the plain nested form Diff operates
// on, via a JSON round trip. Snapshots captured at load time go through this
// helper so update-mode submissions diff like-for-like shapes.
func FromRecord(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return out, nil
}

// isZero reports whether a decoded JSON value equals the zero value of its
// type. Arrays and nested records count as zero when empty.
func isZero(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case float64:
		return val == 0
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}
