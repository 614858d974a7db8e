package agent

import "reflect"

// Diff computes the structural difference between two snapshots: the
// minimal set of leaf paths whose values changed from old to new. Nested
// maps recurse; sequences of (url, meta) pairs compare as sets so a
// reordering without membership change is not a difference. Applying the
// returned map over old yields new.
func Diff(old, new map[string]any) map[string]any {
	diff := make(map[string]any)
	for key, newVal := range new {
		oldVal, existed := old[key]
		if !existed {
			diff[key] = newVal
			continue
		}
		if changed, replacement := diffValue(oldVal, newVal); changed {
			diff[key] = replacement
		}
	}
	if len(diff) == 0 {
		return nil
	}
	return diff
}

func diffValue(oldVal, newVal any) (bool, any) {
	oldMap, oldIsMap := oldVal.(map[string]any)
	newMap, newIsMap := newVal.(map[string]any)
	if oldIsMap && newIsMap {
		if nested := Diff(oldMap, newMap); nested != nil {
			return true, nested
		}
		return false, nil
	}

	oldList, oldIsList := oldVal.([]any)
	newList, newIsList := newVal.([]any)
	if oldIsList && newIsList && isPairList(oldList) && isPairList(newList) {
		if pairSetsEqual(oldList, newList) {
			return false, nil
		}
		return true, newVal
	}

	if !reflect.DeepEqual(oldVal, newVal) {
		return true, newVal
	}
	return false, nil
}

// isPairList reports whether every element looks like a (url, meta) pair.
func isPairList(list []any) bool {
	if len(list) == 0 {
		return true
	}
	for _, el := range list {
		m, ok := el.(map[string]any)
		if !ok {
			return false
		}
		if _, hasURL := m["url"]; !hasURL {
			return false
		}
	}
	return true
}

func pairSetsEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	matched := make([]bool, len(b))
outer:
	for _, av := range a {
		for i, bv := range b {
			if matched[i] {
				continue
			}
			if reflect.DeepEqual(av, bv) {
				matched[i] = true
				continue outer
			}
		}
		return false
	}
	return true
}

// Apply overlays a diff onto a snapshot, returning the patched snapshot.
// It is the inverse used by tests to check diff correctness and by
// subscribers that mirror device state.
func Apply(snapshot, diff map[string]any) map[string]any {
	result := make(map[string]any, len(snapshot))
	for key, value := range snapshot {
		result[key] = value
	}
	for key, patch := range diff {
		patchMap, patchIsMap := patch.(map[string]any)
		baseMap, baseIsMap := result[key].(map[string]any)
		if patchIsMap && baseIsMap {
			result[key] = Apply(baseMap, patchMap)
			continue
		}
		result[key] = patch
	}
	return result
}
