package agent

import "encoding/json"

// mergeKnown overwrites dst fields with values from src, but only for keys
// dst already contains. Nested maps recurse with the same rule. Keys dst
// does not know stay untouched so a stray event field can never invent
// state.
func mergeKnown(dst, src map[string]any) {
	for key, srcVal := range src {
		dstVal, ok := dst[key]
		if !ok {
			continue
		}
		dstMap, dstIsMap := dstVal.(map[string]any)
		srcMap, srcIsMap := srcVal.(map[string]any)
		if dstIsMap && srcIsMap {
			mergeKnown(dstMap, srcMap)
			continue
		}
		dst[key] = srcVal
	}
}

// mergeIntoStruct merges event fields into a typed struct (Status or
// Playback) by going through its JSON form, honoring the known-fields-only
// rule, and decoding back.
func mergeIntoStruct(target any, fields map[string]any) error {
	raw, err := json.Marshal(target)
	if err != nil {
		return err
	}
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return err
	}
	mergeKnown(asMap, fields)
	merged, err := json.Marshal(asMap)
	if err != nil {
		return err
	}
	return json.Unmarshal(merged, target)
}
