// Package configloader implements the YAML configuration loader:
// parse, extension-merge, repeat_for expansion, env materialization,
// then strict validation. Grounded on
// StreamletFlow.load_extensions / get_configuration in
// original_source/src/core/flow.py.
package configloader

import "fmt"

// Merge combines extension (lower precedence, the "base") into doc
// (higher precedence, the "overlay"), following the `extend()` closure
// in flow.py: name-keyed list entries are shallow-merged on match,
// unnamed or non-matching entries are appended; maps merge key-wise
// recursively; anything else is replaced by the overlay's value.
//
// Root wins: callers merge extensions in reverse declaration order
// into an accumulator, then merge the root document last so its
// fields always win (see Load).
func Merge(base, overlay interface{}) interface{} {
	switch ov := overlay.(type) {
	case []interface{}:
		baseList, ok := base.([]interface{})
		if !ok {
			return ov
		}
		return mergeLists(baseList, ov)

	case map[string]interface{}:
		baseMap, ok := base.(map[string]interface{})
		if !ok {
			baseMap = map[string]interface{}{}
		}
		out := make(map[string]interface{}, len(baseMap)+len(ov))
		for k, v := range baseMap {
			out[k] = v
		}
		for k, v := range ov {
			out[k] = Merge(out[k], v)
		}
		return out

	default:
		return overlay
	}
}

func mergeLists(base, overlay []interface{}) []interface{} {
	out := make([]interface{}, len(base))
	copy(out, base)

	for _, item := range overlay {
		itemMap, isMap := item.(map[string]interface{})
		name, hasName := "", false
		if isMap {
			if n, ok := itemMap["name"]; ok && n != nil {
				name = fmt.Sprintf("%v", n)
				hasName = true
			}
		}

		if !hasName {
			out = append(out, item)
			continue
		}

		matched := false
		for i, b := range out {
			bMap, ok := b.(map[string]interface{})
			if !ok {
				continue
			}
			bName, ok := bMap["name"]
			if !ok || bName == nil || fmt.Sprintf("%v", bName) != name {
				continue
			}
			entry := make(map[string]interface{}, len(bMap)+len(itemMap))
			for k, v := range bMap {
				entry[k] = v
			}
			for k, v := range itemMap {
				entry[k] = v
			}
			out[i] = entry
			matched = true
			break
		}
		if !matched {
			out = append(out, item)
		}
	}
	return out
}
