package frame

import (
	"fmt"
	"sort"
	"strings"
)

// Flatten collapses a (possibly nested) record into dotted paths,
// grounded on `flatten` in original_source/src/core/helpers.py.
// sep is the configured nested_attr_seperator (default ".").
func Flatten(record map[string]interface{}, sep string) map[string]interface{} {
	out := map[string]interface{}{}
	flattenInto(record, "", sep, out)
	return out
}

func flattenInto(v interface{}, prefix, sep string, out map[string]interface{}) {
	m, ok := v.(map[string]interface{})
	if !ok {
		out[prefix] = v
		return
	}
	if len(m) == 0 {
		out[prefix] = m
		return
	}
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + sep + k
		}
		flattenInto(val, key, sep, out)
	}
}

// SortedKeys returns the keys of a flattened record in stable
// (lexical) order, so metric emission order is deterministic.
func SortedKeys(flat map[string]interface{}) []string {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ExpandSelector resolves a selector (nil, a single string, or a list
// of strings — each a literal key or a glob pattern) against the
// flattened key set, returning the matched keys in selector-then-key
// declaration order with duplicates removed.
func ExpandSelector(selector interface{}, flatKeys []string) []string {
	patterns := normalizeSelector(selector)
	if len(patterns) == 0 {
		return nil
	}

	seen := map[string]bool{}
	var out []string
	for _, p := range patterns {
		for _, k := range flatKeys {
			if seen[k] {
				continue
			}
			if Match(p, k) {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

// normalizeSelector turns the "absent -> literal metric, single
// string, or list" selector shape into a flat []string of patterns.
func normalizeSelector(selector interface{}) []string {
	switch t := selector.(type) {
	case nil:
		return []string{"metric"}
	case string:
		return []string{t}
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	default:
		return nil
	}
}

// Complement returns the flattened keys not present in claimed.
func Complement(flatKeys []string, claimed []string) []string {
	claimedSet := make(map[string]bool, len(claimed))
	for _, k := range claimed {
		claimedSet[k] = true
	}
	out := make([]string, 0, len(flatKeys))
	for _, k := range flatKeys {
		if !claimedSet[k] {
			out = append(out, k)
		}
	}
	return out
}

// LeafName returns the last dotted segment of a flattened key, used
// as the metric name suffix.
func LeafName(key, sep string) string {
	idx := strings.LastIndex(key, sep)
	if idx < 0 {
		return key
	}
	return key[idx+len(sep):]
}
