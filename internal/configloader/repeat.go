package configloader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/streamlet-go/streamlet/internal/errkind"
)

// ExpandRepeatFor clones a task once per index of its repeat_for
// variable lists, substituting `$var`/`${var}` and `$i` into every
// string field. A task without `repeat_for` is returned unchanged,
// wrapped in a single-element slice.
//
// Substitution semantics are pinned to Python's
// string.Template.safe_substitute (TaskSchema.__call__.render in
// original_source/src/core/validation/schemas.py): `$name` and
// `${name}` both substitute; an unrecognized `$x` is left literal
// rather than erroring.
func ExpandRepeatFor(task map[string]interface{}) ([]map[string]interface{}, error) {
	raw, ok := task["repeat_for"]
	if !ok || raw == nil {
		return []map[string]interface{}{task}, nil
	}

	repeatMap, ok := toStringMap(raw)
	if !ok {
		return nil, errkind.New(errkind.ConfigInvalid, fmt.Errorf("repeat_for must be a map of variable to list"))
	}
	if len(repeatMap) == 0 {
		return []map[string]interface{}{task}, nil
	}

	keys := make([]string, 0, len(repeatMap))
	for k := range repeatMap {
		keys = append(keys, k)
	}

	lists := make(map[string][]interface{}, len(keys))
	length := -1
	firstKey := ""
	for _, k := range keys {
		l, ok := toSlice(repeatMap[k])
		if !ok {
			l = []interface{}{repeatMap[k]}
		}
		lists[k] = l
		if length == -1 {
			length = len(l)
			firstKey = k
			continue
		}
		if len(l) != length {
			return nil, errkind.New(errkind.ConfigInvalid, fmt.Errorf(
				"repeat_for: length of %s (%d) is unequal to %s (%d)", k, len(l), firstKey, length))
		}
	}

	out := make([]map[string]interface{}, 0, length)
	for i := 0; i < length; i++ {
		params := make(map[string]string, len(keys)+1)
		for _, k := range keys {
			params[k] = fmt.Sprintf("%v", lists[k][i])
		}
		params["i"] = strconv.Itoa(i)

		clone := deepCopyMap(task)
		delete(clone, "repeat_for")
		substituteInPlace(clone, params)
		out = append(out, clone)
	}

	return out, nil
}

// substituteInPlace walks v (map, slice, or string) replacing
// `$var`/`${var}` templates using params.
func substituteInPlace(v interface{}, params map[string]string) {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			t[k] = substituteValue(val, params)
		}
	case []interface{}:
		for i, val := range t {
			t[i] = substituteValue(val, params)
		}
	}
}

func substituteValue(v interface{}, params map[string]string) interface{} {
	switch t := v.(type) {
	case string:
		return safeSubstitute(t, params)
	case map[string]interface{}, []interface{}:
		substituteInPlace(t, params)
		return t
	default:
		return v
	}
}

// safeSubstitute implements the subset of Python's
// string.Template.safe_substitute this loader needs: `$$` escapes to
// a literal `$`, `${name}` and `$name` (name = [A-Za-z0-9_]+)
// substitute from params, and anything else beginning with `$` is
// left untouched.
func safeSubstitute(s string, params map[string]string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '$' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '$' {
			b.WriteByte('$')
			i++
			continue
		}
		if i+1 < len(s) && s[i+1] == '{' {
			end := strings.IndexByte(s[i+2:], '}')
			if end >= 0 {
				name := s[i+2 : i+2+end]
				if val, ok := params[name]; ok {
					b.WriteString(val)
					i += 2 + end
					continue
				}
			}
			b.WriteByte('$')
			continue
		}
		j := i + 1
		for j < len(s) && isIdentByte(s[j]) {
			j++
		}
		if j > i+1 {
			name := s[i+1 : j]
			if val, ok := params[name]; ok {
				b.WriteString(val)
				i = j - 1
				continue
			}
		}
		b.WriteByte('$')
	}
	return b.String()
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
