package frame

// Match reports whether name matches the shell-style glob pattern
// (`*`, `?`, `[...]`), operating byte-by-byte with no path-separator
// special casing — unlike path/filepath.Match, `*` here must cross `.`
// boundaries so a metrics selector like `_source.*` matches
// `_source.x` and `_source.y`, mirroring Python's fnmatch.fnmatch
// (see extract_metrics in original_source/src/core/task.py, which
// calls fnmatch.filter directly against dotted keys).
func Match(pattern, name string) bool {
	return matchHere(pattern, name)
}

func matchHere(pattern, name string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			// Collapse consecutive stars, then try every split point.
			for len(pattern) > 0 && pattern[0] == '*' {
				pattern = pattern[1:]
			}
			if len(pattern) == 0 {
				return true
			}
			for i := 0; i <= len(name); i++ {
				if matchHere(pattern, name[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(name) == 0 {
				return false
			}
			name = name[1:]
			pattern = pattern[1:]
		case '[':
			end := indexByte(pattern, ']', 1)
			if end < 0 {
				// Unterminated class: treat '[' literally.
				if len(name) == 0 || name[0] != '[' {
					return false
				}
				name = name[1:]
				pattern = pattern[1:]
				continue
			}
			if len(name) == 0 {
				return false
			}
			class := pattern[1:end]
			if !matchClass(class, name[0]) {
				return false
			}
			name = name[1:]
			pattern = pattern[end+1:]
		default:
			if len(name) == 0 || name[0] != pattern[0] {
				return false
			}
			name = name[1:]
			pattern = pattern[1:]
		}
	}
	return len(name) == 0
}

func indexByte(s string, b byte, from int) int {
	for i := from; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func matchClass(class string, c byte) bool {
	negate := false
	if len(class) > 0 && (class[0] == '!' || class[0] == '^') {
		negate = true
		class = class[1:]
	}
	matched := false
	for i := 0; i < len(class); i++ {
		if i+2 < len(class) && class[i+1] == '-' {
			if class[i] <= c && c <= class[i+2] {
				matched = true
			}
			i += 2
		} else if class[i] == c {
			matched = true
		}
	}
	return matched != negate
}
