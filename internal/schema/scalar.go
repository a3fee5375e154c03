package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// stringNode validates a YAML/JSON string.
type stringNode struct{}

// String is the string scalar kind.
func String() Node { return stringNode{} }

func (stringNode) validate(v interface{}, path Path, errs *Errors) interface{} {
	s, ok := v.(string)
	if !ok {
		typeMismatch(errs, path, "string", v)
		return nil
	}
	return s
}
func (stringNode) defaultValue() (interface{}, bool) { return nil, false }
func (stringNode) typeName() string                  { return "string" }

// intNode validates an integer.
type intNode struct{}

// Int is the integer scalar kind.
func Int() Node { return intNode{} }

func (intNode) validate(v interface{}, path Path, errs *Errors) interface{} {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		if t == float64(int64(t)) {
			return int(t)
		}
	}
	typeMismatch(errs, path, "int", v)
	return nil
}
func (intNode) defaultValue() (interface{}, bool) { return nil, false }
func (intNode) typeName() string                  { return "int" }

// intRangeNode validates an integer within [Min, Max] inclusive.
type intRangeNode struct {
	Min, Max int
}

// IntRange is the bounded-integer scalar kind.
func IntRange(min, max int) Node { return intRangeNode{Min: min, Max: max} }

func (n intRangeNode) validate(v interface{}, path Path, errs *Errors) interface{} {
	i := intNode{}.validate(v, path, errs)
	if i == nil {
		return nil
	}
	iv := i.(int)
	if iv < n.Min || iv > n.Max {
		errs.Add(path, fmt.Sprintf("must be between %d and %d, got %d", n.Min, n.Max, iv))
		return nil
	}
	return iv
}
func (n intRangeNode) defaultValue() (interface{}, bool) { return nil, false }
func (intRangeNode) typeName() string                    { return "int" }

// floatNode validates a float, accepting integers too.
type floatNode struct{}

// Float is the float scalar kind.
func Float() Node { return floatNode{} }

func (floatNode) validate(v interface{}, path Path, errs *Errors) interface{} {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	}
	typeMismatch(errs, path, "float", v)
	return nil
}
func (floatNode) defaultValue() (interface{}, bool) { return nil, false }
func (floatNode) typeName() string                  { return "float" }

// boolNode validates a boolean.
type boolNode struct{}

// Bool is the boolean scalar kind.
func Bool() Node { return boolNode{} }

func (boolNode) validate(v interface{}, path Path, errs *Errors) interface{} {
	b, ok := v.(bool)
	if !ok {
		typeMismatch(errs, path, "bool", v)
		return nil
	}
	return b
}
func (boolNode) defaultValue() (interface{}, bool) { return nil, false }
func (boolNode) typeName() string                  { return "bool" }

// anyNode accepts any value unchanged.
type anyNode struct{}

// Any accepts any value without validation.
func Any() Node { return anyNode{} }

func (anyNode) validate(v interface{}, path Path, errs *Errors) interface{} { return v }
func (anyNode) defaultValue() (interface{}, bool)                           { return nil, false }
func (anyNode) typeName() string                                            { return "any" }

// durationNode validates a time period: integer seconds, or a string
// like "10s", "5m", "2h", "1d".
type durationNode struct{}

// Duration is the duration scalar kind.
func Duration() Node { return durationNode{} }

// ParseDuration implements the "<n>{s|m|h|d}" grammar plus bare
// integer/float seconds, mirroring TimeToSeconds in
// original_source/src/core/validation/validators.py (colon-joined
// composite spans are not carried forward — duration
// grammar is the single-suffix form only).
func ParseDuration(v interface{}) (time.Duration, error) {
	switch t := v.(type) {
	case time.Duration:
		return t, nil
	case int:
		return time.Duration(t) * time.Second, nil
	case int64:
		return time.Duration(t) * time.Second, nil
	case float64:
		return time.Duration(t * float64(time.Second)), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, fmt.Errorf("empty duration")
		}
		neg := false
		if strings.HasPrefix(s, "-") {
			neg = true
			s = s[1:]
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			d := time.Duration(n) * time.Second
			if neg {
				d = -d
			}
			return d, nil
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			d := time.Duration(n * float64(time.Second))
			if neg {
				d = -d
			}
			return d, nil
		}

		unit := s[len(s)-1]
		numPart := s[:len(s)-1]
		n, err := strconv.ParseFloat(numPart, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", v)
		}

		var factor float64
		switch unit {
		case 's':
			factor = float64(time.Second)
		case 'm':
			factor = float64(time.Minute)
		case 'h':
			factor = float64(time.Hour)
		case 'd':
			factor = 24 * float64(time.Hour)
		default:
			return 0, fmt.Errorf("invalid duration unit %q in %q", string(unit), v)
		}

		d := time.Duration(n * factor)
		if neg {
			d = -d
		}
		return d, nil
	default:
		return 0, fmt.Errorf("invalid duration value %v (%T)", v, v)
	}
}

func (durationNode) validate(v interface{}, path Path, errs *Errors) interface{} {
	d, err := ParseDuration(v)
	if err != nil {
		errs.Add(path, err.Error())
		return nil
	}
	return d
}
func (durationNode) defaultValue() (interface{}, bool) { return nil, false }
func (durationNode) typeName() string                  { return "duration" }

// cronNode validates a five-field crontab expression. Its parser
// accepts a subset of what the scheduler's (internal/scheduler)
// cron.New() parser accepts (no `@every`/`@daily` descriptors), so a
// configuration that validates is guaranteed schedulable.
type cronNode struct{}

// Cron is the crontab-expression scalar kind.
func Cron() Node { return cronNode{} }

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func (cronNode) validate(v interface{}, path Path, errs *Errors) interface{} {
	s, ok := v.(string)
	if !ok {
		typeMismatch(errs, path, "cron string", v)
		return nil
	}
	if _, err := cronParser.Parse(s); err != nil {
		errs.Add(path, fmt.Sprintf("`%s` is not a valid cron expression: %v", s, err))
		return nil
	}
	return s
}
func (cronNode) defaultValue() (interface{}, bool) { return nil, false }
func (cronNode) typeName() string                  { return "cron" }
