// Package settings implements the three-tier settings resolver,
// pinned to Settings.initiate/set/extend in
// original_source/src/core/settings.py and generalizing the
// override-from-env pattern used in cmd/flowrunner/main.go.
package settings

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Kind is the declared type of a setting, used to validate and coerce
// values arriving from flags, environment, or `flow.settings`.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindDuration
)

// Spec declares one recognized setting: its name, type, and default,
// mirroring one Settings class annotation.
type Spec struct {
	Name    string
	Kind    Kind
	Default interface{}
}

// Registry is the fixed table of every setting the process recognizes.
type Registry struct {
	specs map[string]Spec
}

// NewRegistry builds a Registry from specs, keyed by name.
func NewRegistry(specs ...Spec) *Registry {
	r := &Registry{specs: make(map[string]Spec, len(specs))}
	for _, s := range specs {
		r.specs[s.Name] = s
	}
	return r
}

// Default is the canonical registry of every recognized setting.
func Default() *Registry {
	return NewRegistry(
		Spec{Name: "config", Kind: KindString, Default: "/etc/streamlet/flow.yaml"},
		Spec{Name: "log_level", Kind: KindInt, Default: 20},
		Spec{Name: "only_validate", Kind: KindBool, Default: false},
		Spec{Name: "run_once", Kind: KindBool, Default: false},
		Spec{Name: "print_config", Kind: KindBool, Default: false},
		Spec{Name: "print_traceback", Kind: KindBool, Default: false},
		Spec{Name: "disable_outputs", Kind: KindBool, Default: false},
		Spec{Name: "disable_default", Kind: KindBool, Default: false},
		Spec{Name: "dispatch_pool", Kind: KindString, Default: "parallel"},
		Spec{Name: "disable_readiness_probe", Kind: KindBool, Default: false},
		Spec{Name: "skip_disabled_validation", Kind: KindBool, Default: false},
		Spec{Name: "allow_none_metric", Kind: KindBool, Default: false},
		Spec{Name: "nested_attr_seperator", Kind: KindString, Default: "."},
		Spec{Name: "timezone", Kind: KindString, Default: "UTC"},
	)
}

// Settings is the resolved, read-only set of setting values plus which
// names were locked in by a command-line flag.
type Settings struct {
	values     map[string]interface{}
	persistent map[string]bool
}

// Get returns a resolved setting's value.
func (s *Settings) Get(name string) interface{} { return s.values[name] }

func (s *Settings) String(name string) string {
	v, _ := s.values[name].(string)
	return v
}

func (s *Settings) Bool(name string) bool {
	v, _ := s.values[name].(bool)
	return v
}

func (s *Settings) Int(name string) int {
	v, _ := s.values[name].(int)
	return v
}

// IsPersistent reports whether name was set from a command-line flag
// and can therefore not be overridden by `flow.settings`.
func (s *Settings) IsPersistent(name string) bool { return s.persistent[name] }

// Resolve applies flag > env (STREAMLET_<NAME>) > flowSettings
// precedence over the registry's defaults. flags is a pre-parsed map
// (from cobra's flag set, see cmd/streamlet-cli), since the CLI layer
// owns argv parsing; only flags explicitly set by the user should
// appear here.
func (r *Registry) Resolve(flags map[string]interface{}, environ []string, flowSettings map[string]interface{}) (*Settings, error) {
	env := parseEnviron(environ)

	values := make(map[string]interface{}, len(r.specs))
	persistent := make(map[string]bool, len(r.specs))

	for name, spec := range r.specs {
		values[name] = spec.Default
	}

	// Precedence, lowest first, so later assignments win.
	for name, spec := range r.specs {
		if raw, ok := flowSettings[name]; ok {
			v, err := coerce(spec, raw)
			if err != nil {
				return nil, fmt.Errorf("flow.settings.%s: %w", name, err)
			}
			values[name] = v
		}
	}
	for name, spec := range r.specs {
		envName := "STREAMLET_" + strings.ToUpper(name)
		if raw, ok := env[envName]; ok {
			v, err := coerce(spec, raw)
			if err != nil {
				return nil, fmt.Errorf("env %s: %w", envName, err)
			}
			values[name] = v
		}
	}
	for name, spec := range r.specs {
		if raw, ok := flags[name]; ok {
			v, err := coerce(spec, raw)
			if err != nil {
				return nil, fmt.Errorf("--%s: %w", name, err)
			}
			values[name] = v
			persistent[name] = true
		}
	}

	return &Settings{values: values, persistent: persistent}, nil
}

// ResolveBootstrap resolves only the settings that must be known
// before the configuration file is even read (the config path itself,
// discovery toggles) — flag and env sources only, since construction
// precedes config load.
func (r *Registry) ResolveBootstrap(flags map[string]interface{}, environ []string, names ...string) (*Settings, error) {
	sub := &Registry{specs: map[string]Spec{}}
	for _, n := range names {
		if s, ok := r.specs[n]; ok {
			sub.specs[n] = s
		}
	}
	return sub.Resolve(flags, environ, nil)
}

func parseEnviron(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			out[kv[:idx]] = kv[idx+1:]
		}
	}
	return out
}

// OSEnviron is a convenience wrapper around os.Environ for callers
// that want live process environment rather than a supplied slice.
func OSEnviron() []string { return os.Environ() }

func coerce(spec Spec, raw interface{}) (interface{}, error) {
	switch spec.Kind {
	case KindString:
		return fmt.Sprintf("%v", raw), nil
	case KindBool:
		switch t := raw.(type) {
		case bool:
			return t, nil
		case string:
			b, err := strconv.ParseBool(t)
			if err != nil {
				return nil, fmt.Errorf("invalid bool %q", t)
			}
			return b, nil
		default:
			return nil, fmt.Errorf("invalid bool value %v (%T)", raw, raw)
		}
	case KindInt:
		switch t := raw.(type) {
		case int:
			return t, nil
		case string:
			n, err := strconv.Atoi(t)
			if err != nil {
				return nil, fmt.Errorf("invalid int %q", t)
			}
			return n, nil
		default:
			return nil, fmt.Errorf("invalid int value %v (%T)", raw, raw)
		}
	case KindDuration:
		return raw, nil
	default:
		return raw, nil
	}
}
