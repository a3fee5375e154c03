package configloader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/streamlet-go/streamlet/internal/errkind"
	"github.com/streamlet-go/streamlet/internal/registry"
	"github.com/streamlet-go/streamlet/internal/schema"
)

// Document is the fully loaded, merged, repeat-expanded, and validated
// configuration, ready for chain compilation.
type Document struct {
	Version  string
	Settings map[string]interface{}

	Inputs     []map[string]interface{}
	Transforms []map[string]interface{}
	Outputs    []map[string]interface{}
}

func parseYAMLFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errkind.New(errkind.ConfigInvalid, err).WithPath(path)
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errkind.New(errkind.ConfigInvalid, fmt.Errorf("invalid YAML: %w", err)).WithPath(path)
	}
	return normalizeYAMLMap(doc), nil
}

// normalizeYAMLMap recursively converts map[string]interface{} nodes
// that yaml.v3 sometimes represents with nested
// map[string]interface{} already (v3 always decodes generic mappings
// as map[string]interface{}, unlike v2's map[interface{}]interface{});
// this pass also normalizes []interface{} nested maps for consistency
// with the rest of this package's helpers.
func normalizeYAMLMap(v interface{}) map[string]interface{} {
	m, ok := v.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return normalizeValue(m).(map[string]interface{})
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	default:
		return v
	}
}

// LoadOptions carries the bootstrap settings validation needs before
// the full settings resolver ever runs, since Load happens before
// flow.settings is known.
type LoadOptions struct {
	// DisableDefault mirrors the disable_default setting: modules with
	// no explicit `enabled:` key default to disabled rather than enabled.
	DisableDefault bool
	// SkipDisabledValidation mirrors skip_disabled_validation: entries
	// that resolve to disabled skip their type-specific params/tasks
	// schema, so a disabled module's malformed params never blocks startup.
	SkipDisabledValidation bool
}

// Load reads rootPath, applies its `flow.extends` extension files
// (reverse order, root wins — step 2), expands
// `repeat_for` on every task (step 4), materializes `env:` (step 5),
// and strictly validates the composed document against the module
// registry (step 6).
func Load(rootPath string, opts LoadOptions) (*Document, error) {
	root, err := parseYAMLFile(rootPath)
	if err != nil {
		return nil, err
	}

	flowBlock, _ := toStringMap(root["flow"])
	var extendPaths []string
	if raw, ok := flowBlock["extends"]; ok {
		if list, ok := toSlice(raw); ok {
			for _, p := range list {
				extendPaths = append(extendPaths, fmt.Sprintf("%v", p))
			}
		}
	}

	merged := mergeExtensions(root, extendPaths)

	if err := expandAllRepeatFor(merged); err != nil {
		return nil, err
	}

	if err := MaterializeEnv(merged); err != nil {
		return nil, errkind.New(errkind.ConfigInvalid, err)
	}

	return validateDocument(merged, opts)
}

// mergeExtensions implements step 2: extensions merge
// among themselves in reverse declared order (later extensions are
// most "base"), then root overlays all of it.
func mergeExtensions(root map[string]interface{}, extendPaths []string) map[string]interface{} {
	var acc interface{} = map[string]interface{}{}

	for i := len(extendPaths) - 1; i >= 0; i-- {
		tmpl, err := parseYAMLFile(extendPaths[i])
		if err != nil {
			// Extension load failures degrade to "empty extension":
			// step 6's strict validation is what must fail loudly;
			// steps 1-4 are documented as tolerant.
			continue
		}
		acc = Merge(acc, tmpl)
	}

	merged := Merge(acc, root)
	return merged.(map[string]interface{})
}

func expandAllRepeatFor(doc map[string]interface{}) error {
	for _, key := range []string{"inputs"} {
		list, ok := toSlice(doc[key])
		if !ok {
			continue
		}
		var out []interface{}
		for _, item := range list {
			inputMap, ok := toStringMap(item)
			if !ok {
				out = append(out, item)
				continue
			}
			tasks, ok := toSlice(inputMap["tasks"])
			if !ok {
				out = append(out, inputMap)
				continue
			}
			var expandedTasks []interface{}
			for _, t := range tasks {
				taskMap, ok := toStringMap(t)
				if !ok {
					expandedTasks = append(expandedTasks, t)
					continue
				}
				clones, err := ExpandRepeatFor(taskMap)
				if err != nil {
					return err
				}
				for _, c := range clones {
					expandedTasks = append(expandedTasks, c)
				}
			}
			inputMap["tasks"] = expandedTasks
			out = append(out, inputMap)
		}
		doc[key] = out
	}
	return nil
}

// validateDocument performs step 6: strict, module-type-aware
// validation. Each Input/Transform/Output entry's `type` selects the
// registered schema before the entry as a whole is validated, so
// module-specific connection/params schemas are enforced.
func validateDocument(doc map[string]interface{}, opts LoadOptions) (*Document, error) {
	errs := &schema.Errors{}

	rootKeys := []string{"flow", "env", "inputs", "transforms", "outputs"}
	for k := range doc {
		known := false
		for _, rk := range rootKeys {
			known = known || k == rk
		}
		if known {
			continue
		}
		if suggestion, ok := schema.Suggest(k, rootKeys, 2); ok {
			errs.AddSuggestion(schema.Path{}.Key(k), fmt.Sprintf("unknown key `%s`", k), suggestion, "")
		} else {
			errs.Add(schema.Path{}.Key(k), fmt.Sprintf("unknown key `%s`", k))
		}
	}

	header, herrs := schema.Validate(HeaderSchema(), doc["flow"])
	errs.Items = append(errs.Items, herrs.Items...)
	headerMap, _ := toStringMap(header)

	out := &Document{
		Version:  fmt.Sprintf("%v", headerMap["version"]),
		Settings: mustStringMap(headerMap["settings"]),
	}

	out.Inputs = validateModuleList(doc["inputs"], registry.Input, errs, "inputs", opts)
	out.Transforms = validateModuleList(doc["transforms"], registry.Transform, errs, "transforms", opts)
	out.Outputs = validateModuleList(doc["outputs"], registry.Output, errs, "outputs", opts)

	if err := validateUniqueness(out); err != nil {
		errs.Items = append(errs.Items, schema.ValidationError{Path: "[root]", Message: err.Error()})
	}

	if errs.HasErrors() {
		return nil, errkind.New(errkind.ConfigInvalid, errs)
	}
	return out, nil
}

func mustStringMap(v interface{}) map[string]interface{} {
	m, ok := toStringMap(v)
	if !ok {
		return map[string]interface{}{}
	}
	return m
}

func validateModuleList(raw interface{}, variant registry.Variant, errs *schema.Errors, label string, opts LoadOptions) []map[string]interface{} {
	list, ok := toSlice(raw)
	if !ok {
		return nil
	}

	var out []map[string]interface{}
	for i, item := range list {
		path := schema.Path{}.Key(label).Index(i)
		itemMap, ok := toStringMap(item)
		if !ok {
			errs.Add(path, "expected a module object")
			continue
		}

		moduleType, _ := itemMap["type"].(string)
		regEntry, found := registry.Get(variant, moduleType)

		var connSchema, paramsSchema schema.Node
		if found {
			connSchema = regEntry.ConnectionSchema
			paramsSchema = regEntry.ParamsSchema
		}

		enabledDefault := !opts.DisableDefault
		enabled, hasEnabled := itemMap["enabled"].(bool)
		if !hasEnabled {
			enabled = enabledDefault
		}

		var s schema.Node
		skipStrict := opts.SkipDisabledValidation && !enabled
		switch {
		case skipStrict && variant == registry.Input:
			s = moduleSchema(schema.Any(), enabledDefault, schema.Optional("tasks", schema.Any(), nil))
		case skipStrict:
			extra := append([]schema.Field{schema.Optional("params", schema.Any(), nil)}, filterFields()...)
			if variant == registry.Transform {
				extra = append(extra, schema.Optional("priority", schema.IntRange(-256, 256), 0))
			}
			s = moduleSchema(schema.Any(), enabledDefault, extra...)
		case variant == registry.Input:
			s = moduleSchema(connSchema, enabledDefault,
				schema.Required("tasks", schema.List(taskSchema(paramsSchema))))
		default:
			extra := append([]schema.Field{
				schema.Optional("params", orAny(paramsSchema), map[string]interface{}{}),
			}, filterFields()...)
			if variant == registry.Transform {
				extra = append(extra, schema.Optional("priority", schema.IntRange(-256, 256), 0))
			}
			s = moduleSchema(connSchema, enabledDefault, extra...)
		}

		normalized, itemErrs := schema.Validate(s, itemMap)
		for _, e := range itemErrs.Items {
			e.Path = path.String() + e.Path
			errs.Items = append(errs.Items, e)
		}

		if normalizedMap, ok := toStringMap(normalized); ok && variant != registry.Input {
			checkFilterExclusivity(normalizedMap, path, errs)
		}

		if !found && moduleType != "" {
			suggestion, ok := schema.Suggest(moduleType, registry.List(variant), 2)
			if ok {
				errs.AddSuggestion(path.Key("type"), fmt.Sprintf("unknown module type `%s`", moduleType), suggestion, "")
			} else {
				errs.Add(path.Key("type"), fmt.Sprintf("unknown module type `%s`", moduleType))
			}
		}

		if normalizedMap, ok := toStringMap(normalized); ok {
			out = append(out, normalizedMap)
		}
	}
	return out
}

// checkFilterExclusivity enforces that include and exclude of the same
// kind never coexist on one Transform/Output entry, per the invariant
// chain.Filters documents and assumes already holds.
func checkFilterExclusivity(m map[string]interface{}, path schema.Path, errs *schema.Errors) {
	if nonEmptyList(m["include_inputs"]) && nonEmptyList(m["exclude_inputs"]) {
		errs.Add(path, "include_inputs and exclude_inputs are mutually exclusive")
	}
	if nonEmptyList(m["include_tasks"]) && nonEmptyList(m["exclude_tasks"]) {
		errs.Add(path, "include_tasks and exclude_tasks are mutually exclusive")
	}
}

func nonEmptyList(v interface{}) bool {
	list, ok := v.([]interface{})
	return ok && len(list) > 0
}

func orAny(n schema.Node) schema.Node {
	if n == nil {
		return schema.Any()
	}
	return n
}

// validateUniqueness enforces invariants: task names
// globally unique, module names unique within variant.
func validateUniqueness(doc *Document) error {
	taskNames := map[string]bool{}
	for _, in := range doc.Inputs {
		tasks, _ := toSlice(in["tasks"])
		for _, t := range tasks {
			taskMap, _ := toStringMap(t)
			name, _ := taskMap["name"].(string)
			if taskNames[name] {
				return fmt.Errorf("duplicate task name %q", name)
			}
			taskNames[name] = true
		}
	}

	for _, group := range [][]map[string]interface{}{doc.Inputs, doc.Transforms, doc.Outputs} {
		names := map[string]bool{}
		for _, m := range group {
			name, ok := m["name"].(string)
			if !ok || name == "" {
				continue
			}
			if names[name] {
				return fmt.Errorf("duplicate module name %q", name)
			}
			names[name] = true
		}
	}
	return nil
}
