package schema

import "fmt"

// Field describes one key of an Object: its schema, whether it must
// be present, and — for Optional fields — the default synthesized
// when it is absent.
type Field struct {
	Key      string
	Node     Node
	Required bool
	Default  interface{}
	hasDef   bool
}

// Required declares a mandatory object field.
func Required(key string, node Node) Field {
	return Field{Key: key, Node: node, Required: true}
}

// Optional declares an object field that may be omitted, falling back
// to def (or, if def is nil, the field's own schema default) when
// absent.
func Optional(key string, node Node, def interface{}) Field {
	return Field{Key: key, Node: node, Default: def, hasDef: def != nil}
}

func (f Field) resolveDefault() (interface{}, bool) {
	if f.hasDef {
		return f.Default, true
	}
	return f.Node.defaultValue()
}

// objectNode validates a map against a fixed set of Fields: missing
// Required keys and unrecognized keys are both errors, the latter
// carrying a fuzzy-matched suggestion; missing Optional keys are
// filled from their default.
type objectNode struct {
	Fields []Field
}

// Object builds a schema node for a map with the given fixed fields.
func Object(fields ...Field) Node { return objectNode{Fields: fields} }

func (n objectNode) fieldNames() []string {
	names := make([]string, len(n.Fields))
	for i, f := range n.Fields {
		names[i] = f.Key
	}
	return names
}

func (n objectNode) validate(v interface{}, path Path, errs *Errors) interface{} {
	if v == nil {
		if def, ok := n.defaultValue(); ok {
			return def
		}
		typeMismatch(errs, path, "object", v)
		return nil
	}

	m, ok := toStringMap(v)
	if !ok {
		typeMismatch(errs, path, "object", v)
		return nil
	}

	out := make(map[string]interface{}, len(n.Fields))
	seen := make(map[string]bool, len(m))

	for _, f := range n.Fields {
		val, present := m[f.Key]
		seen[f.Key] = true
		if !present {
			if f.Required {
				errs.Add(path, fmt.Sprintf("missing required key `%s`", f.Key))
				continue
			}
			if def, ok := f.resolveDefault(); ok {
				out[f.Key] = def
			}
			continue
		}
		out[f.Key] = f.Node.validate(val, path.Key(f.Key), errs)
	}

	for k, val := range m {
		if seen[k] {
			continue
		}
		suggestion, found := Suggest(k, n.fieldNames(), 2)
		example := ""
		if found {
			for _, f := range n.Fields {
				if f.Key == suggestion {
					if def, ok := f.resolveDefault(); ok {
						example = fmt.Sprintf("%s: %v", suggestion, def)
					}
				}
			}
			errs.AddSuggestion(path.Key(k), fmt.Sprintf("unknown key `%s`", k), suggestion, example)
		} else {
			errs.Add(path.Key(k), fmt.Sprintf("unknown key `%s`", k))
		}
		_ = val
	}

	return out
}

// defaultValue synthesizes a whole-object default when every field is
// Optional, so a config author can omit the block entirely.
func (n objectNode) defaultValue() (interface{}, bool) {
	out := make(map[string]interface{}, len(n.Fields))
	for _, f := range n.Fields {
		if f.Required {
			return nil, false
		}
		def, ok := f.resolveDefault()
		if !ok {
			return nil, false
		}
		out[f.Key] = def
	}
	return out, true
}

func (objectNode) typeName() string { return "object" }
