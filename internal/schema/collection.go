package schema

import "fmt"

// listNode validates a homogeneous list, each element checked against Of.
type listNode struct {
	Of Node
}

// List builds a schema node for a list whose elements all match of.
func List(of Node) Node { return listNode{Of: of} }

func (n listNode) validate(v interface{}, path Path, errs *Errors) interface{} {
	items, ok := toSlice(v)
	if !ok {
		typeMismatch(errs, path, "list", v)
		return nil
	}
	out := make([]interface{}, len(items))
	for i, item := range items {
		out[i] = n.Of.validate(item, path.Index(i), errs)
	}
	return out
}

func (n listNode) defaultValue() (interface{}, bool) { return []interface{}{}, true }
func (listNode) typeName() string                    { return "list" }

func toSlice(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case []interface{}:
		return t, true
	case nil:
		return nil, false
	default:
		return nil, false
	}
}

// mapNode validates a map whose values all match Of, with no fixed key
// set (unlike Object). Used for things like `env:` blocks and
// free-form attribute maps.
type mapNode struct {
	Of Node
}

// Map builds a schema node for a map with arbitrary string keys, each
// value checked against of.
func Map(of Node) Node { return mapNode{Of: of} }

func (n mapNode) validate(v interface{}, path Path, errs *Errors) interface{} {
	m, ok := toStringMap(v)
	if !ok {
		typeMismatch(errs, path, "map", v)
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, val := range m {
		out[k] = n.Of.validate(val, path.Key(k), errs)
	}
	return out
}

func (n mapNode) defaultValue() (interface{}, bool) { return map[string]interface{}{}, true }
func (mapNode) typeName() string                    { return "map" }

// toStringMap normalizes the map shapes a YAML decoder can hand back
// (map[string]interface{} from yaml.v3, or occasionally
// map[interface{}]interface{} from nested nodes) into a single form.
func toStringMap(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}
