package schema

import (
	"fmt"
	"strings"
)

// unionNode validates a value against the best-scoring of several
// candidate branches, mirroring voluptuous.Any's first-successful-match
// behaviour but with a scored best-effort choice so a near-miss branch
// produces useful field-level errors instead of an opaque "no branch
// matched" message.
type unionNode struct {
	Branches []Node
}

// Union builds a schema node that accepts any one of branches, picking
// whichever scores highest against the given value (ties favor the
// earliest branch).
func Union(branches ...Node) Node { return unionNode{Branches: branches} }

func (n unionNode) validate(v interface{}, path Path, errs *Errors) interface{} {
	if len(n.Branches) == 0 {
		errs.Add(path, "no branches configured for union")
		return nil
	}

	bestIdx := -1
	bestScore := -1
	scratch := make([]*Errors, len(n.Branches))
	results := make([]interface{}, len(n.Branches))

	for i, b := range n.Branches {
		e := &Errors{}
		results[i] = b.validate(v, path, e)
		scratch[i] = e

		score := scoreBranch(b, e)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestScore <= 0 || scratch[bestIdx].HasErrors() {
		if bestScore <= 0 {
			var msgs []string
			for i, e := range scratch {
				if len(e.Items) > 0 {
					msgs = append(msgs, fmt.Sprintf("branch %d: %s", i, e.Items[0].Message))
				}
			}
			errs.Add(path, "value did not match any branch ("+strings.Join(msgs, "; ")+")")
			return nil
		}
		for _, item := range scratch[bestIdx].Items {
			errs.Items = append(errs.Items, item)
		}
		return results[bestIdx]
	}

	return results[bestIdx]
}

// scoreBranch counts how well a branch matched: for objects, one more
// than the number of required keys, minus the number of errors; for
// everything else, 1 on success and 0 on failure.
func scoreBranch(b Node, e *Errors) int {
	if obj, ok := b.(objectNode); ok {
		required := 0
		for _, f := range obj.Fields {
			if f.Required {
				required++
			}
		}
		return required + 1 - len(e.Items)
	}
	if e.HasErrors() {
		return 0
	}
	return 1
}

// defaultValue returns the first branch that can synthesize a default
// with no value present at all (typically the first all-optional
// object branch).
func (n unionNode) defaultValue() (interface{}, bool) {
	for _, b := range n.Branches {
		if def, ok := b.defaultValue(); ok {
			return def, true
		}
	}
	return nil, false
}

func (unionNode) typeName() string { return "union" }
