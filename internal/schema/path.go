// Package schema implements the declarative configuration schema and
// its lock-step validator, grounded on the
// voluptuous-based schemas in
// original_source/src/core/validation/schemas.py: scalar kinds,
// Optional/Required map fields, Union branches, and defaults that
// travel with the schema.
package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a validation Path: either a map key or a
// list index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path tracks the location of a value inside the document being
// validated, printed like "[input][2][tasks][1]".
type Path []Segment

// Key appends a map-key segment.
func (p Path) Key(k string) Path {
	return append(append(Path{}, p...), Segment{Key: k})
}

// Index appends a list-index segment.
func (p Path) Index(i int) Path {
	return append(append(Path{}, p...), Segment{Index: i, IsIndex: true})
}

func (p Path) String() string {
	var b strings.Builder
	for _, s := range p {
		if s.IsIndex {
			b.WriteString("[" + strconv.Itoa(s.Index) + "]")
		} else {
			b.WriteString("[" + s.Key + "]")
		}
	}
	if b.Len() == 0 {
		return "[root]"
	}
	return b.String()
}

// Node is implemented by every schema element: scalar kinds,
// collections, objects, and unions.
type Node interface {
	// validate checks v against this node, appending problems to errs
	// and returning the normalized value.
	validate(v interface{}, path Path, errs *Errors) interface{}

	// defaultValue computes a synthesized default for this node, when
	// one exists without any value being present at all (used for
	// maps whose keys are all Optional, and for Union branches).
	defaultValue() (interface{}, bool)

	// typeName names this node for type-mismatch messages.
	typeName() string
}

// Validate walks doc against schema, returning the normalized document
// and any accumulated errors. Call errs.HasErrors() to check outcome.
func Validate(s Node, doc interface{}) (interface{}, *Errors) {
	errs := &Errors{}
	normalized := s.validate(doc, nil, errs)
	return normalized, errs
}

func typeMismatch(errs *Errors, path Path, expected string, v interface{}) {
	errs.Add(path, fmt.Sprintf("expected %s, got %T (%v)", expected, v, v))
}
