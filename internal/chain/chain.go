// Package chain compiles the per-task transform/output chains,
// pinned to AbstractProcessor.accepts_from and
// StreamletFlow.__init__'s post-construction transform sort in
// original_source/src/core/{abstract,flow}.py.
package chain

import (
	"sort"

	"github.com/streamlet-go/streamlet/internal/frame"
)

// Filters is a processor's (Transform or Output) routing configuration.
// Include and exclude of the same kind are mutually exclusive — the
// config loader/validator enforces that; this package assumes it.
type Filters struct {
	IncludeInputs []string
	ExcludeInputs []string
	IncludeTasks  []string
	ExcludeTasks  []string
}

// Admits reports whether a processor with these Filters accepts data
// from the given input/task pair: an include filter admits iff at
// least one pattern matches; an exclude filter admits iff no pattern
// matches; missing filters are permissive; different filter kinds
// combine with AND.
func (f Filters) Admits(inputName, taskName string) bool {
	if len(f.IncludeInputs) > 0 && !anyMatch(f.IncludeInputs, inputName) {
		return false
	}
	if len(f.ExcludeInputs) > 0 && anyMatch(f.ExcludeInputs, inputName) {
		return false
	}
	if len(f.IncludeTasks) > 0 && !anyMatch(f.IncludeTasks, taskName) {
		return false
	}
	if len(f.ExcludeTasks) > 0 && anyMatch(f.ExcludeTasks, taskName) {
		return false
	}
	return true
}

func anyMatch(patterns []string, name string) bool {
	for _, p := range patterns {
		if frame.Match(p, name) {
			return true
		}
	}
	return false
}

// Transform is the compile-time view of a transform module: enough to
// order and route it, independent of its runtime module.Instance.
type Transform struct {
	Name     string
	Enabled  bool
	Priority int
	Filters  Filters
	Order    int // declaration order, for stable tie-break
}

// Output is the compile-time view of an output module.
type Output struct {
	Name    string
	Enabled bool
	Filters Filters
	Order   int
}

// Compile computes the ordered transform and output chain for one
// (inputName, taskName) pair. Disabled modules are dropped regardless
// of their filters. The transform chain is sorted by descending
// Priority, ties broken by declaration order; the output chain
// preserves declaration order. Zero matches is a successful empty
// chain, not an error.
func Compile(inputName, taskName string, transforms []Transform, outputs []Output) (chosenTransforms []Transform, chosenOutputs []Output) {
	for _, t := range transforms {
		if !t.Enabled {
			continue
		}
		if !t.Filters.Admits(inputName, taskName) {
			continue
		}
		chosenTransforms = append(chosenTransforms, t)
	}
	sort.SliceStable(chosenTransforms, func(i, j int) bool {
		if chosenTransforms[i].Priority != chosenTransforms[j].Priority {
			return chosenTransforms[i].Priority > chosenTransforms[j].Priority
		}
		return chosenTransforms[i].Order < chosenTransforms[j].Order
	})

	for _, o := range outputs {
		if !o.Enabled {
			continue
		}
		if !o.Filters.Admits(inputName, taskName) {
			continue
		}
		chosenOutputs = append(chosenOutputs, o)
	}
	sort.SliceStable(chosenOutputs, func(i, j int) bool {
		return chosenOutputs[i].Order < chosenOutputs[j].Order
	})

	return chosenTransforms, chosenOutputs
}
