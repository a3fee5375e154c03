// Package registry is the module registry: every built-in module
// self-registers here from an init() function, grounded on
// pkg/plugins/registry.go's synchronized
// name->constructor map and on the class-table pattern of
// original_source/src/core/modules.py's Modules.input_modules /
// transform_modules / output_modules.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/streamlet-go/flowlib"
	"github.com/streamlet-go/streamlet/internal/schema"
)

// Variant is the module family a Registration belongs to. A module's
// type name is only unique within its own Variant, mirroring the
// original's three separate class-tables.
type Variant string

const (
	Input     Variant = "input"
	Transform Variant = "transform"
	Output    Variant = "output"
)

// Instance is a constructed module ready to run inside the compiled
// chain (internal/chain). It embeds a flowlib.Node; no built-in module
// is run through a flowlib Flow, the scheduler calls modules directly.
type Instance interface {
	flowlib.Node

	// Name is this module instance's configured (or synthesized) name.
	Name() string

	// OnConnect is called once at startup, in declaration order.
	OnConnect() error

	// OnPreShutdown is called at shutdown, in declaration order,
	// before OnShutdown.
	OnPreShutdown() error

	// OnShutdown is called at shutdown, in reverse declaration order.
	OnShutdown() error
}

// Factory constructs a module Instance from its already-validated
// configuration map (the "connection" and module-specific params
// merged the way each Variant expects).
type Factory func(name string, config map[string]interface{}) (Instance, error)

// Registration is everything the config loader and validator need to
// know about a built-in module type: its schemas (for validation) and
// its Factory (for instantiation).
type Registration struct {
	Variant Variant
	Type    string

	// ConnectionSchema validates the module's `connection:` block.
	// Nil means the connection block is not checked: any value is accepted.
	ConnectionSchema schema.Node

	// ParamsSchema validates an Input's per-task `params:` block, or a
	// Transform/Output's `params:` block.
	ParamsSchema schema.Node

	New Factory
}

var (
	mu    sync.RWMutex
	table = map[Variant]map[string]Registration{
		Input:     {},
		Transform: {},
		Output:    {},
	}
)

// Register adds a module Registration to the table. It panics on a
// duplicate (variant, type) pair, since registration only ever happens
// from package-level init() functions — a duplicate there is a build-
// time programming error, not a runtime condition to recover from.
func Register(reg Registration) {
	mu.Lock()
	defer mu.Unlock()

	if reg.Type == "" {
		panic("registry: module registered with empty Type")
	}
	if reg.New == nil {
		panic(fmt.Sprintf("registry: module %s/%s registered with nil Factory", reg.Variant, reg.Type))
	}

	variantTable, ok := table[reg.Variant]
	if !ok {
		panic(fmt.Sprintf("registry: unknown variant %q", reg.Variant))
	}
	if _, exists := variantTable[reg.Type]; exists {
		panic(fmt.Sprintf("registry: module %s/%s already registered", reg.Variant, reg.Type))
	}
	variantTable[reg.Type] = reg
}

// Get looks up a registered module by variant and type.
func Get(v Variant, moduleType string) (Registration, bool) {
	mu.RLock()
	defer mu.RUnlock()
	reg, ok := table[v][moduleType]
	return reg, ok
}

// List returns the type names registered under a variant, sorted for
// stable output (used for `describe` and for unknown-type suggestions).
func List(v Variant) []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(table[v]))
	for name := range table[v] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the total number of registered modules across all
// variants, mirroring Modules.__len__ in the original.
func Count() int {
	mu.RLock()
	defer mu.RUnlock()
	n := 0
	for _, variantTable := range table {
		n += len(variantTable)
	}
	return n
}
