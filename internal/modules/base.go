// Package modules holds the built-in Input/Transform/Output modules.
// Each file self-registers its module type into internal/registry
// from an init() function, and each module's connection handling is
// grounded on the matching manager in pkg/runtime or pkg/utils,
// adapting those key-value store backends into fetch/transform/emit
// modules for a metric pipeline.
package modules

import (
	"context"

	"github.com/streamlet-go/flowlib"
	"github.com/streamlet-go/streamlet/internal/metric"
)

// Fetcher is implemented by Input modules: Fetch is called once per
// fire with that fire's task-specific params (distinct tasks under the
// same input can pass different params, unlike Transform/Output
// modules whose params are fixed at construction).
type Fetcher interface {
	Fetch(ctx context.Context, params map[string]interface{}) ([]map[string]interface{}, error)
}

// Applier is implemented by Transform modules.
type Applier interface {
	Apply(ctx context.Context, f *metric.MetricFrame) error
}

// Emitter is implemented by Output modules.
type Emitter interface {
	Emit(ctx context.Context, f *metric.MetricFrame) error
}

// Base gives a module Instance the flowlib.Node bookkeeping (params,
// successor wiring) for free, following the delegation pattern of
// pkg/runtime/node_wrappers.go's NodeWrapper: hold the interface, not
// the unexported concrete type, and forward every Node method to it.
// Concrete modules embed Base (which already supplies Name) and only
// need to implement whatever OnConnect/OnPreShutdown/OnShutdown/Run
// they need beyond the no-op defaults here.
type Base struct {
	node flowlib.Node
	name string
}

// NewBase wraps a freshly built flowlib.Node with a module name.
func NewBase(name string) Base {
	return Base{node: flowlib.NewNode(0, 0), name: name}
}

func (b *Base) SetParams(params map[string]interface{})     { b.node.SetParams(params) }
func (b *Base) Params() map[string]interface{}              { return b.node.Params() }
func (b *Base) Next(action flowlib.Action, n flowlib.Node)  { b.node.Next(action, n) }
func (b *Base) Successors() map[flowlib.Action]flowlib.Node { return b.node.Successors() }

func (b *Base) Name() string { return b.name }

// Run is a no-op default; modules whose only role is being invoked
// through the scheduler's InputFunc/TransformFunc/OutputFunc closures
// never need Run called directly, since the compiled chain calls those
// closures instead of Node.Run — registry.Instance still requires the
// method, so it stays available as a no-op.
func (b *Base) Run(shared interface{}) (flowlib.Action, error) {
	return flowlib.DefaultAction, nil
}

func (b *Base) OnConnect() error     { return nil }
func (b *Base) OnPreShutdown() error { return nil }
func (b *Base) OnShutdown() error    { return nil }

func stringParam(config map[string]interface{}, key, def string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return def
}

func intParam(config map[string]interface{}, key string, def int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func boolParam(config map[string]interface{}, key string, def bool) bool {
	if v, ok := config[key].(bool); ok {
		return v
	}
	return def
}
