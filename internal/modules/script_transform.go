package modules

import (
	"context"
	"fmt"

	"github.com/dop251/goja"

	"github.com/streamlet-go/streamlet/internal/metric"
	"github.com/streamlet-go/streamlet/internal/registry"
	"github.com/streamlet-go/streamlet/internal/scheduler"
	"github.com/streamlet-go/streamlet/internal/schema"
)

func init() {
	registry.Register(registry.Registration{
		Variant: registry.Transform,
		Type:    "script",
		ParamsSchema: schema.Object(
			schema.Required("script", schema.String()),
			schema.Optional("terminal_on_error", schema.Bool(), false),
		),
		New: newScriptTransform,
	})
}

// scriptTransform runs a JavaScript expression over every metric in a
// frame via goja, grounded on NewTransformNodeWrapper's VM setup in
// pkg/runtime/core_nodes.go (console.log shim, `input`/`shared`
// bindings), narrowed here to one metric's name/value/attributes per
// invocation instead of a whole-shared-state script.
type scriptTransform struct {
	Base
	program         *goja.Program
	terminalOnError bool
}

func newScriptTransform(name string, config map[string]interface{}) (registry.Instance, error) {
	source, _ := config["script"].(string)
	if source == "" {
		return nil, fmt.Errorf("script transform %s: script is required", name)
	}
	program, err := goja.Compile(name, source, false)
	if err != nil {
		return nil, fmt.Errorf("script transform %s: compile failed: %w", name, err)
	}
	terminal, _ := config["terminal_on_error"].(bool)

	return &scriptTransform{Base: NewBase(name), program: program, terminalOnError: terminal}, nil
}

// Apply runs the compiled script once per metric in the frame,
// exposing `name`, `value`, and `attrs` bindings; the script may
// reassign `value` or set `attrs[...]` to mutate the metric. Metrics
// are never added or removed here: a script that wants to suppress a
// value clears it via `value = null`, leaving the metric value-less
// rather than absent.
func (s *scriptTransform) Apply(ctx context.Context, f *metric.MetricFrame) error {
	var firstErr error
	for i := 0; i < f.Len(); i++ {
		m := f.At(i)
		vm := goja.New()

		console := vm.NewObject()
		_ = console.Set("log", func(call goja.FunctionCall) goja.Value {
			return goja.Undefined()
		})
		vm.Set("console", console)
		vm.Set("name", m.Name)
		if m.Value != nil {
			vm.Set("value", m.Value.Any())
		} else {
			vm.Set("value", goja.Null())
		}
		vm.Set("attrs", cloneScalarMap(m.Attributes))

		if _, err := vm.RunProgram(s.program); err != nil {
			if s.terminalOnError {
				return &scheduler.TerminalTransformError{Cause: fmt.Errorf("script transform: %w", err)}
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("script transform: %w", err)
			}
			continue
		}

		newValueExported := vm.Get("value").Export()
		newAttrs, _ := vm.Get("attrs").Export().(map[string]interface{})

		if err := f.MutateAt(i, func(mm *metric.Metric) {
			if newValueExported == nil {
				mm.Value = nil
			} else if sc, ok := metric.NewScalar(newValueExported); ok {
				mm.Value = &sc
			}
			for k, v := range newAttrs {
				if sc, ok := metric.NewScalar(v); ok {
					mm.Attributes[k] = sc
				}
			}
		}); err != nil {
			return err
		}
	}
	return firstErr
}

func cloneScalarMap(m map[string]metric.Scalar) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v.Any()
	}
	return out
}
