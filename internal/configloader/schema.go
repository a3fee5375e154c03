package configloader

import (
	"time"

	"github.com/streamlet-go/streamlet/internal/schema"
)

// filterFields are the routing filters shared by every Transform and
// Output module block.
func filterFields() []schema.Field {
	globList := schema.List(schema.String())
	return []schema.Field{
		schema.Optional("include_inputs", globList, nil),
		schema.Optional("exclude_inputs", globList, nil),
		schema.Optional("include_tasks", globList, nil),
		schema.Optional("exclude_tasks", globList, nil),
	}
}

// resultSchema validates a Task's `result` block: metrics/attributes
// selectors, each absent/string/list/null.
func resultSchema() schema.Node {
	selector := schema.Union(schema.String(), schema.List(schema.String()), schema.Any())
	return schema.Object(
		schema.Optional("metrics", selector, []interface{}{"metric"}),
		schema.Optional("attributes", selector, nil),
	)
}

func modifiersSchema() schema.Node {
	return schema.Object(
		schema.Optional("time_offset", schema.Duration(), time.Duration(0)),
		schema.Optional("time_modulus", schema.Duration(), time.Duration(0)),
	)
}

// taskSchema validates one Task entry, parameterized by the owning
// Input's task-parameters schema (or schema.Any() if the module
// declared none).
func taskSchema(paramsSchema schema.Node) schema.Node {
	if paramsSchema == nil {
		paramsSchema = schema.Any()
	}
	return schema.Object(
		schema.Required("name", schema.String()),
		schema.Required("cron", schema.Cron()),
		schema.Optional("result", resultSchema(), nil),
		schema.Optional("static_attributes", schema.Map(schema.Any()), map[string]interface{}{}),
		schema.Optional("max_retries", schema.Int(), 2),
		schema.Optional("retry_delay", schema.Duration(), 10*time.Second),
		schema.Optional("modifiers", modifiersSchema(), nil),
		schema.Optional("repeat_for", schema.Map(schema.Any()), nil),
		schema.Optional("params", paramsSchema, nil),
	)
}

// moduleSchema validates one Input/Transform/Output entry's common
// envelope; connectionSchema and extra (params, tasks, filters,
// priority) are type/variant-specific and merged in by the caller.
// enabledDefault carries the resolved disable_default setting: modules
// with no explicit `enabled:` key default to disabled once
// disable_default is set.
func moduleSchema(connectionSchema schema.Node, enabledDefault bool, extra ...schema.Field) schema.Node {
	if connectionSchema == nil {
		connectionSchema = schema.Any()
	}
	fields := []schema.Field{
		schema.Required("type", schema.String()),
		schema.Optional("name", schema.String(), nil),
		schema.Optional("enabled", schema.Bool(), enabledDefault),
		schema.Optional("connection", connectionSchema, nil),
	}
	fields = append(fields, extra...)
	return schema.Object(fields...)
}

// HeaderSchema validates the root `flow:` block.
func HeaderSchema() schema.Node {
	return schema.Object(
		schema.Required("version", schema.String()),
		schema.Optional("extends", schema.List(schema.String()), []interface{}{}),
		schema.Optional("settings", schema.Map(schema.Any()), map[string]interface{}{}),
	)
}

// RootEnvSchema validates the optional top-level `env:` block.
func RootEnvSchema() schema.Node {
	return schema.Map(schema.Any())
}
