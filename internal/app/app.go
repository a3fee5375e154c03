// Package app builds a runnable streamlet pipeline from a loaded,
// validated configuration document: it constructs every module
// instance, connects them, compiles each task's transform/output
// chain, and wires the result into a Scheduler. Both cmd/streamlet
// (the daemon) and cmd/streamlet-cli (run/validate/describe) share
// this construction path, grounded on cmd/flowrunner/main.go's App
// struct.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/streamlet-go/streamlet/internal/broker"
	"github.com/streamlet-go/streamlet/internal/chain"
	"github.com/streamlet-go/streamlet/internal/configloader"
	"github.com/streamlet-go/streamlet/internal/errkind"
	"github.com/streamlet-go/streamlet/internal/frame"
	"github.com/streamlet-go/streamlet/internal/lifecycle"
	"github.com/streamlet-go/streamlet/internal/logging"
	"github.com/streamlet-go/streamlet/internal/modules"
	"github.com/streamlet-go/streamlet/internal/registry"
	"github.com/streamlet-go/streamlet/internal/scheduler"
	"github.com/streamlet-go/streamlet/internal/settings"
)

// App wires a loaded, validated Document into a runnable Scheduler.
type App struct {
	Doc       *configloader.Document
	Log       logging.Logger
	Settings  *settings.Settings
	Instances []registry.Instance
	Scheduler *scheduler.Scheduler
	Broker    broker.Broker
}

// Chain is one compiled (input, task) pair's static description,
// enough for `validate`/`describe` to print without starting anything.
type Chain struct {
	InputName  string
	TaskName   string
	Cron       string
	Transforms []string
	Outputs    []string
}

// New loads configuration, resolves settings, constructs every module
// instance, connects them, and compiles each task's chain. It does not
// start the scheduler — callers decide whether to Start, or only
// inspect the result (validate/describe).
func New(flags map[string]interface{}) (*App, error) {
	return newApp(flags, true)
}

// NewWithoutConnecting builds an App the same way New does, but skips
// lifecycle.Connect: callers that only need the compiled chains
// (--only-validate, `validate`, `describe`) must not require live
// connections to a config's databases/brokers/endpoints to succeed.
func NewWithoutConnecting(flags map[string]interface{}) (*App, error) {
	return newApp(flags, false)
}

func newApp(flags map[string]interface{}, connect bool) (*App, error) {
	bootstrap, err := settings.Default().ResolveBootstrap(flags, settings.OSEnviron(),
		"config", "log_level", "only_validate", "print_config", "run_once", "disable_outputs", "dispatch_pool",
		"disable_default", "skip_disabled_validation")
	if err != nil {
		return nil, err
	}

	doc, err := configloader.Load(bootstrap.String("config"), configloader.LoadOptions{
		DisableDefault:         bootstrap.Bool("disable_default"),
		SkipDisabledValidation: bootstrap.Bool("skip_disabled_validation"),
	})
	if err != nil {
		return nil, err
	}

	resolved, err := settings.Default().Resolve(flags, settings.OSEnviron(), doc.Settings)
	if err != nil {
		return nil, err
	}

	appLog := logging.New(logging.Level(resolved.Int("log_level")))

	a := &App{Doc: doc, Log: appLog, Settings: resolved, Broker: newBrokerFromSettings(resolved)}

	if err := a.buildInstances(); err != nil {
		return nil, err
	}
	if connect {
		if err := a.connect(); err != nil {
			return nil, err
		}
	}
	if err := a.buildScheduler(); err != nil {
		return nil, err
	}
	return a, nil
}

func newBrokerFromSettings(s *settings.Settings) broker.Broker {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	return broker.NewRedisBroker(client)
}

func (a *App) buildInstances() error {
	for _, in := range a.Doc.Inputs {
		if enabled, ok := in["enabled"].(bool); ok && !enabled {
			continue
		}
		moduleType, _ := in["type"].(string)
		name, _ := in["name"].(string)
		if name == "" {
			name = moduleType
		}
		reg, ok := registry.Get(registry.Input, moduleType)
		if !ok {
			return errkind.New(errkind.ConfigInvalid, fmt.Errorf("unregistered input type %q", moduleType)).WithModule(name)
		}
		connection, _ := in["connection"].(map[string]interface{})
		inst, err := reg.New(name, connection)
		if err != nil {
			return errkind.New(errkind.StartupHookFailed, err).WithModule(name)
		}
		a.Instances = append(a.Instances, inst)
	}

	for _, tr := range a.Doc.Transforms {
		if enabled, ok := tr["enabled"].(bool); ok && !enabled {
			continue
		}
		if err := a.instantiateNonInput(tr, registry.Transform); err != nil {
			return err
		}
	}
	for _, out := range a.Doc.Outputs {
		if enabled, ok := out["enabled"].(bool); ok && !enabled {
			continue
		}
		if err := a.instantiateNonInput(out, registry.Output); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) instantiateNonInput(m map[string]interface{}, variant registry.Variant) error {
	moduleType, _ := m["type"].(string)
	name, _ := m["name"].(string)
	if name == "" {
		name = moduleType
	}
	reg, ok := registry.Get(variant, moduleType)
	if !ok {
		return errkind.New(errkind.ConfigInvalid, fmt.Errorf("unregistered module type %q", moduleType)).WithModule(name)
	}
	connection, _ := m["connection"].(map[string]interface{})
	params, _ := m["params"].(map[string]interface{})
	merged := mergeMaps(connection, params)
	inst, err := reg.New(name, merged)
	if err != nil {
		return errkind.New(errkind.StartupHookFailed, err).WithModule(name)
	}
	a.Instances = append(a.Instances, inst)
	return nil
}

// taskList converts an already-validated "tasks" field (a []interface{}
// of map[string]interface{}, per schema.List's normalized output) into
// a concrete slice.
func taskList(v interface{}) []map[string]interface{} {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

func mergeMaps(a, b map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func (a *App) connect() error {
	hooked := make([]lifecycle.Hooked, len(a.Instances))
	for i, inst := range a.Instances {
		hooked[i] = inst
	}
	return lifecycle.Connect(hooked, a.Log)
}

func (a *App) buildScheduler() error {
	pool := scheduler.PoolParallel
	if a.Settings.String("dispatch_pool") == "serial" {
		pool = scheduler.PoolSerial
	}

	loc, err := time.LoadLocation(a.Settings.String("timezone"))
	if err != nil {
		a.Log.Warn("unrecognized timezone setting, falling back to UTC", "timezone", a.Settings.String("timezone"), "error", err.Error())
		loc = time.UTC
	}

	a.Scheduler = scheduler.New(scheduler.Options{
		Pool:           pool,
		DisableOutputs: a.Settings.Bool("disable_outputs"),
		RunOnce:        a.Settings.Bool("run_once"),
		Location:       loc,
		Logger:         a.Log,
		Broker:         a.Broker,
	})

	byName := map[string]registry.Instance{}
	for _, inst := range a.Instances {
		byName[inst.Name()] = inst
	}

	transforms, outputs := a.buildChainDefinitions()

	for _, in := range a.Doc.Inputs {
		inputName, _ := in["name"].(string)
		moduleType, _ := in["type"].(string)
		if inputName == "" {
			inputName = moduleType
		}
		inst, ok := byName[inputName]
		if !ok {
			continue
		}
		fetcher, ok := inst.(modules.Fetcher)
		if !ok {
			return fmt.Errorf("input %q does not implement Fetch", inputName)
		}

		for _, task := range taskList(in["tasks"]) {
			tc, err := a.buildTaskChain(inputName, task, fetcher, byName, transforms, outputs)
			if err != nil {
				return err
			}
			if err := a.Scheduler.Register(tc); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *App) buildChainDefinitions() ([]chain.Transform, []chain.Output) {
	var transforms []chain.Transform
	for i, tr := range a.Doc.Transforms {
		name, _ := tr["name"].(string)
		transforms = append(transforms, chain.Transform{
			Name:     name,
			Enabled:  boolField(tr, "enabled", true),
			Priority: intField(tr, "priority", 0),
			Filters:  filtersFromMap(tr),
			Order:    i,
		})
	}
	var outputs []chain.Output
	for i, out := range a.Doc.Outputs {
		name, _ := out["name"].(string)
		outputs = append(outputs, chain.Output{
			Name:    name,
			Enabled: boolField(out, "enabled", true),
			Filters: filtersFromMap(out),
			Order:   i,
		})
	}
	return transforms, outputs
}

func filtersFromMap(m map[string]interface{}) chain.Filters {
	return chain.Filters{
		IncludeInputs: stringListField(m, "include_inputs"),
		ExcludeInputs: stringListField(m, "exclude_inputs"),
		IncludeTasks:  stringListField(m, "include_tasks"),
		ExcludeTasks:  stringListField(m, "exclude_tasks"),
	}
}

func stringListField(m map[string]interface{}, key string) []string {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, fmt.Sprintf("%v", v))
	}
	return out
}

func boolField(m map[string]interface{}, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

func intField(m map[string]interface{}, key string, def int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

func (a *App) buildTaskChain(inputName string, task map[string]interface{}, fetcher modules.Fetcher,
	byName map[string]registry.Instance, transformDefs []chain.Transform, outputDefs []chain.Output) (*scheduler.TaskChain, error) {

	taskName, _ := task["name"].(string)
	cronExpr, _ := task["cron"].(string)
	params, _ := task["params"].(map[string]interface{})
	maxRetries := intField(task, "max_retries", 2)
	retryDelay := 10 * time.Second
	if raw, ok := task["retry_delay"]; ok {
		if d, err := frameParseDuration(raw); err == nil {
			retryDelay = d
		}
	}

	transformCalls := map[string]scheduler.TransformFunc{}
	for _, td := range transformDefs {
		inst, ok := byName[td.Name]
		if !ok {
			continue
		}
		applier, ok := inst.(modules.Applier)
		if !ok {
			continue
		}
		transformCalls[td.Name] = applier.Apply
	}
	outputCalls := map[string]scheduler.OutputFunc{}
	for _, od := range outputDefs {
		inst, ok := byName[od.Name]
		if !ok {
			continue
		}
		emitter, ok := inst.(modules.Emitter)
		if !ok {
			continue
		}
		outputCalls[od.Name] = emitter.Emit
	}

	namedTransforms, namedOutputs := scheduler.Compile(inputName, taskName, transformDefs, transformCalls, outputDefs, outputCalls)

	return &scheduler.TaskChain{
		InputName:  inputName,
		TaskName:   taskName,
		Cron:       cronExpr,
		Params:     params,
		FrameSpec:  a.taskSpecFromMap(taskName, task),
		MaxRetries: maxRetries,
		RetryDelay: retryDelay,
		Invoke:     fetcher.Fetch,
		Transforms: namedTransforms,
		Outputs:    namedOutputs,
	}, nil
}

func (a *App) taskSpecFromMap(taskName string, task map[string]interface{}) frame.TaskSpec {
	result, _ := task["result"].(map[string]interface{})
	metricsSelector, hasMetrics := result["metrics"]
	modifiers, _ := task["modifiers"].(map[string]interface{})

	var timeOffset, timeModulus time.Duration
	if raw, ok := modifiers["time_offset"]; ok {
		if d, err := frameParseDuration(raw); err == nil {
			timeOffset = d
		}
	}
	if raw, ok := modifiers["time_modulus"]; ok {
		if d, err := frameParseDuration(raw); err == nil {
			timeModulus = d
		}
	}

	return frame.TaskSpec{
		Name:               taskName,
		MetricsSelector:    metricsSelector,
		ExplicitNone:       hasMetrics && metricsSelector == nil,
		AllowNoneMetric:    boolField(task, "allow_none_metric", a.Settings.Bool("allow_none_metric")),
		AttributesSelector: result["attributes"],
		StaticAttributes:   asMap(task["static_attributes"]),
		TimeOffset:         timeOffset,
		TimeModulus:        timeModulus,
		NestedSep:          a.Settings.String("nested_attr_seperator"),
	}
}

func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func frameParseDuration(v interface{}) (time.Duration, error) {
	switch t := v.(type) {
	case time.Duration:
		return t, nil
	default:
		return 0, fmt.Errorf("not a duration: %v", v)
	}
}

// Start begins the scheduler.
func (a *App) Start(ctx context.Context) {
	a.Scheduler.Start(ctx)
}

// Stop stops the scheduler, then runs every module's pre-shutdown hook
// in declaration order and its shutdown hook in reverse order, then
// closes the broker.
func (a *App) Stop() {
	a.Scheduler.Stop(10 * time.Second)

	hooked := make([]lifecycle.Hooked, len(a.Instances))
	for i, inst := range a.Instances {
		hooked[i] = inst
	}
	lifecycle.Shutdown(hooked, a.Log)

	if a.Broker != nil {
		_ = a.Broker.Close()
	}
}

// Chains returns each task's compiled (input, task) description, in
// declaration order, for `validate`/`describe` to print.
func (a *App) Chains() []Chain {
	transformDefs, outputDefs := a.buildChainDefinitions()

	var out []Chain
	for _, in := range a.Doc.Inputs {
		inputName, _ := in["name"].(string)
		moduleType, _ := in["type"].(string)
		if inputName == "" {
			inputName = moduleType
		}
		for _, task := range taskList(in["tasks"]) {
			taskName, _ := task["name"].(string)
			cronExpr, _ := task["cron"].(string)
			orderedT, orderedO := chain.Compile(inputName, taskName, transformDefs, outputDefs)

			c := Chain{InputName: inputName, TaskName: taskName, Cron: cronExpr}
			for _, t := range orderedT {
				c.Transforms = append(c.Transforms, t.Name)
			}
			for _, o := range orderedO {
				c.Outputs = append(c.Outputs, o.Name)
			}
			out = append(out, c)
		}
	}
	return out
}
