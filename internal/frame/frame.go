// Package frame implements the metric-frame builder: projecting raw
// records from an Input into a metric.MetricFrame using
// selector/pattern/nested-path rules and timestamp modifiers.
// Selector and emission semantics are pinned to
// StreamletTaskBlueprint.process_result / extract_metrics in
// original_source/src/core/task.py.
package frame

import (
	"fmt"
	"time"

	"github.com/streamlet-go/streamlet/internal/errkind"
	"github.com/streamlet-go/streamlet/internal/metric"
)

// TaskSpec carries the parts of a task definition the frame builder
// needs: its result selector, static attributes, and timestamp
// modifiers, already normalized by the config loader.
type TaskSpec struct {
	Name string

	// MetricsSelector is nil, a string, or []string; ExplicitNone is
	// set when the configuration explicitly wrote `metrics: null`
	// (distinct from an absent `metrics` key, which defaults to
	// "metric").
	MetricsSelector interface{}
	ExplicitNone    bool
	AllowNoneMetric bool

	// AttributesSelector is nil (auto-complement) or a selector.
	AttributesSelector interface{}

	StaticAttributes map[string]interface{}

	TimeOffset  time.Duration
	TimeModulus time.Duration

	NestedSep string
}

// Build projects one or more raw records (as produced by an Input)
// into a MetricFrame for Task, using fireTime as the base
// timestamp before modifiers are applied.
func Build(spec TaskSpec, records []map[string]interface{}, fireTime time.Time) (*metric.MetricFrame, error) {
	sep := spec.NestedSep
	if sep == "" {
		sep = "."
	}

	ts := ApplyModifiers(fireTime, spec.TimeModulus, spec.TimeOffset)
	f := metric.NewFrame(spec.Name, ts)

	var metrics []metric.Metric
	for _, record := range records {
		recMetrics, err := buildFromRecord(spec, record, sep)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, recMetrics...)
	}

	if err := f.SetMetrics(metrics); err != nil {
		return nil, errkind.New(errkind.FrameBuildFailed, err).WithTask(spec.Name)
	}
	return f, nil
}

func buildFromRecord(spec TaskSpec, record map[string]interface{}, sep string) ([]metric.Metric, error) {
	flat := Flatten(record, sep)
	flatKeys := SortedKeys(flat)

	var metricKeys []string
	if !spec.ExplicitNone {
		metricKeys = ExpandSelector(spec.MetricsSelector, flatKeys)
	} else if !spec.AllowNoneMetric {
		return nil, errkind.New(errkind.FrameBuildFailed,
			fmt.Errorf("task %q selects metrics: None but allow_none_metric is not enabled", spec.Name)).
			WithTask(spec.Name)
	}

	var attrKeys []string
	if spec.AttributesSelector == nil {
		attrKeys = Complement(flatKeys, metricKeys)
	} else {
		attrKeys = Complement(ExpandSelector(spec.AttributesSelector, flatKeys), metricKeys)
	}

	attrs := map[string]metric.Scalar{}
	for _, k := range attrKeys {
		sc, ok := metric.NewScalar(flat[k])
		if !ok {
			return nil, errkind.New(errkind.FrameBuildFailed,
				fmt.Errorf("attribute %q has unsupported value type %T", k, flat[k])).
				WithTask(spec.Name).WithPath(k)
		}
		attrs[k] = sc
	}
	for k, v := range spec.StaticAttributes {
		sc, ok := metric.NewScalar(v)
		if !ok {
			return nil, errkind.New(errkind.FrameBuildFailed,
				fmt.Errorf("static_attributes[%q] has unsupported value type %T", k, v)).
				WithTask(spec.Name)
		}
		// static attributes win on collision: overwrite unconditionally.
		attrs[k] = sc
	}

	if len(metricKeys) == 0 {
		// Value-less metric: only attributes were configured, or
		// metrics was explicitly None. Permitted only when the task
		// sets allow_none_metric.
		if !spec.AllowNoneMetric {
			return nil, errkind.New(errkind.FrameBuildFailed,
				fmt.Errorf("no metric field selected and allow_none_metric is not set")).
				WithTask(spec.Name)
		}
		m := metric.Metric{Name: spec.Name, Value: nil, Attributes: cloneAttrs(attrs)}
		return []metric.Metric{m}, nil
	}

	metrics := make([]metric.Metric, 0, len(metricKeys))
	for _, k := range metricKeys {
		sc, ok := metric.NewScalar(flat[k])
		if !ok {
			return nil, errkind.New(errkind.FrameBuildFailed,
				fmt.Errorf("metric %q has unsupported value type %T", k, flat[k])).
				WithTask(spec.Name).WithPath(k)
		}
		fieldAttrs := cloneAttrs(attrs)
		fieldAttrs["metric_field_name"] = metric.Scalar{Kind: metric.KindString, Str: k}

		leaf := LeafName(k, sep)
		m := metric.Metric{
			Name:       spec.Name + sep + leaf,
			Value:      &sc,
			Attributes: fieldAttrs,
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

func cloneAttrs(in map[string]metric.Scalar) map[string]metric.Scalar {
	out := make(map[string]metric.Scalar, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ApplyModifiers computes the frame timestamp: floor to the nearest
// multiple of modulus from the epoch, then apply a signed add of
// offset. A zero modulus is the identity; a zero offset adds nothing.
func ApplyModifiers(base time.Time, modulus, offset time.Duration) time.Time {
	t := base
	if modulus > 0 {
		unix := t.UnixNano()
		floored := unix - unix%int64(modulus)
		t = time.Unix(0, floored).In(base.Location())
	}
	return t.Add(offset)
}
