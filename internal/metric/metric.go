// Package metric defines the value types produced by the frame builder
// and consumed by transforms and outputs: Scalar, Metric, and
// MetricFrame.
package metric

import (
	"fmt"
	"time"
)

// Kind enumerates the scalar value types a Metric or attribute may hold.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindComplex
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindComplex:
		return "complex"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Scalar holds a single typed value.
type Scalar struct {
	Kind    Kind
	Int     int64
	Float   float64
	Bool    bool
	Complex complex128
	Str     string
}

// NewScalar converts a raw record value into a Scalar. It reports
// false if v is not one of the permitted scalar kinds.
func NewScalar(v interface{}) (Scalar, bool) {
	switch t := v.(type) {
	case int:
		return Scalar{Kind: KindInt, Int: int64(t)}, true
	case int32:
		return Scalar{Kind: KindInt, Int: int64(t)}, true
	case int64:
		return Scalar{Kind: KindInt, Int: t}, true
	case float32:
		return Scalar{Kind: KindFloat, Float: float64(t)}, true
	case float64:
		return Scalar{Kind: KindFloat, Float: t}, true
	case bool:
		return Scalar{Kind: KindBool, Bool: t}, true
	case complex64:
		return Scalar{Kind: KindComplex, Complex: complex128(t)}, true
	case complex128:
		return Scalar{Kind: KindComplex, Complex: t}, true
	case string:
		return Scalar{Kind: KindString, Str: t}, true
	default:
		return Scalar{}, false
	}
}

// Any returns the Go value the Scalar wraps.
func (s Scalar) Any() interface{} {
	switch s.Kind {
	case KindInt:
		return s.Int
	case KindFloat:
		return s.Float
	case KindBool:
		return s.Bool
	case KindComplex:
		return s.Complex
	case KindString:
		return s.Str
	default:
		return nil
	}
}

func (s Scalar) String() string {
	return fmt.Sprintf("%v", s.Any())
}

// Metric is a single named value with attributes, produced by the
// frame builder for one resolved metric path in one record.
type Metric struct {
	Name       string
	Value      *Scalar // nil iff the owning task allows value-less metrics
	Attributes map[string]Scalar
}

// Get returns an attribute's raw value and whether it was present.
func (m Metric) Get(key string) (Scalar, bool) {
	v, ok := m.Attributes[key]
	return v, ok
}

// MetricFrame is an ordered group of Metrics sharing a timestamp and a
// task-derived name prefix. It is mutable in place until Freeze is
// called, after which only reads are permitted; transforms may edit a
// metric's value and attributes in place but never add or remove one.
type MetricFrame struct {
	TaskName  string
	Timestamp time.Time

	metrics []Metric
	frozen  bool
}

// NewFrame creates an empty frame for taskName at the given timestamp.
func NewFrame(taskName string, timestamp time.Time) *MetricFrame {
	return &MetricFrame{TaskName: taskName, Timestamp: timestamp}
}

// SetMetrics populates the frame's metrics. It may only be called once,
// by the frame builder, before any transform has run.
func (f *MetricFrame) SetMetrics(metrics []Metric) error {
	if f.frozen {
		return fmt.Errorf("metric: cannot set metrics on a frozen frame")
	}
	if f.metrics != nil {
		return fmt.Errorf("metric: frame metrics already set")
	}
	f.metrics = metrics
	return nil
}

// Len returns the number of metrics in the frame.
func (f *MetricFrame) Len() int { return len(f.metrics) }

// At returns a copy of the metric at index i, safe for read-only
// consumers (outputs).
func (f *MetricFrame) At(i int) Metric { return f.metrics[i] }

// All returns a read-only view over the frame's metrics.
func (f *MetricFrame) All() []Metric { return f.metrics }

// MutateAt lets a transform edit the metric at index i in place. It
// fails once the frame has been frozen or if index i is out of range.
func (f *MetricFrame) MutateAt(i int, fn func(*Metric)) error {
	if f.frozen {
		return fmt.Errorf("metric: cannot mutate a frozen frame")
	}
	if i < 0 || i >= len(f.metrics) {
		return fmt.Errorf("metric: index %d out of range [0,%d)", i, len(f.metrics))
	}
	fn(&f.metrics[i])
	return nil
}

// Freeze marks the frame read-only. Called once, after the transform
// chain has run and before the output chain walks it.
func (f *MetricFrame) Freeze() { f.frozen = true }

// Frozen reports whether Freeze has been called.
func (f *MetricFrame) Frozen() bool { return f.frozen }
