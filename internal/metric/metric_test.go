package metric

import (
	"testing"
	"time"
)

func TestNewScalarRejectsUnsupportedKind(t *testing.T) {
	if _, ok := NewScalar([]string{"a"}); ok {
		t.Fatal("expected slice value to be rejected")
	}
}

func TestFrameSetMetricsOnlyOnce(t *testing.T) {
	f := NewFrame("task", time.Now())
	if err := f.SetMetrics([]Metric{{Name: "task.a"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.SetMetrics([]Metric{{Name: "task.b"}}); err == nil {
		t.Fatal("expected second SetMetrics to fail")
	}
}

func TestFrameFreezeBlocksMutation(t *testing.T) {
	f := NewFrame("task", time.Now())
	_ = f.SetMetrics([]Metric{{Name: "task.a"}})
	f.Freeze()

	err := f.MutateAt(0, func(m *Metric) { m.Name = "changed" })
	if err == nil {
		t.Fatal("expected mutation on frozen frame to fail")
	}
}

func TestFrameMutateAtOutOfRange(t *testing.T) {
	f := NewFrame("task", time.Now())
	_ = f.SetMetrics([]Metric{{Name: "task.a"}})

	if err := f.MutateAt(5, func(m *Metric) {}); err == nil {
		t.Fatal("expected out of range mutation to fail")
	}
}
