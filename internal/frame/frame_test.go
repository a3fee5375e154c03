package frame

import (
	"testing"
	"time"
)

func TestMatchStarCrossesDotBoundary(t *testing.T) {
	if !Match("_source.*", "_source.x") {
		t.Fatal("expected _source.* to match _source.x")
	}
	if !Match("_source.*", "_source.y") {
		t.Fatal("expected _source.* to match _source.y")
	}
	if Match("_source.*", "other") {
		t.Fatal("did not expect _source.* to match other")
	}
}

func TestSelectorExpansionScenario3(t *testing.T) {
	record := map[string]interface{}{"a": 4, "b": 9, "c": 3, "d": 6, "e": 1}
	spec := TaskSpec{
		Name:               "t",
		MetricsSelector:    []string{"a", "b"},
		AttributesSelector: []string{"c", "d"},
	}

	f, err := Build(spec, []map[string]interface{}{record}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Len() != 2 {
		t.Fatalf("expected 2 metrics, got %d", f.Len())
	}

	seenA, seenB := false, false
	for i := 0; i < f.Len(); i++ {
		m := f.At(i)
		c, _ := m.Get("c")
		d, _ := m.Get("d")
		if c.Int != 3 || d.Int != 6 {
			t.Fatalf("expected attrs c=3 d=6, got c=%v d=%v", c.Any(), d.Any())
		}
		switch m.Value.Int {
		case 4:
			seenA = true
		case 9:
			seenB = true
		}
	}
	if !seenA || !seenB {
		t.Fatalf("expected metrics for both a and b")
	}
}

func TestNestedPatternScenario4(t *testing.T) {
	record := map[string]interface{}{
		"_source": map[string]interface{}{"x": 1, "y": 2},
		"other":   9,
	}
	spec := TaskSpec{
		Name:            "t",
		MetricsSelector: "_source.*",
	}

	f, err := Build(spec, []map[string]interface{}{record}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Len() != 2 {
		t.Fatalf("expected 2 metrics, got %d", f.Len())
	}
	for i := 0; i < f.Len(); i++ {
		m := f.At(i)
		other, ok := m.Get("other")
		if !ok || other.Int != 9 {
			t.Fatalf("expected complement attribute other=9, got %v (present=%v)", other.Any(), ok)
		}
	}
}

func TestStaticAttributesWinOnCollision(t *testing.T) {
	record := map[string]interface{}{"a": 1, "region": "us-east"}
	spec := TaskSpec{
		Name:               "t",
		MetricsSelector:    []string{"a"},
		AttributesSelector: []string{"region"},
		StaticAttributes:   map[string]interface{}{"region": "static-region"},
	}

	f, err := Build(spec, []map[string]interface{}{record}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	region, _ := f.At(0).Get("region")
	if region.Str != "static-region" {
		t.Fatalf("expected static_attributes to win, got %q", region.Str)
	}
}

func TestValuelessMetricWhenOnlyAttributesConfigured(t *testing.T) {
	record := map[string]interface{}{"a": 1, "b": 2}
	spec := TaskSpec{
		Name:            "t",
		ExplicitNone:    true,
		AllowNoneMetric: true,
	}

	f, err := Build(spec, []map[string]interface{}{record}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Len() != 1 {
		t.Fatalf("expected exactly one value-less metric, got %d", f.Len())
	}
	if f.At(0).Value != nil {
		t.Fatal("expected a value-less metric")
	}
}

func TestExplicitNoneWithoutAllowNoneMetricFails(t *testing.T) {
	spec := TaskSpec{Name: "t", ExplicitNone: true, AllowNoneMetric: false}
	_, err := Build(spec, []map[string]interface{}{{"a": 1}}, time.Now())
	if err == nil {
		t.Fatal("expected error when allow_none_metric is false")
	}
}

func TestTimestampModifierLaw(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 47, 0, time.UTC)

	// Absent modulus is the identity.
	if got := ApplyModifiers(base, 0, 0); !got.Equal(base) {
		t.Fatalf("expected identity, got %v", got)
	}

	// Modulus floors to the nearest multiple from the epoch.
	got := ApplyModifiers(base, 60*time.Second, 0)
	if got.Unix()%60 != 0 {
		t.Fatalf("expected flooring to 60s boundary, got %v", got)
	}

	// Offset is a signed add on top of the floor.
	withOffset := ApplyModifiers(base, 60*time.Second, 5*time.Second)
	if withOffset.Sub(got) != 5*time.Second {
		t.Fatalf("expected offset to add 5s on top of floor, got delta %v", withOffset.Sub(got))
	}
}
