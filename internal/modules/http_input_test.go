package modules

import "testing"

func TestNavigateJSONPathDescendsNestedObjects(t *testing.T) {
	doc := map[string]interface{}{
		"data": map[string]interface{}{
			"items": []interface{}{map[string]interface{}{"id": 1}},
		},
	}
	got := navigateJSONPath(doc, "data.items")
	list, ok := got.([]interface{})
	if !ok || len(list) != 1 {
		t.Fatalf("expected a 1-element list, got %#v", got)
	}
}

func TestToRecordsWrapsSingleObject(t *testing.T) {
	records := toRecords(map[string]interface{}{"a": 1})
	if len(records) != 1 || records[0]["a"] != 1 {
		t.Fatalf("expected single wrapped record, got %#v", records)
	}
}

func TestToRecordsFiltersNonObjectListEntries(t *testing.T) {
	records := toRecords([]interface{}{
		map[string]interface{}{"a": 1},
		"not-an-object",
		map[string]interface{}{"a": 2},
	})
	if len(records) != 2 {
		t.Fatalf("expected 2 object records, got %d", len(records))
	}
}

func TestExtractNextURLReturnsEmptyWhenFieldMissing(t *testing.T) {
	if got := extractNextURL(map[string]interface{}{"data": []interface{}{}}, "next"); got != "" {
		t.Fatalf("expected empty next URL, got %q", got)
	}
}

func TestExtractNextURLReturnsCursor(t *testing.T) {
	got := extractNextURL(map[string]interface{}{"next": "https://api.example.com/page/2"}, "next")
	if got != "https://api.example.com/page/2" {
		t.Fatalf("unexpected next URL: %q", got)
	}
}

func TestStringParamFallsBackToDefaultOnEmpty(t *testing.T) {
	if got := stringParam(map[string]interface{}{"x": ""}, "x", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for empty string, got %q", got)
	}
}

func TestIntParamAcceptsFloat64FromYAML(t *testing.T) {
	if got := intParam(map[string]interface{}{"port": float64(5432)}, "port", 0); got != 5432 {
		t.Fatalf("expected 5432, got %d", got)
	}
}

func TestBoolParamDefaultsWhenAbsent(t *testing.T) {
	if got := boolParam(map[string]interface{}{}, "enabled", true); !got {
		t.Fatal("expected default true when key absent")
	}
}
