package configloader

import "testing"

func TestMergeRootWinsOnScalarCollision(t *testing.T) {
	base := map[string]interface{}{"name": "base-value", "kept": "x"}
	overlay := map[string]interface{}{"name": "root-value"}

	merged := Merge(base, overlay).(map[string]interface{})
	if merged["name"] != "root-value" {
		t.Fatalf("expected overlay (root) to win, got %v", merged["name"])
	}
	if merged["kept"] != "x" {
		t.Fatalf("expected non-colliding base key to survive, got %v", merged["kept"])
	}
}

func TestMergeListsByNameShallowOverride(t *testing.T) {
	base := []interface{}{
		map[string]interface{}{"name": "A", "priority": 0},
		map[string]interface{}{"name": "B", "priority": 0},
	}
	overlay := []interface{}{
		map[string]interface{}{"name": "B", "priority": 10},
	}

	merged := Merge(base, overlay).([]interface{})
	if len(merged) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(merged))
	}
	b := merged[1].(map[string]interface{})
	if b["priority"] != 10 {
		t.Fatalf("expected B.priority overridden to 10, got %v", b["priority"])
	}
}

func TestMergeUnnamedListEntriesAppend(t *testing.T) {
	base := []interface{}{"a"}
	overlay := []interface{}{"b"}
	merged := Merge(base, overlay).([]interface{})
	if len(merged) != 2 {
		t.Fatalf("expected append of unnamed entries, got %v", merged)
	}
}

func TestMergeAssociativityOnDisjointKeys(t *testing.T) {
	root := map[string]interface{}{"a": 1}
	ext1 := map[string]interface{}{"b": 2}
	ext2 := map[string]interface{}{"c": 3}

	order1 := Merge(Merge(ext2, ext1), root).(map[string]interface{})
	order2 := Merge(Merge(ext1, ext2), root).(map[string]interface{})

	if order1["a"] != order2["a"] || order1["b"] != order2["b"] || order1["c"] != order2["c"] {
		t.Fatalf("expected merge to be independent of extension order on disjoint keys: %v vs %v", order1, order2)
	}
}
