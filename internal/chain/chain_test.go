package chain

import "testing"

func TestCompileSortsByPriorityDescendingThenDeclarationOrder(t *testing.T) {
	transforms := []Transform{
		{Name: "A", Enabled: true, Priority: 0, Order: 0},
		{Name: "B", Enabled: true, Priority: 0, Order: 1},
	}
	chosen, _ := Compile("in", "task", transforms, nil)
	if len(chosen) != 2 || chosen[0].Name != "A" || chosen[1].Name != "B" {
		t.Fatalf("expected stable tie-break order [A B], got %v", names(chosen))
	}
}

func TestPriorityOverrideScenario5(t *testing.T) {
	transforms := []Transform{
		{Name: "A", Enabled: true, Priority: 0, Order: 0},
		{Name: "B", Enabled: true, Priority: 10, Order: 1},
	}
	chosen, _ := Compile("in", "task", transforms, nil)
	if len(chosen) != 2 || chosen[0].Name != "B" || chosen[1].Name != "A" {
		t.Fatalf("expected [B A], got %v", names(chosen))
	}
}

func TestNegativePriorityGoesLast(t *testing.T) {
	transforms := []Transform{
		{Name: "Neg", Enabled: true, Priority: -5, Order: 0},
		{Name: "Zero", Enabled: true, Priority: 0, Order: 1},
	}
	chosen, _ := Compile("in", "task", transforms, nil)
	if chosen[0].Name != "Zero" || chosen[1].Name != "Neg" {
		t.Fatalf("expected [Zero Neg], got %v", names(chosen))
	}
}

func TestDisabledModuleDropped(t *testing.T) {
	transforms := []Transform{{Name: "Off", Enabled: false}}
	chosen, _ := Compile("in", "task", transforms, nil)
	if len(chosen) != 0 {
		t.Fatalf("expected disabled transform to be dropped, got %v", names(chosen))
	}
}

func TestIncludeExcludeFilterLaw(t *testing.T) {
	includeOnly := Filters{IncludeTasks: []string{"a_*"}}
	if !includeOnly.Admits("in", "a_1") {
		t.Fatal("expected include filter to admit a matching task")
	}
	if includeOnly.Admits("in", "b_1") {
		t.Fatal("expected include filter to reject a non-matching task")
	}

	excludeOnly := Filters{ExcludeTasks: []string{"a_*"}}
	if excludeOnly.Admits("in", "a_1") {
		t.Fatal("expected exclude filter to reject a matching task")
	}
	if !excludeOnly.Admits("in", "b_1") {
		t.Fatal("expected exclude filter to admit a non-matching task")
	}

	permissive := Filters{}
	if !permissive.Admits("in", "anything") {
		t.Fatal("expected an empty filter set to be fully permissive")
	}
}

func TestOutputChainPreservesDeclarationOrderRegardlessOfName(t *testing.T) {
	outputs := []Output{
		{Name: "z", Enabled: true, Order: 0},
		{Name: "a", Enabled: true, Order: 1},
	}
	_, chosen := Compile("in", "task", nil, outputs)
	if chosen[0].Name != "z" || chosen[1].Name != "a" {
		t.Fatalf("expected declaration order [z a], got %v", outputNames(chosen))
	}
}

func TestZeroMatchingOutputsIsEmptyChain(t *testing.T) {
	outputs := []Output{{Name: "only", Enabled: true, Filters: Filters{IncludeTasks: []string{"nomatch"}}}}
	_, chosen := Compile("in", "task", nil, outputs)
	if len(chosen) != 0 {
		t.Fatalf("expected empty output chain, got %v", outputNames(chosen))
	}
}

func names(ts []Transform) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name
	}
	return out
}

func outputNames(os []Output) []string {
	out := make([]string, len(os))
	for i, o := range os {
		out[i] = o.Name
	}
	return out
}
