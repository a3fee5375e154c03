package registry

import (
	"testing"

	"github.com/streamlet-go/streamlet/internal/schema"
)

func TestRegisterAndGetRoundTrips(t *testing.T) {
	resetForTest()
	Register(Registration{
		Variant:          Input,
		Type:             "stub_registry_test",
		ConnectionSchema: schema.Object(schema.Required("host", schema.String())),
		New: func(name string, config map[string]interface{}) (Instance, error) {
			return nil, nil
		},
	})

	reg, ok := Get(Input, "stub_registry_test")
	if !ok {
		t.Fatal("expected registration to be found")
	}
	if reg.Variant != Input {
		t.Fatalf("expected Input variant, got %v", reg.Variant)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	resetForTest()
	reg := Registration{
		Variant: Output,
		Type:    "dup_registry_test",
		New:     func(name string, config map[string]interface{}) (Instance, error) { return nil, nil },
	}
	Register(reg)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected duplicate registration to panic")
		}
	}()
	Register(reg)
}

func TestListIsSorted(t *testing.T) {
	resetForTest()
	Register(Registration{Variant: Transform, Type: "zzz", New: noopFactory})
	Register(Registration{Variant: Transform, Type: "aaa", New: noopFactory})

	names := List(Transform)
	if len(names) != 2 || names[0] != "aaa" || names[1] != "zzz" {
		t.Fatalf("expected sorted [aaa zzz], got %v", names)
	}
}

func noopFactory(name string, config map[string]interface{}) (Instance, error) { return nil, nil }

// resetForTest clears the table between tests since Register panics on
// duplicates and tests run in the same process-wide registry.
func resetForTest() {
	mu.Lock()
	defer mu.Unlock()
	table = map[Variant]map[string]Registration{
		Input:     {},
		Transform: {},
		Output:    {},
	}
}
