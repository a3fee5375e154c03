package settings

import "testing"

func TestPrecedenceFlagBeatsEnvBeatsFlowSettings(t *testing.T) {
	reg := NewRegistry(Spec{Name: "log_level", Kind: KindInt, Default: 20})

	s, err := reg.Resolve(
		map[string]interface{}{"log_level": 10},
		[]string{"STREAMLET_LOG_LEVEL=30"},
		map[string]interface{}{"log_level": 40},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Int("log_level") != 10 {
		t.Fatalf("expected flag value 10 to win, got %d", s.Int("log_level"))
	}
	if !s.IsPersistent("log_level") {
		t.Fatal("expected flag-set value to be persistent")
	}
}

func TestEnvBeatsFlowSettingsWhenNoFlag(t *testing.T) {
	reg := NewRegistry(Spec{Name: "run_once", Kind: KindBool, Default: false})

	s, err := reg.Resolve(nil, []string{"STREAMLET_RUN_ONCE=true"}, map[string]interface{}{"run_once": false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Bool("run_once") {
		t.Fatal("expected env value to win over flow.settings")
	}
	if s.IsPersistent("run_once") {
		t.Fatal("env-sourced values must not be persistent")
	}
}

func TestFlowSettingsAppliesWhenNoOverride(t *testing.T) {
	reg := NewRegistry(Spec{Name: "timezone", Kind: KindString, Default: "UTC"})

	s, err := reg.Resolve(nil, nil, map[string]interface{}{"timezone": "America/New_York"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.String("timezone") != "America/New_York" {
		t.Fatalf("expected flow.settings value, got %q", s.String("timezone"))
	}
}

func TestDefaultsApplyWhenUnset(t *testing.T) {
	reg := Default()
	s, err := reg.Resolve(nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.String("nested_attr_seperator") != "." {
		t.Fatalf("expected default separator '.', got %q", s.String("nested_attr_seperator"))
	}
}

func TestBootstrapOnlyResolvesRequestedNames(t *testing.T) {
	reg := Default()
	s, err := reg.ResolveBootstrap(map[string]interface{}{"config": "/tmp/flow.yaml"}, nil, "config")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.String("config") != "/tmp/flow.yaml" {
		t.Fatalf("expected bootstrap config override, got %q", s.String("config"))
	}
	if s.Get("log_level") != nil {
		t.Fatal("expected bootstrap resolve to omit unrequested settings")
	}
}
