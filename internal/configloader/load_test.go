package configloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/streamlet-go/streamlet/internal/registry"
	"github.com/streamlet-go/streamlet/internal/schema"
)

func init() {
	registry.Register(registry.Registration{
		Variant: registry.Input,
		Type:    "configloader_test_stub",
		New: func(name string, config map[string]interface{}) (registry.Instance, error) {
			return nil, nil
		},
	})
	registry.Register(registry.Registration{
		Variant: registry.Output,
		Type:    "configloader_test_stub",
		New: func(name string, config map[string]interface{}) (registry.Instance, error) {
			return nil, nil
		},
	})
}

func writeYAML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestLoadTypoSuggestionScenario1(t *testing.T) {
	dir := t.TempDir()
	root := writeYAML(t, dir, "flow.yaml", `
flow:
  version: "1"
inputs:
  - type: configloader_test_stub
    tasks:
      - name: t1
        cronn: "0 0 * * *"
`)

	_, err := Load(root, LoadOptions{})
	if err == nil {
		t.Fatal("expected validation failure for `cronn` typo")
	}
}

func TestLoadValidConfigurationRoundTrips(t *testing.T) {
	dir := t.TempDir()
	root := writeYAML(t, dir, "flow.yaml", `
flow:
  version: "1"
inputs:
  - type: configloader_test_stub
    tasks:
      - name: t1
        cron: "0 0 * * *"
`)

	doc, err := Load(root, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Inputs) != 1 {
		t.Fatalf("expected 1 input, got %d", len(doc.Inputs))
	}
}

func TestLoadRejectsDuplicateTaskNames(t *testing.T) {
	dir := t.TempDir()
	root := writeYAML(t, dir, "flow.yaml", `
flow:
  version: "1"
inputs:
  - type: configloader_test_stub
    tasks:
      - name: dup
        cron: "0 0 * * *"
      - name: dup
        cron: "0 1 * * *"
`)

	if _, err := Load(root, LoadOptions{}); err == nil {
		t.Fatal("expected duplicate task name to be rejected")
	}
}

func TestLoadWithExtensionRootWins(t *testing.T) {
	dir := t.TempDir()
	ext := writeYAML(t, dir, "base.yaml", `
flow:
  version: "1"
inputs:
  - type: configloader_test_stub
    name: shared
    tasks:
      - name: shared_task
        cron: "0 0 * * *"
`)
	root := writeYAML(t, dir, "flow.yaml", `
flow:
  version: "1"
  extends: ["`+ext+`"]
inputs:
  - type: configloader_test_stub
    name: shared
    enabled: false
    tasks: []
`)

	doc, err := Load(root, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Inputs) != 1 {
		t.Fatalf("expected merged single input, got %d", len(doc.Inputs))
	}
	if doc.Inputs[0]["enabled"] != false {
		t.Fatalf("expected root's enabled:false to win over extension, got %v", doc.Inputs[0]["enabled"])
	}
}

func TestLoadDisableDefaultFlipsEnabledDefault(t *testing.T) {
	dir := t.TempDir()
	root := writeYAML(t, dir, "flow.yaml", `
flow:
  version: "1"
inputs:
  - type: configloader_test_stub
    tasks:
      - name: t1
        cron: "0 0 * * *"
`)

	doc, err := Load(root, LoadOptions{DisableDefault: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Inputs[0]["enabled"] != false {
		t.Fatalf("expected disable_default to flip the implicit enabled default to false, got %v", doc.Inputs[0]["enabled"])
	}
}

func TestLoadDefaultRetryDelayIsADuration(t *testing.T) {
	dir := t.TempDir()
	root := writeYAML(t, dir, "flow.yaml", `
flow:
  version: "1"
inputs:
  - type: configloader_test_stub
    tasks:
      - name: t1
        cron: "0 0 * * *"
`)

	doc, err := Load(root, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tasks, _ := doc.Inputs[0]["tasks"].([]interface{})
	taskMap, _ := tasks[0].(map[string]interface{})
	if _, ok := taskMap["retry_delay"].(time.Duration); !ok {
		t.Fatalf("expected defaulted retry_delay to be a time.Duration, got %T", taskMap["retry_delay"])
	}
}

func TestLoadRejectsIncludeExcludeTasksTogether(t *testing.T) {
	dir := t.TempDir()
	root := writeYAML(t, dir, "flow.yaml", `
flow:
  version: "1"
inputs:
  - type: configloader_test_stub
    tasks:
      - name: t1
        cron: "0 0 * * *"
outputs:
  - type: configloader_test_stub
    include_tasks: ["a"]
    exclude_tasks: ["b"]
`)

	if _, err := Load(root, LoadOptions{}); err == nil {
		t.Fatal("expected include_tasks/exclude_tasks together to be rejected")
	}
}

func TestValidateIdempotentOnAlreadyValidatedDocument(t *testing.T) {
	itemMap := map[string]interface{}{
		"type": "configloader_test_stub",
		"tasks": []interface{}{
			map[string]interface{}{"name": "t1", "cron": "0 0 * * *"},
		},
	}
	s := moduleSchema(nil, true, schema.Required("tasks", schema.List(taskSchema(nil))))

	first, errs := schema.Validate(s, itemMap)
	if errs.HasErrors() {
		t.Fatalf("unexpected errors: %v", errs)
	}
	firstMap, _ := toStringMap(first)

	second, errs := schema.Validate(s, firstMap)
	if errs.HasErrors() {
		t.Fatalf("unexpected errors on second pass: %v", errs)
	}
	secondMap, _ := toStringMap(second)

	if firstMap["type"] != secondMap["type"] {
		t.Fatalf("expected idempotent validation, got %v vs %v", firstMap, secondMap)
	}
}
