package configloader

import "testing"

func TestExpandRepeatForScenario2(t *testing.T) {
	task := map[string]interface{}{
		"name": "t_$i",
		"cron": "$minute * * * *",
		"repeat_for": map[string]interface{}{
			"table":  []interface{}{"a", "b", "c"},
			"minute": []interface{}{0, 20, 40},
		},
		"params": map[string]interface{}{
			"table_name": "$table",
		},
	}

	clones, err := ExpandRepeatFor(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clones) != 3 {
		t.Fatalf("expected 3 clones, got %d", len(clones))
	}

	wantNames := []string{"t_0", "t_1", "t_2"}
	wantCrons := []string{"0 * * * *", "20 * * * *", "40 * * * *"}
	wantTables := []string{"a", "b", "c"}

	for i, c := range clones {
		if c["name"] != wantNames[i] {
			t.Fatalf("clone %d: expected name %s, got %v", i, wantNames[i], c["name"])
		}
		if c["cron"] != wantCrons[i] {
			t.Fatalf("clone %d: expected cron %s, got %v", i, wantCrons[i], c["cron"])
		}
		params := c["params"].(map[string]interface{})
		if params["table_name"] != wantTables[i] {
			t.Fatalf("clone %d: expected table_name %s, got %v", i, wantTables[i], params["table_name"])
		}
		if _, ok := c["repeat_for"]; ok {
			t.Fatalf("clone %d: expected repeat_for to be stripped", i)
		}
	}
}

func TestExpandRepeatForRejectsUnequalLengths(t *testing.T) {
	task := map[string]interface{}{
		"name": "t_$i",
		"repeat_for": map[string]interface{}{
			"a": []interface{}{1, 2, 3},
			"b": []interface{}{1, 2},
		},
	}
	if _, err := ExpandRepeatFor(task); err == nil {
		t.Fatal("expected unequal repeat_for lengths to error")
	}
}

func TestExpandRepeatForNoopWithoutRepeatFor(t *testing.T) {
	task := map[string]interface{}{"name": "t"}
	clones, err := ExpandRepeatFor(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clones) != 1 || clones[0]["name"] != "t" {
		t.Fatalf("expected task unchanged, got %v", clones)
	}
}

func TestSafeSubstituteLeavesUnknownVarsLiteral(t *testing.T) {
	params := map[string]string{"table": "users"}
	got := safeSubstitute("select * from $table where $unknown = 1", params)
	want := "select * from users where $unknown = 1"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSafeSubstituteBraceForm(t *testing.T) {
	params := map[string]string{"x": "42"}
	got := safeSubstitute("value-${x}-suffix", params)
	if got != "value-42-suffix" {
		t.Fatalf("expected value-42-suffix, got %q", got)
	}
}

func TestSafeSubstituteEscapedDollar(t *testing.T) {
	got := safeSubstitute("cost is $$5", map[string]string{})
	if got != "cost is $5" {
		t.Fatalf("expected literal $5, got %q", got)
	}
}
