package toolcatalog

import (
	"context"
	"encoding/json"
	"testing"
)

func TestClassifyIsPureFunctionOfName(t *testing.T) {
	cases := []struct {
		name string
		want Category
	}{
		{"secrets_list", CategoryVault},
		{"secrets_get", CategoryVault},
		{"secrets_store", CategoryVault},
		{"skill_list", CategorySkill},
		{"skill_search", CategorySkill},
		{"skill_install", CategorySkill},
		{"skill_info", CategorySkill},
		{"skill_enable", CategorySkill},
		{"skill_link_secret", CategorySkill},
		{"file_read", CategoryDirect},
		{"shell_exec", CategoryDirect},
		{"cron_schedule", CategoryDirect},
		{"anything_else", CategoryDirect},
	}
	for _, tc := range cases {
		if got := Classify(tc.name); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.name, got, tc.want)
		}
		// Repeated calls must agree: no hidden state.
		if got2 := Classify(tc.name); got2 != tc.want {
			t.Errorf("Classify(%q) not stable across calls: %q then %q", tc.name, tc.want, got2)
		}
	}
}

func TestRegisterDerivesCategoryFromName(t *testing.T) {
	c := New()
	c.Register("secrets_get", "fetch a secret", nil, nil)
	d, ok := c.Get("secrets_get")
	if !ok {
		t.Fatalf("secrets_get not registered")
	}
	if d.Category != CategoryVault {
		t.Fatalf("Category = %q, want vault", d.Category)
	}
}

func TestExecuteRunsRegisteredExecutor(t *testing.T) {
	c := New()
	c.Register("echo", "echoes input", nil, func(ctx context.Context, args json.RawMessage, workspacePath string) Result {
		return Result{Text: string(args)}
	})

	res, ok := c.Execute(context.Background(), "echo", json.RawMessage(`{"x":1}`), "/tmp")
	if !ok {
		t.Fatalf("expected tool found")
	}
	if res.Text != `{"x":1}` || res.IsError {
		t.Fatalf("res = %+v", res)
	}
}

func TestExecuteReportsMissingTool(t *testing.T) {
	c := New()
	if _, ok := c.Execute(context.Background(), "nope", nil, "/tmp"); ok {
		t.Fatalf("expected ok=false for unregistered tool")
	}
}

func TestToolDefinitionsAreSortedAndCarrySchema(t *testing.T) {
	c := New()
	c.Register("zeta", "z tool", json.RawMessage(`{"type":"object"}`), nil)
	c.Register("alpha", "a tool", json.RawMessage(`{"type":"object"}`), nil)

	defs := c.ToolDefinitions()
	if len(defs) != 2 || defs[0].Name != "alpha" || defs[1].Name != "zeta" {
		t.Fatalf("defs = %+v, want alpha before zeta", defs)
	}
}

type echoParams struct {
	Message string `json:"message" jsonschema:"required,description=text to echo"`
}

func TestRegisterTypedDerivesObjectSchema(t *testing.T) {
	c := New()
	if err := c.RegisterTyped("echo_typed", "echoes a message", &echoParams{}, nil); err != nil {
		t.Fatalf("RegisterTyped: %v", err)
	}
	d, ok := c.Get("echo_typed")
	if !ok {
		t.Fatalf("echo_typed not registered")
	}
	var schema map[string]any
	if err := json.Unmarshal(d.Schema, &schema); err != nil {
		t.Fatalf("schema not valid JSON: %v", err)
	}
	if schema["type"] != "object" {
		t.Fatalf("schema type = %v, want object", schema["type"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok || props["message"] == nil {
		t.Fatalf("schema missing message property: %+v", schema)
	}
}
