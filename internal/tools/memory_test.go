package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentrun/gateway/internal/toolcatalog"
)

func TestMemorySearchAndGet(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "MEMORY.md"), []byte("- loves go\n- hates yaml\n"), 0o644); err != nil {
		t.Fatalf("seed MEMORY.md: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "memory"), 0o755); err != nil {
		t.Fatalf("mkdir memory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "memory", "notes.md"), []byte("go is great\n"), 0o644); err != nil {
		t.Fatalf("seed notes.md: %v", err)
	}

	cat := toolcatalog.New()
	RegisterMemoryTool(cat)

	searchArgs, _ := json.Marshal(map[string]any{"action": "search", "query": "go"})
	res, ok := cat.Execute(context.Background(), "memory", searchArgs, dir)
	if !ok || res.IsError {
		t.Fatalf("search failed: %+v", res)
	}
	var decoded struct {
		Hits []struct {
			Path string `json:"path"`
		} `json:"hits"`
	}
	if err := json.Unmarshal([]byte(res.Text), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.Hits) == 0 {
		t.Fatalf("expected at least one hit")
	}

	getArgs, _ := json.Marshal(map[string]any{"action": "get", "path": "MEMORY.md"})
	res, ok = cat.Execute(context.Background(), "memory", getArgs, dir)
	if !ok || res.IsError {
		t.Fatalf("get failed: %+v", res)
	}
}

func TestMemoryGetRejectsEscape(t *testing.T) {
	dir := t.TempDir()
	cat := toolcatalog.New()
	RegisterMemoryTool(cat)
	args, _ := json.Marshal(map[string]any{"action": "get", "path": "../secret.md"})
	res, _ := cat.Execute(context.Background(), "memory", args, dir)
	if !res.IsError {
		t.Fatalf("expected error for path escape")
	}
}
