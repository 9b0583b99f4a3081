package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentrun/gateway/internal/toolcatalog"
)

func TestPatchToolAppliesUnifiedDiff(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("line1\nline2\nline3\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	diff := "--- a/a.txt\n+++ b/a.txt\n@@ -1,3 +1,3 @@\n line1\n-line2\n+line2-changed\n line3\n"

	cat := toolcatalog.New()
	RegisterPatchTool(cat)

	args, _ := json.Marshal(map[string]any{"patch": diff})
	res, ok := cat.Execute(context.Background(), "patch", args, dir)
	if !ok || res.IsError {
		t.Fatalf("patch apply failed: %+v", res)
	}

	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := "line1\nline2-changed\nline3\n"
	if string(data) != want {
		t.Fatalf("content = %q, want %q", string(data), want)
	}
}

func TestPatchToolRejectsMalformedDiff(t *testing.T) {
	cat := toolcatalog.New()
	RegisterPatchTool(cat)
	args, _ := json.Marshal(map[string]any{"patch": "not a diff"})
	res, _ := cat.Execute(context.Background(), "patch", args, t.TempDir())
	if !res.IsError {
		t.Fatalf("expected error for malformed diff")
	}
}

func TestPatchToolRejectsContextMismatch(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("different\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	diff := "--- a/a.txt\n+++ b/a.txt\n@@ -1,1 +1,1 @@\n-line2\n+line2-changed\n"

	cat := toolcatalog.New()
	RegisterPatchTool(cat)
	args, _ := json.Marshal(map[string]any{"patch": diff})
	res, _ := cat.Execute(context.Background(), "patch", args, dir)
	if !res.IsError {
		t.Fatalf("expected context mismatch error")
	}
}
