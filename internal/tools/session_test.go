package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/agentrun/gateway/internal/conversation"
	"github.com/agentrun/gateway/internal/toolcatalog"
	"github.com/agentrun/gateway/pkg/models"
)

func TestSessionListGetClear(t *testing.T) {
	store := conversation.New(10)
	store.Append("cli:alice", models.ChatMessage{Role: models.RoleUser, Content: "hi"})

	cat := toolcatalog.New()
	RegisterSessionTool(cat, store)

	listArgs, _ := json.Marshal(map[string]any{"action": "list"})
	res, ok := cat.Execute(context.Background(), "session", listArgs, "")
	if !ok || res.IsError {
		t.Fatalf("list failed: %+v", res)
	}

	getArgs, _ := json.Marshal(map[string]any{"action": "get", "key": "cli:alice"})
	res, ok = cat.Execute(context.Background(), "session", getArgs, "")
	if !ok || res.IsError {
		t.Fatalf("get failed: %+v", res)
	}

	clearArgs, _ := json.Marshal(map[string]any{"action": "clear", "key": "cli:alice"})
	res, ok = cat.Execute(context.Background(), "session", clearArgs, "")
	if !ok || res.IsError {
		t.Fatalf("clear failed: %+v", res)
	}
	if store.Len("cli:alice") != 0 {
		t.Fatalf("expected cleared session to have 0 messages, got %d", store.Len("cli:alice"))
	}
}

func TestSessionGetRequiresKey(t *testing.T) {
	store := conversation.New(10)
	cat := toolcatalog.New()
	RegisterSessionTool(cat, store)
	args, _ := json.Marshal(map[string]any{"action": "get"})
	res, _ := cat.Execute(context.Background(), "session", args, "")
	if !res.IsError {
		t.Fatalf("expected error when key missing")
	}
}
