package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentrun/gateway/internal/conversation"
	"github.com/agentrun/gateway/internal/toolcatalog"
)

// RegisterSessionTool adds the "session" direct tool: inspect and reset
// per-chat conversations tracked by store.
func RegisterSessionTool(cat *toolcatalog.Catalog, store *conversation.Store) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{"type": "string", "description": "list, get, or clear."},
			"key":    map[string]any{"type": "string", "description": "Chat key (\"<transport>:<chat-id>\"), for get/clear."},
		},
		"required": []string{"action"},
	}
	payload, _ := json.Marshal(schema)
	cat.Register("session", "List, inspect, or clear tracked conversations.", payload, func(ctx context.Context, arguments json.RawMessage, workspacePath string) toolcatalog.Result {
		return executeSession(store, arguments)
	})
}

func executeSession(store *conversation.Store, arguments json.RawMessage) toolcatalog.Result {
	if store == nil {
		return toolcatalog.ErrorResult("conversation store unavailable")
	}
	var input struct {
		Action string `json:"action"`
		Key    string `json:"key"`
	}
	if err := json.Unmarshal(arguments, &input); err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("invalid parameters: %v", err))
	}

	switch strings.ToLower(strings.TrimSpace(input.Action)) {
	case "list":
		keys := store.Keys()
		summaries := make([]map[string]any, 0, len(keys))
		for _, k := range keys {
			summaries = append(summaries, map[string]any{"key": k, "messages": store.Len(k)})
		}
		return jsonOK(map[string]any{"sessions": summaries})
	case "get":
		if strings.TrimSpace(input.Key) == "" {
			return toolcatalog.ErrorResult("key is required")
		}
		return jsonOK(map[string]any{"key": input.Key, "messages": store.Snapshot(input.Key)})
	case "clear":
		if strings.TrimSpace(input.Key) == "" {
			return toolcatalog.ErrorResult("key is required")
		}
		store.Clear(input.Key)
		return jsonOK(map[string]any{"status": "cleared", "key": input.Key})
	default:
		return toolcatalog.ErrorResult("action must be list, get, or clear")
	}
}
