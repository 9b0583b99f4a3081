package looper

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/agentrun/gateway/internal/conversation"
	"github.com/agentrun/gateway/internal/providers"
	"github.com/agentrun/gateway/internal/toolcatalog"
	"github.com/agentrun/gateway/pkg/models"
)

// scriptedAdapter returns one canned response per call, in order.
type scriptedAdapter struct {
	name      string
	responses []models.ProviderResponse
	errs      []error
	calls     int
}

func (a *scriptedAdapter) Name() string { return a.name }

func (a *scriptedAdapter) Complete(ctx context.Context, req models.ProviderRequest) (models.ProviderResponse, error) {
	i := a.calls
	a.calls++
	if i < len(a.errs) && a.errs[i] != nil {
		return models.ProviderResponse{}, a.errs[i]
	}
	if i >= len(a.responses) {
		return models.ProviderResponse{}, nil
	}
	return a.responses[i], nil
}

type singleAdapterResolver struct {
	adapter providers.Adapter
}

func (r singleAdapterResolver) Get(providerID string) (providers.Adapter, error) {
	return r.adapter, nil
}

func TestEngineRunNoToolCallsExitsImmediately(t *testing.T) {
	adapter := &scriptedAdapter{name: "mock", responses: []models.ProviderResponse{
		{Text: "hello there"},
	}}
	e := &Engine{
		Store:     conversation.New(50),
		Providers: singleAdapterResolver{adapter},
	}
	res, err := e.Run(context.Background(), Request{ChatKey: "cli:alice", UserMessage: "hi", ProviderID: "mock"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FinalReply != "hello there" {
		t.Fatalf("FinalReply = %q", res.FinalReply)
	}
	if res.Rounds != 1 {
		t.Fatalf("Rounds = %d, want 1", res.Rounds)
	}
}

func TestEngineRunSingleToolRound(t *testing.T) {
	cat := toolcatalog.New()
	schema, _ := json.Marshal(map[string]any{"type": "object", "properties": map[string]any{"path": map[string]any{"type": "string"}}})
	cat.Register("read_file", "read a file", schema, func(ctx context.Context, arguments json.RawMessage, workspacePath string) toolcatalog.Result {
		return toolcatalog.Result{Text: "file contents"}
	})

	args, _ := json.Marshal(map[string]any{"path": "./README.md"})
	adapter := &scriptedAdapter{name: "mock", responses: []models.ProviderResponse{
		{ToolCalls: []models.ToolCall{{ID: "t1", Name: "read_file", Arguments: args}}},
		{Text: "done"},
	}}
	e := &Engine{
		Store:     conversation.New(50),
		Providers: singleAdapterResolver{adapter},
		Catalog:   cat,
	}
	res, err := e.Run(context.Background(), Request{ChatKey: "cli:bob", UserMessage: "read it", ProviderID: "mock"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FinalReply != "done" {
		t.Fatalf("FinalReply = %q, want done", res.FinalReply)
	}
	if res.Rounds != 2 {
		t.Fatalf("Rounds = %d, want 2", res.Rounds)
	}

	snapshot := e.Store.Snapshot("cli:bob")
	var foundResult bool
	for _, msg := range snapshot {
		if msg.Role == models.RoleToolResult && msg.ToolCallID == "t1" {
			foundResult = true
			if msg.Content != "file contents" {
				t.Errorf("tool result content = %q", msg.Content)
			}
		}
	}
	if !foundResult {
		t.Fatalf("expected a persisted tool-result message for t1")
	}
}

func TestEngineRunUnknownToolIsNonFatal(t *testing.T) {
	args, _ := json.Marshal(map[string]any{})
	adapter := &scriptedAdapter{name: "mock", responses: []models.ProviderResponse{
		{ToolCalls: []models.ToolCall{{ID: "t1", Name: "nonexistent", Arguments: args}}},
		{Text: "recovered"},
	}}
	e := &Engine{
		Store:     conversation.New(50),
		Providers: singleAdapterResolver{adapter},
		Catalog:   toolcatalog.New(),
	}
	res, err := e.Run(context.Background(), Request{ChatKey: "cli:carol", UserMessage: "go", ProviderID: "mock"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FinalReply != "recovered" {
		t.Fatalf("FinalReply = %q", res.FinalReply)
	}
}

func TestEngineRunLoopCapped(t *testing.T) {
	args, _ := json.Marshal(map[string]any{})
	var responses []models.ProviderResponse
	for i := 0; i < 30; i++ {
		responses = append(responses, models.ProviderResponse{
			Text:      "thinking",
			ToolCalls: []models.ToolCall{{ID: "t", Name: "noop", Arguments: args}},
		})
	}
	cat := toolcatalog.New()
	schema, _ := json.Marshal(map[string]any{"type": "object"})
	cat.Register("noop", "does nothing", schema, func(ctx context.Context, arguments json.RawMessage, workspacePath string) toolcatalog.Result {
		return toolcatalog.Result{Text: "ok"}
	})
	adapter := &scriptedAdapter{name: "mock", responses: responses}
	e := &Engine{
		Store:     conversation.New(1000),
		Providers: singleAdapterResolver{adapter},
		Catalog:   cat,
		MaxRounds: 25,
	}
	res, err := e.Run(context.Background(), Request{ChatKey: "cli:dave", UserMessage: "loop", ProviderID: "mock"})
	var capped *CappedError
	if err == nil {
		t.Fatalf("expected loop-capped error")
	}
	if !errorsAsCapped(err, &capped) {
		t.Fatalf("expected *CappedError, got %T: %v", err, err)
	}
	if capped.Rounds != 25 {
		t.Fatalf("Rounds = %d, want 25", capped.Rounds)
	}
	if res.Rounds != 25 {
		t.Fatalf("res.Rounds = %d, want 25", res.Rounds)
	}
}

func TestEngineRunCancelledContextStopsPromptly(t *testing.T) {
	adapter := &scriptedAdapter{name: "mock", responses: []models.ProviderResponse{{Text: "late"}}}
	e := &Engine{
		Store:     conversation.New(50),
		Providers: singleAdapterResolver{adapter},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Run(ctx, Request{ChatKey: "cli:erin", UserMessage: "hi", ProviderID: "mock"})
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestEngineRunUnknownProviderErrors(t *testing.T) {
	e := &Engine{
		Store:     conversation.New(50),
		Providers: providers.NewRegistry(),
	}
	_, err := e.Run(context.Background(), Request{ChatKey: "cli:frank", UserMessage: "hi", ProviderID: "nonexistent"})
	if err == nil {
		t.Fatalf("expected unknown provider error")
	}
}

func errorsAsCapped(err error, target **CappedError) bool {
	if ce, ok := err.(*CappedError); ok {
		*target = ce
		return true
	}
	return false
}

func TestIsSentinelReplyMatchesExactAfterTrim(t *testing.T) {
	cases := map[string]bool{
		"NO_REPLY":        true,
		"  NO_REPLY  \n":  true,
		"HEARTBEAT_OK":    true,
		"no_reply":        false,
		"NO_REPLY please": false,
	}
	for input, want := range cases {
		if got := IsSentinelReply(input); got != want {
			t.Errorf("IsSentinelReply(%q) = %v, want %v", input, got, want)
		}
	}
}
