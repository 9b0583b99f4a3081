package looper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agentrun/gateway/internal/conversation"
	"github.com/agentrun/gateway/internal/providers"
	"github.com/agentrun/gateway/internal/skills"
	"github.com/agentrun/gateway/internal/toolcatalog"
	"github.com/agentrun/gateway/internal/vault"
	"github.com/agentrun/gateway/pkg/models"
)

// ProviderResolver resolves a provider id to its Adapter. *providers.Registry
// satisfies this; it is narrowed to an interface here so tests can supply a
// scripted adapter without a real Registry.
type ProviderResolver interface {
	Get(providerID string) (providers.Adapter, error)
}

// Engine runs the bounded tool loop for one chat at a time. One Engine is
// shared across every Session; the conversation Store carries all
// per-chat state, so Engine itself holds no per-call mutable fields.
type Engine struct {
	Store         *conversation.Store
	Providers     ProviderResolver
	Catalog       *toolcatalog.Catalog
	Vault         *vault.Vault
	Skills        *skills.Registry
	WorkspacePath string
	BasePrompt    string
	MaxRounds     int
	Logger        *slog.Logger
}

func (e *Engine) maxRounds() int {
	if e.MaxRounds > 0 {
		return e.MaxRounds
	}
	return DefaultMaxRounds
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Run executes steps 1-3 once, then cycles steps 4-9 until the model
// returns a reply with no tool calls, the round cap is hit, or ctx is
// cancelled.
func (e *Engine) Run(ctx context.Context, req Request) (Result, error) {
	if e.Store == nil {
		return Result{}, errors.New("looper: no conversation store configured")
	}
	if e.Providers == nil {
		return Result{}, errors.New("looper: no provider registry configured")
	}

	adapter, err := e.Providers.Get(req.ProviderID)
	if err != nil {
		return Result{}, fmt.Errorf("looper: %w", err)
	}

	system := composeSystemPrompt(e.BasePrompt, req.Transport)
	e.Store.SetSystem(req.ChatKey, models.ChatMessage{Role: models.RoleSystem, Content: system})
	e.Store.Append(req.ChatKey, models.ChatMessage{Role: models.RoleUser, Content: req.UserMessage})
	messages := e.Store.Snapshot(req.ChatKey)

	var tools []models.ToolDefinition
	if e.Catalog != nil {
		tools = e.Catalog.ToolDefinitions()
	}

	var finalReply strings.Builder
	rounds := 0
	for rounds < e.maxRounds() {
		select {
		case <-ctx.Done():
			return Result{FinalReply: finalReply.String(), Rounds: rounds}, ctx.Err()
		default:
		}

		providerReq := models.ProviderRequest{
			ProviderID:  req.ProviderID,
			Model:       req.Model,
			Credentials: models.Credentials{APIKey: req.APIKey, BaseURL: req.BaseURL},
			Messages:    messages,
			Tools:       tools,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		}

		resp, err := adapter.Complete(ctx, providerReq)
		if err != nil {
			e.logger().Warn("provider call failed", "chat_key", req.ChatKey, "round", rounds, "error", err)
			return Result{FinalReply: finalReply.String(), Rounds: rounds}, fmt.Errorf("looper: %w", err)
		}

		if resp.Text != "" {
			finalReply.WriteString(resp.Text)
		}

		rounds++

		if len(resp.ToolCalls) == 0 {
			e.persistRound(req.ChatKey, messages, resp, nil)
			return Result{FinalReply: finalReply.String(), Rounds: rounds}, nil
		}

		results, cancelled := e.executeToolCalls(ctx, resp.ToolCalls, req.AccessContext)
		if cancelled {
			return Result{FinalReply: finalReply.String(), Rounds: rounds}, ctx.Err()
		}
		messages = e.persistRound(req.ChatKey, messages, resp, results)
	}

	e.logger().Warn("tool loop hit round cap", "chat_key", req.ChatKey, "rounds", rounds)
	return Result{FinalReply: finalReply.String(), Rounds: rounds}, &CappedError{Rounds: rounds, FinalReply: finalReply.String()}
}

// persistRound records resp and results both in the Store (for durability
// across future calls) and returns the updated in-memory message slice
// the next round's provider request builds from.
func (e *Engine) persistRound(chatKey string, messages []models.ChatMessage, resp models.ProviderResponse, results []models.ToolResult) []models.ChatMessage {
	updated := providers.AppendToolRound(messages, resp, results)
	for _, msg := range updated[len(messages):] {
		e.Store.Append(chatKey, msg)
	}
	return updated
}

// executeToolCalls runs calls sequentially in emitted order, checking for
// cancellation before each one. If cancellation arrives, execution stops
// and the partial results collected so far are returned with cancelled
// set; any tool already running when cancellation fires is allowed to
// finish (the call into Catalog.Execute is synchronous), but the caller
// discards the cancelled round's results instead of appending them.
func (e *Engine) executeToolCalls(ctx context.Context, calls []models.ToolCall, accessCtx vault.AccessContext) ([]models.ToolResult, bool) {
	results := make([]models.ToolResult, 0, len(calls))
	for _, call := range calls {
		select {
		case <-ctx.Done():
			return results, true
		default:
		}
		results = append(results, e.dispatchToolCall(ctx, call, accessCtx))
	}
	return results, false
}

func (e *Engine) dispatchToolCall(ctx context.Context, call models.ToolCall, accessCtx vault.AccessContext) models.ToolResult {
	switch toolcatalog.Classify(call.Name) {
	case toolcatalog.CategoryVault:
		return e.routeVault(call, accessCtx)
	case toolcatalog.CategorySkill:
		return e.routeSkill(call)
	default:
		if e.Catalog == nil {
			return errorResult(call, "tool catalog unavailable")
		}
		out, ok := e.Catalog.Execute(ctx, call.Name, call.Arguments, e.WorkspacePath)
		if !ok {
			return errorResult(call, fmt.Sprintf("unknown tool: %s", call.Name))
		}
		return models.ToolResult{ID: call.ID, Name: call.Name, OutputText: out.Text, IsError: out.IsError}
	}
}

func errorResult(call models.ToolCall, msg string) models.ToolResult {
	return models.ToolResult{ID: call.ID, Name: call.Name, OutputText: msg, IsError: true}
}

func jsonResult(call models.ToolCall, payload any) models.ToolResult {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errorResult(call, fmt.Sprintf("encode result: %v", err))
	}
	return models.ToolResult{ID: call.ID, Name: call.Name, OutputText: string(encoded)}
}

// composeSystemPrompt folds a transport-specific context block onto base,
// when any of its fields are populated.
func composeSystemPrompt(base string, t TransportContext) string {
	var ctxLines []string
	if t.Channel != "" {
		ctxLines = append(ctxLines, "channel: "+t.Channel)
	}
	if t.Sender != "" {
		ctxLines = append(ctxLines, "sender: "+t.Sender)
	}
	if t.Platform != "" {
		ctxLines = append(ctxLines, "platform: "+t.Platform)
	}
	if len(ctxLines) == 0 {
		return base
	}
	block := "Context:\n" + strings.Join(ctxLines, "\n")
	if base == "" {
		return block
	}
	return base + "\n\n" + block
}
