// Package providers implements the three provider adapter strategies
// (OpenAI-shaped, Anthropic, Google) behind one normalized contract, plus
// the shared tool-round append logic all three share at the normalized
// message level.
package providers

import (
	"context"

	"github.com/agentrun/gateway/pkg/models"
)

// Adapter translates a normalized ProviderRequest into a provider's wire
// form, calls it, and translates the reply back. Implementations must not
// retry internally — failures bubble out as *Error for the caller to
// classify and, if it chooses, retry or fail over.
type Adapter interface {
	// Name is the provider id this adapter serves, e.g. "openai".
	Name() string
	Complete(ctx context.Context, req models.ProviderRequest) (models.ProviderResponse, error)
}

// AppendToolRound appends one assistant tool-call message and one
// tool-result message per result to messages, preserving the three
// invariants every adapter must honor:
//
//  1. every tool-call id in the assistant entry has a matching
//     tool-result entry in the same round;
//  2. tool-result order matches the order the tools were executed;
//  3. the system message never moves from index 0.
//
// All three provider strategies describe this append in terms of their
// own wire shape, but since the conversation is kept in the normalized
// models.ChatMessage form throughout, one implementation satisfies all
// three — a provider-specific wire rendering only happens inside
// Complete, on the way out.
func AppendToolRound(messages []models.ChatMessage, resp models.ProviderResponse, results []models.ToolResult) []models.ChatMessage {
	out := make([]models.ChatMessage, len(messages), len(messages)+1+len(results))
	copy(out, messages)

	if resp.Text != "" || len(resp.ToolCalls) > 0 {
		out = append(out, models.ChatMessage{
			Role:      models.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})
	}

	for _, r := range results {
		out = append(out, models.ChatMessage{
			Role:       models.RoleToolResult,
			Content:    r.OutputText,
			ToolCallID: r.ID,
			ToolName:   r.Name,
			IsError:    r.IsError,
		})
	}
	return out
}

// systemPrompt concatenates every leading system message with
// double-newlines, the shape Anthropic and Google both want lifted out of
// the turn-by-turn message list. OpenAI keeps it inline as the first
// message instead; see openai.go.
func systemPrompt(messages []models.ChatMessage) (string, []models.ChatMessage) {
	var sysParts []string
	rest := messages
	for len(rest) > 0 && rest[0].Role == models.RoleSystem {
		if rest[0].Content != "" {
			sysParts = append(sysParts, rest[0].Content)
		}
		rest = rest[1:]
	}
	if len(sysParts) == 0 {
		return "", messages
	}
	joined := sysParts[0]
	for _, p := range sysParts[1:] {
		joined += "\n\n" + p
	}
	return joined, rest
}
