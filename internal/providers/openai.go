package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agentrun/gateway/pkg/models"
)

// OpenAIAdapter implements the OpenAI-shaped strategy: a /chat/completions
// request with messages and tools, tool calls read from
// choices[0].message.tool_calls, and tool_call_id echoed on subsequent
// tool-result messages. BaseURL lets this same adapter serve any
// OpenAI-compatible third party named in a Provider Request's Credentials.
type OpenAIAdapter struct {
	providerID string
}

// NewOpenAIAdapter constructs an adapter that identifies itself as
// providerID (e.g. "openai", or a compatible third party's id) in error
// messages and logs.
func NewOpenAIAdapter(providerID string) *OpenAIAdapter {
	if providerID == "" {
		providerID = "openai"
	}
	return &OpenAIAdapter{providerID: providerID}
}

func (a *OpenAIAdapter) Name() string { return a.providerID }

func (a *OpenAIAdapter) Complete(ctx context.Context, req models.ProviderRequest) (models.ProviderResponse, error) {
	if req.Credentials.APIKey == "" {
		return models.ProviderResponse{}, Unreachable(a.providerID, errors.New("no API key configured"))
	}

	cfg := openai.DefaultConfig(req.Credentials.APIKey)
	if req.Credentials.BaseURL != "" {
		cfg.BaseURL = req.Credentials.BaseURL
	}
	client := openai.NewClientWithConfig(cfg)

	messages, err := convertMessagesOpenAI(req.Messages)
	if err != nil {
		return models.ProviderResponse{}, Malformed(a.providerID, fmt.Errorf("convert messages: %w", err))
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		chatReq.Temperature = float32(req.Temperature)
	}
	if len(req.Tools) > 0 {
		tools, err := convertToolsOpenAI(req.Tools)
		if err != nil {
			return models.ProviderResponse{}, Malformed(a.providerID, fmt.Errorf("convert tools: %w", err))
		}
		chatReq.Tools = tools
	}

	resp, err := client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return models.ProviderResponse{}, Rejected(a.providerID, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return models.ProviderResponse{}, Unreachable(a.providerID, err)
	}
	if len(resp.Choices) == 0 {
		return models.ProviderResponse{}, Malformed(a.providerID, errors.New("response has no choices"))
	}

	msg := resp.Choices[0].Message
	out := models.ProviderResponse{
		Text: msg.Content,
		Usage: models.UsageMetadata{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

func convertMessagesOpenAI(messages []models.ChatMessage) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: m.Content})
		case models.RoleUser:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		case models.RoleAssistant:
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
			out = append(out, msg)
		case models.RoleToolResult:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		default:
			return nil, fmt.Errorf("unknown role %q", m.Role)
		}
	}
	return out, nil
}

func convertToolsOpenAI(tools []models.ToolDefinition) ([]openai.Tool, error) {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		var schema map[string]any
		if len(t.Parameters) > 0 {
			if err := json.Unmarshal(t.Parameters, &schema); err != nil {
				return nil, fmt.Errorf("parse schema for %s: %w", t.Name, err)
			}
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
			},
		})
	}
	return out, nil
}
