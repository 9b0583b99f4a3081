package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentrun/gateway/pkg/models"
)

const defaultMaxTokens = 4096

// AnthropicAdapter implements the Anthropic strategy: system messages are
// concatenated and lifted into the request's System field, tools are sent
// in Anthropic's native shape, and the content array's `text`/`tool_use`
// blocks are parsed back into a normalized ProviderResponse.
type AnthropicAdapter struct{}

func NewAnthropicAdapter() *AnthropicAdapter { return &AnthropicAdapter{} }

func (a *AnthropicAdapter) Name() string { return "anthropic" }

func (a *AnthropicAdapter) Complete(ctx context.Context, req models.ProviderRequest) (models.ProviderResponse, error) {
	if req.Credentials.APIKey == "" {
		return models.ProviderResponse{}, Unreachable("anthropic", errors.New("no API key configured"))
	}

	opts := []option.RequestOption{option.WithAPIKey(req.Credentials.APIKey)}
	if req.Credentials.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(req.Credentials.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	system, turns := systemPrompt(req.Messages)
	messages, err := convertMessagesAnthropic(turns)
	if err != nil {
		return models.ProviderResponse{}, Malformed("anthropic", fmt.Errorf("convert messages: %w", err))
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(req.Tools) > 0 {
		tools, err := convertToolsAnthropic(req.Tools)
		if err != nil {
			return models.ProviderResponse{}, Malformed("anthropic", fmt.Errorf("convert tools: %w", err))
		}
		params.Tools = tools
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return models.ProviderResponse{}, Rejected("anthropic", apiErr.StatusCode, apiErr.Message)
		}
		return models.ProviderResponse{}, Unreachable("anthropic", err)
	}

	out := models.ProviderResponse{
		Usage: models.UsageMetadata{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Text += block.AsText().Text
		case "tool_use":
			tu := block.AsToolUse()
			input, err := json.Marshal(tu.Input)
			if err != nil {
				return models.ProviderResponse{}, Malformed("anthropic", fmt.Errorf("marshal tool input: %w", err))
			}
			out.ToolCalls = append(out.ToolCalls, models.ToolCall{
				ID:        tu.ID,
				Name:      tu.Name,
				Arguments: input,
			})
		}
	}
	return out, nil
}

func convertMessagesAnthropic(messages []models.ChatMessage) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case models.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case models.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input any
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &input); err != nil {
						return nil, fmt.Errorf("unmarshal tool call %s arguments: %w", tc.ID, err)
					}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		case models.RoleToolResult:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError),
			))
		default:
			return nil, fmt.Errorf("unknown role %q", m.Role)
		}
	}
	return out, nil
}

func convertToolsAnthropic(tools []models.ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var schema map[string]any
		if len(t.Parameters) > 0 {
			if err := json.Unmarshal(t.Parameters, &schema); err != nil {
				return nil, fmt.Errorf("parse schema for %s: %w", t.Name, err)
			}
		}
		toolParam := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
		}
		if props, ok := schema["properties"]; ok {
			toolParam.InputSchema = anthropic.ToolInputSchemaParam{Properties: props}
		}
		out = append(out, anthropic.ToolUnionParamOfTool(toolParam))
	}
	return out, nil
}
