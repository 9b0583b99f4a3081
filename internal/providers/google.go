package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/agentrun/gateway/pkg/models"
)

// GoogleAdapter implements the Google strategy: one content list with
// role in {user, model}, the system prompt lifted into a separate
// SystemInstruction field, tool declarations in native
// functionDeclarations shape, and tool results sent back as a
// FunctionResponse part.
type GoogleAdapter struct{}

func NewGoogleAdapter() *GoogleAdapter { return &GoogleAdapter{} }

func (a *GoogleAdapter) Name() string { return "google" }

func (a *GoogleAdapter) Complete(ctx context.Context, req models.ProviderRequest) (models.ProviderResponse, error) {
	if req.Credentials.APIKey == "" {
		return models.ProviderResponse{}, Unreachable("google", errors.New("no API key configured"))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  req.Credentials.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return models.ProviderResponse{}, Unreachable("google", err)
	}

	system, turns := systemPrompt(req.Messages)
	contents, err := convertMessagesGoogle(turns)
	if err != nil {
		return models.ProviderResponse{}, Malformed("google", fmt.Errorf("convert messages: %w", err))
	}

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		tools, err := convertToolsGoogle(req.Tools)
		if err != nil {
			return models.ProviderResponse{}, Malformed("google", fmt.Errorf("convert tools: %w", err))
		}
		config.Tools = tools
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) {
			return models.ProviderResponse{}, Rejected("google", apiErr.Code, apiErr.Message)
		}
		return models.ProviderResponse{}, Unreachable("google", err)
	}
	if len(resp.Candidates) == 0 {
		return models.ProviderResponse{}, Malformed("google", errors.New("response has no candidates"))
	}

	out := models.ProviderResponse{}
	if resp.UsageMetadata != nil {
		out.Usage = models.UsageMetadata{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return out, nil
	}
	for _, part := range content.Parts {
		if part.Text != "" {
			out.Text += part.Text
		}
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return models.ProviderResponse{}, Malformed("google", fmt.Errorf("marshal function call args: %w", err))
			}
			id := part.FunctionCall.ID
			if id == "" {
				id = part.FunctionCall.Name
			}
			out.ToolCalls = append(out.ToolCalls, models.ToolCall{
				ID:        id,
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
		}
	}
	return out, nil
}

func convertMessagesGoogle(messages []models.ChatMessage) ([]*genai.Content, error) {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case models.RoleUser:
			out = append(out, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
		case models.RoleAssistant:
			content := &genai.Content{Role: genai.RoleModel}
			if m.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &args); err != nil {
						return nil, fmt.Errorf("unmarshal tool call %s arguments: %w", tc.ID, err)
					}
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args},
				})
			}
			out = append(out, content)
		case models.RoleToolResult:
			response := map[string]any{"output": m.Content}
			out = append(out, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{ID: m.ToolCallID, Name: m.ToolName, Response: response},
				}},
			})
		default:
			return nil, fmt.Errorf("unknown role %q", m.Role)
		}
	}
	return out, nil
}

func convertToolsGoogle(tools []models.ToolDefinition) ([]*genai.Tool, error) {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		var schema *genai.Schema
		if len(t.Parameters) > 0 {
			schema = &genai.Schema{}
			if err := json.Unmarshal(t.Parameters, schema); err != nil {
				return nil, fmt.Errorf("parse schema for %s: %w", t.Name, err)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}, nil
}
