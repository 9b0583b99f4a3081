package looper

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentrun/gateway/internal/skills"
	"github.com/agentrun/gateway/pkg/models"
)

// routeSkill services the skill-category tool calls directly against the
// Skills Registry.
func (e *Engine) routeSkill(call models.ToolCall) models.ToolResult {
	if e.Skills == nil {
		return errorResult(call, "skills registry unavailable")
	}

	switch call.Name {
	case "skill_list":
		return jsonResult(call, map[string]any{"skills": summarizeSkills(e.Skills.List())})

	case "skill_search":
		var input struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(call.Arguments, &input); err != nil {
			return errorResult(call, fmt.Sprintf("invalid parameters: %v", err))
		}
		query := strings.ToLower(strings.TrimSpace(input.Query))
		if query == "" {
			return errorResult(call, "query is required")
		}
		var matches []map[string]any
		for _, d := range e.Skills.List() {
			if strings.Contains(strings.ToLower(d.Name), query) || strings.Contains(strings.ToLower(d.Description), query) {
				matches = append(matches, map[string]any{"name": d.Name, "description": d.Description, "enabled": d.Enabled})
			}
		}
		return jsonResult(call, map[string]any{"matches": matches})

	case "skill_install":
		var input struct {
			Source string `json:"source"`
		}
		if err := json.Unmarshal(call.Arguments, &input); err != nil {
			return errorResult(call, fmt.Sprintf("invalid parameters: %v", err))
		}
		if strings.TrimSpace(input.Source) == "" {
			return errorResult(call, "source is required")
		}
		d, err := e.Skills.Install(input.Source)
		if err != nil {
			return errorResult(call, err.Error())
		}
		return jsonResult(call, map[string]any{"status": "installed", "name": d.Name})

	case "skill_info":
		var input struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(call.Arguments, &input); err != nil {
			return errorResult(call, fmt.Sprintf("invalid parameters: %v", err))
		}
		d, ok := e.Skills.Get(input.Name)
		if !ok {
			return errorResult(call, fmt.Sprintf("unknown skill: %s", input.Name))
		}
		return jsonResult(call, map[string]any{
			"name": d.Name, "description": d.Description, "enabled": d.Enabled,
			"content": d.Content, "linked_secrets": d.LinkedSecrets,
		})

	case "skill_enable":
		var input struct {
			Name    string `json:"name"`
			Enabled bool   `json:"enabled"`
		}
		if err := json.Unmarshal(call.Arguments, &input); err != nil {
			return errorResult(call, fmt.Sprintf("invalid parameters: %v", err))
		}
		if err := e.Skills.Enable(input.Name, input.Enabled); err != nil {
			return errorResult(call, err.Error())
		}
		return jsonResult(call, map[string]any{"status": "updated", "name": input.Name, "enabled": input.Enabled})

	case "skill_link_secret":
		var input struct {
			Skill  string `json:"skill"`
			Secret string `json:"secret"`
		}
		if err := json.Unmarshal(call.Arguments, &input); err != nil {
			return errorResult(call, fmt.Sprintf("invalid parameters: %v", err))
		}
		if err := e.Skills.LinkSecret(input.Skill, input.Secret); err != nil {
			return errorResult(call, err.Error())
		}
		return jsonResult(call, map[string]any{"status": "linked", "skill": input.Skill, "secret": input.Secret})

	default:
		return errorResult(call, fmt.Sprintf("unknown skill tool: %s", call.Name))
	}
}

func summarizeSkills(list []*skills.Descriptor) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, d := range list {
		out = append(out, map[string]any{"name": d.Name, "description": d.Description, "enabled": d.Enabled})
	}
	return out
}
