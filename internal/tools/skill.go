package tools

import (
	"encoding/json"

	"github.com/agentrun/gateway/internal/toolcatalog"
)

// RegisterSkillToolDefs adds the skill-category tool descriptors to the
// catalog with no Executor: the Tool Loop Engine routes these through the
// Skills Registry rather than calling Catalog.Execute.
func RegisterSkillToolDefs(cat *toolcatalog.Catalog) {
	empty, _ := json.Marshal(map[string]any{"type": "object", "properties": map[string]any{}})
	cat.Register("skill_list", "List all known skills and their enabled state.", empty, nil)

	search, _ := json.Marshal(map[string]any{
		"type":       "object",
		"properties": map[string]any{"query": map[string]any{"type": "string"}},
		"required":   []string{"query"},
	})
	cat.Register("skill_search", "Search skills by name or description.", search, nil)

	install, _ := json.Marshal(map[string]any{
		"type":       "object",
		"properties": map[string]any{"source": map[string]any{"type": "string", "description": "Path or identifier to install from."}},
		"required":   []string{"source"},
	})
	cat.Register("skill_install", "Install a skill into the registry.", install, nil)

	byName, _ := json.Marshal(map[string]any{
		"type":       "object",
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
		"required":   []string{"name"},
	})
	cat.Register("skill_info", "Show a skill's full descriptor and content.", byName, nil)

	enable, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":    map[string]any{"type": "string"},
			"enabled": map[string]any{"type": "boolean"},
		},
		"required": []string{"name", "enabled"},
	})
	cat.Register("skill_enable", "Enable or disable a skill.", enable, nil)

	linkSecret, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"skill":  map[string]any{"type": "string"},
			"secret": map[string]any{"type": "string"},
		},
		"required": []string{"skill", "secret"},
	})
	cat.Register("skill_link_secret", "Link a vault secret to a skill, scoping its access policy to that skill.", linkSecret, nil)
}
