package tools

import (
	"encoding/json"

	"github.com/agentrun/gateway/internal/toolcatalog"
)

// RegisterVaultToolDefs adds the vault-category tool descriptors
// (secrets_list/secrets_get/secrets_store) to the catalog so providers see
// them, with no Executor: the Tool Loop Engine routes these through the
// Secrets Vault with the current Access Context rather than calling
// Catalog.Execute.
func RegisterVaultToolDefs(cat *toolcatalog.Catalog) {
	listSchema, _ := json.Marshal(map[string]any{"type": "object", "properties": map[string]any{}})
	cat.Register("secrets_list", "List vault entries (names and metadata only, never values).", listSchema, nil)

	getSchema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string", "description": "Vault entry name."},
		},
		"required": []string{"name"},
	})
	cat.Register("secrets_get", "Fetch a vault entry's value, subject to its access policy.", getSchema, nil)

	storeSchema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":     map[string]any{"type": "string", "description": "Vault entry name."},
			"label":    map[string]any{"type": "string", "description": "Human-readable label."},
			"kind":     map[string]any{"type": "string", "description": "Credential kind."},
			"secret":   map[string]any{"type": "string", "description": "Secret value to store."},
			"username": map[string]any{"type": "string", "description": "Associated username, if any."},
		},
		"required": []string{"name", "secret"},
	})
	cat.Register("secrets_store", "Create or update a vault entry's value.", storeSchema, nil)
}
