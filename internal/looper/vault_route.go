package looper

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agentrun/gateway/internal/vault"
	"github.com/agentrun/gateway/pkg/models"
)

// routeVault services the vault-category tool calls directly against the
// Secrets Vault, evaluating each against accessCtx. A policy-denied
// outcome becomes a non-fatal tool-result error, never a loop-terminating
// failure.
func (e *Engine) routeVault(call models.ToolCall, accessCtx vault.AccessContext) models.ToolResult {
	if e.Vault == nil {
		return errorResult(call, "secrets vault unavailable")
	}

	switch call.Name {
	case "secrets_list":
		entries, err := e.Vault.List()
		if err != nil {
			return errorResult(call, fmt.Sprintf("list vault entries: %v", err))
		}
		return jsonResult(call, map[string]any{"entries": entries})

	case "secrets_get":
		var input struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(call.Arguments, &input); err != nil {
			return errorResult(call, fmt.Sprintf("invalid parameters: %v", err))
		}
		value, err := e.Vault.Get(input.Name, accessCtx)
		if err != nil {
			if errors.Is(err, vault.ErrPolicyDenied) {
				return errorResult(call, fmt.Sprintf("policy-denied: %v", err))
			}
			return errorResult(call, err.Error())
		}
		return jsonResult(call, map[string]any{"secret": value.Secret, "username": value.Username})

	case "secrets_store":
		var input struct {
			Name        string `json:"name"`
			Label       string `json:"label"`
			Kind        string `json:"kind"`
			Secret      string `json:"secret"`
			Username    string `json:"username"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal(call.Arguments, &input); err != nil {
			return errorResult(call, fmt.Sprintf("invalid parameters: %v", err))
		}
		if input.Name == "" || input.Secret == "" {
			return errorResult(call, "name and secret are required")
		}
		kind := vault.CredentialKind(input.Kind)
		if kind == "" {
			kind = vault.KindOther
		}
		entry := vault.Entry{
			Label:       input.Label,
			Kind:        kind,
			Policy:      vault.Always(),
			Description: input.Description,
		}
		if err := e.Vault.Store(input.Name, entry, vault.Value{Secret: input.Secret, Username: input.Username}); err != nil {
			return errorResult(call, fmt.Sprintf("store vault entry: %v", err))
		}
		return jsonResult(call, map[string]any{"status": "stored", "name": input.Name})

	default:
		return errorResult(call, fmt.Sprintf("unknown vault tool: %s", call.Name))
	}
}
