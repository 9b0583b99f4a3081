// Package providerdefs is a static catalogue of known provider ids, their
// default base URL, credential environment variable, and example models.
// It supplements the Provider Adapter's three strategies with metadata for
// CLI validation and config generation; it is not itself a fourth adapter.
package providerdefs

// Def describes one known provider entry.
type Def struct {
	ID         string
	Display    string
	EnvVar     string // credential environment variable; empty if none needed
	BaseURL    string // empty means the caller must supply one
	ExampleIDs []string
}

var catalogue = []Def{
	{
		ID:      "anthropic",
		Display: "Anthropic (Claude)",
		EnvVar:  "ANTHROPIC_API_KEY",
		BaseURL: "https://api.anthropic.com",
		ExampleIDs: []string{
			"claude-opus-4-20250514",
			"claude-sonnet-4-20250514",
			"claude-haiku-4-20250514",
		},
	},
	{
		ID:      "openai",
		Display: "OpenAI (GPT / o-series)",
		EnvVar:  "OPENAI_API_KEY",
		BaseURL: "https://api.openai.com/v1",
		ExampleIDs: []string{
			"gpt-4.1",
			"gpt-4.1-mini",
			"o4-mini",
		},
	},
	{
		ID:      "google",
		Display: "Google (Gemini)",
		EnvVar:  "GOOGLE_API_KEY",
		BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		ExampleIDs: []string{
			"gemini-2.5-pro",
			"gemini-2.5-flash",
		},
	},
	{
		ID:      "xai",
		Display: "xAI (Grok)",
		EnvVar:  "XAI_API_KEY",
		BaseURL: "https://api.x.ai/v1",
		ExampleIDs: []string{"grok-3", "grok-3-mini"},
	},
	{
		ID:      "openrouter",
		Display: "OpenRouter",
		EnvVar:  "OPENROUTER_API_KEY",
		BaseURL: "https://openrouter.ai/api/v1",
		ExampleIDs: []string{
			"anthropic/claude-sonnet-4-20250514",
			"openai/gpt-4.1",
		},
	},
	{
		ID:         "ollama",
		Display:    "Ollama (local)",
		EnvVar:     "",
		BaseURL:    "http://localhost:11434/v1",
		ExampleIDs: []string{"llama3.1", "mistral", "deepseek-coder"},
	},
	{
		ID:      "custom",
		Display: "Custom / OpenAI-compatible endpoint",
		EnvVar:  "CUSTOM_API_KEY",
		BaseURL: "",
	},
}

// ByID looks up a provider definition, ok is false for an unknown id.
func ByID(id string) (Def, bool) {
	for _, d := range catalogue {
		if d.ID == id {
			return d, true
		}
	}
	return Def{}, false
}

// IDs returns every known provider id, in catalogue order.
func IDs() []string {
	ids := make([]string, len(catalogue))
	for i, d := range catalogue {
		ids[i] = d.ID
	}
	return ids
}

// IsKnown reports whether id names a catalogued provider. Registry
// construction is not limited to these ids (OpenAI-compatible aliases can
// be added freely), so this is advisory, used by CLI flag validation, not
// enforced by the Provider Adapter itself.
func IsKnown(id string) bool {
	_, ok := ByID(id)
	return ok
}
