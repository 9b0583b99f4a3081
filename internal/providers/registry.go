package providers

import "fmt"

// Registry resolves a provider id to its Adapter strategy. OpenAI-compatible
// third parties (Ollama, OpenRouter, xAI, custom endpoints) share
// OpenAIAdapter and are distinguished only by the Credentials.BaseURL the
// caller supplies in the ProviderRequest.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds the standard three-strategy registry plus any
// OpenAI-compatible aliases named in compatibleIDs (e.g. "ollama",
// "openrouter", "xai", "custom").
func NewRegistry(compatibleIDs ...string) *Registry {
	r := &Registry{adapters: map[string]Adapter{}}
	r.adapters["anthropic"] = NewAnthropicAdapter()
	r.adapters["google"] = NewGoogleAdapter()
	r.adapters["openai"] = NewOpenAIAdapter("openai")
	for _, id := range compatibleIDs {
		r.adapters[id] = NewOpenAIAdapter(id)
	}
	return r
}

// Get returns the Adapter registered for providerID.
func (r *Registry) Get(providerID string) (Adapter, error) {
	a, ok := r.adapters[providerID]
	if !ok {
		return nil, fmt.Errorf("providers: unknown provider %q", providerID)
	}
	return a, nil
}
