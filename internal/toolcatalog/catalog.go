// Package toolcatalog implements the registry of callable tools: name,
// description, parameter schema, and executor, plus the pure-function
// classification into direct/vault/skill categories that the Tool Loop
// Engine uses to route each requested call.
package toolcatalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/agentrun/gateway/pkg/models"
)

// Category is the routing class of a tool, derived from its name alone.
type Category string

const (
	// CategoryDirect tools execute inline in the loop.
	CategoryDirect Category = "direct"
	// CategoryVault tools must be routed through the Secrets Vault with
	// the current Access Context.
	CategoryVault Category = "vault"
	// CategorySkill tools must be routed through the Skills Registry.
	CategorySkill Category = "skill"
)

// vaultToolNames and skillToolNames are the exact membership lists; any
// other name is a direct tool. Keeping these as the only source of truth
// makes Classify a pure function of the name, as required.
var (
	vaultToolNames = map[string]bool{
		"secrets_list":  true,
		"secrets_get":   true,
		"secrets_store": true,
	}
	skillToolNames = map[string]bool{
		"skill_list":        true,
		"skill_search":      true,
		"skill_install":     true,
		"skill_info":        true,
		"skill_enable":      true,
		"skill_link_secret": true,
	}
)

// Classify returns name's routing Category. It consults only the fixed
// membership tables above, so the same name always classifies the same
// way regardless of catalog state.
func Classify(name string) Category {
	if vaultToolNames[name] {
		return CategoryVault
	}
	if skillToolNames[name] {
		return CategorySkill
	}
	return CategoryDirect
}

// Result is what an Executor produces: either output text, or an error
// string with IsError set. Executors never return a Go error for
// tool-level failures — those become a non-fatal error tool-result
// instead of terminating the Tool Loop Engine.
type Result struct {
	Text    string
	IsError bool
}

// ErrorResult builds a Result carrying msg as an error tool-result.
func ErrorResult(msg string) Result { return Result{Text: msg, IsError: true} }

// Executor is the uniform execution signature every direct tool
// implements: arguments come in as the provider-supplied JSON object, plus
// the workspace path the tool should confine its filesystem effects to.
type Executor func(ctx context.Context, arguments json.RawMessage, workspacePath string) Result

// Descriptor is one catalog entry: the provider-agnostic definition plus
// its executor and derived category.
type Descriptor struct {
	Name        string
	Description string
	Schema      json.RawMessage
	Category    Category
	Execute     Executor
}

// Catalog is the thread-safe registry of Descriptors, keyed by name.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]Descriptor
}

// New constructs an empty Catalog.
func New() *Catalog {
	return &Catalog{tools: map[string]Descriptor{}}
}

// Register adds or replaces a tool. Category is derived from name, not
// taken from the caller, so it cannot drift from Classify's table.
func (c *Catalog) Register(name, description string, schema json.RawMessage, exec Executor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools[name] = Descriptor{
		Name:        name,
		Description: description,
		Schema:      schema,
		Category:    Classify(name),
		Execute:     exec,
	}
}

// RegisterTyped derives Schema from the fields of params (a pointer to a
// struct tagged for jsonschema) via reflection, then registers as normal.
func (c *Catalog) RegisterTyped(name, description string, params any, exec Executor) error {
	schema, err := SchemaFor(params)
	if err != nil {
		return fmt.Errorf("toolcatalog: derive schema for %s: %w", name, err)
	}
	c.Register(name, description, schema, exec)
	return nil
}

// SchemaFor reflects v's type into the restricted JSON-Schema subset the
// three provider adapters can all render (object, properties, required,
// no $ref/$defs indirection).
func SchemaFor(v any) (json.RawMessage, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(v)
	schema.Version = ""
	return json.Marshal(schema)
}

// Get returns the Descriptor registered for name.
func (c *Catalog) Get(name string) (Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.tools[name]
	return d, ok
}

// List returns all Descriptors sorted by name, for stable iteration in
// tests and tool-def emission.
func (c *Catalog) List() []Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Descriptor, 0, len(c.tools))
	for _, d := range c.tools {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ToolDefinitions renders the catalog as the normalized
// []models.ToolDefinition shape a Provider Request carries; each Provider
// Adapter strategy then renders this into its own OpenAI/Anthropic/Google
// wire shape.
func (c *Catalog) ToolDefinitions() []models.ToolDefinition {
	list := c.List()
	out := make([]models.ToolDefinition, 0, len(list))
	for _, d := range list {
		out = append(out, models.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Schema,
		})
	}
	return out
}

// Execute runs name's executor against arguments and workspacePath. It
// returns an empty Result with ok=false if name is not registered or was
// registered with a nil executor (as the vault and skill tool descriptors
// are); it does not check the category itself — callers (the Tool Loop
// Engine) are expected to route vault/skill categories elsewhere before
// reaching here.
func (c *Catalog) Execute(ctx context.Context, name string, arguments json.RawMessage, workspacePath string) (Result, bool) {
	d, ok := c.Get(name)
	if !ok || d.Execute == nil {
		return Result{}, false
	}
	return d.Execute(ctx, arguments, workspacePath), true
}

// Names returns every category's registered tool names, joined for
// logging/diagnostics.
func (c *Catalog) Names() string {
	list := c.List()
	names := make([]string, len(list))
	for i, d := range list {
		names[i] = d.Name
	}
	return strings.Join(names, ", ")
}
