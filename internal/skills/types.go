// Package skills implements the registry of declared skills: descriptor
// loading from SKILL.md files, activation state, and secret linkage.
package skills

// Descriptor is a named capability: a markdown document the system prompt
// builder may fold in when the skill is enabled, plus the set of vault
// entries it has linked to itself.
type Descriptor struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Enabled tracks activation state; toggled by Enable.
	Enabled bool `yaml:"-"`

	// SourcePath is the SKILL.md file this descriptor was loaded from.
	SourcePath string `yaml:"-"`

	// Content is the markdown body following the frontmatter.
	Content string `yaml:"-"`

	// LinkedSecrets is the set of vault entry names this skill has linked,
	// in link order. Mutated only through Registry.LinkSecret/UnlinkSecret.
	LinkedSecrets []string `yaml:"-"`
}

// hasLinked reports whether secret is already linked, for idempotent
// LinkSecret/UnlinkSecret.
func (d *Descriptor) hasLinked(secret string) bool {
	for _, s := range d.LinkedSecrets {
		if s == secret {
			return true
		}
	}
	return false
}
