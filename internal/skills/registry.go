package skills

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/agentrun/gateway/internal/vault"
)

// PolicyStore is the subset of *vault.Vault the registry needs to apply
// and revert skill-linkage policies, without importing vault's full
// surface into every caller of Registry.
type PolicyStore interface {
	Policy(name string) (vault.AccessPolicy, error)
	SetPolicy(name string, policy vault.AccessPolicy) error
}

// linkState tracks, for one vault entry name, the skills that have linked
// it and the user-declared policy to restore once the last link is undone.
type linkState struct {
	priorPolicy vault.AccessPolicy
	havePrior   bool
	linkedBy    map[string]struct{}
}

// Registry maintains the set of declared skills, their activation state,
// and which vault entries they've linked.
type Registry struct {
	mu     sync.RWMutex
	dir    string
	vault  PolicyStore
	logger *slog.Logger

	descriptors map[string]*Descriptor
	links       map[string]*linkState // secret name -> link state

	watcher     *fsnotify.Watcher
	watchCancel chan struct{}
}

// NewRegistry constructs a Registry rooted at dir (a directory of
// <skill-name>/SKILL.md files). v may be nil if secret linkage is unused
// (e.g. in tests exercising only list/enable).
func NewRegistry(dir string, v PolicyStore, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		dir:         dir,
		vault:       v,
		logger:      logger.With("component", "skills"),
		descriptors: map[string]*Descriptor{},
		links:       map[string]*linkState{},
	}
}

// Reload re-scans dir for SKILL.md files, replacing the descriptor set.
// Enabled state and link state for skills that still exist are preserved;
// skills removed from disk have their links unwound back to the prior
// vault policy.
func (r *Registry) Reload() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			entries = nil
		} else {
			return fmt.Errorf("skills: read %s: %w", r.dir, err)
		}
	}

	loaded := map[string]*Descriptor{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		skillFile := filepath.Join(r.dir, entry.Name(), SkillFilename)
		d, err := ParseFile(skillFile)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			r.logger.Warn("skipping invalid skill", "path", skillFile, "error", err)
			continue
		}
		loaded[d.Name] = d
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for name, prev := range r.descriptors {
		if next, ok := loaded[name]; ok {
			next.Enabled = prev.Enabled
			next.LinkedSecrets = prev.LinkedSecrets
			continue
		}
		// Skill disappeared from disk: unwind its linkages.
		for _, secret := range prev.LinkedSecrets {
			r.unlinkLocked(name, secret)
		}
	}

	r.descriptors = loaded
	r.logger.Info("skills reloaded", "count", len(loaded))
	return nil
}

// Install copies the SKILL.md file at sourcePath into dir under a new
// <name>/SKILL.md (name taken from the parsed descriptor), then reloads
// the registry so it becomes visible immediately.
func (r *Registry) Install(sourcePath string) (*Descriptor, error) {
	d, err := ParseFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("skills: parse install source: %w", err)
	}
	destDir := filepath.Join(r.dir, d.Name)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("skills: create skill directory: %w", err)
	}
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("skills: read install source: %w", err)
	}
	if err := os.WriteFile(filepath.Join(destDir, SkillFilename), data, 0o644); err != nil {
		return nil, fmt.Errorf("skills: write installed skill: %w", err)
	}
	if err := r.Reload(); err != nil {
		return nil, fmt.Errorf("skills: reload after install: %w", err)
	}
	installed, _ := r.Get(d.Name)
	return installed, nil
}

// List returns all known descriptors sorted by name.
func (r *Registry) List() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns one descriptor by name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[name]
	return d, ok
}

// Enable sets a skill's activation state.
func (r *Registry) Enable(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.descriptors[name]
	if !ok {
		return fmt.Errorf("skills: unknown skill %q", name)
	}
	d.Enabled = enabled
	return nil
}

// LinkSecret grants name's vault entry to skill by replacing the entry's
// policy with a skill-only policy over every skill that has linked it; the
// user-declared policy is remembered and restored once the last skill
// unlinks. Idempotent: linking an already-linked secret is a no-op.
func (r *Registry) LinkSecret(skill, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.descriptors[skill]
	if !ok {
		return fmt.Errorf("skills: unknown skill %q", skill)
	}
	if d.hasLinked(secret) {
		return nil
	}
	if r.vault == nil {
		return fmt.Errorf("skills: no vault configured for linkage")
	}

	state := r.links[secret]
	if state == nil {
		prior, err := r.vault.Policy(secret)
		if err != nil {
			return fmt.Errorf("skills: read policy for %s: %w", secret, err)
		}
		state = &linkState{priorPolicy: prior, havePrior: true, linkedBy: map[string]struct{}{}}
		r.links[secret] = state
	}
	state.linkedBy[skill] = struct{}{}

	if err := r.vault.SetPolicy(secret, vault.SkillOnly(sortedKeys(state.linkedBy))); err != nil {
		delete(state.linkedBy, skill)
		return fmt.Errorf("skills: apply skill-only policy: %w", err)
	}

	d.LinkedSecrets = append(d.LinkedSecrets, secret)
	return nil
}

// UnlinkSecret reverses a prior LinkSecret. Idempotent: unlinking a secret
// that isn't linked is a no-op. Once the last skill unlinks a secret, its
// prior user-declared policy is restored.
func (r *Registry) UnlinkSecret(skill, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.descriptors[skill]
	if !ok {
		return fmt.Errorf("skills: unknown skill %q", skill)
	}
	if !d.hasLinked(secret) {
		return nil
	}
	if err := r.unlinkLocked(skill, secret); err != nil {
		return err
	}
	d.LinkedSecrets = removeString(d.LinkedSecrets, secret)
	return nil
}

// unlinkLocked mutates vault policy state for one (skill, secret) pair.
// Callers hold r.mu and are responsible for updating the descriptor's
// LinkedSecrets slice themselves.
func (r *Registry) unlinkLocked(skill, secret string) error {
	state := r.links[secret]
	if state == nil {
		return nil
	}
	delete(state.linkedBy, skill)

	if r.vault == nil {
		return fmt.Errorf("skills: no vault configured for linkage")
	}

	if len(state.linkedBy) == 0 {
		delete(r.links, secret)
		if state.havePrior {
			return r.vault.SetPolicy(secret, state.priorPolicy)
		}
		return nil
	}
	return r.vault.SetPolicy(secret, vault.SkillOnly(sortedKeys(state.linkedBy)))
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func removeString(ss []string, target string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// Watch starts an fsnotify watch on dir, calling Reload on any create,
// write, remove, or rename event for an entry directly under it. The watch
// is not recursive: edits to an existing <name>/SKILL.md inside a skill
// directory do not trigger a reload. Call Close to stop.
func (r *Registry) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("skills: new watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("skills: watch %s: %w", r.dir, err)
	}

	r.mu.Lock()
	r.watcher = watcher
	r.watchCancel = make(chan struct{})
	cancel := r.watchCancel
	r.mu.Unlock()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if strings.HasSuffix(event.Name, SkillFilename) || event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					if err := r.Reload(); err != nil {
						r.logger.Warn("skill reload failed", "error", err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warn("skill watch error", "error", err)
			case <-cancel:
				return
			}
		}
	}()
	return nil
}

// Close stops the active watch, if any.
func (r *Registry) Close() error {
	r.mu.Lock()
	watcher := r.watcher
	cancel := r.watchCancel
	r.watcher = nil
	r.watchCancel = nil
	r.mu.Unlock()

	if cancel != nil {
		close(cancel)
	}
	if watcher != nil {
		return watcher.Close()
	}
	return nil
}
