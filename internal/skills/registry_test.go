package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentrun/gateway/internal/vault"
)

type fakeVault struct {
	policies map[string]vault.AccessPolicy
}

func newFakeVault() *fakeVault { return &fakeVault{policies: map[string]vault.AccessPolicy{}} }

func (f *fakeVault) Policy(name string) (vault.AccessPolicy, error) {
	p, ok := f.policies[name]
	if !ok {
		return vault.AccessPolicy{}, vault.ErrNotFound
	}
	return p, nil
}

func (f *fakeVault) SetPolicy(name string, policy vault.AccessPolicy) error {
	f.policies[name] = policy
	return nil
}

func writeSkill(t *testing.T, dir, name, description string) {
	t.Helper()
	skillDir := filepath.Join(dir, name)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "---\nname: " + name + "\ndescription: " + description + "\n---\n\nbody text\n"
	if err := os.WriteFile(filepath.Join(skillDir, SkillFilename), []byte(content), 0o644); err != nil {
		t.Fatalf("write skill: %v", err)
	}
}

func TestReloadLoadsSkillsFromDisk(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "deploy", "deploy things")

	r := NewRegistry(dir, nil, nil)
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	d, ok := r.Get("deploy")
	if !ok {
		t.Fatalf("Get(deploy) not found")
	}
	if !d.Enabled {
		t.Fatalf("newly loaded skill should default to enabled")
	}
}

func TestEnableTogglesActivation(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "deploy", "deploy things")

	r := NewRegistry(dir, nil, nil)
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if err := r.Enable("deploy", false); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	d, _ := r.Get("deploy")
	if d.Enabled {
		t.Fatalf("expected deploy disabled")
	}
}

func TestLinkSecretIsIdempotentAndReversible(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "deploy", "deploy things")

	fv := newFakeVault()
	fv.policies["aws-creds"] = vault.WithApproval()

	r := NewRegistry(dir, fv, nil)
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if err := r.LinkSecret("deploy", "aws-creds"); err != nil {
		t.Fatalf("LinkSecret: %v", err)
	}
	if err := r.LinkSecret("deploy", "aws-creds"); err != nil {
		t.Fatalf("second LinkSecret should be idempotent, got: %v", err)
	}

	p := fv.policies["aws-creds"]
	if p.Kind != vault.PolicySkillOnly || len(p.Skills) != 1 || p.Skills[0] != "deploy" {
		t.Fatalf("policy after link = %+v", p)
	}

	if err := r.UnlinkSecret("deploy", "aws-creds"); err != nil {
		t.Fatalf("UnlinkSecret: %v", err)
	}
	if err := r.UnlinkSecret("deploy", "aws-creds"); err != nil {
		t.Fatalf("second UnlinkSecret should be idempotent, got: %v", err)
	}

	restored := fv.policies["aws-creds"]
	if restored.Kind != vault.PolicyWithApproval {
		t.Fatalf("policy after unlink = %+v, want restored with-approval", restored)
	}
}

func TestInstallCopiesAndReloads(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir, nil, nil)

	sourceDir := t.TempDir()
	sourceFile := filepath.Join(sourceDir, SkillFilename)
	content := "---\nname: triage\ndescription: triage incidents\n---\n\nbody text\n"
	if err := os.WriteFile(sourceFile, []byte(content), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	d, err := r.Install(sourceFile)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if d.Name != "triage" {
		t.Fatalf("installed name = %q, want triage", d.Name)
	}

	got, ok := r.Get("triage")
	if !ok {
		t.Fatalf("Get(triage) not found after install")
	}
	if !got.Enabled {
		t.Fatalf("installed skill should default to enabled")
	}

	if _, err := os.Stat(filepath.Join(dir, "triage", SkillFilename)); err != nil {
		t.Fatalf("expected skill file copied into registry dir: %v", err)
	}
}

func TestLinkSecretSharedAcrossTwoSkills(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "deploy", "deploy things")
	writeSkill(t, dir, "backup", "backup things")

	fv := newFakeVault()
	fv.policies["aws-creds"] = vault.WithApproval()

	r := NewRegistry(dir, fv, nil)
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if err := r.LinkSecret("deploy", "aws-creds"); err != nil {
		t.Fatalf("LinkSecret(deploy): %v", err)
	}
	if err := r.LinkSecret("backup", "aws-creds"); err != nil {
		t.Fatalf("LinkSecret(backup): %v", err)
	}

	if err := r.UnlinkSecret("deploy", "aws-creds"); err != nil {
		t.Fatalf("UnlinkSecret(deploy): %v", err)
	}
	p := fv.policies["aws-creds"]
	if p.Kind != vault.PolicySkillOnly || len(p.Skills) != 1 || p.Skills[0] != "backup" {
		t.Fatalf("policy after partial unlink = %+v, want skill-only(backup)", p)
	}
}
