package vault

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestStoreAndGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	v, err := Open(filepath.Join(dir, "vault.enc"), "correct horse battery staple", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	e := Entry{Label: "Anthropic key", Kind: KindAPIKey, Policy: Always()}
	if err := v.Store("anthropic", e, Value{Secret: "sk-ant-test"}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := v.Get("anthropic", AccessContext{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Secret != "sk-ant-test" {
		t.Fatalf("Secret = %q, want sk-ant-test", got.Secret)
	}
}

func TestReopenDecryptsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.enc")

	v1, err := Open(path, "hunter2", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := v1.Store("github", Entry{Label: "GitHub token", Kind: KindToken, Policy: WithApproval()}, Value{Secret: "ghp_abc"}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	v2, err := Open(path, "hunter2", nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := v2.Get("github", AccessContext{UserApproved: true})
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Secret != "ghp_abc" {
		t.Fatalf("Secret = %q, want ghp_abc", got.Secret)
	}
}

func TestReopenWrongPassphraseFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.enc")

	v1, err := Open(path, "correct", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := v1.Store("x", Entry{Label: "x", Kind: KindOther, Policy: Always()}, Value{Secret: "v"}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	if _, err := Open(path, "wrong", nil); err == nil {
		t.Fatalf("expected error opening with wrong passphrase")
	}
}

func TestPolicyEvaluation(t *testing.T) {
	cases := []struct {
		name   string
		policy AccessPolicy
		ctx    AccessContext
		want   bool
	}{
		{"always grants unconditionally", Always(), AccessContext{}, true},
		{"with-approval denies without approval", WithApproval(), AccessContext{}, false},
		{"with-approval grants with approval", WithApproval(), AccessContext{UserApproved: true}, true},
		{"with-auth denies without auth", WithAuth(), AccessContext{}, false},
		{"with-auth grants with auth", WithAuth(), AccessContext{Authenticated: true}, true},
		{"skill-only denies unrelated skill", SkillOnly([]string{"deploy"}), AccessContext{ActiveSkill: "backup"}, false},
		{"skill-only grants matching skill", SkillOnly([]string{"deploy"}), AccessContext{ActiveSkill: "deploy"}, true},
		{"skill-only empty list always denies", SkillOnly(nil), AccessContext{ActiveSkill: "deploy"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.policy.Grants(tc.ctx); got != tc.want {
				t.Fatalf("Grants() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGetDistinguishesPolicyDeniedFromDisabled(t *testing.T) {
	dir := t.TempDir()
	v, err := Open(filepath.Join(dir, "vault.enc"), "pw", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := v.Store("locked", Entry{Label: "locked", Kind: KindOther, Policy: WithAuth()}, Value{Secret: "s"}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := v.Get("locked", AccessContext{}); err == nil {
		t.Fatalf("expected policy-denied error")
	} else if !isErr(err, ErrPolicyDenied) {
		t.Fatalf("got %v, want ErrPolicyDenied", err)
	}

	if err := v.Store("off", Entry{Label: "off", Kind: KindOther, Policy: Always(), Disabled: true}, Value{Secret: "s"}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := v.Get("off", AccessContext{}); err == nil {
		t.Fatalf("expected disabled error")
	} else if !isErr(err, ErrDisabled) {
		t.Fatalf("got %v, want ErrDisabled", err)
	}

	if _, err := v.Get("missing", AccessContext{}); !isErr(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestLockPreventsFurtherAccess(t *testing.T) {
	dir := t.TempDir()
	v, err := Open(filepath.Join(dir, "vault.enc"), "pw", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	v.Lock()
	if _, err := v.List(); !isErr(err, ErrVaultLocked) {
		t.Fatalf("got %v, want ErrVaultLocked", err)
	}
}

func TestListNeverReturnsValues(t *testing.T) {
	dir := t.TempDir()
	v, err := Open(filepath.Join(dir, "vault.enc"), "pw", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := v.Store("k", Entry{Label: "k", Kind: KindAPIKey, Policy: Always()}, Value{Secret: "topsecret"}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	entries, err := v.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "k" {
		t.Fatalf("List() = %+v", entries)
	}
}

func isErr(err, target error) bool {
	return errors.Is(err, target)
}
