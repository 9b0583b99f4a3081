// Package vault implements the encrypted credential store: typed entries,
// per-entry access policy, and the gateway's three public operations
// (list, get, store).
package vault

import "fmt"

// CredentialKind identifies the shape of a credential's value.
type CredentialKind string

const (
	KindAPIKey           CredentialKind = "api-key"
	KindHTTPPasskey      CredentialKind = "http-passkey"
	KindUsernamePassword CredentialKind = "username-password"
	KindSSHKey           CredentialKind = "ssh-key"
	KindToken            CredentialKind = "token"
	KindFormAutofill     CredentialKind = "form-autofill"
	KindPayment          CredentialKind = "payment"
	KindSecureNote       CredentialKind = "secure-note"
	KindOther            CredentialKind = "other"
)

// PolicyKind is the tag of an AccessPolicy.
type PolicyKind string

const (
	PolicyAlways       PolicyKind = "always"
	PolicyWithApproval PolicyKind = "with-approval"
	PolicyWithAuth     PolicyKind = "with-auth"
	PolicySkillOnly    PolicyKind = "skill-only"
)

// AccessPolicy controls when a credential's value may be read. Skills is
// only meaningful when Kind is PolicySkillOnly; an empty Skills list means
// no skill may access the entry.
type AccessPolicy struct {
	Kind   PolicyKind `json:"kind"`
	Skills []string   `json:"skills,omitempty"`
}

func Always() AccessPolicy       { return AccessPolicy{Kind: PolicyAlways} }
func WithApproval() AccessPolicy { return AccessPolicy{Kind: PolicyWithApproval} }
func WithAuth() AccessPolicy     { return AccessPolicy{Kind: PolicyWithAuth} }

// SkillOnly builds a skill-scoped policy. skills is used as given, neither
// copied nor sorted; the Skills Registry passes a freshly sorted slice to
// keep it deterministic.
func SkillOnly(skills []string) AccessPolicy {
	return AccessPolicy{Kind: PolicySkillOnly, Skills: skills}
}

// Grants evaluates the policy against an AccessContext per the gateway's
// policy-evaluation table.
func (p AccessPolicy) Grants(ctx AccessContext) bool {
	switch p.Kind {
	case PolicyAlways:
		return true
	case PolicyWithApproval:
		return ctx.UserApproved
	case PolicyWithAuth:
		return ctx.Authenticated
	case PolicySkillOnly:
		if ctx.ActiveSkill == "" {
			return false
		}
		for _, s := range p.Skills {
			if s == ctx.ActiveSkill {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (p AccessPolicy) String() string {
	switch p.Kind {
	case PolicySkillOnly:
		if len(p.Skills) == 0 {
			return "locked"
		}
		return fmt.Sprintf("skill-only(%v)", p.Skills)
	default:
		return string(p.Kind)
	}
}

// AccessContext is the caller-supplied context a Get request is evaluated
// against.
type AccessContext struct {
	UserApproved  bool
	Authenticated bool
	ActiveSkill   string
}

// Entry is the metadata envelope stored under cred:<name>. It never
// carries the credential's value.
type Entry struct {
	Name        string         `json:"-"`
	Label       string         `json:"label"`
	Kind        CredentialKind `json:"kind"`
	Policy      AccessPolicy   `json:"policy"`
	Description string         `json:"description,omitempty"`
	Disabled    bool           `json:"disabled,omitempty"`
}

// Value is the decrypted payload returned by Get. Username is only set
// when Kind is KindUsernamePassword.
type Value struct {
	Secret   string `json:"secret"`
	Username string `json:"username,omitempty"`
}
