package tools

import (
	"context"
	"testing"

	"github.com/agentrun/gateway/internal/toolcatalog"
)

func TestSkillToolDefsHaveNoExecutorAndSkillCategory(t *testing.T) {
	cat := toolcatalog.New()
	RegisterSkillToolDefs(cat)

	names := []string{
		"skill_list", "skill_search", "skill_install",
		"skill_info", "skill_enable", "skill_link_secret",
	}
	for _, name := range names {
		d, ok := cat.Get(name)
		if !ok {
			t.Fatalf("%s not registered", name)
		}
		if d.Category != toolcatalog.CategorySkill {
			t.Errorf("%s category = %s, want skill", name, d.Category)
		}
		if d.Execute != nil {
			t.Errorf("%s has a non-nil executor, want nil (routed by the loop engine)", name)
		}
		if _, ok := cat.Execute(context.Background(), name, nil, ""); ok {
			t.Errorf("Execute(%s) should report ok=false", name)
		}
	}
}
