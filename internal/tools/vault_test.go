package tools

import (
	"context"
	"testing"

	"github.com/agentrun/gateway/internal/toolcatalog"
)

func TestVaultToolDefsHaveNoExecutorAndVaultCategory(t *testing.T) {
	cat := toolcatalog.New()
	RegisterVaultToolDefs(cat)

	for _, name := range []string{"secrets_list", "secrets_get", "secrets_store"} {
		d, ok := cat.Get(name)
		if !ok {
			t.Fatalf("%s not registered", name)
		}
		if d.Category != toolcatalog.CategoryVault {
			t.Errorf("%s category = %s, want vault", name, d.Category)
		}
		if d.Execute != nil {
			t.Errorf("%s has a non-nil executor, want nil (routed by the loop engine)", name)
		}
		if _, ok := cat.Execute(context.Background(), name, nil, ""); ok {
			t.Errorf("Execute(%s) should report ok=false", name)
		}
	}
}
