package tenant

import (
	"context"
	"testing"

	"github.com/caravela-labs/tenantdash/internal/testutil"
)

func TestHTTPSource_LoadConfig(t *testing.T) {
	rec, cleanup := testutil.NewVCRRecorder(t, "tenant_registry")
	defer cleanup()

	source := NewHTTPSource("https://registry.tenantdash.test", testutil.VCRHTTPClient(rec))

	t.Run("existing tenant", func(t *testing.T) {
		cfg, err := source.LoadConfig(context.Background(), "acme")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg == nil {
			t.Fatal("LoadConfig() = nil, want config")
		}
		if cfg.Identifier != "acme" {
			t.Errorf("Identifier = %v, want acme", cfg.Identifier)
		}
		if cfg.DisplayName != "Acme Inc" {
			t.Errorf("DisplayName = %v, want Acme Inc", cfg.DisplayName)
		}
		if cfg.Branding.PrimaryColor != "#336699" {
			t.Errorf("PrimaryColor = %v, want #336699", cfg.Branding.PrimaryColor)
		}
		if !cfg.FeatureEnabled("reports") {
			t.Error("FeatureEnabled(reports) = false, want true")
		}
	})

	t.Run("unknown tenant is nil not error", func(t *testing.T) {
		cfg, err := source.LoadConfig(context.Background(), "missing")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg != nil {
			t.Errorf("LoadConfig() = %+v, want nil", cfg)
		}
	})
}
