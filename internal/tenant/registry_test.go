package tenant

import (
	"context"
	"fmt"
	"testing"

	"github.com/caravela-labs/tenantdash/internal/config"
)

func TestStaticSource_LoadConfig(t *testing.T) {
	source := NewStaticSource([]config.TenantEntry{
		{
			ID:          "acme",
			DisplayName: "Acme Inc",
			Branding:    config.BrandingConfig{PrimaryColor: "#336699"},
			StoreToken:  "token-1",
			APIKeys: []config.APIKeyConfig{
				{KeyHash: "hash1", UserID: "user-1", Description: "Key 1"},
			},
			Features: map[string]bool{"reports": true},
		},
		{
			ID:          "globex",
			DisplayName: "Globex Corp",
		},
	})

	t.Run("existing tenant", func(t *testing.T) {
		cfg, err := source.LoadConfig(context.Background(), "acme")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg == nil {
			t.Fatal("LoadConfig() = nil, want config")
		}
		if cfg.DisplayName != "Acme Inc" {
			t.Errorf("DisplayName = %v, want Acme Inc", cfg.DisplayName)
		}
		if cfg.Branding.PrimaryColor != "#336699" {
			t.Errorf("PrimaryColor = %v, want #336699", cfg.Branding.PrimaryColor)
		}
		if len(cfg.APIKeys) != 1 || cfg.APIKeys[0].UserID != "user-1" {
			t.Errorf("APIKeys = %+v, want one key for user-1", cfg.APIKeys)
		}
		if !cfg.FeatureEnabled("reports") {
			t.Error("FeatureEnabled(reports) = false, want true")
		}
		if cfg.FeatureEnabled("exports") {
			t.Error("FeatureEnabled(exports) = true, want false")
		}
	})

	t.Run("unknown tenant is nil not error", func(t *testing.T) {
		cfg, err := source.LoadConfig(context.Background(), "no-such")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg != nil {
			t.Errorf("LoadConfig() = %+v, want nil", cfg)
		}
	})
}

// countingSource counts LoadConfig calls to verify registry caching.
type countingSource struct {
	calls int
	cfg   *Config
}

func (s *countingSource) LoadConfig(_ context.Context, id string) (*Config, error) {
	s.calls++
	if s.cfg != nil && s.cfg.Identifier == id {
		return s.cfg, nil
	}
	if id == "broken" {
		return nil, fmt.Errorf("registry unreachable")
	}
	return nil, nil
}

func TestRegistry_LoadConfig(t *testing.T) {
	src := &countingSource{cfg: &Config{Identifier: "acme", DisplayName: "Acme Inc"}}
	reg := NewRegistry(src)

	t.Run("caches loaded config", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			cfg, err := reg.LoadConfig(context.Background(), "acme")
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			if cfg == nil || cfg.DisplayName != "Acme Inc" {
				t.Fatalf("LoadConfig() = %+v, want Acme Inc", cfg)
			}
		}
		if src.calls != 1 {
			t.Errorf("source calls = %d, want 1", src.calls)
		}
	})

	t.Run("unknown tenant not cached", func(t *testing.T) {
		before := src.calls
		for i := 0; i < 2; i++ {
			cfg, err := reg.LoadConfig(context.Background(), "no-such")
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			if cfg != nil {
				t.Fatalf("LoadConfig() = %+v, want nil", cfg)
			}
		}
		if got := src.calls - before; got != 2 {
			t.Errorf("source calls for unknown tenant = %d, want 2", got)
		}
	})

	t.Run("transport fault propagates", func(t *testing.T) {
		if _, err := reg.LoadConfig(context.Background(), "broken"); err == nil {
			t.Error("LoadConfig() error = nil, want transport error")
		}
	})
}
