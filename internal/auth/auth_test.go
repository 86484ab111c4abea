package auth

import (
	"net/http"
	"testing"

	"github.com/caravela-labs/tenantdash/internal/tenant"
)

func testConfig() *tenant.Config {
	return &tenant.Config{
		Identifier: "acme",
		APIKeys: []tenant.APIKey{
			{KeyHash: HashAPIKey("sk-owner"), UserID: "u-1", Role: "owner", Description: "owner key"},
			{KeyHash: HashAPIKey("sk-clerk"), UserID: "u-2", Role: "sales"},
		},
	}
}

func TestValidateAPIKey(t *testing.T) {
	a := NewAuthenticator(testConfig())

	user, err := a.ValidateAPIKey("sk-owner")
	if err != nil {
		t.Fatalf("ValidateAPIKey() error = %v", err)
	}
	if user.ID != "u-1" || user.Role != "owner" {
		t.Errorf("user = %+v, want u-1/owner", user)
	}

	user, err = a.ValidateAPIKey("sk-clerk")
	if err != nil {
		t.Fatalf("ValidateAPIKey() error = %v", err)
	}
	if user.ID != "u-2" || user.Role != "sales" {
		t.Errorf("user = %+v, want u-2/sales", user)
	}

	if _, err := a.ValidateAPIKey("sk-wrong"); err == nil {
		t.Error("ValidateAPIKey() accepted an unknown key")
	}
	if _, err := a.ValidateAPIKey(""); err == nil {
		t.Error("ValidateAPIKey() accepted an empty key")
	}
}

func TestValidateAPIKey_OtherTenantKey(t *testing.T) {
	a := NewAuthenticator(testConfig())

	// A key configured only for a different tenant never authenticates here.
	other := NewAuthenticator(&tenant.Config{
		Identifier: "globex",
		APIKeys:    []tenant.APIKey{{KeyHash: HashAPIKey("sk-globex"), UserID: "g-1"}},
	})
	if _, err := other.ValidateAPIKey("sk-globex"); err != nil {
		t.Fatalf("ValidateAPIKey() error = %v", err)
	}
	if _, err := a.ValidateAPIKey("sk-globex"); err == nil {
		t.Error("ValidateAPIKey() accepted another tenant's key")
	}
}

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"bearer", "Bearer sk-owner", "sk-owner", false},
		{"lowercase scheme", "bearer sk-owner", "sk-owner", false},
		{"missing", "", "", true},
		{"no scheme", "sk-owner", "", true},
		{"wrong scheme", "Basic sk-owner", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, err := ExtractAPIKey(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractAPIKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractAPIKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHashAPIKey(t *testing.T) {
	if HashAPIKey("a") == HashAPIKey("b") {
		t.Error("distinct keys hashed equal")
	}
	if len(HashAPIKey("a")) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(HashAPIKey("a")))
	}
}
