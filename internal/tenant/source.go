package tenant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/caravela-labs/tenantdash/internal/config"
)

// ConfigSource loads tenant configuration by identifier. Implementations
// return (nil, nil) when no configuration exists for the identifier: an
// unknown tenant is an expected outcome, not a fault. Errors are reserved
// for transport and storage failures.
type ConfigSource interface {
	LoadConfig(ctx context.Context, id string) (*Config, error)
}

// StaticSource serves tenant configuration from inline config entries.
type StaticSource struct {
	configs map[string]*Config
}

// NewStaticSource builds a source from the application config's tenant entries.
func NewStaticSource(entries []config.TenantEntry) *StaticSource {
	s := &StaticSource{configs: make(map[string]*Config, len(entries))}
	for _, e := range entries {
		keys := make([]APIKey, len(e.APIKeys))
		for i, k := range e.APIKeys {
			keys[i] = APIKey{KeyHash: k.KeyHash, UserID: k.UserID, Role: k.Role, Description: k.Description}
		}
		s.configs[e.ID] = &Config{
			Identifier:  e.ID,
			DisplayName: e.DisplayName,
			Branding:    Branding{PrimaryColor: e.Branding.PrimaryColor, LogoURL: e.Branding.LogoURL},
			StoreToken:  e.StoreToken,
			APIKeys:     keys,
			Features:    e.Features,
		}
	}
	return s
}

func (s *StaticSource) LoadConfig(_ context.Context, id string) (*Config, error) {
	return s.configs[id], nil
}

// HTTPSource fetches tenant configuration from a remote registry endpoint.
// The registry serves GET {base}/tenants/{id} with a JSON document; a 404
// means the tenant does not exist.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates a remote registry source. A nil client uses
// http.DefaultClient.
func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{baseURL: baseURL, client: client}
}

type registryDocument struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Branding    Branding        `json:"branding"`
	StoreToken  string          `json:"store_token"`
	APIKeys     []registryKey   `json:"api_keys"`
	Features    map[string]bool `json:"features"`
}

type registryKey struct {
	KeyHash     string `json:"key_hash"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	Description string `json:"description"`
}

func (s *HTTPSource) LoadConfig(ctx context.Context, id string) (*Config, error) {
	url := fmt.Sprintf("%s/tenants/%s", s.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build registry request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenant registry: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("tenant registry returned status %d", resp.StatusCode)
	}

	var doc registryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode registry response: %w", err)
	}

	keys := make([]APIKey, len(doc.APIKeys))
	for i, k := range doc.APIKeys {
		keys[i] = APIKey{KeyHash: k.KeyHash, UserID: k.UserID, Role: k.Role, Description: k.Description}
	}

	return &Config{
		Identifier:  doc.ID,
		DisplayName: doc.DisplayName,
		Branding:    doc.Branding,
		StoreToken:  doc.StoreToken,
		APIKeys:     keys,
		Features:    doc.Features,
	}, nil
}
