package tenant

// Config is the per-tenant configuration loaded once per session. It is
// immutable after load; consumers hold read-only references.
type Config struct {
	Identifier  string
	DisplayName string
	Branding    Branding
	StoreToken  string
	APIKeys     []APIKey
	Features    map[string]bool
}

// Branding carries the tenant's visual identity handed to the UI layer.
type Branding struct {
	PrimaryColor string `json:"primary_color"`
	LogoURL      string `json:"logo_url"`
}

// APIKey is a hashed credential granting a user access to the tenant.
type APIKey struct {
	KeyHash     string
	UserID      string
	Role        string
	Description string
}

// FeatureEnabled reports whether a named feature flag is on for the tenant.
func (c *Config) FeatureEnabled(name string) bool {
	return c.Features[name]
}
