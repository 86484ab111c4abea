package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Blobs    BlobConfig     `koanf:"blobs"`
	Resolver ResolverConfig `koanf:"resolver"`
	Tenants  TenantsConfig  `koanf:"tenants"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StorageConfig struct {
	Type     string         `koanf:"type"` // sqlite, postgres, mysql, memory
	Database DatabaseConfig `koanf:"database"`
}

// DatabaseConfig is the generic database configuration supporting multiple dialects.
type DatabaseConfig struct {
	Driver string `koanf:"driver"` // sqlite, postgres, mysql
	DSN    string `koanf:"dsn"`    // Data source name / connection string
}

type BlobConfig struct {
	Dir string `koanf:"dir"`
}

// ResolverConfig controls tenant resolution from the request URL.
// ReservedSegments lists first path segments that can never be tenant
// identifiers (static assets, API mount points, the default document).
type ResolverConfig struct {
	ReservedSegments []string `koanf:"reserved_segments"`
}

// TenantsConfig selects where tenant configuration comes from: inline
// entries in this file, or a remote registry queried per identifier.
type TenantsConfig struct {
	Source      string        `koanf:"source"` // static, registry
	RegistryURL string        `koanf:"registry_url"`
	Entries     []TenantEntry `koanf:"entries"`
}

type TenantEntry struct {
	ID          string          `koanf:"id"`
	DisplayName string          `koanf:"display_name"`
	Branding    BrandingConfig  `koanf:"branding"`
	StoreToken  string          `koanf:"store_token"`
	APIKeys     []APIKeyConfig  `koanf:"api_keys"`
	Features    map[string]bool `koanf:"features"`
}

type BrandingConfig struct {
	PrimaryColor string `koanf:"primary_color"`
	LogoURL      string `koanf:"logo_url"`
}

type APIKeyConfig struct {
	KeyHash     string `koanf:"key_hash"`
	UserID      string `koanf:"user_id"`
	Role        string `koanf:"role"`
	Description string `koanf:"description"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Environment variables override file config
	if err := k.Load(env.Provider("TDASH_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "TDASH_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("storage.type") {
		k.Set("storage.type", "sqlite")
	}
	if !k.Exists("storage.database.driver") {
		k.Set("storage.database.driver", "sqlite")
	}
	if !k.Exists("storage.database.dsn") {
		k.Set("storage.database.dsn", "./data/tenantdash.db")
	}
	if !k.Exists("blobs.dir") {
		k.Set("blobs.dir", "./data/blobs")
	}
	if !k.Exists("resolver.reserved_segments") {
		k.Set("resolver.reserved_segments", []string{"index.html", "assets", "api", "blobs", "healthz"})
	}
	if !k.Exists("tenants.source") {
		k.Set("tenants.source", "static")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute environment variables in per-tenant store tokens
	for i := range cfg.Tenants.Entries {
		cfg.Tenants.Entries[i].StoreToken = substituteEnvVars(cfg.Tenants.Entries[i].StoreToken)
	}

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
