package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/caravela-labs/tenantdash/internal/session"
	"github.com/caravela-labs/tenantdash/internal/tenant"
)

// Authenticator validates API keys against one tenant's key list. Keys are
// tenant-scoped: a key valid for tenant A never authenticates against
// tenant B, even if the hashes collide in configuration.
type Authenticator struct {
	users map[string]session.UserRef // keyhash -> user
	keys  []tenant.APIKey
}

// NewAuthenticator builds an authenticator from a resolved tenant config.
func NewAuthenticator(cfg *tenant.Config) *Authenticator {
	auth := &Authenticator{
		users: make(map[string]session.UserRef, len(cfg.APIKeys)),
		keys:  cfg.APIKeys,
	}
	for _, key := range cfg.APIKeys {
		auth.users[key.KeyHash] = session.UserRef{
			ID:          key.UserID,
			Role:        key.Role,
			Description: key.Description,
		}
	}
	return auth
}

// ValidateAPIKey validates an API key and returns the user it belongs to.
func (a *Authenticator) ValidateAPIKey(apiKey string) (*session.UserRef, error) {
	keyHash := HashAPIKey(apiKey)

	user, ok := a.users[keyHash]
	if !ok {
		return nil, fmt.Errorf("invalid API key")
	}

	// Constant-time comparison to prevent timing attacks
	for _, key := range a.keys {
		if subtle.ConstantTimeCompare([]byte(keyHash), []byte(key.KeyHash)) == 1 {
			return &user, nil
		}
	}

	return nil, fmt.Errorf("invalid API key")
}

// ExtractAPIKey extracts the API key from the Authorization header
func ExtractAPIKey(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	// Support "Bearer <key>" format
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid Authorization header format")
	}

	if strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("unsupported authorization scheme")
	}

	return parts[1], nil
}

// HashAPIKey creates a SHA-256 hash of an API key for storage
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}
