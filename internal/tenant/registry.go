package tenant

import (
	"context"
	"sync"
)

// Registry caches tenant configurations loaded from a ConfigSource.
// Configuration is immutable per session, so a loaded config is reused for
// every subsequent request naming the same tenant.
type Registry struct {
	source ConfigSource

	mu    sync.RWMutex
	cache map[string]*Config
}

// NewRegistry creates a registry backed by the given source.
func NewRegistry(source ConfigSource) *Registry {
	return &Registry{
		source: source,
		cache:  make(map[string]*Config),
	}
}

// LoadConfig returns the configuration for the identifier, or (nil, nil)
// when the tenant does not exist. Only transport faults return an error.
func (r *Registry) LoadConfig(ctx context.Context, id string) (*Config, error) {
	r.mu.RLock()
	cfg, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return cfg, nil
	}

	cfg, err := r.source.LoadConfig(ctx, id)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		// Unknown tenants are not cached: one may be provisioned later.
		return nil, nil
	}

	r.mu.Lock()
	r.cache[id] = cfg
	r.mu.Unlock()

	return cfg, nil
}
