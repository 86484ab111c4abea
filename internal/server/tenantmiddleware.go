package server

import (
	"context"
	"net/http"

	"github.com/caravela-labs/tenantdash/internal/auth"
	"github.com/caravela-labs/tenantdash/internal/session"
	"github.com/caravela-labs/tenantdash/internal/store"
	"github.com/caravela-labs/tenantdash/internal/tenant"
)

// tenantStateKey is the context key for the resolved tenant state.
type tenantStateKey struct{}

// TenantState is everything a handler needs once a request's tenant is
// resolved: the bound session, the scoped store client, and the tenant's
// configuration.
type TenantState struct {
	Session *session.Context
	Client  *store.Client
	Config  *tenant.Config
}

// TenantMiddleware resolves the request's tenant, binds a fresh session, and
// injects a tenant-scoped store client into the context. A request whose
// tenant cannot be resolved, or names a tenant with no configuration, is
// answered 404; there is no fallback tenant. A Bearer API key, when
// present, must be valid for the resolved tenant or the request is rejected.
func TenantMiddleware(resolver *tenant.Resolver, registry *tenant.Registry, factory *store.Factory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := resolver.Resolve(r)
			if !ok {
				writeErrorMessage(w, http.StatusNotFound, "tenant not found")
				return
			}

			cfg, err := registry.LoadConfig(r.Context(), id)
			if err != nil {
				AddError(r.Context(), err)
				writeErrorMessage(w, http.StatusServiceUnavailable, "tenant configuration unavailable")
				return
			}
			if cfg == nil {
				writeErrorMessage(w, http.StatusNotFound, "tenant not found")
				return
			}

			sess := session.New()
			if err := sess.Bind(id, cfg); err != nil {
				AddError(r.Context(), err)
				writeErrorMessage(w, http.StatusInternalServerError, "failed to bind session")
				return
			}

			client, err := factory.ForTenant(store.Credentials{Token: cfg.StoreToken}, id, sess)
			if err != nil {
				AddError(r.Context(), err)
				writeErrorMessage(w, http.StatusNotFound, "tenant not found")
				return
			}

			// Authentication is optional: unauthenticated requests act as
			// the anonymous principal, but a presented key must be valid.
			if key, err := auth.ExtractAPIKey(r); err == nil {
				user, err := auth.NewAuthenticator(cfg).ValidateAPIKey(key)
				if err != nil {
					writeErrorMessage(w, http.StatusUnauthorized, "invalid API key")
					return
				}
				sess.SetUser(user)
				AddLogField(r.Context(), "user_id", user.ID)
			}

			AddLogField(r.Context(), "tenant", id)
			ctx := context.WithValue(r.Context(), tenantStateKey{}, &TenantState{
				Session: sess,
				Client:  client,
				Config:  cfg,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetTenantState retrieves the resolved tenant state from context. Returns
// nil outside TenantMiddleware.
func GetTenantState(ctx context.Context) *TenantState {
	if st, ok := ctx.Value(tenantStateKey{}).(*TenantState); ok {
		return st
	}
	return nil
}
