package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/caravela-labs/tenantdash/internal/section"
	"github.com/caravela-labs/tenantdash/internal/store"
	"github.com/caravela-labs/tenantdash/internal/store/blob"
	"github.com/caravela-labs/tenantdash/internal/tenant"
)

type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
	srv    *http.Server
}

// Options carries the collaborators the server routes over.
type Options struct {
	Port     int
	Logger   *slog.Logger
	Resolver *tenant.Resolver
	Registry *tenant.Registry
	Factory  *store.Factory
	Sections *section.Registry
	Blobs    *blob.Store
}

// New builds the router. The API is mounted twice: under /{tenant}/api for
// path-based tenants and under /api for subdomain-resolved ones; the tenant
// middleware resolves either form from the raw request.
func New(opts Options) *Server {
	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(opts.Logger))
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "tenantdash")
	})

	h := NewHandlers(opts.Sections, opts.Blobs)
	withTenant := TenantMiddleware(opts.Resolver, opts.Registry, opts.Factory)

	api := func(r chi.Router) {
		r.Use(withTenant)
		r.Get("/tenant", h.GetTenantInfo)
		r.Get("/sections/{kind}", h.GetSection)
		r.Route("/collections/{collection}", func(r chi.Router) {
			r.Get("/", h.ListRecords)
			r.Post("/", h.CreateRecord)
			r.Get("/watch", h.WatchCollection)
			r.Get("/{id}", h.GetRecord)
			r.Patch("/{id}", h.UpdateRecord)
			r.Delete("/{id}", h.DeleteRecord)
		})
		r.Put("/blobs/*", h.UploadBlob)
		r.Delete("/blobs/*", h.DeleteBlob)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/blobs/{tenant}/*", h.ServeBlob)
	r.Route("/api", api)
	r.Route("/{tenant}/api", api)

	return &Server{
		Router: r,
		Port:   opts.Port,
		logger: opts.Logger,
	}
}

// Start blocks serving HTTP until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.Port),
		Handler: s.Router,
	}
	s.logger.Info("starting server", slog.Int("port", s.Port))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
