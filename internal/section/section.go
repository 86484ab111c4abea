// Package section maps dashboard section kinds to content loaders. The set
// of kinds is closed: every section a tenant can display is declared here,
// and asking for anything else yields ErrUnknownSection rather than a panic
// or a silent empty page.
package section

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/caravela-labs/tenantdash/internal/session"
	"github.com/caravela-labs/tenantdash/internal/store"
)

// Kind identifies one dashboard section.
type Kind string

const (
	KindProducts  Kind = "products"
	KindSales     Kind = "sales"
	KindCustomers Kind = "customers"
	KindMovements Kind = "movements"
	KindKPIs      Kind = "kpis"
	KindReports   Kind = "reports"
)

// ErrUnknownSection is returned when a requested kind is not part of the
// closed set, or has no loader registered.
var ErrUnknownSection = errors.New("section: unknown section kind")

var allKinds = map[Kind]bool{
	KindProducts:  true,
	KindSales:     true,
	KindCustomers: true,
	KindMovements: true,
	KindKPIs:      true,
	KindReports:   true,
}

// ParseKind validates a raw string against the closed kind set.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !allKinds[k] {
		return "", fmt.Errorf("%w: %q", ErrUnknownSection, s)
	}
	return k, nil
}

// Content is the structured result of loading a section: a record list for
// table-style sections, a summary map for aggregate sections, or both.
type Content struct {
	Kind    Kind            `json:"kind"`
	Title   string          `json:"title"`
	Records []*store.Record `json:"records,omitempty"`
	Summary map[string]any  `json:"summary,omitempty"`
}

// Loader produces the content for one section using the caller's session and
// tenant-scoped store client.
type Loader func(ctx context.Context, sess *session.Context, client *store.Client) (*Content, error)

// Registry holds the kind-to-loader table. The default table is built by
// NewRegistry; Register lets callers swap in alternate loaders for a kind.
type Registry struct {
	mu      sync.RWMutex
	loaders map[Kind]Loader
}

// NewRegistry builds a registry with the default loader for every kind.
func NewRegistry() *Registry {
	r := &Registry{loaders: make(map[Kind]Loader)}
	r.Register(KindProducts, listLoader(KindProducts, "Products", "products"))
	r.Register(KindSales, listLoader(KindSales, "Sales", "sales"))
	r.Register(KindCustomers, listLoader(KindCustomers, "Customers", "customers"))
	r.Register(KindMovements, listLoader(KindMovements, "Stock Movements", "movements"))
	r.Register(KindKPIs, kpiLoader)
	r.Register(KindReports, reportsLoader)
	return r
}

// Register installs or replaces the loader for a kind. Registering a kind
// outside the closed set is rejected.
func (r *Registry) Register(kind Kind, loader Loader) error {
	if !allKinds[kind] {
		return fmt.Errorf("%w: %q", ErrUnknownSection, kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[kind] = loader
	return nil
}

// Load runs the loader for the given kind.
func (r *Registry) Load(ctx context.Context, kind Kind, sess *session.Context, client *store.Client) (*Content, error) {
	r.mu.RLock()
	loader, ok := r.loaders[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, kind)
	}
	return loader(ctx, sess, client)
}

// listLoader builds the generic table-section loader: fetch every record in
// one collection, newest first.
func listLoader(kind Kind, title, collection string) Loader {
	return func(ctx context.Context, _ *session.Context, client *store.Client) (*Content, error) {
		records, err := client.GetMany(ctx, collection, store.Query{OrderBy: "created_at", Desc: true})
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", collection, err)
		}
		return &Content{Kind: kind, Title: title, Records: records}, nil
	}
}

// kpiLoader aggregates the headline numbers shown on the overview panel:
// sale count, total revenue summed over each sale's "total" field, and the
// customer and product counts.
func kpiLoader(ctx context.Context, _ *session.Context, client *store.Client) (*Content, error) {
	sales, err := client.GetMany(ctx, "sales", store.Query{})
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}
	customers, err := client.GetMany(ctx, "customers", store.Query{})
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	products, err := client.GetMany(ctx, "products", store.Query{})
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	var revenue float64
	for _, s := range sales {
		revenue += numericField(s, "total")
	}

	return &Content{
		Kind:  KindKPIs,
		Title: "Overview",
		Summary: map[string]any{
			"total_sales":     len(sales),
			"total_revenue":   revenue,
			"total_customers": len(customers),
			"total_products":  len(products),
		},
	}, nil
}

// reportsLoader summarizes sales grouped per customer. Tenants that have the
// "reports" feature switched off get an empty, disabled report rather than
// an error.
func reportsLoader(ctx context.Context, sess *session.Context, client *store.Client) (*Content, error) {
	if cfg := sess.Current().TenantConfig; cfg != nil && !cfg.FeatureEnabled("reports") {
		return &Content{
			Kind:    KindReports,
			Title:   "Reports",
			Summary: map[string]any{"enabled": false},
		}, nil
	}

	sales, err := client.GetMany(ctx, "sales", store.Query{})
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}

	byCustomer := make(map[string]float64)
	for _, s := range sales {
		customer, _ := s.Fields["customer_id"].(string)
		if customer == "" {
			customer = "unknown"
		}
		byCustomer[customer] += numericField(s, "total")
	}

	return &Content{
		Kind:  KindReports,
		Title: "Reports",
		Summary: map[string]any{
			"enabled":             true,
			"revenue_by_customer": byCustomer,
		},
	}, nil
}

func numericField(r *store.Record, name string) float64 {
	switch v := r.Fields[name].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
