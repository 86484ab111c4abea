package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caravela-labs/tenantdash/internal/store"
)

func newRecord(id string, fields map[string]any) *store.Record {
	now := time.Now().UTC()
	return &store.Record{
		ID:        id,
		Fields:    fields,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: "tester",
		UpdatedBy: "tester",
	}
}

func TestStore_InsertGetDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	rec := newRecord("doc-1", map[string]any{"name": "Ana"})
	if err := s.Insert(ctx, "acme", "customers", rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := s.Insert(ctx, "acme", "customers", newRecord("doc-1", nil)); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("duplicate Insert() error = %v, want ErrAlreadyExists", err)
	}

	got, err := s.Get(ctx, "acme", "customers", "doc-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Fields["name"] != "Ana" {
		t.Errorf("name = %v, want Ana", got.Fields["name"])
	}

	// Returned record is a copy; mutating it must not touch stored state.
	got.Fields["name"] = "Mallory"
	again, err := s.Get(ctx, "acme", "customers", "doc-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again.Fields["name"] != "Ana" {
		t.Errorf("stored record mutated through returned copy: %v", again.Fields["name"])
	}

	if _, err := s.Get(ctx, "other", "customers", "doc-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get() across tenants error = %v, want ErrNotFound", err)
	}

	if err := s.Delete(ctx, "acme", "customers", "doc-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "acme", "customers", "doc-1"); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}
}

func TestStore_Replace(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Replace(ctx, "acme", "customers", newRecord("no-such", nil)); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Replace() absent error = %v, want ErrNotFound", err)
	}

	rec := newRecord("doc-1", map[string]any{"name": "Ana"})
	if err := s.Insert(ctx, "acme", "customers", rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	updated := rec.Clone()
	updated.Fields["name"] = "Ana Maria"
	if err := s.Replace(ctx, "acme", "customers", updated); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	got, err := s.Get(ctx, "acme", "customers", "doc-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Fields["name"] != "Ana Maria" {
		t.Errorf("name = %v, want Ana Maria", got.Fields["name"])
	}
}

func TestStore_List(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, d := range []struct {
		id     string
		fields map[string]any
	}{
		{"p1", map[string]any{"name": "Widget", "price": 10}},
		{"p2", map[string]any{"name": "Gadget", "price": 25}},
		{"p3", map[string]any{"name": "Gizmo", "price": 5}},
	} {
		if err := s.Insert(ctx, "acme", "products", newRecord(d.id, d.fields)); err != nil {
			t.Fatalf("Insert(%s) error = %v", d.id, err)
		}
	}

	recs, err := s.List(ctx, "acme", "products", store.Query{
		Filters: []store.Filter{{Field: "price", Op: store.OpGte, Value: 10}},
		OrderBy: "price",
		Desc:    true,
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("List() count = %d, want 2", len(recs))
	}
	if recs[0].ID != "p2" || recs[1].ID != "p1" {
		t.Errorf("order = [%s %s], want [p2 p1]", recs[0].ID, recs[1].ID)
	}

	limited, err := s.List(ctx, "acme", "products", store.Query{OrderBy: "price", Limit: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "p3" {
		t.Errorf("List() limited = %v, want [p3]", limited)
	}
}
