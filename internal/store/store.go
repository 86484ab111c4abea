// Package store implements the tenant-scoped data access layer. A Client is
// bound to exactly one tenant at construction; every document, blob, and
// subscription it touches lives under that tenant's partition
// tenants/<tenantId>/<collection>/<documentId>, no matter what names the
// caller supplies.
package store

import (
	"context"
	"fmt"
	"time"
)

// Record is one stored document. CreatedAt/CreatedBy are set once at create
// time and never mutated; UpdatedAt/UpdatedBy are overwritten on every
// mutation.
type Record struct {
	ID        string         `json:"id"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	CreatedBy string         `json:"created_by"`
	UpdatedBy string         `json:"updated_by"`
}

// Clone returns a deep-enough copy: the fields map is copied so callers can
// mutate the result without aliasing stored state.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Fields = make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		cp.Fields[k] = v
	}
	return &cp
}

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "=="
	OpNeq Op = "!="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLt  Op = "<"
	OpLte Op = "<="
)

// Filter is one field comparison. Filters in a Query are conjunctive.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query shapes a GetMany/WatchMany read: filters apply first, then ordering,
// then the limit. A zero Query returns every document in the collection.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Credentials are the backing-store binding parameters carried in the
// tenant's configuration. They are opaque to the client.
type Credentials struct {
	Token string
}

// Backend is the storage engine behind scoped clients. Implementations key
// every row by tenant so no operation can cross partitions. Absence surfaces
// as ErrNotFound; engine faults wrap ErrUnavailable.
type Backend interface {
	Get(ctx context.Context, tenantID, collection, id string) (*Record, error)
	List(ctx context.Context, tenantID, collection string, q Query) ([]*Record, error)
	// Insert stores a new record, failing with ErrAlreadyExists on an id
	// collision.
	Insert(ctx context.Context, tenantID, collection string, rec *Record) error
	// Replace overwrites an existing record, failing with ErrNotFound when
	// it is absent.
	Replace(ctx context.Context, tenantID, collection string, rec *Record) error
	// Delete removes a record. Deleting an absent id is not an error.
	Delete(ctx context.Context, tenantID, collection, id string) error
	Close() error
}

// MatchFilter evaluates a single filter against a record's fields. Shared by
// the in-memory backend and watch delivery.
func MatchFilter(fields map[string]any, f Filter) bool {
	v, ok := fields[f.Field]
	if !ok {
		return false
	}
	switch f.Op {
	case OpEq:
		return CompareValues(v, f.Value) == 0
	case OpNeq:
		return CompareValues(v, f.Value) != 0
	case OpGt:
		return CompareValues(v, f.Value) > 0
	case OpGte:
		return CompareValues(v, f.Value) >= 0
	case OpLt:
		return CompareValues(v, f.Value) < 0
	case OpLte:
		return CompareValues(v, f.Value) <= 0
	default:
		return false
	}
}

// MatchQuery reports whether a record satisfies every filter in the query.
func MatchQuery(fields map[string]any, q Query) bool {
	for _, f := range q.Filters {
		if !MatchFilter(fields, f) {
			return false
		}
	}
	return true
}

// CompareValues orders two loosely-typed field values. Numbers compare
// numerically across int/float kinds; everything else compares as strings.
func CompareValues(a, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	as, bs := toString(a), toString(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case time.Time:
		return s.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}
