// Package memory provides an in-memory document backend mirroring the SQL
// backend's contract. Used by tests and the "memory" storage type.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/caravela-labs/tenantdash/internal/store"
)

type partitionKey struct {
	tenantID   string
	collection string
}

// Store is an in-memory implementation of the document backend.
type Store struct {
	mu   sync.RWMutex
	docs map[partitionKey]map[string]*store.Record
}

var _ store.Backend = (*Store)(nil)

// New creates an empty in-memory backend.
func New() *Store {
	return &Store{docs: make(map[partitionKey]map[string]*store.Record)}
}

func (s *Store) Get(_ context.Context, tenantID, collection, id string) (*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.docs[partitionKey{tenantID, collection}][id]
	if !ok {
		return nil, fmt.Errorf("document %s/%s: %w", collection, id, store.ErrNotFound)
	}
	return rec.Clone(), nil
}

func (s *Store) List(_ context.Context, tenantID, collection string, q store.Query) ([]*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*store.Record
	for _, rec := range s.docs[partitionKey{tenantID, collection}] {
		if store.MatchQuery(rec.Fields, q) {
			records = append(records, rec.Clone())
		}
	}

	if q.OrderBy != "" {
		key := sortKey(q.OrderBy)
		sort.SliceStable(records, func(i, j int) bool {
			cmp := store.CompareValues(key(records[i]), key(records[j]))
			if q.Desc {
				return cmp > 0
			}
			return cmp < 0
		})
	} else {
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		})
	}

	if q.Limit > 0 && len(records) > q.Limit {
		records = records[:q.Limit]
	}

	return records, nil
}

// sortKey picks the ordering value for a record: the metadata stamps order
// on their timestamps, anything else is a document field.
func sortKey(orderBy string) func(*store.Record) any {
	switch orderBy {
	case "created_at":
		return func(r *store.Record) any { return r.CreatedAt.Format(timeSortLayout) }
	case "updated_at":
		return func(r *store.Record) any { return r.UpdatedAt.Format(timeSortLayout) }
	default:
		return func(r *store.Record) any { return r.Fields[orderBy] }
	}
}

// timeSortLayout sorts lexicographically in timestamp order.
const timeSortLayout = "2006-01-02T15:04:05.000000000"

func (s *Store) Insert(_ context.Context, tenantID, collection string, rec *store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := partitionKey{tenantID, collection}
	if _, exists := s.docs[key][rec.ID]; exists {
		return fmt.Errorf("document %s/%s: %w", collection, rec.ID, store.ErrAlreadyExists)
	}

	if s.docs[key] == nil {
		s.docs[key] = make(map[string]*store.Record)
	}
	s.docs[key][rec.ID] = rec.Clone()
	return nil
}

func (s *Store) Replace(_ context.Context, tenantID, collection string, rec *store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := partitionKey{tenantID, collection}
	if _, exists := s.docs[key][rec.ID]; !exists {
		return fmt.Errorf("document %s/%s: %w", collection, rec.ID, store.ErrNotFound)
	}

	s.docs[key][rec.ID] = rec.Clone()
	return nil
}

func (s *Store) Delete(_ context.Context, tenantID, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs[partitionKey{tenantID, collection}], id)
	return nil
}

func (s *Store) Close() error {
	return nil
}
