package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/caravela-labs/tenantdash/internal/session"
	"github.com/caravela-labs/tenantdash/internal/store/blob"
)

// AnonymousPrincipal stamps records created or mutated while no user is
// attached to the session.
const AnonymousPrincipal = "anonymous"

// Factory constructs tenant-scoped clients over a shared backend. It is the
// only construction path; no unscoped client exists.
type Factory struct {
	backend Backend
	blobs   *blob.Store
	hub     *Hub
}

// NewFactory wires a backend and blob store into a factory with a fresh
// watch hub.
func NewFactory(backend Backend, blobs *blob.Store) *Factory {
	return &Factory{
		backend: backend,
		blobs:   blobs,
		hub:     NewHub(),
	}
}

// ForTenant returns a client isolated to the given tenant. The session
// back-reference supplies the acting principal for metadata stamps; the
// client never controls the session's lifecycle.
func (f *Factory) ForTenant(creds Credentials, tenantID string, sess *session.Context) (*Client, error) {
	if tenantID == "" {
		return nil, ErrUnresolvedTenant
	}
	return &Client{
		backend:  f.backend,
		blobs:    f.blobs,
		hub:      f.hub,
		creds:    creds,
		tenantID: tenantID,
		session:  sess,
	}, nil
}

// Close shuts down the hub and the backend.
func (f *Factory) Close() error {
	f.hub.Close()
	return f.backend.Close()
}

// Client is a data-access facade bound to one tenant. Every operation
// resolves to a storage location under the bound tenant's partition
// regardless of the collection, document, or path arguments supplied.
type Client struct {
	backend  Backend
	blobs    *blob.Store
	hub      *Hub
	creds    Credentials
	tenantID string
	session  *session.Context
}

// TenantID returns the tenant this client is bound to.
func (c *Client) TenantID() string {
	return c.tenantID
}

// ready rejects operations before a session is bound. Mirrors the invariant
// that no data is readable or writable before bind succeeds.
func (c *Client) ready() error {
	if c.tenantID == "" {
		return fmt.Errorf("client not bound to a tenant: %w", ErrUnavailable)
	}
	if c.session != nil && !c.session.Bound() {
		return fmt.Errorf("session not bound: %w", ErrUnavailable)
	}
	return nil
}

func (c *Client) principal() string {
	if c.session == nil {
		return AnonymousPrincipal
	}
	if u := c.session.Current().CurrentUser; u != nil && u.ID != "" {
		return u.ID
	}
	return AnonymousPrincipal
}

// GetOne fetches a document by id. Absence is a normal outcome and returns
// (nil, nil).
func (c *Client) GetOne(ctx context.Context, collection, id string) (*Record, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	rec, err := c.backend.Get(ctx, c.tenantID, collection, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// GetMany returns a point-in-time snapshot of the collection: filters
// applied conjunctively, then ordering, then the limit. An absent limit
// returns all matches.
func (c *Client) GetMany(ctx context.Context, collection string, q Query) ([]*Record, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.backend.List(ctx, c.tenantID, collection, q)
}

// Create stores a new document with a generated identifier, stamping the
// create and update metadata to now and the acting principal.
func (c *Client) Create(ctx context.Context, collection string, fields map[string]any) (*Record, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	who := c.principal()
	rec := &Record{
		ID:        uuid.New().String(),
		Fields:    copyFields(fields),
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: who,
		UpdatedBy: who,
	}

	if err := c.backend.Insert(ctx, c.tenantID, collection, rec); err != nil {
		return nil, err
	}

	c.publish(collection, rec.ID, rec)
	return rec.Clone(), nil
}

// Update merges fields into an existing document and refreshes
// UpdatedAt/UpdatedBy, leaving the create stamps untouched. Updating an
// absent document fails with ErrNotFound; there is no upsert.
func (c *Client) Update(ctx context.Context, collection, id string, fields map[string]any) (*Record, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	rec, err := c.backend.Get(ctx, c.tenantID, collection, id)
	if err != nil {
		return nil, err
	}

	merged := rec.Clone()
	for k, v := range fields {
		merged.Fields[k] = v
	}
	merged.UpdatedAt = time.Now().UTC()
	merged.UpdatedBy = c.principal()

	if err := c.backend.Replace(ctx, c.tenantID, collection, merged); err != nil {
		return nil, err
	}

	c.publish(collection, id, merged)
	return merged.Clone(), nil
}

// Remove deletes a document. Removing an absent id is not an error.
func (c *Client) Remove(ctx context.Context, collection, id string) error {
	if err := c.ready(); err != nil {
		return err
	}

	if err := c.backend.Delete(ctx, c.tenantID, collection, id); err != nil {
		return err
	}

	c.publish(collection, id, nil)
	return nil
}

// WatchOne subscribes to changes of a single document. The callback receives
// the new value on every observed change, or nil when it is deleted. The
// returned CancelFunc must be called by the caller; it is idempotent and no
// callback runs after it returns.
func (c *Client) WatchOne(collection, id string, onChange func(*Record)) (CancelFunc, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	tenantID := c.tenantID
	filter := func(e Event) bool {
		return e.TenantID == tenantID && e.Collection == collection && e.ID == id
	}
	return c.hub.Subscribe(filter, func(e Event) {
		onChange(e.Record)
	}), nil
}

// WatchMany subscribes to changes in a collection matching the query's
// filters. Ordering and limit do not apply to live events. The callback
// receives the document id and its new value, or nil when it is deleted.
func (c *Client) WatchMany(collection string, q Query, onChange func(id string, rec *Record)) (CancelFunc, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	tenantID := c.tenantID
	filter := func(e Event) bool {
		if e.TenantID != tenantID || e.Collection != collection {
			return false
		}
		// Deletions always pass: the caller sees the document go away
		// even if its last state matched the filters.
		if e.Record == nil {
			return true
		}
		return MatchQuery(e.Record.Fields, q)
	}
	return c.hub.Subscribe(filter, func(e Event) {
		onChange(e.ID, e.Record)
	}), nil
}

// UploadBlob stores a binary asset under the tenant's partition and returns
// its public URL path.
func (c *Client) UploadBlob(ctx context.Context, name string, data []byte, meta blob.Metadata) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("upload cancelled: %w", ErrUnavailable)
	}

	meta.UploadedBy = c.principal()
	meta.UploadedAt = time.Now().UTC()

	url, err := c.blobs.Put(c.tenantID, name, data, meta)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, ErrUnavailable)
	}
	return url, nil
}

// DeleteBlob removes a binary asset. Idempotent.
func (c *Client) DeleteBlob(ctx context.Context, name string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete cancelled: %w", ErrUnavailable)
	}

	if err := c.blobs.Delete(c.tenantID, name); err != nil {
		return fmt.Errorf("%v: %w", err, ErrUnavailable)
	}
	return nil
}

func (c *Client) publish(collection, id string, rec *Record) {
	c.hub.Publish(Event{
		TenantID:   c.tenantID,
		Collection: collection,
		ID:         id,
		Record:     rec.Clone(),
	})
}

func copyFields(fields map[string]any) map[string]any {
	cp := make(map[string]any, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return cp
}
