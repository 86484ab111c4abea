package store

import "errors"

// Error taxonomy for store operations. Callers distinguish categories with
// errors.Is; wrapped errors carry operation detail.
var (
	// ErrNotFound means the addressed document is absent. Reads collapse
	// absence to a nil record instead; mutations that require an existing
	// document return this.
	ErrNotFound = errors.New("store: not found")

	// ErrAlreadyExists means a create collided with an existing identifier.
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrUnavailable means a transport or storage fault. Transient: the
	// caller may retry. The store itself never retries.
	ErrUnavailable = errors.New("store: unavailable")

	// ErrUnresolvedTenant means no tenant could be determined at bootstrap.
	// Terminal for the session; the caller must not fall back to another
	// tenant's data.
	ErrUnresolvedTenant = errors.New("store: unresolved tenant")
)
