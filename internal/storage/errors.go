// Package storage persists the investment collection in a key-value backend.
package storage

import "errors"

var (
	// ErrNotFound is returned by a KeyValueStore for an absent key.
	ErrNotFound = errors.New("key not found")

	// ErrPersistenceUnavailable wraps failures of the backend itself.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)
