// Package storage defines the durable key-value contract the conversation
// store persists through, and the error types shared by its drivers.
package storage

import (
	"context"
	"errors"
)

// Driver persists opaque values under string keys.
// Every Set replaces the whole value for its key atomically: a later Get
// observes either the previous value or the new one, never a partial write.
//
// A call whose context is already done fails with the context's error and
// touches nothing. Once a write has started, whether the context can still
// interrupt it is up to the driver: sqlite aborts the statement, bolt always
// lets its transaction commit.
type Driver interface {
	// Get returns the value stored under key. Returns ErrNotFound if the key
	// has never been set.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Close closes the store and releases any resources.
	Close() error
}

// ErrNotFound is returned when a key doesn't exist in the store.
type ErrNotFound struct {
	Key string
}

func (e ErrNotFound) Error() string {
	if e.Key == "" {
		return "key not found"
	}

	return "key not found: " + e.Key
}

// IsNotFound reports whether err is, or wraps, an ErrNotFound.
func IsNotFound(err error) bool {
	var notFound ErrNotFound
	return errors.As(err, &notFound)
}
