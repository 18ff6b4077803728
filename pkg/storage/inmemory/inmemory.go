// Package inmemory provides a storage.Driver backed by a map. It is used in
// tests and when chatbox runs with --db :memory:.
package inmemory

import (
	"context"
	"sync"

	"github.com/papercomputeco/chatbox/pkg/storage"
)

// Driver is a mutex-guarded in-memory key-value store.
type Driver struct {
	mu     sync.RWMutex
	values map[string][]byte

	failWrites bool
}

var _ storage.Driver = (*Driver)(nil)

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		values: make(map[string][]byte),
	}
}

// ErrWriteFailed is returned by Set after SetFailWrites(true).
type ErrWriteFailed struct{}

func (ErrWriteFailed) Error() string { return "in-memory write failed" }

func (d *Driver) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	v, ok := d.values[key]
	if !ok {
		return nil, storage.ErrNotFound{Key: key}
	}

	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (d *Driver) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failWrites {
		return ErrWriteFailed{}
	}

	v := make([]byte, len(value))
	copy(v, value)
	d.values[key] = v
	return nil
}

// SetFailWrites makes every subsequent Set fail. Tests use it to exercise
// best-effort persistence.
func (d *Driver) SetFailWrites(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failWrites = fail
}

func (d *Driver) Close() error {
	return nil
}
