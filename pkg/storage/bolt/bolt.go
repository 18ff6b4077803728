// Package bolt provides a storage.Driver backed by a bbolt database file.
package bolt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/papercomputeco/chatbox/pkg/storage"
)

var bucket = []byte("chatbox")

// Driver keeps every key in a single bucket. Each Set runs in its own
// read-write transaction. The context is checked before a transaction
// starts and before its write; a commit in progress cannot be interrupted.
type Driver struct {
	db *bolt.DB
}

var _ storage.Driver = (*Driver)(nil)

// NewDriver opens (and creates if needed) the bolt file at path.
// bbolt holds an exclusive file lock, so a second process opening the same
// file waits up to one second and then fails.
func NewDriver(path string) (*Driver, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &Driver{db: db}, nil
}

func (d *Driver) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []byte
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return storage.ErrNotFound{Key: key}
		}
		v := b.Get([]byte(key))
		if v == nil {
			return storage.ErrNotFound{Key: key}
		}
		// v is only valid for the life of the transaction
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (d *Driver) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := d.db.Update(func(tx *bolt.Tx) error {
		// the writer lock may have been held by another transaction
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		if value == nil {
			value = []byte{}
		}
		return b.Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}

	return nil
}

func (d *Driver) Close() error {
	return d.db.Close()
}
