// Package storage is the object-storage collaborator used for lease
// agreement documents. Implementations live behind the Store interface so
// the lease manager never sees the backing service.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("object_not_found")

type Store interface {
	// Put stores the object and returns its addressable URL.
	Put(ctx context.Context, name string, data []byte) (string, error)
	// Delete removes the object at url. Deleting a missing object returns
	// ErrNotFound.
	Delete(ctx context.Context, url string) error
}
