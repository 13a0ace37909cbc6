// Package storage abstracts the object store that holds source documents
// and the persisted metadata artifact.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by Read for a missing object.
var ErrObjectNotFound = errors.New("storage: object not found")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Name string
	Size int64
}

// ObjectStore is the storage collaborator. Both the remote bucket and the
// plain local directory variant implement it.
type ObjectStore interface {
	Exists(ctx context.Context, name string) (bool, error)
	Read(ctx context.Context, name string) (io.ReadCloser, error)
	Upload(ctx context.Context, name string, data []byte, contentType string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
