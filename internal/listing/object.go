package listing

import (
	"context"
	"io"

	"github.com/tatradocs/contractmeta/internal/storage"
)

// ObjectLister lists PDF objects from an object store.
type ObjectLister struct {
	store  storage.ObjectStore
	prefix string
}

var _ Lister = (*ObjectLister)(nil)

// NewObjectLister creates a lister over objects under the given prefix.
func NewObjectLister(store storage.ObjectStore, prefix string) *ObjectLister {
	return &ObjectLister{store: store, prefix: prefix}
}

func (l *ObjectLister) List(ctx context.Context) ([]File, error) {
	objects, err := l.store.List(ctx, l.prefix)
	if err != nil {
		return nil, err
	}

	var files []File
	for _, obj := range objects {
		if !isPDF(obj.Name) {
			continue
		}
		name := obj.Name
		files = append(files, NewFile(name, obj.Size, func(ctx context.Context) (io.ReadCloser, error) {
			return l.store.Read(ctx, name)
		}))
	}
	return files, nil
}
