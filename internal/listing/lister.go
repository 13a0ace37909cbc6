// Package listing enumerates candidate source documents for a batch run.
package listing

import (
	"context"
	"io"
	"path/filepath"
	"strings"
)

// File is one candidate source document. Content is loaded lazily via Open,
// once per processing pass.
type File struct {
	Name string
	Size int64
	open func(context.Context) (io.ReadCloser, error)
}

// NewFile builds a File with a lazy content opener.
func NewFile(name string, size int64, open func(context.Context) (io.ReadCloser, error)) File {
	return File{Name: name, Size: size, open: open}
}

// Open returns the document content. The caller owns the reader.
func (f File) Open(ctx context.Context) (io.ReadCloser, error) {
	return f.open(ctx)
}

// Lister produces the finite set of candidate files for one run. Each call
// restarts the enumeration.
type Lister interface {
	List(ctx context.Context) ([]File, error)
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
