package listing

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalLister lists PDF files from a directory on disk.
type LocalLister struct {
	dir string
}

var _ Lister = (*LocalLister)(nil)

// NewLocalLister creates a lister over the given directory.
func NewLocalLister(dir string) *LocalLister {
	return &LocalLister{dir: dir}
}

func (l *LocalLister) List(_ context.Context) ([]File, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("list directory %s: %w", l.dir, err)
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() || !isPDF(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}

		path := filepath.Join(l.dir, entry.Name())
		files = append(files, NewFile(entry.Name(), info.Size(), func(context.Context) (io.ReadCloser, error) {
			return os.Open(path)
		}))
	}
	return files, nil
}
