package listing_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatradocs/contractmeta/internal/listing"
)

func TestLocalListerFiltersPDFs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "B.PDF"), []byte("beta"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("notes"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.pdf"), 0o755))

	files, err := listing.NewLocalLister(dir).List(context.Background())
	require.NoError(t, err)

	names := make(map[string]int64, len(files))
	for _, file := range files {
		names[file.Name] = file.Size
	}
	assert.Len(t, names, 2)
	assert.Equal(t, int64(5), names["a.pdf"])
	assert.Contains(t, names, "B.PDF", "extension matching is case insensitive")
	assert.NotContains(t, names, "notes.txt")
	assert.NotContains(t, names, "archive.pdf", "directories are skipped")
}

func TestLocalListerOpen(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("alpha"), 0o644))

	files, err := listing.NewLocalLister(dir).List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)

	rc, err := files[0].Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(content))
}

func TestLocalListerMissingDirectory(t *testing.T) {
	_, err := listing.NewLocalLister(filepath.Join(t.TempDir(), "missing")).List(context.Background())
	assert.Error(t, err)
}
