package docintel

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
)

// EncodeDocument returns the base64 text encoding of the reader's content.
// Seekable readers are rewound first so the full document is encoded
// regardless of prior cursor position.
func EncodeDocument(r io.Reader) (string, error) {
	if s, ok := r.(io.Seeker); ok {
		if _, err := s.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("rewind document: %w", err)
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// EncodeFile encodes a document from disk.
func EncodeFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return EncodeDocument(f)
}
