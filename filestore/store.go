// Package filestore keeps the uploaded submission files: the student's PDF
// and the optional Task 1 image.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var ErrNotFound = errors.New("file not found")

// Store addresses files by slash separated keys such as "pdfs/<id>.pdf".
type Store interface {
	Put(ctx context.Context, key string, content []byte, mediaType string) error
	// Get returns ErrNotFound when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete of a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

func PdfKey(id string) string {
	return "pdfs/" + id + ".pdf"
}

func ImageKey(id string, ext string) string {
	return "images/" + id + ext
}

// ValidateKey rejects keys that could escape the store root.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid file key %q", key)
	}
	if path.Clean(key) != key {
		return fmt.Errorf("invalid file key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return fmt.Errorf("invalid file key %q", key)
		}
	}
	return nil
}
