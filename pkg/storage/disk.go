// Package storage stores uploaded product images on a local directory or
// an S3-compatible bucket (AWS S3, MinIO, R2).
//
//	m, _ := storage.NewManager(ctx, storage.FromConfig())
//	ref, _ := m.Put(ctx, "1700000000000-bag.jpg", file, "image/jpeg")
//	// ref == "/uploads/1700000000000-bag.jpg" on the local disk
//	m.DeleteRef(ctx, ref)
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

var ErrNotFound = errors.New("storage: object not found")

// Disk is one storage backend. Keys are slash separated and relative.
type Disk interface {
	// Put writes r to key, replacing anything there.
	Put(ctx context.Context, key string, r io.Reader, contentType string) error

	// Get opens key for reading. Missing keys return ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// URL is the public reference stored on the product record.
	URL(key string) string
}

// keyFromURL reverses URL for refs under base.
func keyFromURL(base, ref string) (string, bool) {
	prefix := strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(ref, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(ref, prefix)
	if key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}
