package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/shashiranjanraj/storefront/config"
)

// Config selects and configures the image disk.
type Config struct {
	Disk      string // "local" or "s3"
	LocalRoot string
	LocalURL  string
	S3        S3Config
}

// FromConfig reads STORAGE_* and S3_* settings.
func FromConfig() Config {
	return Config{
		Disk:      config.StorageDisk(),
		LocalRoot: config.StorageLocalRoot(),
		LocalURL:  config.StorageURL(),
		S3: S3Config{
			Bucket:   config.StorageS3Bucket(),
			Region:   config.StorageS3Region(),
			Key:      config.StorageS3Key(),
			Secret:   config.StorageS3Secret(),
			Endpoint: config.StorageS3Endpoint(),
			URL:      config.StorageS3URL(),
		},
	}
}

// Manager maps image references to the disk that holds them.
type Manager struct {
	disk Disk
	base string
}

func NewManager(ctx context.Context, c Config) (*Manager, error) {
	switch c.Disk {
	case "", "local":
		d, err := NewLocalDisk(c.LocalRoot, c.LocalURL)
		if err != nil {
			return nil, err
		}
		return &Manager{disk: d, base: c.LocalURL}, nil
	case "s3":
		d, err := NewS3Disk(ctx, c.S3)
		if err != nil {
			return nil, err
		}
		return &Manager{disk: d, base: d.baseURL}, nil
	default:
		return nil, fmt.Errorf("storage: unknown disk %q", c.Disk)
	}
}

// NewManagerFor wraps an already-built disk whose URLs start with base.
func NewManagerFor(d Disk, base string) *Manager {
	return &Manager{disk: d, base: base}
}

func (m *Manager) Disk() Disk { return m.disk }

// Put stores r under key and returns the public reference.
func (m *Manager) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	if err := m.disk.Put(ctx, key, r, contentType); err != nil {
		return "", err
	}
	return m.disk.URL(key), nil
}

// Owns reports whether ref points into this manager's disk.
func (m *Manager) Owns(ref string) bool {
	_, ok := keyFromURL(m.base, ref)
	return ok
}

// DeleteRef removes the object behind ref. Refs this manager did not issue
// (external URLs, seeded links) are left alone.
func (m *Manager) DeleteRef(ctx context.Context, ref string) error {
	key, ok := keyFromURL(m.base, ref)
	if !ok {
		return nil
	}
	return m.disk.Delete(ctx, key)
}
