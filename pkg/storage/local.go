package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalDisk keeps objects under a root directory.
type LocalDisk struct {
	root    string
	baseURL string
}

// NewLocalDisk creates root if needed. baseURL is the path the HTTP
// kernel serves root under, e.g. "/uploads".
func NewLocalDisk(root, baseURL string) (*LocalDisk, error) {
	if !filepath.IsAbs(root) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = filepath.Join(cwd, root)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage/local: mkdir %s: %w", root, err)
	}
	return &LocalDisk{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root is the absolute directory backing the disk.
func (d *LocalDisk) Root() string { return d.root }

func (d *LocalDisk) abs(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("storage/local: empty key")
	}
	return filepath.Join(d.root, clean), nil
}

func (d *LocalDisk) Put(_ context.Context, key string, r io.Reader, _ string) error {
	full, err := d.abs(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("storage/local: mkdir: %w", err)
	}

	// Write to a temp file and rename so readers never see a partial image.
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("storage/local: create %s: %w", key, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("storage/local: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage/local: close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("storage/local: rename %s: %w", key, err)
	}
	return nil
}

func (d *LocalDisk) Get(_ context.Context, key string) (io.ReadCloser, error) {
	full, err := d.abs(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage/local: open %s: %w", key, err)
	}
	return f, nil
}

func (d *LocalDisk) Exists(_ context.Context, key string) (bool, error) {
	full, err := d.abs(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (d *LocalDisk) Delete(_ context.Context, key string) error {
	full, err := d.abs(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage/local: delete %s: %w", key, err)
	}
	return nil
}

func (d *LocalDisk) URL(key string) string {
	return d.baseURL + "/" + strings.TrimLeft(filepath.ToSlash(key), "/")
}
