package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalBackend stores objects as files under a root directory.
type LocalBackend struct {
	root string
}

// NewLocal creates the root directory if needed.
func NewLocal(root string) (*LocalBackend, error) {
	if root == "" {
		return nil, fmt.Errorf("blob root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, fmt.Errorf("create blob root %s: %w", abs, err)
		}
	case err != nil:
		return nil, fmt.Errorf("stat blob root %s: %w", abs, err)
	case !info.IsDir():
		return nil, fmt.Errorf("blob root %s is not a directory", abs)
	}
	return &LocalBackend{root: abs}, nil
}

func (b *LocalBackend) fullPath(key string) (string, error) {
	p := filepath.Join(b.root, filepath.FromSlash(key))
	if p != b.root && !strings.HasPrefix(p, b.root+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes the blob root", key)
	}
	return p, nil
}

// Put writes body to a temp file and renames it into place.
func (b *LocalBackend) Put(ctx context.Context, key string, body io.Reader, _ int64) error {
	p, err := b.fullPath(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dirs for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(dir, ".filecanvas-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := ctx.Err(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

// Open opens the object for reading.
func (b *LocalBackend) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := b.fullPath(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// Delete removes the object. Missing objects are not an error.
func (b *LocalBackend) Delete(_ context.Context, key string) error {
	p, err := b.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// URL returns a file:// URL for key.
func (b *LocalBackend) URL(key string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(b.root) + "/"}
	return u.String() + key
}

// Type returns "local".
func (b *LocalBackend) Type() string { return "local" }
