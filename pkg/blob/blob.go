// Package blob stores uploaded file contents behind a small Backend interface
// (local filesystem or S3) and adds the upload policy, progress reporting and
// an integrity check on top.
package blob

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrIntegrity is returned when the stored object does not hash to the bytes
// that were sent.
var ErrIntegrity = errors.New("stored content failed integrity check")

// File is an upload source.
type File interface {
	Name() string
	Size() int64
	Open() (io.ReadCloser, error)
}

type localFile struct {
	path string
	size int64
}

// OpenLocal describes a file on disk as an upload source.
func OpenLocal(p string) (File, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", p)
	}
	return &localFile{path: p, size: info.Size()}, nil
}

func (f *localFile) Name() string                 { return filepath.Base(f.path) }
func (f *localFile) Size() int64                  { return f.size }
func (f *localFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }

type memFile struct {
	name string
	data []byte
}

// Bytes wraps an in-memory payload as an upload source.
func Bytes(name string, data []byte) File {
	return &memFile{name: name, data: data}
}

func (f *memFile) Name() string { return f.name }
func (f *memFile) Size() int64  { return int64(len(f.data)) }
func (f *memFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// Backend is raw object storage.
type Backend interface {
	Put(ctx context.Context, key string, body io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// URL returns the address recorded on nodes for key.
	URL(key string) string
	Type() string
}

// Progress reports bytes transferred so far.
type Progress struct {
	Loaded int64
	Total  int64
}

// ProgressFunc receives transfer progress. It may be called from the
// uploading goroutine.
type ProgressFunc func(Progress)

// UploadResult describes a stored object.
type UploadResult struct {
	Path     string
	URL      string
	Checksum string
}

// Service is the blob storage facade used by the canvas.
type Service struct {
	backend Backend
	policy  Policy
}

// NewService wraps backend with policy.
func NewService(backend Backend, policy Policy) *Service {
	return &Service{backend: backend, policy: policy}
}

// Backend returns the underlying storage.
func (s *Service) Backend() Backend { return s.backend }

// Validate checks f against the upload policy.
func (s *Service) Validate(f File) ValidationResult {
	return s.policy.Validate(f)
}

// GenerateUniquePath returns a collision-free key under dir for fileName.
func (s *Service) GenerateUniquePath(dir, fileName string) string {
	return path.Join(dir, uuid.NewString()+"-"+sanitizeName(fileName))
}

// UploadWithIntegrityCheck streams f to key, reporting progress, then reads
// the object back and compares SHA-256 digests. A mismatching object is
// removed before ErrIntegrity is returned. Cancelling ctx stops the transfer.
func (s *Service) UploadWithIntegrityCheck(ctx context.Context, key string, f File, onProgress ProgressFunc) (UploadResult, error) {
	src, err := f.Open()
	if err != nil {
		return UploadResult{}, fmt.Errorf("open %s: %w", f.Name(), err)
	}
	defer src.Close()

	h := sha256.New()
	body := &progressReader{
		ctx:        ctx,
		r:          io.TeeReader(src, h),
		total:      f.Size(),
		onProgress: onProgress,
	}
	if err := s.backend.Put(ctx, key, body, f.Size()); err != nil {
		return UploadResult{}, fmt.Errorf("upload %s: %w", key, err)
	}
	sent := hex.EncodeToString(h.Sum(nil))

	stored, err := s.checksum(ctx, key)
	if err != nil {
		return UploadResult{}, fmt.Errorf("verify %s: %w", key, err)
	}
	if stored != sent {
		_ = s.backend.Delete(context.WithoutCancel(ctx), key)
		return UploadResult{}, fmt.Errorf("%s: %w", key, ErrIntegrity)
	}

	return UploadResult{Path: key, URL: s.backend.URL(key), Checksum: sent}, nil
}

// Delete removes the object at key.
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Open reads the object at key.
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Open(ctx, key)
}

// KeyFromURL recovers the storage key from a URL produced by this service's
// backend. ok is false when the URL belongs elsewhere.
func (s *Service) KeyFromURL(url string) (string, bool) {
	prefix := s.backend.URL("")
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

func (s *Service) checksum(ctx context.Context, key string) (string, error) {
	rc, err := s.backend.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 || name == "." || name == "/" {
		return "file"
	}
	return b.String()
}

type progressReader struct {
	ctx        context.Context
	r          io.Reader
	loaded     int64
	total      int64
	onProgress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		if p.onProgress != nil {
			p.onProgress(Progress{Loaded: p.loaded, Total: p.total})
		}
	}
	return n, err
}
