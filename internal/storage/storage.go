// Package storage keeps submission files (uploads, recordings, corrections)
// outside the database and hands back opaque references.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned when a reference has no stored blob
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidRef is returned for references this store never issued
	ErrInvalidRef = errors.New("invalid blob reference")
)

// BlobStore persists opaque file blobs
type BlobStore interface {
	// Save stores r under a new reference; ext is kept as the reference suffix
	Save(ctx context.Context, prefix, ext string, r io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

// DiskStore is a BlobStore rooted at a local directory
type DiskStore struct {
	root string
	log  zerolog.Logger
}

// NewDiskStore creates the root directory if needed
func NewDiskStore(root string, log zerolog.Logger) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &DiskStore{
		root: root,
		log:  log.With().Str("component", "blobstore").Logger(),
	}, nil
}

// Save writes r to a new file named <prefix>_<uuid><ext>
func (s *DiskStore) Save(ctx context.Context, prefix, ext string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref := fmt.Sprintf("%s_%s%s", sanitize(prefix), uuid.New().String(), strings.ToLower(ext))
	path, err := s.path(ref)
	if err != nil {
		return "", err
	}

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}

	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close blob: %w", err)
	}

	s.log.Debug().Str("ref", ref).Msg("Blob stored")
	return ref, nil
}

// Open returns a reader for ref
func (s *DiskStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	path, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// Delete removes ref; deleting a missing blob is not an error
func (s *DiskStore) Delete(ctx context.Context, ref string) error {
	path, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	s.log.Debug().Str("ref", ref).Msg("Blob deleted")
	return nil
}

// path resolves ref inside root, rejecting anything that could escape it
func (s *DiskStore) path(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || strings.HasPrefix(ref, ".") || strings.ContainsAny(ref, `/\`) {
		return "", ErrInvalidRef
	}
	return filepath.Join(s.root, ref), nil
}

func sanitize(prefix string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(prefix) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "blob"
	}
	return b.String()
}
