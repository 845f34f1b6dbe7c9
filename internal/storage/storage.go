// Package storage keeps resource payloads in a blob store with a staging area.
//
// Writes are two-phase: Stage puts the bytes in a staging area, and Publish moves
// them to the final key. A blob is visible to Open only after Publish.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"campus/internal/config"
)

var (
	// ErrNotFound is returned when a published or staged blob does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidKey is returned for keys that could escape the storage root.
	ErrInvalidKey = errors.New("invalid blob key")
)

// Object is an opened published blob. Callers must close Body.
type Object struct {
	Body    io.ReadCloser
	Size    int64
	ModTime time.Time
}

// BlobInfo describes a listed blob.
type BlobInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// BlobStore is the payload backend used by the resource store.
type BlobStore interface {
	// Backend names the implementation for logs and metrics.
	Backend() string
	// Stage writes r to the staging area under key and returns the bytes written.
	Stage(ctx context.Context, key string, r io.Reader) (int64, error)
	// Publish moves a staged blob to its final key.
	Publish(ctx context.Context, key string) error
	// Discard removes a staged blob. A missing stage is not an error.
	Discard(ctx context.Context, key string) error
	// Open returns the published blob or ErrNotFound.
	Open(ctx context.Context, key string) (*Object, error)
	// Exists reports whether the published blob exists.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the published blob. A missing blob is not an error.
	Delete(ctx context.Context, key string) error
	// ListStaged lists blobs in the staging area.
	ListStaged(ctx context.Context) ([]BlobInfo, error)
	// ListPublished lists published blobs.
	ListPublished(ctx context.Context) ([]BlobInfo, error)
}

const maxKeyLength = 128

// ValidateKey rejects empty keys, path separators and dot segments.
func ValidateKey(key string) error {
	if key == "" || len(key) > maxKeyLength {
		return ErrInvalidKey
	}
	if strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") || strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}

// New builds the backend selected by STORAGE_PROVIDER.
func New(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	switch cfg.StorageProvider {
	case "", "local":
		return NewLocalStore(cfg.UploadDir)
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported STORAGE_PROVIDER %q", cfg.StorageProvider)
	}
}
