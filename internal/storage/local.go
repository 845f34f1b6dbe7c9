package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"campus/internal/observability"
)

const (
	localBackend   = "local"
	stagingDirName = ".staging"
)

// LocalStore keeps published blobs in root and staged blobs in root/.staging.
// Publish is a rename inside one filesystem, so it is atomic.
type LocalStore struct {
	root    string
	staging string
}

// NewLocalStore creates the root and staging directories if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		root = "uploads"
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	staging := filepath.Join(abs, stagingDirName)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{root: abs, staging: staging}, nil
}

// Root returns the absolute directory holding published blobs.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Backend() string {
	return localBackend
}

func (s *LocalStore) finalPath(key string) string {
	return filepath.Join(s.root, key)
}

func (s *LocalStore) stagedPath(key string) string {
	return filepath.Join(s.staging, key)
}

func (s *LocalStore) Stage(ctx context.Context, key string, r io.Reader) (n int64, err error) {
	if err := ValidateKey(key); err != nil {
		return 0, err
	}
	_, span := observability.StartStorageSpan(ctx, localBackend, "stage", key)
	defer func() { observability.EndSpan(span, err) }()

	path := s.stagedPath(key)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		observability.StorageErrors.WithLabelValues(localBackend, "stage").Inc()
		return 0, fmt.Errorf("create staged blob: %w", err)
	}

	n, err = io.Copy(f, r)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		observability.StorageErrors.WithLabelValues(localBackend, "stage").Inc()
		return 0, fmt.Errorf("write staged blob: %w", err)
	}

	observability.StorageBytesWritten.WithLabelValues(localBackend).Add(float64(n))
	return n, nil
}

func (s *LocalStore) Publish(ctx context.Context, key string) (err error) {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_, span := observability.StartStorageSpan(ctx, localBackend, "publish", key)
	defer func() { observability.EndSpan(span, err) }()

	if err = os.Rename(s.stagedPath(key), s.finalPath(key)); err != nil {
		observability.StorageErrors.WithLabelValues(localBackend, "publish").Inc()
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("publish %s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Discard(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.stagedPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		observability.StorageErrors.WithLabelValues(localBackend, "discard").Inc()
		return fmt.Errorf("discard %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (obj *Object, err error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	_, span := observability.StartStorageSpan(ctx, localBackend, "open", key)
	defer func() { observability.EndSpan(span, err) }()

	f, err := os.Open(s.finalPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		observability.StorageErrors.WithLabelValues(localBackend, "open").Inc()
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		observability.StorageErrors.WithLabelValues(localBackend, "open").Inc()
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	return &Object{Body: f, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	_, err := os.Stat(s.finalPath(key))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
}

func (s *LocalStore) Delete(ctx context.Context, key string) (err error) {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_, span := observability.StartStorageSpan(ctx, localBackend, "delete", key)
	defer func() { observability.EndSpan(span, err) }()

	if err = os.Remove(s.finalPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		observability.StorageErrors.WithLabelValues(localBackend, "delete").Inc()
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) ListStaged(_ context.Context) ([]BlobInfo, error) {
	return listDir(s.staging)
}

func (s *LocalStore) ListPublished(_ context.Context) ([]BlobInfo, error) {
	return listDir(s.root)
}

func listDir(dir string) ([]BlobInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	out := make([]BlobInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || ValidateKey(entry.Name()) != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		out = append(out, BlobInfo{Key: entry.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return out, nil
}
