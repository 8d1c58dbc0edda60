// Package storage persists uploaded files. Callers stream into a FileStore and
// keep the returned location on the owning record.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/novel-tts/backend/internal/config"
)

type FileStore interface {
	// Save streams r under key and returns the stored location.
	Save(ctx context.Context, key string, r io.Reader, size int64) (string, error)
	// Delete removes the object stored under key. A missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// New picks the backend named by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (FileStore, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.UploadDir), nil
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Backend)
	}
}
