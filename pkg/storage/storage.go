package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/feichai0017/slide-deidentifier/pkg/logger"
	"github.com/feichai0017/slide-deidentifier/pkg/storage/minio"
	"github.com/feichai0017/slide-deidentifier/pkg/storage/s3"
)

// StorageType selects the object store backend.
type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// Storage is the object store used for slide intake and deidentified
// output. Get returns a streaming reader; slides are multi-gigabyte
// and are never loaded whole.
type Storage interface {
	// Store uploads the contents of reader under key.
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
	// Get opens a streaming reader for key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Size returns the object's byte size without fetching the body.
	Size(ctx context.Context, key string) (int64, error)
	// Delete removes the object under key.
	Delete(ctx context.Context, key string) error
	// CleanupBefore removes objects last modified before threshold.
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// NewStorage is the factory for Storage backends.
func NewStorage(storageType StorageType, logger logger.Logger) (Storage, error) {
	switch storageType {
	case StorageTypeS3:
		return s3.GetClient(logger)
	case StorageTypeMinio:
		return minio.GetClient(logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
