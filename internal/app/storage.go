package app

import (
	"context"
	"fmt"
	"time"

	"github.com/destinos/platform/internal/guard"
	"github.com/destinos/platform/internal/infra"
	"github.com/destinos/platform/internal/storage"
)

// storageResetTimeout is how long the image store circuit stays open.
const storageResetTimeout = 30 * time.Second

// NewImageStore builds the configured image store behind a circuit breaker.
// For the local backend it also returns the directory to serve under /upload.
func NewImageStore(ctx context.Context, cfg *infra.Config) (storage.ImageStore, string, error) {
	breaker := guard.NewCircuitBreaker(cfg.StorageFailLimit, storageResetTimeout)

	switch cfg.StorageBackend {
	case "s3":
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			return nil, "", fmt.Errorf("s3 store: %w", err)
		}
		return storage.NewGuardedStore(s3Store, breaker, "s3"), "", nil
	case "local", "":
		local, err := storage.NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL())
		if err != nil {
			return nil, "", fmt.Errorf("local store: %w", err)
		}
		return storage.NewGuardedStore(local, breaker, "local"), local.Dir(), nil
	default:
		return nil, "", fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
