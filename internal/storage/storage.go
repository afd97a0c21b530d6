// Package storage stores uploaded media objects on local disk, MinIO or
// Google Cloud Storage.
package storage

import (
	"context"
	"fmt"
	"io"

	"minisocial/internal/config"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// New builds the backend selected by MEDIA_BACKEND and makes sure its
// bucket exists.
func New(ctx context.Context, cfg *config.Config) (ObjectStorage, error) {
	var (
		backend ObjectStorage
		err     error
	)

	switch cfg.MediaBackend {
	case "minio":
		backend, err = NewMinioClient(MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	case "gcs":
		backend, err = NewGCSClient(ctx, GCSConfig{
			Bucket:          cfg.GCSBucket,
			ProjectID:       cfg.GCSProjectID,
			CredentialsFile: cfg.GCSCredentialsFile,
		})
	default:
		backend = NewLocalStorage(cfg.MediaUploadDir)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s media storage: %w", cfg.MediaBackend, err)
	}

	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure media bucket %q: %w", backend.Bucket(), err)
	}
	return backend, nil
}
