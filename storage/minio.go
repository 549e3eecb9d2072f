// Package storage archives uploaded CSV batches to a MinIO bucket so a
// reconciliation run can be replayed or audited later. The archive is
// optional; when disabled every call is a no-op.
package storage

import (
	"context"
	"fmt"
	"io"

	"trackcrate/config"
	"trackcrate/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	client *minio.Client
	bucket string
)

// Init connects to MinIO and ensures the archive bucket exists. Does
// nothing when the archive is disabled in config.
func Init(cfg *config.Config) error {
	if !cfg.MinioEnabled {
		logger.Info("csv archive disabled")
		return nil
	}

	c, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := c.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %q: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := c.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %q: %w", cfg.MinioBucket, err)
		}
		logger.Info("created csv archive bucket", logger.String("bucket", cfg.MinioBucket))
	}

	client = c
	bucket = cfg.MinioBucket
	logger.Info("csv archive ready",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return nil
}

// Enabled reports whether the archive was initialized.
func Enabled() bool {
	return client != nil
}

// ArchiveCSV stores one uploaded batch under a generated object name and
// returns that name. size may be -1 when unknown.
func ArchiveCSV(ctx context.Context, src io.Reader, size int64) (string, error) {
	if client == nil {
		return "", fmt.Errorf("csv archive is not enabled")
	}

	objectName := fmt.Sprintf("csv/%s.csv", uuid.New().String())
	_, err := client.PutObject(ctx, bucket, objectName, src, size, minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive csv as %q: %w", objectName, err)
	}

	logger.Info("csv batch archived", logger.String("object", objectName))
	return objectName, nil
}
