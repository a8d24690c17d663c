// Package blob keeps the raw bytes of uploaded invoice files.
package blob

import (
	"context"
	"io"
	"log/slog"

	"github.com/polkiloo/invoicedesk/internal/config"
)

// Store persists opaque objects by key.
type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	// Get returns domain ErrNotFound for unknown keys.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// New picks S3 when a bucket is configured and the local upload dir otherwise.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	if cfg.S3.Enabled() {
		logger.Info("blob store", slog.String("backend", "s3"), slog.String("bucket", cfg.S3.Bucket))
		return NewS3Store(ctx, cfg.S3)
	}
	logger.Info("blob store", slog.String("backend", "local"), slog.String("dir", cfg.UploadDir))
	return NewLocalStore(cfg.UploadDir)
}
