// Package storage persists uploaded event images in object storage or on local disk.
package storage

import (
	"context"
	"fmt"

	"cityevents/internal/config"

	"github.com/google/uuid"
)

// ImageStore writes image objects and returns the URL clients load them from.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// EventImageKey returns a fresh object key for an image of an event.
func EventImageKey(eventID uint, ext string) string {
	return fmt.Sprintf("events/%d/%s.%s", eventID, uuid.NewString(), ext)
}

// New picks MinIO when an endpoint is configured and local disk otherwise.
func New(ctx context.Context, cfg *config.Config) (ImageStore, error) {
	if cfg.MinioEndpoint != "" {
		return NewMinIOStore(ctx, MinIOOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
	}
	return NewLocalStore(cfg.ImageUploadDir, LocalMediaPrefix)
}
