package interfaces

import "context"

// StorageService abstracts where attachment bytes and artifacts live
// (local disk, S3, R2)
type StorageService interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	GetPublicURL(key string) string
}
