package storage

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/pkg/errors"

	"github.com/Raman369AI/fileProcessor/config"
	"github.com/Raman369AI/fileProcessor/interfaces"
	"github.com/Raman369AI/fileProcessor/services/storage/aws_client"
)

// NewFromConfig builds the storage backend named by STORAGE_PROVIDER.
func NewFromConfig(cfg *config.StorageConfig) (interfaces.StorageService, error) {
	switch cfg.Provider {
	case "", "local":
		return NewLocalStorageService("object_storage")
	case "s3":
		client := aws_client.NewS3Client(&aws.Config{
			Region:      aws.String(cfg.AWSRegion),
			Credentials: credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
		})
		return NewObjectStorageService(client, cfg.AttachmentBucket, ""), nil
	case "r2":
		client := aws_client.NewS3Client(&aws.Config{
			Endpoint:         aws.String("https://" + cfg.R2AccountID + ".r2.cloudflarestorage.com"),
			Region:           aws.String("auto"),
			Credentials:      credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
			S3ForcePathStyle: aws.Bool(true),
		})
		return NewObjectStorageService(client, cfg.AttachmentBucket, ""), nil
	default:
		return nil, errors.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
