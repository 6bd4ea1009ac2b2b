package interfaces

import (
	"context"

	"github.com/Raman369AI/fileProcessor/internal/models"
)

type EmailRepository interface {
	// Upsert inserts the email or refreshes its metadata when the message
	// was already seen. Returns the stored record.
	Upsert(ctx context.Context, email *models.IngestedEmail) (*models.IngestedEmail, error)
	GetByMessageID(ctx context.Context, messageID string) (*models.IngestedEmail, error)
	Recent(ctx context.Context, limit int) ([]*models.IngestedEmail, error)
}

type AttachmentRepository interface {
	Create(ctx context.Context, attachment *models.Attachment) (*models.Attachment, error)
	GetByTaskID(ctx context.Context, taskID string) (*models.Attachment, error)
	MarkProcessed(ctx context.Context, taskID string, attempts int) error
	MarkFailed(ctx context.Context, taskID string, attempts int, lastError string) error
	ListByEmail(ctx context.Context, emailID string) ([]*models.Attachment, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type CheckpointRepository interface {
	Record(ctx context.Context, checkpoint *models.SyncCheckpoint) error
	Latest(ctx context.Context) (*models.SyncCheckpoint, error)
}
