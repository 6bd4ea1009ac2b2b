package interfaces

import (
	"context"

	"github.com/Raman369AI/fileProcessor/dto"
)

type EventPublisher interface {
	PublishEmailIngestedEvent(ctx context.Context, event dto.EmailIngested) error
	PublishAttachmentProcessedEvent(ctx context.Context, event dto.AttachmentProcessed) error
	Close() error
}
