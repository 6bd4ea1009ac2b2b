package events

import (
	"context"

	"github.com/Raman369AI/fileProcessor/dto"
	"github.com/Raman369AI/fileProcessor/interfaces"
)

// NoopPublisher stands in when no RabbitMQ URL is configured, the
// pipeline runs without emitting events.
type NoopPublisher struct{}

func NewNoopPublisher() interfaces.EventPublisher {
	return &NoopPublisher{}
}

func (p *NoopPublisher) PublishEmailIngestedEvent(ctx context.Context, event dto.EmailIngested) error {
	return nil
}

func (p *NoopPublisher) PublishAttachmentProcessedEvent(ctx context.Context, event dto.AttachmentProcessed) error {
	return nil
}

func (p *NoopPublisher) Close() error {
	return nil
}
