package interfaces

import (
	"context"
	"time"

	"github.com/Raman369AI/fileProcessor/dto"
)

// QueueItemPreview is a peeked queue entry with content elided
type QueueItemPreview struct {
	TaskID       string    `json:"task_id"`
	EmailSubject string    `json:"email_subject"`
	Filename     string    `json:"filename"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	ContentNote  string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}

// QueueStats is a point-in-time snapshot of queue usage
type QueueStats struct {
	QueueName          string         `json:"queue_name"`
	Length             int64          `json:"length"`
	MaxLength          int64          `json:"max_length"`
	UtilizationPercent float64        `json:"utilization_percent"`
	AvgItemSizeBytes   int64          `json:"avg_item_size_bytes"`
	FileTypes          map[string]int `json:"file_types"`
	SampledItems       int            `json:"sampled_items"`
}

// QueueHealth is the result of a queue health probe
type QueueHealth struct {
	Connected  bool     `json:"redis_connected"`
	Accessible bool     `json:"queue_accessible"`
	Length     int64    `json:"queue_length"`
	Errors     []string `json:"errors"`
}

// AttachmentQueue is a bounded FIFO for attachment records. Delivery is
// at-least-once: a pop is destructive regardless of whether the consumer
// finishes the item.
type AttachmentQueue interface {
	Enqueue(ctx context.Context, record *dto.AttachmentRecord) error
	// EnqueueBatch validates each record independently and returns how
	// many were admitted; it never rejects the batch wholesale.
	EnqueueBatch(ctx context.Context, records []*dto.AttachmentRecord) int
	// DequeueBlocking waits up to timeout for an item; (nil, nil) means
	// the timeout elapsed with an empty queue.
	DequeueBlocking(ctx context.Context, timeout time.Duration) (*dto.AttachmentRecord, error)
	Peek(ctx context.Context, count int) ([]QueueItemPreview, error)
	Clear(ctx context.Context) (int64, error)
	Length(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*QueueStats, error)
	HealthCheck(ctx context.Context) *QueueHealth
}
