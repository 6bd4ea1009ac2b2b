package interfaces

import (
	"context"
	"time"
)

// Message is a fetched mail item, immutable once returned
type Message struct {
	ID             string    `json:"id"`
	Subject        string    `json:"subject"`
	SenderName     string    `json:"senderName"`
	SenderAddress  string    `json:"senderAddress"`
	ReceivedAt     time.Time `json:"receivedAt"`
	HasAttachments bool      `json:"hasAttachments"`
	BodyPreview    string    `json:"bodyPreview"`
}

// AttachmentRef identifies an attachment on a message without its content
type AttachmentRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// MailClient wraps the provider's delta-query mail API. Implementations
// own the persisted sync cursor: FetchNewMessages advances it only after
// a complete successful sweep.
type MailClient interface {
	Authenticate(ctx context.Context) error
	FetchNewMessages(ctx context.Context) ([]Message, error)
	ListAttachments(ctx context.Context, messageID string) ([]AttachmentRef, error)
	DownloadAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
	HasCursor() bool
}

// CursorStore persists the opaque provider sync cursor. Save must be
// atomic: a crash never leaves a partial cursor behind.
type CursorStore interface {
	Load() (string, error)
	Save(cursor string) error
	Reset() error
}
