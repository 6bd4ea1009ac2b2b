package dto

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Raman369AI/fileProcessor/internal/utils"
)

// attachment record sources
const (
	SourceEmail  = "email"
	SourceUpload = "upload"
)

// AttachmentRecord is the queue payload: one attachment plus the email
// context it arrived with. Content survives JSON round-trips losslessly
// ([]byte encodes as base64).
type AttachmentRecord struct {
	TaskID             string    `json:"task_id"`
	EmailID            string    `json:"email_id"`
	EmailSubject       string    `json:"email_subject"`
	EmailSenderName    string    `json:"email_sender_name"`
	EmailSenderAddress string    `json:"email_sender"`
	EmailBodyPreview   string    `json:"email_body_preview"`
	EmailReceivedAt    time.Time `json:"email_received_date"`
	AttachmentID       string    `json:"attachment_id"`
	Filename           string    `json:"attachment_filename"`
	Content            []byte    `json:"attachment_content"`
	MimeType           string    `json:"attachment_mime_type"`
	Size               int64     `json:"attachment_size"`
	Source             string    `json:"source"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewTaskID builds a task id unique per enqueue attempt. Retried
// enqueues of the same logical attachment get fresh ids.
func NewTaskID(messageID, attachmentID string) string {
	return fmt.Sprintf("%s_%s_%s",
		utils.ShortID(messageID, 8),
		utils.ShortID(attachmentID, 8),
		utils.ShortID(uuid.NewString(), 8))
}
