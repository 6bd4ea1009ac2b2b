package dto

import "time"

// EmailInfo is the slice of email context recorded on summary artifacts
type EmailInfo struct {
	MessageID            string    `json:"message_id"`
	Subject              string    `json:"subject"`
	Sender               string    `json:"sender"`
	ProcessedDate        time.Time `json:"processed_date"`
	TotalAttachments     int       `json:"total_attachments,omitempty"`
	AttachmentsProcessed int       `json:"attachments_processed,omitempty"`
	AttachmentsEnqueued  int       `json:"attachments_enqueued,omitempty"`
}

// EnqueuedAttachment describes one attachment admitted (or offered) to
// the queue in an enqueue summary
type EnqueuedAttachment struct {
	TaskID       string `json:"task_id"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	AttachmentID string `json:"attachment_id"`
	Enqueued     bool   `json:"enqueued"`
	Reason       string `json:"reason,omitempty"`
}

// EnqueueSummary is the per-message artifact written in queue mode
type EnqueueSummary struct {
	EmailInfo   EmailInfo            `json:"email_info"`
	Attachments []EnqueuedAttachment `json:"enqueued_attachments"`
}

// ProcessedAttachment describes one attachment handled in direct mode
type ProcessedAttachment struct {
	OriginalFilename string   `json:"original_filename"`
	SavedFilename    string   `json:"saved_filename"`
	FileType         string   `json:"file_type"`
	FileSize         int64    `json:"file_size"`
	SavedPath        string   `json:"saved_path"`
	ProcessingMethod string   `json:"processing_method"`
	Errors           []string `json:"errors"`
}

// ProcessingSummary is the per-message artifact written in direct mode
type ProcessingSummary struct {
	EmailInfo   EmailInfo             `json:"email_info"`
	Attachments []ProcessedAttachment `json:"attachments"`
}

// WorkerResult is the artifact a worker persists per task
type WorkerResult struct {
	TaskID       string            `json:"task_id"`
	EmailID      string            `json:"email_id"`
	EmailSubject string            `json:"email_subject"`
	Filename     string            `json:"filename"`
	MimeType     string            `json:"mime_type"`
	Size         int64             `json:"size"`
	Status       string            `json:"status"` // completed, failed
	Attempts     int               `json:"attempts"`
	Error        string            `json:"error,omitempty"`
	Content      *ExtractedContent `json:"content,omitempty"`
	ProcessedAt  time.Time         `json:"processed_at"`
	WorkerID     string            `json:"worker_id"`
}
