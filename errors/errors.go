package fileprocessor_errors

import "github.com/pkg/errors"

var (
	// authentication / configuration
	ErrAuthFailed        = errors.New("graph authentication failed")
	ErrIngestionDisabled = errors.New("ingestion is disabled: missing graph credentials")

	// fetch / download
	ErrFetchFailed     = errors.New("failed to fetch messages")
	ErrDownloadFailed  = errors.New("failed to download attachment")
	ErrEmptyAttachment = errors.New("attachment content is empty")

	// queue admission
	ErrQueueDisabled = errors.New("attachment queue is not enabled")
	ErrQueueFull     = errors.New("attachment queue is full")
	ErrItemTooLarge  = errors.New("attachment exceeds maximum item size")

	// ingestion cycle
	ErrCycleInProgress = errors.New("an ingestion cycle is already running")

	// extraction
	ErrUnsupportedFormat = errors.New("unsupported file format")
)
