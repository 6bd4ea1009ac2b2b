package interfaces

import (
	"context"

	"github.com/Raman369AI/fileProcessor/dto"
)

// ContentExtractor turns raw attachment bytes into structured content.
// Extract never returns an error: internal failures are captured into the
// result's metadata and whatever text or tables were salvaged are kept.
type ContentExtractor interface {
	Extract(ctx context.Context, content []byte, filename string, contextMeta map[string]any) *dto.ExtractedContent
	SupportedFormats() []string
}

// FormatExtractor handles a single family of file formats within the
// content extractor registry
type FormatExtractor interface {
	Extensions() []string
	Extract(ctx context.Context, content []byte, filename string) (*dto.ExtractedContent, error)
}
