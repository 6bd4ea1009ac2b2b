package dto

// ExtractedContent is the result of running an attachment through
// content extraction. Tables is a list of tables, each a list of rows,
// each a list of cell strings. Never mutated after creation.
type ExtractedContent struct {
	Text     string         `json:"text"`
	Tables   [][][]string   `json:"tables"`
	Metadata map[string]any `json:"metadata"`
	FileType string         `json:"file_type"`
}

// NewExtractedContent returns content with initialized collections so
// serialized artifacts always carry the full shape.
func NewExtractedContent(fileType string) *ExtractedContent {
	return &ExtractedContent{
		Tables:   [][][]string{},
		Metadata: map[string]any{},
		FileType: fileType,
	}
}
